// Copyright (c) 2013-2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/btcec/ecdsa"
	"github.com/btcsuite/btcscript/wire"
)

// RawTxInSignature returns the serialized ECDSA signature for the input idx of
// the given transaction, with hashType appended to it.  The legacy signature
// hash algorithm is used.
func RawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey) ([]byte, error) {

	hash, err := CalcSignatureHash(subScript, hashType, tx, idx)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, hash[:])

	return append(signature.Serialize(), byte(hashType)), nil
}

// RawTxInForkIDSignature returns the serialized ECDSA signature for the input
// idx of the given transaction using the value-committing signature hash over
// the passed amount.  SigHashForkID is added to the hash type when missing.
func RawTxInForkIDSignature(tx *wire.MsgTx, sigHashes *TxSigHashes, idx int,
	amt int64, subScript []byte, hashType SigHashType,
	key *btcec.PrivateKey) ([]byte, error) {

	hashType |= SigHashForkID
	hash, err := CalcForkIDSignatureHash(subScript, sigHashes, hashType, tx,
		idx, amt)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, hash[:])

	return append(signature.Serialize(), byte(hashType)), nil
}

// rawTxInSignature signs with whichever algorithm the hash type selects.  The
// amount for a fork id hash type is looked up through prevOuts.
func rawTxInSignature(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, key *btcec.PrivateKey,
	prevOuts PrevOutputFetcher) ([]byte, error) {

	hash, err := CalcSigHash(subScript, hashType, tx, idx, prevOuts,
		ScriptEnableSigHashForkID)
	if err != nil {
		return nil, err
	}
	signature := ecdsa.Sign(key, hash[:])

	return append(signature.Serialize(), byte(hashType)), nil
}

// SignatureScript creates an input signature script for tx to spend coins sent
// from a previous output to the owner of privKey. tx must include all
// transaction inputs and outputs, however txin scripts are allowed to be filled
// or empty. The returned script is calculated to be used as the idx'th txin
// sigscript for tx. subscript is the PkScript of the previous output being used
// as the idx'th input. privKey is serialized in either a compressed or
// uncompressed format based on compress. This format must match the same format
// used to generate the payment address, or the script validation will fail.
func SignatureScript(tx *wire.MsgTx, idx int, subscript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey, compress bool) ([]byte, error) {

	sig, err := RawTxInSignature(tx, idx, subscript, hashType, privKey)
	if err != nil {
		return nil, err
	}

	pk := privKey.PubKey()
	var pkData []byte
	if compress {
		pkData = pk.SerializeCompressed()
	} else {
		pkData = pk.SerializeUncompressed()
	}

	return PubKeyHashInScript(sig, pkData)
}

// VerifyTxInSignature reports whether sig, a DER signature followed by its hash
// type byte, is a valid signature of pubKey over the signature hash of input
// idx.  Parse failures are returned as errors while a well formed signature
// that does not verify yields false.
func VerifyTxInSignature(tx *wire.MsgTx, idx int, subScript, sig,
	pubKey []byte, prevOuts PrevOutputFetcher, flags ScriptFlags) (bool, error) {

	if len(sig) == 0 {
		return false, scriptError(ErrSigTooShort, "empty signature")
	}
	hashType := SigHashType(sig[len(sig)-1])
	parsedSig, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])
	if err != nil {
		return false, err
	}
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return false, err
	}

	hash, err := CalcSigHash(subScript, hashType, tx, idx, prevOuts, flags)
	if err != nil {
		return false, err
	}
	return parsedSig.Verify(hash[:], key), nil
}

func p2pkSignatureScript(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, privKey *btcec.PrivateKey,
	prevOuts PrevOutputFetcher) ([]byte, error) {

	sig, err := rawTxInSignature(tx, idx, subScript, hashType, privKey,
		prevOuts)
	if err != nil {
		return nil, err
	}

	return PubKeyInScript(sig)
}

// signMultiSig signs as many of the outputs in the provided multisig script as
// possible. It returns the generated script and a boolean if the script
// fulfils the contract (i.e. nrequired signatures are provided).  Since it is
// arguably legal to not be able to sign any of the outputs, no error is
// returned.
func signMultiSig(tx *wire.MsgTx, idx int, subScript []byte,
	hashType SigHashType, addresses []Address, nRequired int, kdb KeyDB,
	prevOuts PrevOutputFetcher) ([]byte, bool) {

	// We start with a single OP_FALSE to work around the (now standard)
	// but in the reference implementation that causes a spurious pop at
	// the end of OP_CHECKMULTISIG.
	builder := NewScriptBuilder().AddOp(OP_FALSE)
	signed := 0
	for _, addr := range addresses {
		key, _, err := kdb.GetKey(addr)
		if err != nil {
			continue
		}
		sig, err := rawTxInSignature(tx, idx, subScript, hashType, key,
			prevOuts)
		if err != nil {
			continue
		}

		builder.AddData(sig)
		signed++
		if signed == nRequired {
			break
		}
	}

	script, _ := builder.Script()
	return script, signed == nRequired
}

func sign(tx *wire.MsgTx, idx int, subScript []byte, hashType SigHashType,
	kdb KeyDB, sdb ScriptDB, prevOuts PrevOutputFetcher) ([]byte,
	ScriptClass, []Address, int, error) {

	class, addresses, nrequired, err := ExtractPkScriptAddrs(subScript)
	if err != nil {
		return nil, NonStandardTy, nil, 0, err
	}

	if class != MultiSigTy && class != NullDataTy && len(addresses) == 0 {
		str := fmt.Sprintf("no address to sign for in %v script", class)
		return nil, class, nil, 0, scriptError(ErrUnsupportedAddress, str)
	}

	switch class {
	case PubKeyTy:
		// look up key for address
		key, _, err := kdb.GetKey(addresses[0])
		if err != nil {
			return nil, class, nil, 0, err
		}

		script, err := p2pkSignatureScript(tx, idx, subScript,
			hashType, key, prevOuts)
		if err != nil {
			return nil, class, nil, 0, err
		}

		return script, class, addresses, nrequired, nil

	case PubKeyHashTy:
		// look up key for address
		key, compressed, err := kdb.GetKey(addresses[0])
		if err != nil {
			return nil, class, nil, 0, err
		}

		sig, err := rawTxInSignature(tx, idx, subScript, hashType, key,
			prevOuts)
		if err != nil {
			return nil, class, nil, 0, err
		}

		pkData := key.PubKey().SerializeUncompressed()
		if compressed {
			pkData = key.PubKey().SerializeCompressed()
		}
		script, err := PubKeyHashInScript(sig, pkData)
		if err != nil {
			return nil, class, nil, 0, err
		}

		return script, class, addresses, nrequired, nil

	case ScriptHashTy:
		script, err := sdb.GetScript(addresses[0])
		if err != nil {
			return nil, class, nil, 0, err
		}

		return script, class, addresses, nrequired, nil

	case MultiSigTy:
		script, _ := signMultiSig(tx, idx, subScript, hashType,
			addresses, nrequired, kdb, prevOuts)
		return script, class, addresses, nrequired, nil

	case NullDataTy:
		return nil, class, nil, 0,
			errors.New("can't sign NULLDATA transactions")

	default:
		return nil, class, nil, 0,
			errors.New("can't sign unknown transactions")
	}
}

// mergeScripts merges sigScript and prevScript assuming they are both
// partial solutions for pkScript spending output idx of tx. class, addresses
// and nrequired are the result of extracting the addresses from pkscript.
// The return value is the best effort merging of the two scripts. Calling this
// function with addresses, class and nrequired that do not match pkScript is
// an error and results in undefined behaviour.
func mergeScripts(tx *wire.MsgTx, idx int, pkScript []byte, class ScriptClass,
	addresses []Address, nRequired int, sigScript, prevScript []byte,
	prevOuts PrevOutputFetcher) []byte {

	switch class {
	case ScriptHashTy:
		// Nothing to merge if either the new or previous signature
		// scripts are empty or fail to parse.
		if len(sigScript) == 0 || checkScriptParses(sigScript) != nil {
			return prevScript
		}
		if len(prevScript) == 0 || checkScriptParses(prevScript) != nil {
			return sigScript
		}

		// Remove the last push in the script and then recurse.
		// this could be a lot less inefficient.
		//
		// Assume that final script is the correct one since it was just
		// made and it is a pay-to-script-hash.
		script := finalOpcodeData(sigScript)

		// We already know this information somewhere up the stack,
		// therefore the error is ignored.
		class, addresses, nrequired, _ := ExtractPkScriptAddrs(script)

		// Merge
		mergedScript := mergeScripts(tx, idx, script, class,
			addresses, nrequired, stripFinalPush(sigScript),
			stripFinalPush(prevScript), prevOuts)

		// Reappend the script and return the result.
		merged, err := ScriptHashInScript(mergedScript, script)
		if err != nil {
			return sigScript
		}
		return merged

	case MultiSigTy:
		return mergeMultiSig(tx, idx, addresses, nRequired, pkScript,
			sigScript, prevScript, prevOuts)

	// It doesn't actually make sense to merge anything other than multiig
	// and scripthash (because it could contain multisig). Everything else
	// has either zero signature, can't be spent, or has a single signature
	// which is either present or not. The other two cases are handled
	// above. In the conflict case here we just assume the longest is
	// correct (this matches behaviour of the reference implementation).
	default:
		if len(sigScript) > len(prevScript) {
			return sigScript
		}
		return prevScript
	}
}

// stripFinalPush returns the script with its final opcode removed.  Scripts
// that fail to parse are returned unchanged.
func stripFinalPush(script []byte) []byte {
	var lastStart int32 = -1
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		lastStart = tokenizer.OpcodeStart()
	}
	if tokenizer.Err() != nil || lastStart < 0 {
		return script
	}
	return script[:lastStart]
}

// mergeMultiSig combines the two signature scripts sigScript and prevScript
// that both provide signatures for pkScript in output idx of tx. addresses
// and nRequired should be the results from extracting the addresses from
// pkScript. Since this function is internal only we assume that the arguments
// have come from other functions internally and thus are all consistent with
// each other, behaviour is undefined if this contract is broken.
func mergeMultiSig(tx *wire.MsgTx, idx int, addresses []Address,
	nRequired int, pkScript, sigScript, prevScript []byte,
	prevOuts PrevOutputFetcher) []byte {

	// Nothing to merge if either the new or previous signature scripts are
	// empty.
	if len(sigScript) == 0 {
		return prevScript
	}
	if len(prevScript) == 0 {
		return sigScript
	}

	// Convenience function to avoid duplication.
	var possibleSigs [][]byte
	extractSigs := func(script []byte) error {
		tokenizer := MakeScriptTokenizer(script)
		for tokenizer.Next() {
			if data := tokenizer.Data(); len(data) != 0 {
				possibleSigs = append(possibleSigs, data)
			}
		}
		return tokenizer.Err()
	}

	// Attempt to extract signatures from the two scripts.  Return the other
	// script that is intended to be merged in the case signature extraction
	// fails for some reason.
	if err := extractSigs(sigScript); err != nil {
		return prevScript
	}
	if err := extractSigs(prevScript); err != nil {
		return sigScript
	}

	// Now we need to match the signatures to pubkeys, the only real way to
	// do that is to try to verify them all and match it to the pubkey
	// that verifies it. we then can go through the addresses in order
	// to build our script. Anything that doesn't parse or doesn't verify we
	// throw away.
	addrToSig := make(map[string][]byte)
sigLoop:
	for _, sig := range possibleSigs {

		// can't have a valid signature that doesn't at least have a
		// hashtype, in practice it is even longer than this. but
		// that'll be checked next.
		if len(sig) < 1 {
			continue
		}
		tSig := sig[:len(sig)-1]
		hashType := SigHashType(sig[len(sig)-1])

		pSig, err := ecdsa.ParseDERSignature(tSig)
		if err != nil {
			continue
		}

		// We have to do this each round since hash types may vary
		// between signatures and so the hash will vary. We can,
		// however, assume no sigs etc are in the script since that
		// would make the transaction nonstandard and thus not
		// MultiSigTy, so we just need to hash the full thing.
		hash, err := CalcSigHash(pkScript, hashType, tx, idx, prevOuts,
			ScriptEnableSigHashForkID)
		if err != nil {
			continue
		}

		for _, addr := range addresses {
			// All multisig addresses should be pubkey addresses
			// it is an error to call this internal function with
			// bad input.
			pubKey, err := btcec.ParsePubKey(addr.ScriptAddress())
			if err != nil {
				continue
			}

			// If it matches we put it in the map. We only
			// can take one signature per public key so if we
			// already have one, we can throw this away.
			if pSig.Verify(hash[:], pubKey) {
				aStr := string(addr.ScriptAddress())
				if _, ok := addrToSig[aStr]; !ok {
					addrToSig[aStr] = sig
				}
				continue sigLoop
			}
		}
	}

	// Extra opcode to handle the extra arg consumed (due to previous bugs
	// in the reference implementation).
	builder := NewScriptBuilder().AddOp(OP_FALSE)
	doneSigs := 0
	// This assumes that addresses are in the same order as in the script.
	for _, addr := range addresses {
		sig, ok := addrToSig[string(addr.ScriptAddress())]
		if !ok {
			continue
		}
		builder.AddData(sig)
		doneSigs++
		if doneSigs == nRequired {
			break
		}
	}

	// padding for missing ones.
	for i := doneSigs; i < nRequired; i++ {
		builder.AddOp(OP_0)
	}

	script, _ := builder.Script()
	return script
}

// KeyDB is an interface type provided to SignTxInput, it encapsulates
// any user state required to get the private keys for an address.
type KeyDB interface {
	GetKey(Address) (*btcec.PrivateKey, bool, error)
}

// KeyClosure implements KeyDB with a closure.
type KeyClosure func(Address) (*btcec.PrivateKey, bool, error)

// GetKey implements KeyDB by returning the result of calling the closure.
func (kc KeyClosure) GetKey(address Address) (*btcec.PrivateKey, bool, error) {
	return kc(address)
}

// ScriptDB is an interface type provided to SignTxInput, it encapsulates any
// user state required to get the scripts for an pay-to-script-hash address.
type ScriptDB interface {
	GetScript(Address) ([]byte, error)
}

// ScriptClosure implements ScriptDB with a closure.
type ScriptClosure func(Address) ([]byte, error)

// GetScript implements ScriptDB by returning the result of calling the closure.
func (sc ScriptClosure) GetScript(address Address) ([]byte, error) {
	return sc(address)
}

// SignTxInput signs output idx of the given tx to resolve the script given in
// pkScript with a signature type of hashType. Any keys required will be
// looked up by calling getKey() with the string of the given address.
// Any pay-to-script-hash signatures will be similarly looked up by calling
// getScript. If previousScript is provided then the results in previousScript
// will be merged in a type-dependent manner with the newly generated.
// signature script.  A hash type carrying SigHashForkID signs with the
// value-committing algorithm, looking up the amount through prevOuts.
func SignTxInput(tx *wire.MsgTx, idx int, pkScript []byte,
	hashType SigHashType, kdb KeyDB, sdb ScriptDB, previousScript []byte,
	prevOuts PrevOutputFetcher) ([]byte, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is out of range "+
			"for %d inputs", idx, len(tx.TxIn))
		return nil, scriptError(ErrInvalidIndex, str)
	}

	sigScript, class, addresses, nrequired, err := sign(tx,
		idx, pkScript, hashType, kdb, sdb, prevOuts)
	if err != nil {
		return nil, err
	}

	if class == ScriptHashTy {
		realSigScript, _, _, _, err := sign(tx, idx,
			sigScript, hashType, kdb, sdb, prevOuts)
		if err != nil {
			return nil, err
		}

		// Append the p2sh script as the last push in the script.
		script, err := ScriptHashInScript(realSigScript, sigScript)
		if err != nil {
			return nil, err
		}
		sigScript = script
	}

	// Merge scripts. with any previous data, if any.
	mergedScript := mergeScripts(tx, idx, pkScript, class,
		addresses, nrequired, sigScript, previousScript, prevOuts)
	return mergedScript, nil
}
