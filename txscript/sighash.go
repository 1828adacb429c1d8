// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/wire"
)

// SigHashType represents hash type bits at the end of a signature.
type SigHashType uint32

// Hash type bits from the end of a signature.
const (
	SigHashOld          SigHashType = 0x0
	SigHashAll          SigHashType = 0x1
	SigHashNone         SigHashType = 0x2
	SigHashSingle       SigHashType = 0x3
	SigHashForkID       SigHashType = 0x40
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask defines the number of bits of the hash type which is used
	// to identify which outputs are signed.
	sigHashMask = 0x1f
)

// String returns the hash type in the SIGHASH_* notation.
func (t SigHashType) String() string {
	var base string
	switch t & sigHashMask {
	case SigHashAll:
		base = "SIGHASH_ALL"
	case SigHashNone:
		base = "SIGHASH_NONE"
	case SigHashSingle:
		base = "SIGHASH_SINGLE"
	default:
		return fmt.Sprintf("SIGHASH_UNKNOWN(0x%02x)", uint32(t))
	}
	if t&SigHashForkID != 0 {
		base += "|FORKID"
	}
	if t&SigHashAnyOneCanPay != 0 {
		base += "|ANYONECANPAY"
	}
	return base
}

// shallowCopyTx creates a shallow copy of the transaction for use when
// calculating the signature hash.  It is used over the Copy method on the
// transaction itself since that is a deep copy and therefore does more work and
// allocates much more space than needed.
func shallowCopyTx(tx *wire.MsgTx) wire.MsgTx {
	// As an additional memory optimization, use contiguous backing arrays
	// for the copied inputs and outputs and point the final slice of
	// pointers into the contiguous arrays.  This avoids a lot of small
	// allocations.
	txCopy := wire.MsgTx{
		Version:  tx.Version,
		TxIn:     make([]*wire.TxIn, len(tx.TxIn)),
		TxOut:    make([]*wire.TxOut, len(tx.TxOut)),
		LockTime: tx.LockTime,
	}
	txIns := make([]wire.TxIn, len(tx.TxIn))
	for i, oldTxIn := range tx.TxIn {
		txIns[i] = *oldTxIn
		txCopy.TxIn[i] = &txIns[i]
	}
	txOuts := make([]wire.TxOut, len(tx.TxOut))
	for i, oldTxOut := range tx.TxOut {
		txOuts[i] = *oldTxOut
		txCopy.TxOut[i] = &txOuts[i]
	}
	return txCopy
}

// CalcSignatureHash will, given a script and hash type for the current script
// engine instance, calculate the signature hash to be used for signing and
// verification.
//
// NOTE: this function is only valid for the legacy algorithm.  See
// CalcForkIDSignatureHash for the value-committing variant.
func CalcSignatureHash(script []byte, hashType SigHashType, tx *wire.MsgTx,
	idx int) (chainhash.Hash, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is out of range "+
			"for %d inputs", idx, len(tx.TxIn))
		return chainhash.Hash{}, scriptError(ErrInvalidIndex, str)
	}
	if err := checkScriptParses(script); err != nil {
		return chainhash.Hash{}, err
	}

	return calcSignatureHash(script, hashType, tx, idx), nil
}

// calcSignatureHash computes the signature hash for the specified input of the
// target transaction observing the desired signature hash type.  The script
// must already be known to parse and the index must be in range.
func calcSignatureHash(sigScript []byte, hashType SigHashType, tx *wire.MsgTx,
	idx int) chainhash.Hash {

	// The SigHashSingle signature type signs only the corresponding input
	// and output (the output with the same index number as the input).
	//
	// Since transactions can have more inputs than outputs, this means it
	// is improper to use SigHashSingle on input indices that don't have a
	// corresponding output.
	//
	// A bug in the original Satoshi client implementation means specifying
	// an index that is out of range results in a signature hash of 1 (as a
	// uint256 little endian).  The original intent appeared to be to
	// indicate failure, but unfortunately, it was never checked and thus is
	// treated as the actual signature hash.  This buggy behavior is now
	// part of the consensus and a hard fork would be required to fix it.
	//
	// Due to this, care must be taken by software that creates transactions
	// which make use of SigHashSingle because it can lead to an extremely
	// dangerous situation where the invalid inputs will end up signing a
	// hash of 1.  This in turn presents an opportunity for attackers to
	// cleverly construct transactions which can steal those coins provided
	// they can reuse signatures.
	if hashType&sigHashMask == SigHashSingle && idx >= len(tx.TxOut) {
		var hash chainhash.Hash
		hash[0] = 0x01
		return hash
	}

	// Remove all instances of OP_CODESEPARATOR from the script.
	sigScript = removeOpcodeRaw(sigScript, OP_CODESEPARATOR)

	// Make a shallow copy of the transaction, zeroing out the script for
	// all inputs that are not currently being processed.
	txCopy := shallowCopyTx(tx)
	for i := range txCopy.TxIn {
		if i == idx {
			txCopy.TxIn[idx].SignatureScript = sigScript
		} else {
			txCopy.TxIn[i].SignatureScript = nil
		}
	}

	switch hashType & sigHashMask {
	case SigHashNone:
		txCopy.TxOut = txCopy.TxOut[0:0] // Empty slice.
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}

	case SigHashSingle:
		// Resize output array to up to and including requested index.
		txCopy.TxOut = txCopy.TxOut[:idx+1]

		// All but current output get zeroed out.
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i].Value = -1
			txCopy.TxOut[i].PkScript = nil
		}

		// Sequence on all other inputs is 0, too.
		for i := range txCopy.TxIn {
			if i != idx {
				txCopy.TxIn[i].Sequence = 0
			}
		}

	default:
		// Consensus treats undefined hashtypes like normal SigHashAll
		// for purposes of hash generation.
		fallthrough
	case SigHashOld:
		fallthrough
	case SigHashAll:
		// Nothing special here.
	}
	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = txCopy.TxIn[idx : idx+1]
	}

	// The final hash is the double sha256 of both the serialized modified
	// transaction and the hash type (encoded as a 4-byte little-endian
	// value) appended.
	wbuf := bytes.NewBuffer(make([]byte, 0, txCopy.SerializeSize()+4))
	_ = txCopy.Serialize(wbuf)
	_ = binary.Write(wbuf, binary.LittleEndian, hashType)
	return chainhash.DoubleHashH(wbuf.Bytes())
}

// CalcForkIDSignatureHash computes the value-committing signature hash for
// the specified input.  The amount is the value of the output being spent and
// sigHashes holds the midstate shared by every input of the transaction.
// Unlike the legacy algorithm the script is hashed as given, so callers pass
// the script starting after the last executed OP_CODESEPARATOR.
func CalcForkIDSignatureHash(subScript []byte, sigHashes *TxSigHashes,
	hashType SigHashType, tx *wire.MsgTx, idx int,
	amt int64) (chainhash.Hash, error) {

	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is out of range "+
			"for %d inputs", idx, len(tx.TxIn))
		return chainhash.Hash{}, scriptError(ErrInvalidIndex, str)
	}
	if sigHashes == nil {
		sigHashes = NewTxSigHashes(tx)
	}

	return calcForkIDSignatureHash(subScript, sigHashes, hashType, tx, idx,
		amt), nil
}

// calcForkIDSignatureHash serializes the value-committing preimage and
// returns its double sha256.
func calcForkIDSignatureHash(subScript []byte, sigHashes *TxSigHashes,
	hashType SigHashType, tx *wire.MsgTx, idx int,
	amt int64) chainhash.Hash {

	var zeroHash chainhash.Hash
	var sigHash bytes.Buffer

	// First write out, then encode the transaction's version number.
	var bVersion [4]byte
	binary.LittleEndian.PutUint32(bVersion[:], uint32(tx.Version))
	sigHash.Write(bVersion[:])

	// Next write out the possibly pre-calculated hashes for the sequence
	// numbers of all inputs, and the hashes of the previous outs for all
	// outputs.
	//
	// If anyone can pay isn't active, then we can use the cached
	// hashPrevOuts, otherwise we just write zeroes for the prev outs.
	if hashType&SigHashAnyOneCanPay == 0 {
		sigHash.Write(sigHashes.HashPrevOuts[:])
	} else {
		sigHash.Write(zeroHash[:])
	}

	// If the sighash isn't anyone can pay, single, or none, the use the
	// cached hash sequences, otherwise write all zeroes for the
	// hashSequence.
	if hashType&SigHashAnyOneCanPay == 0 &&
		hashType&sigHashMask != SigHashSingle &&
		hashType&sigHashMask != SigHashNone {

		sigHash.Write(sigHashes.HashSequence[:])
	} else {
		sigHash.Write(zeroHash[:])
	}

	txIn := tx.TxIn[idx]

	// Next, write the outpoint being spent.
	_ = wire.WriteOutPoint(&sigHash, &txIn.PreviousOutPoint)

	// The script code is written with its length prefix followed by the
	// value of the output being spent.
	_ = wire.WriteVarBytes(&sigHash, subScript)

	var bAmount [8]byte
	binary.LittleEndian.PutUint64(bAmount[:], uint64(amt))
	sigHash.Write(bAmount[:])
	var bSequence [4]byte
	binary.LittleEndian.PutUint32(bSequence[:], txIn.Sequence)
	sigHash.Write(bSequence[:])

	// If the current signature mode isn't single, or none, then we can
	// re-use the pre-generated hashoutputs sighash fragment.  Otherwise,
	// we'll serialize and add only the target output index to the signature
	// pre-image.
	if hashType&sigHashMask != SigHashSingle &&
		hashType&sigHashMask != SigHashNone {

		sigHash.Write(sigHashes.HashOutputs[:])
	} else if hashType&sigHashMask == SigHashSingle && idx < len(tx.TxOut) {
		var b bytes.Buffer
		_ = wire.WriteTxOut(&b, tx.TxOut[idx])
		sigHash.Write(chainhash.DoubleHashB(b.Bytes()))
	} else {
		sigHash.Write(zeroHash[:])
	}

	// Finally, write out the transaction's locktime, and the sig hash
	// type.
	var bLockTime [4]byte
	binary.LittleEndian.PutUint32(bLockTime[:], tx.LockTime)
	sigHash.Write(bLockTime[:])
	var bHashType [4]byte
	binary.LittleEndian.PutUint32(bHashType[:], uint32(hashType))
	sigHash.Write(bHashType[:])

	return chainhash.DoubleHashH(sigHash.Bytes())
}

// CalcSigHash computes the digest a signature with the given hash type
// commits to.  The value-committing algorithm is used only when flags include
// ScriptEnableSigHashForkID and the hash type carries SigHashForkID, in which
// case the spent output is looked up through prevOuts.  A missing fetcher or
// output is reported as ErrMissingAmount since the amount has no default.
func CalcSigHash(script []byte, hashType SigHashType, tx *wire.MsgTx, idx int,
	prevOuts PrevOutputFetcher, flags ScriptFlags) (chainhash.Hash, error) {

	if flags&ScriptEnableSigHashForkID == 0 || hashType&SigHashForkID == 0 {
		return CalcSignatureHash(script, hashType, tx, idx)
	}

	if idx < 0 || idx >= len(tx.TxIn) {
		str := fmt.Sprintf("transaction input index %d is out of range "+
			"for %d inputs", idx, len(tx.TxIn))
		return chainhash.Hash{}, scriptError(ErrInvalidIndex, str)
	}
	amt, err := fetchAmount(prevOuts, tx.TxIn[idx].PreviousOutPoint)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return CalcForkIDSignatureHash(script, nil, hashType, tx, idx, amt)
}

// fetchAmount returns the value of the output spent at op.
func fetchAmount(prevOuts PrevOutputFetcher, op wire.OutPoint) (int64, error) {
	if prevOuts == nil {
		str := fmt.Sprintf("no previous output fetcher to look up the "+
			"amount spent by %v", op)
		return 0, scriptError(ErrMissingAmount, str)
	}
	prevOut := prevOuts.FetchPrevOutput(op)
	if prevOut == nil {
		str := fmt.Sprintf("amount spent by %v is unknown", op)
		return 0, scriptError(ErrMissingAmount, str)
	}
	return prevOut.Value, nil
}

// isForkIDHashType returns whether signatures with the hash type are checked
// with the value-committing algorithm by this engine.
func (vm *Engine) isForkIDHashType(hashType SigHashType) bool {
	return vm.hasFlag(ScriptEnableSigHashForkID) &&
		hashType&SigHashForkID != 0
}

// calcSignatureHash returns the digest a signature over script with the given
// hash type commits to for the input being validated.
func (vm *Engine) calcSignatureHash(script []byte,
	hashType SigHashType) (chainhash.Hash, error) {

	if !vm.isForkIDHashType(hashType) {
		return calcSignatureHash(script, hashType, &vm.tx, vm.txIdx), nil
	}

	amt, err := fetchAmount(vm.prevOutFetcher,
		vm.tx.TxIn[vm.txIdx].PreviousOutPoint)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if vm.hashCache == nil {
		vm.hashCache = NewTxSigHashes(&vm.tx)
	}
	return calcForkIDSignatureHash(script, vm.hashCache, hashType, &vm.tx,
		vm.txIdx, amt), nil
}
