// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"errors"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/wire"
	"github.com/stretchr/testify/require"
)

type addressToKey struct {
	key        *btcec.PrivateKey
	compressed bool
}

// mkGetKey returns a KeyDB over the passed map, keyed by the raw address
// payload.
func mkGetKey(keys map[string]addressToKey) KeyDB {
	if keys == nil {
		return KeyClosure(func(addr Address) (*btcec.PrivateKey, bool,
			error) {

			return nil, false, errors.New("nope")
		})
	}
	return KeyClosure(func(addr Address) (*btcec.PrivateKey, bool, error) {
		a2k, ok := keys[string(addr.ScriptAddress())]
		if !ok {
			return nil, false, errors.New("nope")
		}
		return a2k.key, a2k.compressed, nil
	})
}

// mkGetScript returns a ScriptDB over the passed map, keyed by the raw
// script hash.
func mkGetScript(scripts map[string][]byte) ScriptDB {
	if scripts == nil {
		return ScriptClosure(func(addr Address) ([]byte, error) {
			return nil, errors.New("nope")
		})
	}
	return ScriptClosure(func(addr Address) ([]byte, error) {
		script, ok := scripts[string(addr.ScriptAddress())]
		if !ok {
			return nil, errors.New("nope")
		}
		return script, nil
	})
}

// signTestTx returns a transaction with three inputs and two outputs so the
// hash types that select subsets of the transaction all differ.
func signTestTx() *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	for i := uint32(0); i < 3; i++ {
		prevHash := chainhash.Hash{byte(i + 1), 0xab, 0xcd}
		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, i), nil))
	}
	tx.AddTxOut(wire.NewTxOut(1, []byte{OP_TRUE}))
	tx.AddTxOut(wire.NewTxOut(2, []byte{OP_TRUE}))
	return tx
}

// checkScripts executes the signature script of input idx against pkScript.
func checkScripts(tx *wire.MsgTx, idx int, pkScript []byte, flags ScriptFlags,
	prevOuts PrevOutputFetcher) error {

	vm, err := NewEngine(pkScript, tx, idx, flags, nil, nil, prevOuts)
	if err != nil {
		return fmt.Errorf("failed to make script engine: %w", err)
	}
	return vm.Execute()
}

// signAndCheck signs every input of tx for pkScript and executes the result,
// using the value-committing rules when the hash type asks for them.
func signAndCheck(t *testing.T, tx *wire.MsgTx, pkScript []byte,
	hashType SigHashType, kdb KeyDB, sdb ScriptDB) {

	t.Helper()

	flags := StandardVerifyFlags
	var prevOuts PrevOutputFetcher
	if hashType&SigHashForkID != 0 {
		flags |= ScriptEnableSigHashForkID
		prevOuts = NewCannedPrevOutputFetcher(pkScript, 50000)
	}

	for i := range tx.TxIn {
		sigScript, err := SignTxInput(tx, i, pkScript, hashType, kdb,
			sdb, nil, prevOuts)
		require.NoError(t, err, "input %d", i)
		tx.TxIn[i].SignatureScript = sigScript
		require.NoError(t, checkScripts(tx, i, pkScript, flags, prevOuts),
			"input %d", i)
	}
}

var signHashTypes = []SigHashType{
	SigHashAll,
	SigHashNone,
	SigHashSingle,
	SigHashAll | SigHashAnyOneCanPay,
	SigHashNone | SigHashAnyOneCanPay,
	SigHashSingle | SigHashAnyOneCanPay,
	SigHashAll | SigHashForkID,
	SigHashNone | SigHashForkID,
	SigHashSingle | SigHashForkID,
	SigHashAll | SigHashAnyOneCanPay | SigHashForkID,
	SigHashSingle | SigHashAnyOneCanPay | SigHashForkID,
}

// TestSignTxInputTemplates signs each standard template with every hash type
// and ensures the produced script satisfies the engine.
func TestSignTxInputTemplates(t *testing.T) {
	t.Parallel()

	key1, key2, key3 := testKey(0x11), testKey(0x22), testKey(0x33)
	comp1 := key1.PubKey().SerializeCompressed()
	uncomp1 := key1.PubKey().SerializeUncompressed()
	comp2 := key2.PubKey().SerializeCompressed()
	comp3 := key3.PubKey().SerializeCompressed()

	p2pkhComp, err := PayToPubKeyHashScript(Hash160(comp1))
	require.NoError(t, err)
	p2pkhUncomp, err := PayToPubKeyHashScript(Hash160(uncomp1))
	require.NoError(t, err)
	p2pk, err := PayToPubKeyScript(comp1)
	require.NoError(t, err)
	multiSig, err := MultiSigScript([][]byte{comp1, comp2, comp3}, 2)
	require.NoError(t, err)

	keys := map[string]addressToKey{
		string(Hash160(comp1)):   {key1, true},
		string(Hash160(uncomp1)): {key1, false},
		string(comp1):            {key1, true},
		string(comp2):            {key2, true},
		string(comp3):            {key3, true},
	}
	scripts := make(map[string][]byte)
	wrap := func(redeemScript []byte) []byte {
		scripts[string(Hash160(redeemScript))] = redeemScript
		pkScript, err := PayToScriptHashScript(Hash160(redeemScript))
		require.NoError(t, err)
		return pkScript
	}

	tests := []struct {
		name     string
		pkScript []byte
	}{
		{"p2pkh compressed", p2pkhComp},
		{"p2pkh uncompressed", p2pkhUncomp},
		{"p2pk", p2pk},
		{"multisig", multiSig},
		{"p2sh p2pkh", wrap(p2pkhComp)},
		{"p2sh p2pk", wrap(p2pk)},
		{"p2sh multisig", wrap(multiSig)},
	}

	for _, test := range tests {
		for _, hashType := range signHashTypes {
			t.Run(fmt.Sprintf("%s %v", test.name, hashType),
				func(t *testing.T) {
					signAndCheck(t, signTestTx(), test.pkScript,
						hashType, mkGetKey(keys),
						mkGetScript(scripts))
				})
		}
	}
}

// TestSignTxInputForkIDRequiresAmount ensures a fork id signature can't be
// produced without knowing the amount being spent.
func TestSignTxInputForkIDRequiresAmount(t *testing.T) {
	t.Parallel()

	key := testKey(0x11)
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := PayToPubKeyHashScript(Hash160(pubKey))
	require.NoError(t, err)
	keys := mkGetKey(map[string]addressToKey{
		string(Hash160(pubKey)): {key, true},
	})

	tx := signTestTx()
	_, err = SignTxInput(tx, 0, pkScript, SigHashAll|SigHashForkID, keys,
		mkGetScript(nil), nil, nil)
	require.True(t, IsErrorCode(err, ErrMissingAmount), "got %v", err)

	empty := NewMultiPrevOutFetcher(nil)
	_, err = SignTxInput(tx, 0, pkScript, SigHashAll|SigHashForkID, keys,
		mkGetScript(nil), nil, empty)
	require.True(t, IsErrorCode(err, ErrMissingAmount), "got %v", err)
}

// TestForkIDSignatureCommitsToAmount ensures a fork id signature made over one
// amount fails when the engine is told a different amount was spent, and that
// the engine refuses legacy hash types once the fork id is enabled.
func TestForkIDSignatureCommitsToAmount(t *testing.T) {
	t.Parallel()

	key := testKey(0x44)
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := PayToPubKeyHashScript(Hash160(pubKey))
	require.NoError(t, err)
	keys := mkGetKey(map[string]addressToKey{
		string(Hash160(pubKey)): {key, true},
	})

	tx := signTestTx()
	signed := NewCannedPrevOutputFetcher(pkScript, 1000)
	sigScript, err := SignTxInput(tx, 0, pkScript, SigHashAll|SigHashForkID,
		keys, mkGetScript(nil), nil, signed)
	require.NoError(t, err)
	tx.TxIn[0].SignatureScript = sigScript

	flags := StandardVerifyFlags | ScriptEnableSigHashForkID
	require.NoError(t, checkScripts(tx, 0, pkScript, flags, signed))

	other := NewCannedPrevOutputFetcher(pkScript, 1001)
	err = checkScripts(tx, 0, pkScript, flags, other)
	require.True(t, IsErrorCode(err, ErrEvalFalse), "got %v", err)

	// The engine without an amount can't check the signature at all.
	err = checkScripts(tx, 0, pkScript, flags, nil)
	require.True(t, IsErrorCode(err, ErrMissingAmount), "got %v", err)

	// Without the fork id enabled the hash type byte is rejected.
	err = checkScripts(tx, 0, pkScript, StandardVerifyFlags, signed)
	require.True(t, IsErrorCode(err, ErrIllegalForkID), "got %v", err)

	// A legacy signature is refused once the fork id is enabled.
	sigScript, err = SignTxInput(tx, 0, pkScript, SigHashAll, keys,
		mkGetScript(nil), nil, nil)
	require.NoError(t, err)
	tx.TxIn[0].SignatureScript = sigScript
	err = checkScripts(tx, 0, pkScript, flags, signed)
	require.True(t, IsErrorCode(err, ErrMustUseForkID), "got %v", err)
	require.NoError(t, checkScripts(tx, 0, pkScript, StandardVerifyFlags,
		nil))
}

// TestSignTxInputMergeMultiSig signs a 2-of-3 multisig one key at a time and
// ensures the partial scripts merge into a valid one.
func TestSignTxInputMergeMultiSig(t *testing.T) {
	t.Parallel()

	key1, key2, key3 := testKey(0x51), testKey(0x52), testKey(0x53)
	comp1 := key1.PubKey().SerializeCompressed()
	comp2 := key2.PubKey().SerializeCompressed()
	comp3 := key3.PubKey().SerializeCompressed()
	multiSig, err := MultiSigScript([][]byte{comp1, comp2, comp3}, 2)
	require.NoError(t, err)
	p2sh, err := PayToScriptHashScript(Hash160(multiSig))
	require.NoError(t, err)
	scripts := mkGetScript(map[string][]byte{
		string(Hash160(multiSig)): multiSig,
	})

	tests := []struct {
		name     string
		pkScript []byte
		hashType SigHashType
		prevOuts PrevOutputFetcher
		flags    ScriptFlags
	}{{
		name:     "bare",
		pkScript: multiSig,
		hashType: SigHashAll,
		flags:    StandardVerifyFlags,
	}, {
		name:     "p2sh",
		pkScript: p2sh,
		hashType: SigHashAll,
		flags:    StandardVerifyFlags,
	}, {
		name:     "p2sh fork id",
		pkScript: p2sh,
		hashType: SigHashAll | SigHashForkID,
		prevOuts: NewCannedPrevOutputFetcher(p2sh, 7000),
		flags:    StandardVerifyFlags | ScriptEnableSigHashForkID,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tx := signTestTx()

			// Only the third key signs first, which is not enough.
			first, err := SignTxInput(tx, 0, test.pkScript,
				test.hashType, mkGetKey(map[string]addressToKey{
					string(comp3): {key3, true},
				}), scripts, nil, test.prevOuts)
			require.NoError(t, err)
			tx.TxIn[0].SignatureScript = first
			err = checkScripts(tx, 0, test.pkScript, test.flags,
				test.prevOuts)
			require.Error(t, err)

			// The first key signs and merges with the earlier
			// partial script.
			merged, err := SignTxInput(tx, 0, test.pkScript,
				test.hashType, mkGetKey(map[string]addressToKey{
					string(comp1): {key1, true},
				}), scripts, first, test.prevOuts)
			require.NoError(t, err)
			tx.TxIn[0].SignatureScript = merged
			require.NoError(t, checkScripts(tx, 0, test.pkScript,
				test.flags, test.prevOuts))

			// Merging again with a signature from the remaining
			// key keeps the script valid since only two are used.
			again, err := SignTxInput(tx, 0, test.pkScript,
				test.hashType, mkGetKey(map[string]addressToKey{
					string(comp2): {key2, true},
				}), scripts, merged, test.prevOuts)
			require.NoError(t, err)
			tx.TxIn[0].SignatureScript = again
			require.NoError(t, checkScripts(tx, 0, test.pkScript,
				test.flags, test.prevOuts))
		})
	}
}

// TestSignTxInputErrors exercises the failure paths of SignTxInput.
func TestSignTxInputErrors(t *testing.T) {
	t.Parallel()

	key := testKey(0x61)
	pubKey := key.PubKey().SerializeCompressed()
	p2pkh, err := PayToPubKeyHashScript(Hash160(pubKey))
	require.NoError(t, err)
	p2sh, err := PayToScriptHashScript(Hash160(p2pkh))
	require.NoError(t, err)
	nullData, err := NullDataScript([]byte("hello"))
	require.NoError(t, err)
	keys := mkGetKey(map[string]addressToKey{
		string(Hash160(pubKey)): {key, true},
	})

	tx := signTestTx()

	// Index out of range.
	_, err = SignTxInput(tx, 3, p2pkh, SigHashAll, keys, mkGetScript(nil),
		nil, nil)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), "got %v", err)
	_, err = SignTxInput(tx, -1, p2pkh, SigHashAll, keys, mkGetScript(nil),
		nil, nil)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), "got %v", err)

	// Unknown key.
	_, err = SignTxInput(tx, 0, p2pkh, SigHashAll, mkGetKey(nil),
		mkGetScript(nil), nil, nil)
	require.Error(t, err)

	// Unknown redeem script.
	_, err = SignTxInput(tx, 0, p2sh, SigHashAll, keys, mkGetScript(nil),
		nil, nil)
	require.Error(t, err)

	// Templates that can't be signed.
	_, err = SignTxInput(tx, 0, nullData, SigHashAll, keys,
		mkGetScript(nil), nil, nil)
	require.Error(t, err)
	_, err = SignTxInput(tx, 0, []byte{OP_TRUE}, SigHashAll, keys,
		mkGetScript(nil), nil, nil)
	require.Error(t, err)
}

// TestSignatureScript ensures the convenience pay-to-pubkey-hash signer
// produces valid scripts for both key encodings and that VerifyTxInSignature
// agrees with the engine.
func TestSignatureScript(t *testing.T) {
	t.Parallel()

	key := testKey(0x71)
	for _, compress := range []bool{true, false} {
		pubKey := key.PubKey().SerializeUncompressed()
		if compress {
			pubKey = key.PubKey().SerializeCompressed()
		}
		pkScript, err := PayToPubKeyHashScript(Hash160(pubKey))
		require.NoError(t, err)

		tx := signTestTx()
		sigScript, err := SignatureScript(tx, 1, pkScript, SigHashAll,
			key, compress)
		require.NoError(t, err)
		tx.TxIn[1].SignatureScript = sigScript
		require.NoError(t, checkScripts(tx, 1, pkScript,
			StandardVerifyFlags, nil))

		pushes, err := PushedData(sigScript)
		require.NoError(t, err)
		require.Len(t, pushes, 2)
		require.Equal(t, pubKey, pushes[1])

		ok, err := VerifyTxInSignature(tx, 1, pkScript, pushes[0],
			pubKey, nil, StandardVerifyFlags)
		require.NoError(t, err)
		require.True(t, ok)

		// The signature is bound to its input.
		ok, err = VerifyTxInSignature(tx, 0, pkScript, pushes[0],
			pubKey, nil, StandardVerifyFlags)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

// TestVerifyTxInSignature covers the fork id path and the parse failures of
// VerifyTxInSignature.
func TestVerifyTxInSignature(t *testing.T) {
	t.Parallel()

	key := testKey(0x72)
	pubKey := key.PubKey().SerializeCompressed()
	subScript, err := PayToPubKeyScript(pubKey)
	require.NoError(t, err)

	tx := signTestTx()
	sigHashes := NewTxSigHashes(tx)
	sig, err := RawTxInForkIDSignature(tx, sigHashes, 2, 12345, subScript,
		SigHashSingle, key)
	require.NoError(t, err)
	require.Equal(t, byte(SigHashSingle|SigHashForkID), sig[len(sig)-1])

	flags := StandardVerifyFlags | ScriptEnableSigHashForkID
	prevOuts := NewCannedPrevOutputFetcher(subScript, 12345)
	ok, err := VerifyTxInSignature(tx, 2, subScript, sig, pubKey, prevOuts,
		flags)
	require.NoError(t, err)
	require.True(t, ok)

	// Without the fork id flag the legacy digest is used and the
	// signature does not verify.
	ok, err = VerifyTxInSignature(tx, 2, subScript, sig, pubKey, prevOuts,
		StandardVerifyFlags)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = VerifyTxInSignature(tx, 2, subScript, sig, pubKey, nil, flags)
	require.True(t, IsErrorCode(err, ErrMissingAmount), "got %v", err)

	_, err = VerifyTxInSignature(tx, 2, subScript, nil, pubKey, prevOuts,
		flags)
	require.Error(t, err)

	_, err = VerifyTxInSignature(tx, 2, subScript, []byte{0x30, 0x01},
		pubKey, prevOuts, flags)
	require.Error(t, err)

	_, err = VerifyTxInSignature(tx, 2, subScript, sig, pubKey[:32],
		prevOuts, flags)
	require.Error(t, err)
}

// TestRawTxInSignatureAlgorithms ensures the legacy and fork id signers commit
// to different digests for the same input.
func TestRawTxInSignatureAlgorithms(t *testing.T) {
	t.Parallel()

	key := testKey(0x73)
	subScript := []byte{OP_TRUE}
	tx := signTestTx()

	legacy, err := RawTxInSignature(tx, 0, subScript, SigHashAll, key)
	require.NoError(t, err)
	require.Equal(t, byte(SigHashAll), legacy[len(legacy)-1])
	require.True(t, IsCanonicalSignature(legacy))
	require.True(t, IsLowS(legacy[:len(legacy)-1]))

	forkID, err := RawTxInForkIDSignature(tx, nil, 0, 1, subScript,
		SigHashAll, key)
	require.NoError(t, err)
	require.NotEqual(t, legacy[:len(legacy)-1], forkID[:len(forkID)-1])

	// Signing is deterministic.
	again, err := RawTxInSignature(tx, 0, subScript, SigHashAll, key)
	require.NoError(t, err)
	require.Equal(t, legacy, again)

	_, err = RawTxInSignature(tx, 5, subScript, SigHashAll, key)
	require.True(t, IsErrorCode(err, ErrInvalidIndex), "got %v", err)
}
