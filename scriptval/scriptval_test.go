// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scriptval

import (
	"bytes"
	"math"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/wire"
	"github.com/stretchr/testify/require"
)

// spendFixture is a transaction spending numInputs pay-to-pubkey-hash
// outputs of a single key along with the outputs it spends.
type spendFixture struct {
	tx       *wire.MsgTx
	prevOuts *txscript.MultiPrevOutFetcher
	key      *btcec.PrivateKey
	pkScript []byte
}

func newSpendFixture(t *testing.T, numInputs int) *spendFixture {
	t.Helper()

	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x21}, 32))
	pkHash := txscript.Hash160(key.PubKey().SerializeCompressed())
	pkScript, err := txscript.PayToPubKeyHashScript(pkHash)
	require.NoError(t, err)

	f := &spendFixture{
		tx:       wire.NewMsgTx(1),
		prevOuts: txscript.NewMultiPrevOutFetcher(nil),
		key:      key,
		pkScript: pkScript,
	}
	for i := 0; i < numInputs; i++ {
		prevHash := chainhash.Hash{byte(i), 0x77}
		op := wire.NewOutPoint(&prevHash, uint32(i))
		f.tx.AddTxIn(wire.NewTxIn(op, nil))
		f.prevOuts.AddPrevOut(*op, wire.NewTxOut(int64(1000*(i+1)),
			pkScript))
	}
	f.tx.AddTxOut(wire.NewTxOut(500, []byte{txscript.OP_TRUE}))
	return f
}

// sign signs every input with the passed hash type.
func (f *spendFixture) sign(t *testing.T, hashType txscript.SigHashType) {
	t.Helper()

	kdb := txscript.KeyClosure(func(txscript.Address) (*btcec.PrivateKey,
		bool, error) {

		return f.key, true, nil
	})
	for i := range f.tx.TxIn {
		sigScript, err := txscript.SignTxInput(f.tx, i, f.pkScript,
			hashType, kdb, nil, nil, f.prevOuts)
		require.NoError(t, err)
		f.tx.TxIn[i].SignatureScript = sigScript
	}
}

func TestValidateTransactionScripts(t *testing.T) {
	t.Parallel()

	// Legacy signatures with a signature cache.
	f := newSpendFixture(t, 12)
	f.sign(t, txscript.SigHashAll)
	sigCache := txscript.NewSigCache(100)
	err := ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.StandardVerifyFlags, sigCache, nil)
	require.NoError(t, err)

	// Validating again is served from the signature cache.
	err = ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.StandardVerifyFlags, sigCache, nil)
	require.NoError(t, err)

	// Fork id signatures with and without a hash cache.
	f = newSpendFixture(t, 5)
	f.sign(t, txscript.SigHashAll|txscript.SigHashForkID)
	flags := txscript.StandardVerifyFlags | txscript.ScriptEnableSigHashForkID
	hashCache := txscript.NewHashCache(10)
	require.NoError(t, ValidateTransactionScripts(f.tx, f.prevOuts, flags,
		nil, hashCache))
	txHash := f.tx.TxHash()
	require.True(t, hashCache.ContainsHashes(&txHash))
	require.NoError(t, ValidateTransactionScripts(f.tx, f.prevOuts, flags,
		nil, hashCache))
	require.NoError(t, ValidateTransactionScripts(f.tx, f.prevOuts, flags,
		nil, nil))
}

func TestValidateTransactionScriptsFailures(t *testing.T) {
	t.Parallel()

	f := newSpendFixture(t, 6)
	f.sign(t, txscript.SigHashAll)

	// A damaged signature in one input fails the whole transaction.
	sigScript := f.tx.TxIn[4].SignatureScript
	f.tx.TxIn[4].SignatureScript = append([]byte(nil), sigScript...)
	f.tx.TxIn[4].SignatureScript[10] ^= 0x01
	err := ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.StandardVerifyFlags, nil, nil)
	require.True(t, IsErrorCode(err, ErrScriptValidation), "got %v", err)
	f.tx.TxIn[4].SignatureScript = sigScript

	// An unknown previous output.
	empty := txscript.NewMultiPrevOutFetcher(nil)
	err = ValidateTransactionScripts(f.tx, empty,
		txscript.StandardVerifyFlags, nil, nil)
	require.True(t, IsErrorCode(err, ErrMissingTxOut), "got %v", err)
	err = ValidateTransactionScripts(f.tx, nil,
		txscript.StandardVerifyFlags, nil, nil)
	require.True(t, IsErrorCode(err, ErrMissingTxOut), "got %v", err)

	// A signature script that doesn't parse.
	f.tx.TxIn[0].SignatureScript = []byte{txscript.OP_PUSHDATA1}
	err = ValidateTransactionScripts(f.tx, f.prevOuts,
		txscript.StandardVerifyFlags, nil, nil)
	require.True(t, IsErrorCode(err, ErrScriptMalformed), "got %v", err)
	require.True(t, txscript.IsErrorCode(err, txscript.ErrMalformedPush),
		"got %v", err)
}

func TestValidateTransactionScriptsSkipsCoinbase(t *testing.T) {
	t.Parallel()

	tx := wire.NewMsgTx(1)
	coinbase := wire.NewOutPoint(&chainhash.Hash{}, math.MaxUint32)
	tx.AddTxIn(wire.NewTxIn(coinbase, []byte{0x04, 0xff, 0xff, 0x00, 0x1d}))
	tx.AddTxOut(wire.NewTxOut(5000000000, []byte{txscript.OP_TRUE}))
	require.NoError(t, ValidateTransactionScripts(tx, nil,
		txscript.StandardVerifyFlags, nil, nil))
}

func TestErrorCodeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ErrScriptValidation", ErrScriptValidation.String())
	require.Equal(t, "Unknown ErrorCode (99)", ErrorCode(99).String())
}
