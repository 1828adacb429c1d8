// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txsort orders transaction inputs and outputs according to BIP0069 so
// that their order carries no information about the wallet that built them.
// Sorting must happen before any input is signed since every hash type other
// than ANYONECANPAY with NONE commits to the order.
package txsort

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/wire"
)

// InPlaceSort modifies the passed transaction so its inputs and outputs are
// sorted.  The transaction hash changes whenever anything was reordered, so
// this must not be used on a transaction that has already been signed.
func InPlaceSort(tx *wire.MsgTx) {
	slices.SortStableFunc(tx.TxIn, compareInputs)
	slices.SortStableFunc(tx.TxOut, compareOutputs)
}

// Sort returns a sorted copy of the transaction.  The passed transaction is
// not modified.
func Sort(tx *wire.MsgTx) *wire.MsgTx {
	txCopy := tx.Copy()
	InPlaceSort(txCopy)
	return txCopy
}

// IsSorted returns whether the inputs and outputs of tx are already sorted.
func IsSorted(tx *wire.MsgTx) bool {
	return slices.IsSortedFunc(tx.TxIn, compareInputs) &&
		slices.IsSortedFunc(tx.TxOut, compareOutputs)
}

// compareInputs orders inputs by previous transaction hash, compared in its
// displayed (byte reversed) form, and then by output index.
func compareInputs(a, b *wire.TxIn) int {
	aHash := a.PreviousOutPoint.Hash
	bHash := b.PreviousOutPoint.Hash
	if aHash == bHash {
		return cmp.Compare(a.PreviousOutPoint.Index,
			b.PreviousOutPoint.Index)
	}

	for i := 0; i < chainhash.HashSize/2; i++ {
		j := chainhash.HashSize - 1 - i
		aHash[i], aHash[j] = aHash[j], aHash[i]
		bHash[i], bHash[j] = bHash[j], bHash[i]
	}
	return bytes.Compare(aHash[:], bHash[:])
}

// compareOutputs orders outputs by amount and then by the raw bytes of their
// public key script.
func compareOutputs(a, b *wire.TxOut) int {
	if a.Value != b.Value {
		return cmp.Compare(a.Value, b.Value)
	}
	return bytes.Compare(a.PkScript, b.PkScript)
}
