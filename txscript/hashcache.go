// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/wire"
)

// PrevOutputFetcher supplies the outputs a transaction spends.  The fork-id
// signature hash commits to the amount of the spent output, so it cannot be
// computed without one.
type PrevOutputFetcher interface {
	// FetchPrevOutput returns the output referenced by the outpoint or nil
	// when it is unknown.
	FetchPrevOutput(wire.OutPoint) *wire.TxOut
}

// CannedPrevOutputFetcher answers every outpoint with the same output.  It
// suits signing or verifying a single input.
type CannedPrevOutputFetcher struct {
	pkScript []byte
	amt      int64
}

// NewCannedPrevOutputFetcher returns a fetcher that reports an output paying
// amt to script for any outpoint.
func NewCannedPrevOutputFetcher(script []byte, amt int64) *CannedPrevOutputFetcher {
	return &CannedPrevOutputFetcher{pkScript: script, amt: amt}
}

// FetchPrevOutput is part of the PrevOutputFetcher interface.
func (c *CannedPrevOutputFetcher) FetchPrevOutput(wire.OutPoint) *wire.TxOut {
	return wire.NewTxOut(c.amt, c.pkScript)
}

// MultiPrevOutFetcher looks spent outputs up by outpoint.  It is not safe for
// concurrent mutation, but concurrent lookups are fine once it is filled.
type MultiPrevOutFetcher struct {
	prevOuts map[wire.OutPoint]*wire.TxOut
}

// NewMultiPrevOutFetcher returns a fetcher backed by prevOuts, which may be
// nil to start empty.
func NewMultiPrevOutFetcher(prevOuts map[wire.OutPoint]*wire.TxOut) *MultiPrevOutFetcher {
	if prevOuts == nil {
		prevOuts = make(map[wire.OutPoint]*wire.TxOut)
	}
	return &MultiPrevOutFetcher{prevOuts: prevOuts}
}

// FetchPrevOutput is part of the PrevOutputFetcher interface.
func (m *MultiPrevOutFetcher) FetchPrevOutput(op wire.OutPoint) *wire.TxOut {
	return m.prevOuts[op]
}

// AddPrevOut records the output spent through op.
func (m *MultiPrevOutFetcher) AddPrevOut(op wire.OutPoint, txOut *wire.TxOut) {
	m.prevOuts[op] = txOut
}

// Merge copies every output known to other into m.
func (m *MultiPrevOutFetcher) Merge(other *MultiPrevOutFetcher) {
	for op, txOut := range other.prevOuts {
		m.prevOuts[op] = txOut
	}
}

var (
	_ PrevOutputFetcher = (*CannedPrevOutputFetcher)(nil)
	_ PrevOutputFetcher = (*MultiPrevOutFetcher)(nil)
)

// TxSigHashes is the per transaction midstate of the fork-id signature hash.
// Each field is a double SHA-256 over one part of the transaction that every
// input signing with SIGHASH_ALL commits to, so computing them once keeps the
// cost of hashing all inputs linear.
type TxSigHashes struct {
	// HashPrevOuts covers each input's outpoint in order.
	HashPrevOuts chainhash.Hash

	// HashSequence covers each input's sequence number in order.
	HashSequence chainhash.Hash

	// HashOutputs covers every serialized output in order.
	HashOutputs chainhash.Hash
}

// NewTxSigHashes computes the fork-id midstate of tx.
func NewTxSigHashes(tx *wire.MsgTx) *TxSigHashes {
	var sigHashes TxSigHashes

	sigHashes.HashPrevOuts = chainhash.DoubleHashRaw(func(w io.Writer) error {
		for _, txIn := range tx.TxIn {
			if err := wire.WriteOutPoint(w, &txIn.PreviousOutPoint); err != nil {
				return err
			}
		}
		return nil
	})

	sigHashes.HashSequence = chainhash.DoubleHashRaw(func(w io.Writer) error {
		var seq [4]byte
		for _, txIn := range tx.TxIn {
			binary.LittleEndian.PutUint32(seq[:], txIn.Sequence)
			if _, err := w.Write(seq[:]); err != nil {
				return err
			}
		}
		return nil
	})

	sigHashes.HashOutputs = chainhash.DoubleHashRaw(func(w io.Writer) error {
		for _, txOut := range tx.TxOut {
			if err := wire.WriteTxOut(w, txOut); err != nil {
				return err
			}
		}
		return nil
	})

	return &sigHashes
}

// HashCache shares fork-id midstates between the goroutines validating the
// inputs of the same transactions.  It holds at most maxSize entries and
// evicts an arbitrary one to make room, matching SigCache.
type HashCache struct {
	sync.RWMutex
	sigHashes map[chainhash.Hash]*TxSigHashes
	maxSize   uint
}

// NewHashCache returns an empty cache bounded to maxSize transactions.  A
// maxSize of zero leaves it unbounded.
func NewHashCache(maxSize uint) *HashCache {
	return &HashCache{
		sigHashes: make(map[chainhash.Hash]*TxSigHashes, maxSize),
		maxSize:   maxSize,
	}
}

// AddSigHashes computes the midstate of tx, caches it under the txid and
// returns it.
func (h *HashCache) AddSigHashes(tx *wire.MsgTx) *TxSigHashes {
	txid := tx.TxHash()
	sigHashes := NewTxSigHashes(tx)

	h.Lock()
	if _, ok := h.sigHashes[txid]; !ok && h.maxSize > 0 &&
		uint(len(h.sigHashes)) >= h.maxSize {

		for evict := range h.sigHashes {
			delete(h.sigHashes, evict)
			break
		}
	}
	h.sigHashes[txid] = sigHashes
	h.Unlock()

	return sigHashes
}

// ContainsHashes returns whether the midstate of the transaction is cached.
func (h *HashCache) ContainsHashes(txid *chainhash.Hash) bool {
	h.RLock()
	_, found := h.sigHashes[*txid]
	h.RUnlock()
	return found
}

// GetSigHashes returns the cached midstate of the transaction, if any.
func (h *HashCache) GetSigHashes(txid *chainhash.Hash) (*TxSigHashes, bool) {
	h.RLock()
	sigHashes, found := h.sigHashes[*txid]
	h.RUnlock()
	return sigHashes, found
}

// PurgeSigHashes drops the midstate of the transaction.
func (h *HashCache) PurgeSigHashes(txid *chainhash.Hash) {
	h.Lock()
	delete(h.sigHashes, *txid)
	h.Unlock()
}
