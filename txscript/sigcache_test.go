// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/btcec/ecdsa"
	"github.com/stretchr/testify/require"
)

// sigTriplet is a signature cache entry in its serialized form.
type sigTriplet struct {
	hash   chainhash.Hash
	sig    []byte
	pubKey []byte
}

// genRandomSig returns a random message hash, a signature of the hash under a
// fresh key and that key.  This function is used to generate randomized test
// data.
func genRandomSig(t *testing.T) sigTriplet {
	t.Helper()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var msgHash chainhash.Hash
	_, err = rand.Read(msgHash[:])
	require.NoError(t, err)

	sig := ecdsa.Sign(privKey, msgHash[:])
	return sigTriplet{
		hash:   msgHash,
		sig:    sig.Serialize(),
		pubKey: privKey.PubKey().SerializeCompressed(),
	}
}

// TestSigCacheAddExists tests the ability to add, and later check the
// existence of a signature triplet in the signature cache.
func TestSigCacheAddExists(t *testing.T) {
	t.Parallel()

	sigCache := NewSigCache(200)
	e := genRandomSig(t)
	sigCache.Add(e.hash, e.sig, e.pubKey)

	// The previously added triplet should now be found within the
	// sigcache, even when the entry is reparsed.
	sigCopy, err := ecdsa.ParseDERSignature(e.sig)
	require.NoError(t, err)
	keyCopy, err := btcec.ParsePubKey(e.pubKey)
	require.NoError(t, err)
	require.True(t, sigCache.Exists(e.hash, sigCopy.Serialize(),
		keyCopy.SerializeCompressed()))

	// Changing any part of the triplet must miss.
	other := genRandomSig(t)
	require.False(t, sigCache.Exists(other.hash, e.sig, e.pubKey))
	require.False(t, sigCache.Exists(e.hash, other.sig, e.pubKey))
	require.False(t, sigCache.Exists(e.hash, e.sig, other.pubKey))
	require.False(t, sigCache.Exists(e.hash, e.sig,
		keyCopy.SerializeUncompressed()))
}

// TestSigCacheAddEvictEntry tests the eviction case where a new signature
// triplet is added to a full signature cache which should evict the least
// recently used entry.
func TestSigCacheAddEvictEntry(t *testing.T) {
	t.Parallel()

	// Create a sigcache that can hold up to 100 entries and fill it.
	const sigCacheSize = 100
	sigCache := NewSigCache(sigCacheSize)
	entries := make([]sigTriplet, 0, sigCacheSize)
	for i := 0; i < sigCacheSize; i++ {
		e := genRandomSig(t)
		sigCache.Add(e.hash, e.sig, e.pubKey)
		entries = append(entries, e)
	}
	for i, e := range entries {
		require.True(t, sigCache.Exists(e.hash, e.sig, e.pubKey),
			"entry %d not found in signature cache", i)
	}

	// Adding another entry evicts the oldest one.
	newEntry := genRandomSig(t)
	sigCache.Add(newEntry.hash, newEntry.sig, newEntry.pubKey)
	require.True(t, sigCache.Exists(newEntry.hash, newEntry.sig,
		newEntry.pubKey))
	require.False(t, sigCache.Exists(entries[0].hash, entries[0].sig,
		entries[0].pubKey))
	require.True(t, sigCache.Exists(entries[1].hash, entries[1].sig,
		entries[1].pubKey))
}

// TestSigCacheAddMaxEntriesZero tests that if a sigCache is created with a max
// size of zero, then no entries are added to the sigcache at all.
func TestSigCacheAddMaxEntriesZero(t *testing.T) {
	t.Parallel()

	sigCache := NewSigCache(0)
	e := genRandomSig(t)
	sigCache.Add(e.hash, e.sig, e.pubKey)
	require.False(t, sigCache.Exists(e.hash, e.sig, e.pubKey))
}
