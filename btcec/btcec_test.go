// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcec

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

// hexToBytes converts the passed hex string into bytes and will panic if
// there is an error.  It must only be called with hard-coded values.
func hexToBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("invalid hex in source file: " + s)
	}
	return b
}

// TestPrivKeys ensures private keys round trip through their serialized form
// and derive the expected public key.
func TestPrivKeys(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
	}{{
		name: "check curve",
		key: []byte{
			0xea, 0xf0, 0x2c, 0xa3, 0x48, 0xc5, 0x24, 0xe6,
			0x39, 0x26, 0x55, 0xba, 0x4d, 0x29, 0x60, 0x3c,
			0xd1, 0xa7, 0x34, 0x7d, 0x9d, 0x65, 0xcf, 0xe9,
			0x3c, 0xe1, 0xeb, 0xff, 0xdc, 0xa2, 0x26, 0x94,
		},
	}}

	for _, test := range tests {
		priv, pub := PrivKeyFromBytes(test.key)

		parsed, err := ParsePubKey(pub.SerializeUncompressed())
		require.NoError(t, err, test.name)
		require.True(t, parsed.IsEqual(pub), test.name)

		parsed, err = ParsePubKey(pub.SerializeCompressed())
		require.NoError(t, err, test.name)
		require.True(t, parsed.IsEqual(pub), test.name)

		require.True(t, bytes.Equal(priv.Serialize(), test.key), test.name)
	}
}

// TestPrivKeyFromBytesChecked ensures out of range private keys are rejected.
func TestPrivKeyFromBytesChecked(t *testing.T) {
	tests := []struct {
		name string
		key  []byte
		err  error
	}{{
		name: "one",
		key:  hexToBytes("0000000000000000000000000000000000000000000000000000000000000001"),
	}, {
		name: "order minus one",
		key:  hexToBytes("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364140"),
	}, {
		name: "zero",
		key:  make([]byte, 32),
		err:  ErrPrivKeyOutOfRange,
	}, {
		name: "order",
		key:  hexToBytes("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"),
		err:  ErrPrivKeyOutOfRange,
	}, {
		name: "short",
		key:  []byte{0x01},
		err:  ErrInvalidPrivKeyLen,
	}}

	for _, test := range tests {
		_, _, err := PrivKeyFromBytesChecked(test.key)
		require.ErrorIs(t, err, test.err, test.name)
	}
}

// TestPubKeyFormats ensures the serialized public key format predicates agree
// with the encodings produced for a real key.
func TestPubKeyFormats(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey()

	compressed := pub.SerializeCompressed()
	uncompressed := pub.SerializeUncompressed()
	hybrid := make([]byte, len(uncompressed))
	copy(hybrid, uncompressed)
	hybrid[0] = pubkeyHybrid | (compressed[0] & 0x01)

	require.True(t, IsCompressedPubKey(compressed))
	require.False(t, IsCompressedPubKey(uncompressed))
	require.True(t, IsUncompressedPubKey(uncompressed))
	require.False(t, IsUncompressedPubKey(hybrid))
	require.True(t, IsHybridPubKey(hybrid))
	require.False(t, IsHybridPubKey(compressed))

	// The hybrid encoding is still a valid point, only a policy violation.
	parsed, err := ParsePubKey(hybrid)
	require.NoError(t, err)
	require.True(t, parsed.IsEqual(pub))

	ser := ToSerialized(pub)
	back, err := ser.ToPubKey()
	require.NoError(t, err)
	require.True(t, back.IsEqual(pub))
}

// TestHalfOrder ensures the half order is a copy that can not alter the
// package state.
func TestHalfOrder(t *testing.T) {
	h := HalfOrder()
	want := hexToBytes("7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a0")
	require.Equal(t, want, h.Bytes())
	h.SetInt64(0)
	require.Equal(t, want, HalfOrder().Bytes())
}
