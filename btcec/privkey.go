// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcec

import (
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PrivKeyBytesLen defines the length in bytes of a serialized private key.
const PrivKeyBytesLen = 32

// PrivateKey wraps the secp256k1 private key as a convenience mainly for
// signing things with the private key without having to directly import the
// curve package.
type PrivateKey = secp.PrivateKey

// PrivKeyFromBytes returns a private and public key for `curve' based on the
// private key passed as an argument as a byte slice.
//
// Keys that are larger than the group order are reduced modulo the order and
// a zero key results in a key that can not produce valid signatures, so
// callers that accept untrusted key material should check for those cases
// first with PrivKeyFromBytesChecked.
func PrivKeyFromBytes(pk []byte) (*PrivateKey, *PublicKey) {
	privKey := secp.PrivKeyFromBytes(pk)
	return privKey, privKey.PubKey()
}

// PrivKeyFromBytesChecked is like PrivKeyFromBytes, but it returns an error
// when the passed bytes do not describe a scalar in the range [1, N-1].
func PrivKeyFromBytesChecked(pk []byte) (*PrivateKey, *PublicKey, error) {
	if len(pk) != PrivKeyBytesLen {
		return nil, nil, ErrInvalidPrivKeyLen
	}

	var k ModNScalar
	if overflow := k.SetByteSlice(pk); overflow || k.IsZero() {
		return nil, nil, ErrPrivKeyOutOfRange
	}

	privKey := secp.NewPrivateKey(&k)
	return privKey, privKey.PubKey(), nil
}

// NewPrivateKey is a wrapper for secp.GeneratePrivateKey that returns a
// PrivateKey drawn from a cryptographically secure source of randomness.
func NewPrivateKey() (*PrivateKey, error) {
	return secp.GeneratePrivateKey()
}
