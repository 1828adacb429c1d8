// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcec

import (
	"errors"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// These constants define the lengths of serialized public keys.
const (
	// PubKeyBytesLenCompressed is the bytes length of a serialized
	// compressed public key.
	PubKeyBytesLenCompressed = 33

	// PubKeyBytesLenUncompressed is the bytes length of a serialized
	// uncompressed public key.
	PubKeyBytesLenUncompressed = 65
)

const (
	pubkeyCompressed   byte = 0x2 // y_bit + x coord
	pubkeyUncompressed byte = 0x4 // x coord + y coord
	pubkeyHybrid       byte = 0x6 // y_bit + x coord + y coord
)

var (
	// ErrInvalidPrivKeyLen is returned when a serialized private key is
	// not exactly PrivKeyBytesLen bytes.
	ErrInvalidPrivKeyLen = errors.New("invalid private key length")

	// ErrPrivKeyOutOfRange is returned when a serialized private key is
	// zero or not less than the group order.
	ErrPrivKeyOutOfRange = errors.New("private key out of range")
)

// IsCompressedPubKey returns true the passed serialized public key has
// been encoded in compressed format, and false otherwise.
func IsCompressedPubKey(pubKey []byte) bool {
	// The public key is only compressed if it is the correct length and
	// the format (first byte) is one of the compressed pubkey values.
	return len(pubKey) == PubKeyBytesLenCompressed &&
		(pubKey[0]&^byte(0x1) == pubkeyCompressed)
}

// IsUncompressedPubKey returns true when the passed serialized public key
// uses the 65-byte uncompressed format.
func IsUncompressedPubKey(pubKey []byte) bool {
	return len(pubKey) == PubKeyBytesLenUncompressed &&
		pubKey[0] == pubkeyUncompressed
}

// IsHybridPubKey returns true when the passed serialized public key uses the
// 65-byte hybrid format, which carries both the full Y coordinate and its
// oddness in the format byte.
func IsHybridPubKey(pubKey []byte) bool {
	return len(pubKey) == PubKeyBytesLenUncompressed &&
		(pubKey[0]&^byte(0x1) == pubkeyHybrid)
}

// ParsePubKey parses a public key for a koblitz curve from a bytestring into
// a PublicKey, verifying that it is valid.  It supports compressed,
// uncompressed and hybrid signature formats.
func ParsePubKey(pubKeyStr []byte) (*PublicKey, error) {
	return secp.ParsePubKey(pubKeyStr)
}

// PublicKey is a secp256k1 public key with additional functions to
// serialize in uncompressed and compressed formats.
type PublicKey = secp.PublicKey

// NewPublicKey instantiates a new public key with the given x and y
// coordinates.
//
// It should be noted that, unlike ParsePubKey, since this accepts arbitrary x
// and y coordinates, it allows creation of public keys that are not valid
// points on the secp256k1 curve.  The IsOnCurve method of the returned
// instance can be used to determine validity.
func NewPublicKey(x, y *FieldVal) *PublicKey {
	return secp.NewPublicKey(x, y)
}

// SerializedKey is a type for representing a public key in its compressed
// serialized form.
//
// NOTE: This type is useful when using public keys as keys in maps.
type SerializedKey [PubKeyBytesLenCompressed]byte

// ToPubKey returns the public key parsed from the serialized key.
func (s SerializedKey) ToPubKey() (*PublicKey, error) {
	return ParsePubKey(s[:])
}

// ToSerialized serializes a public key into its compressed form.
func ToSerialized(pubKey *PublicKey) SerializedKey {
	var serialized SerializedKey
	copy(serialized[:], pubKey.SerializeCompressed())
	return serialized
}
