// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ecdsa

import (
	"fmt"

	"github.com/btcsuite/btcscript/btcec"
)

// References:
//   [GECC]: Guide to Elliptic Curve Cryptography (Hankerson, Menezes, Vanstone)
//
//   [ISO/IEC 8825-1]: Information technology - ASN.1 encoding rules:
//     Specification of Basic Encoding Rules (BER), Canonical Encoding Rules
//     (CER) and Distinguished Encoding Rules (DER)
//
//   [SEC1]: Elliptic Curve Cryptography (May 31, 2009, Version 2.0)
//     https://www.secg.org/sec1-v2.pdf

var (
	// orderAsFieldVal is the order of the secp256k1 curve group stored as a
	// field value.  It is provided here to avoid the need to create it
	// multiple times.
	orderAsFieldVal = func() *btcec.FieldVal {
		var f btcec.FieldVal
		f.SetByteSlice(btcec.Params().N.Bytes())
		return &f
	}()
)

const (
	// asn1SequenceID is the ASN.1 identifier for a sequence and is used when
	// parsing and serializing signatures encoded with the Distinguished
	// Encoding Rules (DER) format per section 10 of [ISO/IEC 8825-1].
	asn1SequenceID = 0x30

	// asn1IntegerID is the ASN.1 identifier for an integer and is used when
	// parsing and serializing signatures encoded with the Distinguished
	// Encoding Rules (DER) format per section 10 of [ISO/IEC 8825-1].
	asn1IntegerID = 0x02

	// minSigLen is the minimum length of a DER encoded signature and is when
	// both R and S are 1 byte each.
	//
	// 0x30 + <1-byte> + 0x02 + 0x01 + <byte> + 0x2 + 0x01 + <byte>
	minSigLen = 8

	// MaxSigLen is the maximum length of a DER encoded signature and is when
	// both R and S are 33 bytes each.  It is 33 bytes because a 256-bit
	// integer requires 32 bytes and an additional leading null byte might
	// be required if the high bit is set in the value.
	//
	// 0x30 + <1-byte> + 0x02 + 0x21 + <33 bytes> + 0x2 + 0x21 + <33 bytes>
	MaxSigLen = 72
)

// Signature is a type representing an ECDSA signature.
type Signature struct {
	r btcec.ModNScalar
	s btcec.ModNScalar
}

// NewSignature instantiates a new signature given some r and s values.
func NewSignature(r, s *btcec.ModNScalar) *Signature {
	return &Signature{*r, *s}
}

// R returns the r value of the signature.
func (sig *Signature) R() btcec.ModNScalar {
	return sig.r
}

// S returns the s value of the signature.
func (sig *Signature) S() btcec.ModNScalar {
	return sig.s
}

// HasLowS returns whether the S component of the signature is nonzero and
// less than or equal to the half order of the group.
func (sig *Signature) HasLowS() bool {
	return !sig.s.IsZero() && !sig.s.IsOverHalfOrder()
}

// ToLowS returns the signature with its S component in the lower half of the
// group order.  Both S and its negation are valid modulo the order, so this
// produces an equivalent signature.  A signature that already has a low S is
// returned as an identical copy.
func (sig *Signature) ToLowS() *Signature {
	s := sig.s
	if s.IsOverHalfOrder() {
		s.Negate()
	}
	return &Signature{r: sig.r, s: s}
}

// Serialize returns the ECDSA signature in the Distinguished Encoding Rules
// (DER) format per section 10 of [ISO/IEC 8825-1].
//
// The S value is encoded as held.  Call ToLowS first when the low S form is
// required.
//
// Note that the serialized bytes returned do not include the appended hash
// type used in bitcoin signature scripts.
func (sig *Signature) Serialize() []byte {
	// The format of a DER encoded signature is as follows:
	//
	// 0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
	//   - 0x30 is the ASN.1 identifier for a sequence.
	//   - Total length is 1 byte and specifies length of all remaining data.
	//   - 0x02 is the ASN.1 identifier that specifies an integer follows.
	//   - Length of R is 1 byte and specifies how many bytes R occupies.
	//   - R is the arbitrary length big-endian encoded number which
	//     represents the R value of the signature.  DER encoding dictates
	//     that the value must be encoded using the minimum possible number
	//     of bytes.  This implies the first byte can only be null if the
	//     highest bit of the next byte is set in order to prevent it from
	//     being interpreted as a negative number.
	//   - 0x02 is once again the ASN.1 integer identifier.
	//   - Length of S is 1 byte and specifies how many bytes S occupies.
	//   - S is the arbitrary length big-endian encoded number which
	//     represents the S value of the signature.  The encoding rules are
	//     identical as those for R.
	var rBytes, sBytes [32]byte
	sig.r.PutBytes(&rBytes)
	sig.s.PutBytes(&sBytes)

	// Ensure the encoded bytes for the R and S components are canonical per
	// DER by trimming all leading zero bytes so long as the next byte does
	// not have the high bit set and it's not the final byte.
	var rBuf, sBuf [33]byte
	copy(rBuf[1:], rBytes[:])
	copy(sBuf[1:], sBytes[:])
	canonR, canonS := rBuf[:], sBuf[:]
	for len(canonR) > 1 && canonR[0] == 0x00 && canonR[1]&0x80 == 0 {
		canonR = canonR[1:]
	}
	for len(canonS) > 1 && canonS[0] == 0x00 && canonS[1]&0x80 == 0 {
		canonS = canonS[1:]
	}

	// Total length of returned signature is 1 byte for each magic and
	// length (6 total), plus lengths of R and S.
	totalLen := 6 + len(canonR) + len(canonS)
	b := make([]byte, 0, totalLen)
	b = append(b, asn1SequenceID)
	b = append(b, byte(totalLen-2))
	b = append(b, asn1IntegerID)
	b = append(b, byte(len(canonR)))
	b = append(b, canonR...)
	b = append(b, asn1IntegerID)
	b = append(b, byte(len(canonS)))
	b = append(b, canonS...)
	return b
}

// IsEqual compares this Signature instance to the one passed, returning true
// if both Signatures are equivalent.  A signature is equivalent to another, if
// they both have the same scalar value for R and S.
func (sig *Signature) IsEqual(otherSig *Signature) bool {
	return sig.r.Equals(&otherSig.r) && sig.s.Equals(&otherSig.s)
}

// fieldToModNScalar converts a field value to scalar modulo the group order
// and returns the scalar along with either 1 if it was reduced (aka it
// overflowed) or 0 otherwise.
//
// The field value must be normalized.
func fieldToModNScalar(v *btcec.FieldVal) (btcec.ModNScalar, uint32) {
	var buf [32]byte
	v.PutBytes(&buf)
	var s btcec.ModNScalar
	overflow := s.SetBytes(&buf)
	zeroArray32(&buf)
	return s, overflow
}

// modNScalarToField converts a scalar modulo the group order to a field
// value.
func modNScalarToField(v *btcec.ModNScalar) btcec.FieldVal {
	var buf [32]byte
	v.PutBytes(&buf)
	var fv btcec.FieldVal
	fv.SetBytes(&buf)
	return fv
}

// zeroArray32 zeroes the provided 32-byte buffer.
func zeroArray32(b *[32]byte) {
	copy(b[:], zero32[:])
}

var zero32 [32]byte

// Verify returns whether or not the signature is valid for the provided hash
// and secp256k1 public key.
func (sig *Signature) Verify(hash []byte, pubKey *btcec.PublicKey) bool {
	// The algorithm for verifying an ECDSA signature is given as algorithm
	// 4.30 in [GECC].
	//
	// 1. Fail if R and S are not in [1, N-1]
	// 2. e = H(m)
	// 3. w = S^-1 mod N
	// 4. u1 = e * w mod N
	//    u2 = R * w mod N
	// 5. X = u1G + u2Q
	// 6. Fail if X is the point at infinity
	// 7. z = (X.z)^2 mod P (X.z is the z coordinate of X)
	// 8. Verified if R * z == X.x (mod P)
	// 9. Fail if R + N >= P
	// 10. Verified if (R + N) * z == X.x (mod P)
	//
	// Steps 7 through 10 replace the usual conversion of X back to affine
	// coordinates.  Since the cofactor of the curve is 1, R can only have
	// come from an x coordinate of either R or R+N, so comparing against
	// both in projective space avoids a field inversion.
	if sig.r.IsZero() || sig.s.IsZero() {
		return false
	}

	var e btcec.ModNScalar
	e.SetByteSlice(hash)

	w := new(btcec.ModNScalar).InverseValNonConst(&sig.s)
	u1 := new(btcec.ModNScalar).Mul2(&e, w)
	u2 := new(btcec.ModNScalar).Mul2(&sig.r, w)

	var X, Q, u1G, u2Q btcec.JacobianPoint
	pubKey.AsJacobian(&Q)
	btcec.ScalarBaseMultNonConst(u1, &u1G)
	btcec.ScalarMultNonConst(u2, &Q, &u2Q)
	btcec.AddNonConst(&u1G, &u2Q, &X)

	if (X.X.IsZero() && X.Y.IsZero()) || X.Z.IsZero() {
		return false
	}
	X.X.Normalize()

	z := new(btcec.FieldVal).SquareVal(&X.Z)

	sigRModP := modNScalarToField(&sig.r)
	result := new(btcec.FieldVal).Mul2(&sigRModP, z).Normalize()
	if result.Equals(&X.X) {
		return true
	}

	if sigRModP.IsGtOrEqPrimeMinusOrder() {
		return false
	}

	sigRModP.Add(orderAsFieldVal)
	result.Mul2(&sigRModP, z).Normalize()
	return result.Equals(&X.X)
}

// parseScalar converts the big-endian bytes of a signature component to a
// scalar and ensures it is in the range [1, N-1].  Leading zero bytes must
// already be allowed by the caller's encoding rules.
func parseScalar(b []byte, name string, tooBig, isZero ErrorKind) (btcec.ModNScalar, error) {
	for len(b) > 0 && b[0] == 0x00 {
		b = b[1:]
	}

	// Notice the check for the maximum number of bytes is required because
	// SetByteSlice truncates so it could otherwise fail to detect the
	// overflow.
	var v btcec.ModNScalar
	if len(b) > 32 {
		str := fmt.Sprintf("invalid signature: %s is larger than 256 bits",
			name)
		return v, signatureError(tooBig, str)
	}
	if overflow := v.SetByteSlice(b); overflow {
		str := fmt.Sprintf("invalid signature: %s >= group order", name)
		return v, signatureError(tooBig, str)
	}
	if v.IsZero() {
		str := fmt.Sprintf("invalid signature: %s is 0", name)
		return v, signatureError(isZero, str)
	}
	return v, nil
}

// ParseDERSignature parses a signature in the Distinguished Encoding Rules
// (DER) format per section 10 of [ISO/IEC 8825-1] and enforces the following
// additional restrictions specific to secp256k1:
//
// - The R and S values must be in the valid range for secp256k1 scalars:
//   - Negative values are rejected
//   - Zero is rejected
//   - Values greater than or equal to the secp256k1 group order are rejected
func ParseDERSignature(sig []byte) (*Signature, error) {
	// The format of a DER encoded signature for secp256k1 is as follows:
	//
	// 0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
	//
	// NOTE: The DER specification supports specifying lengths that can
	// occupy more than 1 byte, however, since this is specific to secp256k1
	// signatures, all lengths will be a single byte.
	const (
		sequenceOffset = 0
		dataLenOffset  = 1
		rTypeOffset    = 2
		rLenOffset     = 3
		rOffset        = 4
	)

	sigLen := len(sig)
	if sigLen < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d",
			sigLen, minSigLen)
		return nil, signatureError(ErrSigTooShort, str)
	}
	if sigLen > MaxSigLen {
		str := fmt.Sprintf("malformed signature: too long: %d > %d",
			sigLen, MaxSigLen)
		return nil, signatureError(ErrSigTooLong, str)
	}

	if sig[sequenceOffset] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong type: %#x",
			sig[sequenceOffset])
		return nil, signatureError(ErrSigInvalidSeqID, str)
	}

	// The signature must indicate the correct amount of data for all
	// elements related to R and S.
	if int(sig[dataLenOffset]) != sigLen-2 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[dataLenOffset], sigLen-2)
		return nil, signatureError(ErrSigInvalidDataLen, str)
	}

	// Calculate the offsets of the elements related to S and ensure S is
	// inside the signature.
	rLen := int(sig[rLenOffset])
	sTypeOffset := rOffset + rLen
	sLenOffset := sTypeOffset + 1
	if sTypeOffset >= sigLen {
		str := "malformed signature: S type indicator missing"
		return nil, signatureError(ErrSigMissingSTypeID, str)
	}
	if sLenOffset >= sigLen {
		str := "malformed signature: S length missing"
		return nil, signatureError(ErrSigMissingSLen, str)
	}

	// The lengths of R and S must match the overall length of the
	// signature.
	sOffset := sLenOffset + 1
	sLen := int(sig[sLenOffset])
	if sOffset+sLen != sigLen {
		str := "malformed signature: invalid S length"
		return nil, signatureError(ErrSigInvalidSLen, str)
	}

	if sig[rTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: R integer marker: %#x != %#x",
			sig[rTypeOffset], asn1IntegerID)
		return nil, signatureError(ErrSigInvalidRIntID, str)
	}
	if rLen == 0 {
		str := "malformed signature: R length is zero"
		return nil, signatureError(ErrSigZeroRLen, str)
	}
	if sig[rOffset]&0x80 != 0 {
		str := "malformed signature: R is negative"
		return nil, signatureError(ErrSigNegativeR, str)
	}

	// Null bytes at the start of R are not allowed, unless R would
	// otherwise be interpreted as a negative number.
	if rLen > 1 && sig[rOffset] == 0x00 && sig[rOffset+1]&0x80 == 0 {
		str := "malformed signature: R value has too much padding"
		return nil, signatureError(ErrSigTooMuchRPadding, str)
	}

	if sig[sTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: S integer marker: %#x != %#x",
			sig[sTypeOffset], asn1IntegerID)
		return nil, signatureError(ErrSigInvalidSIntID, str)
	}
	if sLen == 0 {
		str := "malformed signature: S length is zero"
		return nil, signatureError(ErrSigZeroSLen, str)
	}
	if sig[sOffset]&0x80 != 0 {
		str := "malformed signature: S is negative"
		return nil, signatureError(ErrSigNegativeS, str)
	}
	if sLen > 1 && sig[sOffset] == 0x00 && sig[sOffset+1]&0x80 == 0 {
		str := "malformed signature: S value has too much padding"
		return nil, signatureError(ErrSigTooMuchSPadding, str)
	}

	r, err := parseScalar(sig[rOffset:rOffset+rLen], "R", ErrSigRTooBig,
		ErrSigRIsZero)
	if err != nil {
		return nil, err
	}
	s, err := parseScalar(sig[sOffset:sOffset+sLen], "S", ErrSigSTooBig,
		ErrSigSIsZero)
	if err != nil {
		return nil, err
	}

	return NewSignature(&r, &s), nil
}

// ParseSignature parses a signature in the lenient BER-like form accepted by
// the original reference client prior to strict DER enforcement.
//
// It differs from ParseDERSignature as follows:
//
// - The declared total length may be shorter than the buffer, in which case
//   the trailing bytes are ignored
// - R and S may carry excess leading zero padding
//
// Negative, zero and out of range values are still rejected since they can
// never verify.
func ParseSignature(sig []byte) (*Signature, error) {
	if len(sig) < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d",
			len(sig), minSigLen)
		return nil, signatureError(ErrSigTooShort, str)
	}
	if sig[0] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong type: %#x",
			sig[0])
		return nil, signatureError(ErrSigInvalidSeqID, str)
	}

	dataLen := int(sig[1])
	if dataLen+2 > len(sig) {
		str := fmt.Sprintf("malformed signature: bad length: %d > %d",
			dataLen, len(sig)-2)
		return nil, signatureError(ErrSigInvalidDataLen, str)
	}
	sig = sig[:dataLen+2]
	if len(sig) < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d",
			len(sig), minSigLen)
		return nil, signatureError(ErrSigTooShort, str)
	}

	index := 2
	if sig[index] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: R integer marker: %#x != %#x",
			sig[index], asn1IntegerID)
		return nil, signatureError(ErrSigInvalidRIntID, str)
	}
	index++

	// Leave room for the S marker, S length and at least one byte of S.
	rLen := int(sig[index])
	index++
	if rLen == 0 {
		str := "malformed signature: R length is zero"
		return nil, signatureError(ErrSigZeroRLen, str)
	}
	if rLen > len(sig)-index-3 {
		str := "malformed signature: S type indicator missing"
		return nil, signatureError(ErrSigMissingSTypeID, str)
	}
	rBytes := sig[index : index+rLen]
	index += rLen

	if sig[index] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: S integer marker: %#x != %#x",
			sig[index], asn1IntegerID)
		return nil, signatureError(ErrSigInvalidSIntID, str)
	}
	index++

	sLen := int(sig[index])
	index++
	if sLen == 0 {
		str := "malformed signature: S length is zero"
		return nil, signatureError(ErrSigZeroSLen, str)
	}
	if index+sLen != len(sig) {
		str := "malformed signature: invalid S length"
		return nil, signatureError(ErrSigInvalidSLen, str)
	}
	sBytes := sig[index:]

	if rBytes[0]&0x80 != 0 {
		str := "malformed signature: R is negative"
		return nil, signatureError(ErrSigNegativeR, str)
	}
	if sBytes[0]&0x80 != 0 {
		str := "malformed signature: S is negative"
		return nil, signatureError(ErrSigNegativeS, str)
	}

	r, err := parseScalar(rBytes, "R", ErrSigRTooBig, ErrSigRIsZero)
	if err != nil {
		return nil, err
	}
	s, err := parseScalar(sBytes, "S", ErrSigSTooBig, ErrSigSIsZero)
	if err != nil {
		return nil, err
	}

	return NewSignature(&r, &s), nil
}
