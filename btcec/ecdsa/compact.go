// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ecdsa

import (
	"bytes"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/wire"
)

const (
	// compactSigSize is the size of a compact signature.  It consists of a
	// compact signature recovery code byte followed by the R and S
	// components serialized as 32-byte big-endian values. 1+32*2 = 65.
	compactSigSize = 65

	// compactSigMagicOffset is a value used when creating the compact
	// signature recovery code inherited from the reference client and has
	// no meaning, but has been retained for compatibility.
	compactSigMagicOffset = 27

	// compactSigCompPubKey is a value used when creating the compact
	// signature recovery code to indicate the original public key was
	// compressed.
	compactSigCompPubKey = 4

	// maxCompactSignAttempts bounds the nonce iterations tried while
	// looking for a signature whose recovery code reproduces the signing
	// key.
	maxCompactSignAttempts = 64
)

// messageMagic is the prefix committed to by signed text messages.
const messageMagic = "Bitcoin Signed Message:\n"

// RecoverPublicKey recovers the public key that produced sig over hash using
// the provided public key recovery code (0-3).
func RecoverPublicKey(hash []byte, sig *Signature, recoveryCode byte) (*btcec.PublicKey, error) {
	// The following is very loosely based on the information and algorithm
	// that describes recovering a public key from and ECDSA signature in
	// section 4.1.6 of [SEC1].
	//
	// The equation to recover a public key candidate from an ECDSA
	// signature is Q = r^-1(sX - eG), where X is the random point whose x
	// coordinate produced r.  Since the cofactor is 1, the recovery code
	// selects X among (r,y), (r,-y), (r+N,y) and (r+N,-y).
	//
	// 1. Fail if r and s are not in [1, N-1]
	// 2. Convert r to integer mod P
	// 3. If pubkey recovery code overflow bit is set:
	//    3.1 Fail if r + N >= P
	//    3.2 r = r + N (mod P)
	// 4. y = +sqrt(r^3 + 7) (mod P)
	//    4.1 Fail if y does not exist
	//    4.2 y = -y if needed to match pubkey recovery code oddness bit
	// 5. X = (r, y)
	// 6. e = H(m) mod N
	// 7. w = r^-1 mod N
	// 8. u1 = -(e * w) mod N
	//    u2 = s * w mod N
	// 9. Q = u1G + u2X
	// 10. Fail if Q is the point at infinity
	if recoveryCode > 3 {
		str := "invalid public key recovery code"
		return nil, signatureError(ErrSigInvalidRecoveryCode, str)
	}
	if sig.r.IsZero() {
		return nil, signatureError(ErrSigRIsZero, "signature R is 0")
	}
	if sig.s.IsZero() {
		return nil, signatureError(ErrSigSIsZero, "signature S is 0")
	}

	fieldR := modNScalarToField(&sig.r)
	if recoveryCode&pubKeyRecoveryCodeOverflowBit != 0 {
		// Either the signature or the recovery code must be invalid if
		// the overflow bit is set and adding N to R would exceed the
		// field prime.
		if fieldR.IsGtOrEqPrimeMinusOrder() {
			str := "signature R + N >= P"
			return nil, signatureError(ErrSigOverflowsPrime, str)
		}
		fieldR.Add(orderAsFieldVal)
	}

	oddY := recoveryCode&pubKeyRecoveryCodeOddnessBit != 0
	var y btcec.FieldVal
	if valid := btcec.DecompressY(&fieldR, oddY, &y); !valid {
		str := "signature is not for a valid curve point"
		return nil, signatureError(ErrPointNotOnCurve, str)
	}

	var one btcec.FieldVal
	one.SetInt(1)
	fieldR.Normalize()
	y.Normalize()
	X := btcec.MakeJacobianPoint(&fieldR, &y, &one)

	var e btcec.ModNScalar
	e.SetByteSlice(hash)

	w := new(btcec.ModNScalar).InverseValNonConst(&sig.r)
	u1 := new(btcec.ModNScalar).Mul2(&e, w).Negate()
	u2 := new(btcec.ModNScalar).Mul2(&sig.s, w)

	var Q, u1G, u2X btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(u1, &u1G)
	btcec.ScalarMultNonConst(u2, &X, &u2X)
	btcec.AddNonConst(&u1G, &u2X, &Q)

	if (Q.X.IsZero() && Q.Y.IsZero()) || Q.Z.IsZero() {
		str := "recovered pubkey is the point at infinity"
		return nil, signatureError(ErrPointAtInfinity, str)
	}

	Q.ToAffine()
	return btcec.NewPublicKey(&Q.X, &Q.Y), nil
}

// SignCompact produces a compact signature of the data in hash with the given
// private key on the secp256k1 curve.  The isCompressedKey parameter
// specifies if the given signature should reference a compressed public key
// or not.
//
// Compact signature format:
// <1-byte compact sig recovery code><32-byte R><32-byte S>
//
// The compact sig recovery code is the value 27 + public key recovery code +
// 4 if the compact signature was created with a compressed public key.
//
// The signature is checked to recover the signing key before it is returned.
// When it does not, the nonce iteration count is advanced and signing is
// retried.
func SignCompact(key *btcec.PrivateKey, hash []byte,
	isCompressedKey bool) ([]byte, error) {

	pubKey := key.PubKey()
	iteration := uint32(0)
	for attempt := 0; attempt < maxCompactSignAttempts; attempt++ {
		sig, code, used := signRFC6979(key, hash, iteration)
		iteration = used + 1

		recovered, err := RecoverPublicKey(hash, sig, code)
		if err != nil || !recovered.IsEqual(pubKey) {
			continue
		}

		compactSigRecoveryCode := compactSigMagicOffset + code
		if isCompressedKey {
			compactSigRecoveryCode += compactSigCompPubKey
		}

		var rBytes, sBytes [32]byte
		sig.r.PutBytes(&rBytes)
		sig.s.PutBytes(&sBytes)

		var b [compactSigSize]byte
		b[0] = compactSigRecoveryCode
		copy(b[1:], rBytes[:])
		copy(b[33:], sBytes[:])
		return b[:], nil
	}

	str := "unable to produce a recoverable signature"
	return nil, signatureError(ErrSigInvalidRecoveryCode, str)
}

// RecoverCompact attempts to recover the secp256k1 public key from the
// provided compact signature and message hash.  It first verifies the
// signature, and, if the signature matches then the recovered public key will
// be returned as well as a boolean indicating whether or not the original key
// was compressed.
func RecoverCompact(signature, hash []byte) (*btcec.PublicKey, bool, error) {
	if len(signature) != compactSigSize {
		str := "invalid compact signature size"
		return nil, false, signatureError(ErrSigInvalidLen, str)
	}

	const (
		minValidCode = compactSigMagicOffset
		maxValidCode = compactSigMagicOffset + compactSigCompPubKey + 3
	)
	sigRecoveryCode := signature[0]
	if sigRecoveryCode < minValidCode || sigRecoveryCode > maxValidCode {
		str := "invalid compact signature recovery code"
		return nil, false, signatureError(ErrSigInvalidRecoveryCode, str)
	}
	sigRecoveryCode -= compactSigMagicOffset
	wasCompressed := sigRecoveryCode&compactSigCompPubKey != 0
	pubKeyRecoveryCode := sigRecoveryCode & 3

	r, err := parseScalar(signature[1:33], "R", ErrSigRTooBig, ErrSigRIsZero)
	if err != nil {
		return nil, false, err
	}
	s, err := parseScalar(signature[33:], "S", ErrSigSTooBig, ErrSigSIsZero)
	if err != nil {
		return nil, false, err
	}

	pubKey, err := RecoverPublicKey(hash, NewSignature(&r, &s),
		pubKeyRecoveryCode)
	if err != nil {
		return nil, false, err
	}
	return pubKey, wasCompressed, nil
}

// messageHash returns the double SHA256 digest a signed text message commits
// to: the magic prefix and the message, each serialized as variable length
// byte arrays.
func messageHash(message string) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarBytes(&buf, []byte(messageMagic))
	_ = wire.WriteVarBytes(&buf, []byte(message))
	return chainhash.DoubleHashB(buf.Bytes())
}

// SignMessage signs a text message with the given key and returns the 65-byte
// compact signature over its message digest.
func SignMessage(key *btcec.PrivateKey, message string,
	isCompressedKey bool) ([]byte, error) {

	return SignCompact(key, messageHash(message), isCompressedKey)
}

// RecoverMessage recovers the public key that signed a text message along
// with whether the signer used a compressed key.
func RecoverMessage(signature []byte, message string) (*btcec.PublicKey, bool, error) {
	return RecoverCompact(signature, messageHash(message))
}
