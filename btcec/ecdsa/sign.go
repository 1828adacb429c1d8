// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ecdsa

import (
	"github.com/btcsuite/btcscript/btcec"
	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	// pubKeyRecoveryCodeOddnessBit specifies the bit that indicates the
	// oddess of the Y coordinate of the random point calculated when
	// creating a signature.
	pubKeyRecoveryCodeOddnessBit = 1 << 0

	// pubKeyRecoveryCodeOverflowBit specifies the bit that indicates the X
	// coordinate of the random point calculated when creating a signature
	// was >= N, where N is the order of the group.
	pubKeyRecoveryCodeOverflowBit = 1 << 1
)

// signRFC6979 generates a deterministic ECDSA signature according to RFC 6979
// and BIP 62 and returns it along with an additional public key recovery code
// for efficiently recovering the public key from the signature.  The final
// value is the iteration count that produced the signature.
//
// The nonce is derived from the private key, the hash and an iteration
// counter starting at startIter.  The counter is advanced whenever the nonce
// produces an r or s of zero, so that a retry yields a fresh nonce without
// changing the inputs.
func signRFC6979(privKey *btcec.PrivateKey, hash []byte,
	startIter uint32) (*Signature, byte, uint32) {

	// The algorithm for producing an ECDSA signature is given as algorithm
	// 4.29 in [GECC].
	//
	// 1. Select a deterministic nonce k in [1, N-1] per RFC6979
	// 2. Compute kG
	// 3. r = kG.x mod N (kG.x is the x coordinate of the point kG)
	//    Repeat from step 1 if r = 0
	// 4. e = H(m)
	// 5. s = k^-1(e + dr) mod N
	//    Repeat from step 1 if s = 0
	//    s = -s if s > N/2
	// 6. Return (r,s)
	privKeyBytes := privKey.Key.Bytes()
	defer zeroArray32(&privKeyBytes)
	for iteration := startIter; ; iteration++ {
		k := secp.NonceRFC6979(privKeyBytes[:], hash, nil, nil, iteration)

		// Note that the point must be in affine coordinates.
		var kG btcec.JacobianPoint
		btcec.ScalarBaseMultNonConst(k, &kG)
		kG.ToAffine()

		r, overflow := fieldToModNScalar(&kG.X)
		if r.IsZero() {
			continue
		}

		// Bit 0 of the recovery code identifies the oddness of the Y
		// coordinate of kG and bit 1 identifies the case where its X
		// coordinate was >= N.
		pubKeyRecoveryCode := byte(overflow << 1)
		if kG.Y.IsOdd() {
			pubKeyRecoveryCode |= pubKeyRecoveryCodeOddnessBit
		}

		// Note that this actually sets e = H(m) mod N which is correct
		// since it is only used in step 5 which itself is mod N.
		var e btcec.ModNScalar
		e.SetByteSlice(hash)

		kInv := new(btcec.ModNScalar).InverseValNonConst(k)
		s := new(btcec.ModNScalar).Mul2(&privKey.Key, &r).Add(&e).Mul(kInv)
		if s.IsZero() {
			continue
		}
		if s.IsOverHalfOrder() {
			s.Negate()

			// Negating s corresponds to the random point that would have
			// been generated by -k (mod N), which necessarily has the
			// opposite oddness since N is prime.
			pubKeyRecoveryCode ^= pubKeyRecoveryCodeOddnessBit
		}

		return NewSignature(&r, s), pubKeyRecoveryCode, iteration
	}
}

// Sign generates an ECDSA signature over the secp256k1 curve for the provided
// hash (which should be the result of hashing a larger message) using the
// given private key.  The produced signature is deterministic (same message
// and same key yield the same signature) and canonical in accordance with
// RFC6979 and BIP0062.
func Sign(key *btcec.PrivateKey, hash []byte) *Signature {
	sig, _, _ := signRFC6979(key, hash, 0)
	return sig
}

// SignWithRetry is like Sign, but it starts the RFC6979 nonce derivation at
// the provided iteration count.  Each distinct count yields a distinct, still
// deterministic, signature for the same key and hash.
func SignWithRetry(key *btcec.PrivateKey, hash []byte, iteration uint32) *Signature {
	sig, _, _ := signRFC6979(key, hash, iteration)
	return sig
}
