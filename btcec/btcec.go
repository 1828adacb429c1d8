// Copyright 2010 The Go Authors. All rights reserved.
// Copyright 2011 ThePiachu. All rights reserved.
// Copyright 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package btcec

// References:
//   [SECG]: Recommended Elliptic Curve Domain Parameters
//     http://www.secg.org/sec2-v2.pdf
//
//   [GECC]: Guide to Elliptic Curve Cryptography (Hankerson, Menezes, Vanstone)

// This package operates, internally, on Jacobian coordinates. For a given
// (x, y) position on the curve, the Jacobian coordinates are (x1, y1, z1)
// where x = x1/z1² and y = y1/z1³.  All of the arithmetic is delegated to the
// constant time field and scalar types of the dcrd secp256k1 package.

import (
	"math/big"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// KoblitzCurve provides an implementation for secp256k1 that fits the ECC
// Curve interface from crypto/elliptic.
type KoblitzCurve = secp.KoblitzCurve

// S256 returns a Curve which implements secp256k1.
func S256() *KoblitzCurve {
	return secp.S256()
}

// CurveParams contains the parameters for the secp256k1 curve.
type CurveParams = secp.CurveParams

// Params returns the secp256k1 curve parameters for convenience.
func Params() *CurveParams {
	return secp.Params()
}

// JacobianPoint is an element of the group formed by the secp256k1 curve in
// Jacobian projective coordinates and thus represents a point on the curve.
type JacobianPoint = secp.JacobianPoint

// FieldVal implements optimized fixed-precision arithmetic over the secp256k1
// finite field.
type FieldVal = secp.FieldVal

// ModNScalar implements optimized 256-bit constant-time fixed-precision
// arithmetic over the secp256k1 group order.
type ModNScalar = secp.ModNScalar

// MakeJacobianPoint returns a Jacobian point with the provided X, Y, and Z
// coordinates.
func MakeJacobianPoint(x, y, z *FieldVal) JacobianPoint {
	return secp.MakeJacobianPoint(x, y, z)
}

// AddNonConst adds the passed Jacobian points together and stores the result
// in the provided result param in *non-constant* time.
func AddNonConst(p1, p2, result *JacobianPoint) {
	secp.AddNonConst(p1, p2, result)
}

// DecompressY attempts to calculate the Y coordinate for the given X
// coordinate such that the result pair is a point on the secp256k1 curve.  It
// adjusts Y based on the desired oddness and returns whether or not it was
// successful since not all X coordinates are valid.
//
// The magnitude of the provided X coordinate field val must be a max of 8 for
// a correct result.  The resulting Y field val will have a max magnitude of 2.
func DecompressY(x *FieldVal, odd bool, resultY *FieldVal) bool {
	return secp.DecompressY(x, odd, resultY)
}

// ScalarBaseMultNonConst multiplies k*G where G is the base point of the group
// and k is a big endian integer.  The result is stored in Jacobian coordinates
// (x1, y1, z1).
func ScalarBaseMultNonConst(k *ModNScalar, result *JacobianPoint) {
	secp.ScalarBaseMultNonConst(k, result)
}

// ScalarMultNonConst multiplies k*P where k is a big endian integer modulo
// the curve order and P is a point in Jacobian projective coordinates and
// stores the result in the provided Jacobian point.
func ScalarMultNonConst(k *ModNScalar, point, result *JacobianPoint) {
	secp.ScalarMultNonConst(k, point, result)
}

// halfOrder is used to tame ECDSA malleability (see BIP0062).
var halfOrder = new(big.Int).Rsh(Params().N, 1)

// HalfOrder returns a copy of half the secp256k1 group order.  Signatures with
// an S value strictly greater than this are considered high-S.
func HalfOrder() *big.Int {
	return new(big.Int).Set(halfOrder)
}
