// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/btcec/ecdsa"
)

const (
	// minSigLen is the minimum length of a DER encoded signature and is
	// when both R and S are 1 byte each.
	//
	// 0x30 + <1-byte> + 0x02 + 0x01 + <byte> + 0x2 + 0x01 + <byte>
	minSigLen = 8

	// maxSigLen is the maximum length of a DER encoded signature and is
	// when both R and S are 33 bytes each.  It is 33 bytes because a
	// 256-bit integer requires 32 bytes and an additional leading null byte
	// might be required if the high bit is set in the value.
	//
	// 0x30 + <1-byte> + 0x02 + 0x21 + <33 bytes> + 0x2 + 0x21 + <33 bytes>
	maxSigLen = 72

	// asn1SequenceID is the ASN.1 identifier for a sequence and is used when
	// parsing and validating DER signatures.
	asn1SequenceID = 0x30

	// asn1IntegerID is the ASN.1 identifier for an integer and is used when
	// parsing and validating DER signatures.
	asn1IntegerID = 0x02
)

// halfOrder is used to tame ECDSA malleability (see BIP0062).
var halfOrder = btcec.HalfOrder()

// IsDefinedHashType returns whether the hash type byte selects one of the
// three base modes.  The anyone-can-pay and fork id bits are ignored, the
// remaining value must be SigHashAll, SigHashNone or SigHashSingle.
func IsDefinedHashType(hashType byte) bool {
	baseType := SigHashType(hashType) &^ (SigHashAnyOneCanPay | SigHashForkID)
	return baseType >= SigHashAll && baseType <= SigHashSingle
}

// checkDERSignature returns an error when sig, which must not include the
// hash type byte, is not a structurally canonical DER signature.  The values
// of R and S are not range checked against the group order here.
func checkDERSignature(sig []byte) error {
	// The format of a DER encoded signature is as follows:
	//
	// 0x30 <total length> 0x02 <length of R> <R> 0x02 <length of S> <S>
	//   - 0x30 is the ASN.1 identifier for a sequence
	//   - Total length is 1 byte and specifies length of all remaining data
	//   - 0x02 is the ASN.1 identifier that specifies an integer follows
	//   - Length of R is 1 byte and specifies how many bytes R occupies
	//   - R is the arbitrary length big-endian encoded number which
	//     represents the R value of the signature.  DER encoding dictates
	//     that the value must be encoded using the minimum possible number
	//     of bytes.  This implies the first byte can only be null if the
	//     highest bit of the next byte is set in order to prevent it from
	//     being interpreted as a negative number.
	//   - 0x02 is once again the ASN.1 integer identifier
	//   - Length of S is 1 byte and specifies how many bytes S occupies
	//   - S is the arbitrary length big-endian encoded number which
	//     represents the S value of the signature.  The encoding rules are
	//     identical as those for R.
	const (
		sequenceOffset = 0
		dataLenOffset  = 1
		rTypeOffset    = 2
		rLenOffset     = 3
		rOffset        = 4
	)

	// The signature must adhere to the minimum and maximum allowed length.
	sigLen := len(sig)
	if sigLen < minSigLen {
		str := fmt.Sprintf("malformed signature: too short: %d < %d", sigLen,
			minSigLen)
		return scriptError(ErrSigTooShort, str)
	}
	if sigLen > maxSigLen {
		str := fmt.Sprintf("malformed signature: too long: %d > %d", sigLen,
			maxSigLen)
		return scriptError(ErrSigTooLong, str)
	}

	// The signature must start with the ASN.1 sequence identifier.
	if sig[sequenceOffset] != asn1SequenceID {
		str := fmt.Sprintf("malformed signature: format has wrong type: %#x",
			sig[sequenceOffset])
		return scriptError(ErrSigInvalidSeqID, str)
	}

	// The signature must indicate the correct amount of data for all elements
	// related to R and S.
	if int(sig[dataLenOffset]) != sigLen-2 {
		str := fmt.Sprintf("malformed signature: bad length: %d != %d",
			sig[dataLenOffset], sigLen-2)
		return scriptError(ErrSigInvalidDataLen, str)
	}

	// Calculate the offsets of the elements related to S and ensure S is inside
	// the signature.
	//
	// rLen specifies the length of the big-endian encoded number which
	// represents the R value of the signature.
	//
	// sTypeOffset is the offset of the ASN.1 identifier for S and, like its R
	// counterpart, is expected to indicate an ASN.1 integer.
	//
	// sLenOffset and sOffset are the byte offsets within the signature of the
	// length of S and S itself, respectively.
	rLen := int(sig[rLenOffset])
	sTypeOffset := rOffset + rLen
	sLenOffset := sTypeOffset + 1
	if sTypeOffset >= sigLen {
		str := "malformed signature: S type indicator missing"
		return scriptError(ErrSigMissingSTypeID, str)
	}
	if sLenOffset >= sigLen {
		str := "malformed signature: S length missing"
		return scriptError(ErrSigMissingSLen, str)
	}

	// The lengths of R and S must match the overall length of the signature.
	//
	// sLen specifies the length of the big-endian encoded number which
	// represents the S value of the signature.
	sOffset := sLenOffset + 1
	sLen := int(sig[sLenOffset])
	if sOffset+sLen != sigLen {
		str := "malformed signature: invalid S length"
		return scriptError(ErrSigInvalidSLen, str)
	}

	// R elements must be ASN.1 integers.
	if sig[rTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: R integer marker: %#x != %#x",
			sig[rTypeOffset], asn1IntegerID)
		return scriptError(ErrSigInvalidRIntID, str)
	}

	// Zero-length integers are not allowed for R.
	if rLen == 0 {
		str := "malformed signature: R length is zero"
		return scriptError(ErrSigZeroRLen, str)
	}

	// R must not be negative.
	if sig[rOffset]&0x80 != 0 {
		str := "malformed signature: R is negative"
		return scriptError(ErrSigNegativeR, str)
	}

	// Null bytes at the start of R are not allowed, unless R would otherwise be
	// interpreted as a negative number.
	if rLen > 1 && sig[rOffset] == 0x00 && sig[rOffset+1]&0x80 == 0 {
		str := "malformed signature: R value has too much padding"
		return scriptError(ErrSigTooMuchRPadding, str)
	}

	// S elements must be ASN.1 integers.
	if sig[sTypeOffset] != asn1IntegerID {
		str := fmt.Sprintf("malformed signature: S integer marker: %#x != %#x",
			sig[sTypeOffset], asn1IntegerID)
		return scriptError(ErrSigInvalidSIntID, str)
	}

	// Zero-length integers are not allowed for S.
	if sLen == 0 {
		str := "malformed signature: S length is zero"
		return scriptError(ErrSigZeroSLen, str)
	}

	// S must not be negative.
	if sig[sOffset]&0x80 != 0 {
		str := "malformed signature: S is negative"
		return scriptError(ErrSigNegativeS, str)
	}

	// Null bytes at the start of S are not allowed, unless S would otherwise be
	// interpreted as a negative number.
	if sLen > 1 && sig[sOffset] == 0x00 && sig[sOffset+1]&0x80 == 0 {
		str := "malformed signature: S value has too much padding"
		return scriptError(ErrSigTooMuchSPadding, str)
	}

	return nil
}

// derSValue returns the S value of a signature that already passed
// checkDERSignature.
func derSValue(sig []byte) *big.Int {
	rLen := int(sig[3])
	sLenOffset := 4 + rLen + 1
	sLen := int(sig[sLenOffset])
	return new(big.Int).SetBytes(sig[sLenOffset+1 : sLenOffset+1+sLen])
}

// IsCanonicalSignature returns whether the passed transaction signature,
// which includes the trailing hash type byte, is a structurally canonical DER
// encoding.  It does not check the hash type or whether S is low.
func IsCanonicalSignature(sigWithHashType []byte) bool {
	if len(sigWithHashType) == 0 {
		return false
	}
	return checkDERSignature(sigWithHashType[:len(sigWithHashType)-1]) == nil
}

// IsLowS returns whether the DER signature, without a hash type byte, is
// canonical and has a nonzero S value no greater than half the group order.
func IsLowS(sig []byte) bool {
	if checkDERSignature(sig) != nil {
		return false
	}
	sValue := derSValue(sig)
	return sValue.Sign() > 0 && sValue.Cmp(halfOrder) <= 0
}

// isStrictPubKeyEncoding returns whether or not the passed public key adheres
// to the strict encoding requirements.
func isStrictPubKeyEncoding(pubKey []byte) bool {
	if len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03) {
		// Compressed
		return true
	}
	if len(pubKey) == 65 && pubKey[0] == 0x04 {
		// Uncompressed
		return true
	}
	return false
}

// checkHashTypeEncoding returns whether or not the passed hashtype adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkHashTypeEncoding(hashType SigHashType) error {
	if !vm.hasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}

	if !IsDefinedHashType(byte(hashType)) {
		str := fmt.Sprintf("invalid hash type 0x%x", hashType)
		return scriptError(ErrInvalidSigHashType, str)
	}

	forkID := hashType&SigHashForkID != 0
	enabled := vm.hasFlag(ScriptEnableSigHashForkID)
	if forkID && !enabled {
		str := fmt.Sprintf("hash type 0x%x uses the fork id while it is "+
			"not enabled", hashType)
		return scriptError(ErrIllegalForkID, str)
	}
	if !forkID && enabled {
		str := fmt.Sprintf("hash type 0x%x does not use the required "+
			"fork id", hashType)
		return scriptError(ErrMustUseForkID, str)
	}
	return nil
}

// checkPubKeyEncoding returns whether or not the passed public key adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkPubKeyEncoding(pubKey []byte) error {
	if !vm.hasFlag(ScriptVerifyStrictEncoding) {
		return nil
	}

	if isStrictPubKeyEncoding(pubKey) {
		return nil
	}
	return scriptError(ErrPubKeyType, "unsupported public key type")
}

// checkSignatureEncoding returns whether or not the passed signature adheres to
// the strict encoding requirements if enabled.
func (vm *Engine) checkSignatureEncoding(sig []byte) error {
	if !vm.hasFlag(ScriptVerifyDERSignatures) &&
		!vm.hasFlag(ScriptVerifyLowS) &&
		!vm.hasFlag(ScriptVerifyStrictEncoding) {

		return nil
	}

	if err := checkDERSignature(sig); err != nil {
		return err
	}

	// Verify the S value is <= half the order of the curve.  This check is
	// done because when it is higher, the complement modulo the order can
	// be used instead which is a shorter encoding by 1 byte.  Further,
	// without enforcing this, it is possible to replace a signature in a
	// valid transaction with the complement while still being a valid
	// signature that verifies.  This would result in changing the
	// transaction hash and thus is a source of malleability.
	if vm.hasFlag(ScriptVerifyLowS) && derSValue(sig).Cmp(halfOrder) > 0 {
		str := "signature is not canonical due to unnecessarily high S value"
		return scriptError(ErrSigHighS, str)
	}

	return nil
}

// parseSignature parses a signature without its hash type byte.  The strict
// DER parser is used whenever any of the encoding flags is active.
func (vm *Engine) parseSignature(sig []byte) (*ecdsa.Signature, error) {
	if vm.hasFlag(ScriptVerifyStrictEncoding) ||
		vm.hasFlag(ScriptVerifyDERSignatures) ||
		vm.hasFlag(ScriptVerifyLowS) {

		return ecdsa.ParseDERSignature(sig)
	}
	return ecdsa.ParseSignature(sig)
}

// verifySignature checks the parsed signature against the hash, consulting the
// signature cache first when one is configured.  Valid signatures are added to
// the cache.
func (vm *Engine) verifySignature(hash *chainhash.Hash, sigBytes, pkBytes []byte,
	sig *ecdsa.Signature, pubKey *btcec.PublicKey) bool {

	if vm.sigCache != nil {
		if vm.sigCache.Exists(*hash, sigBytes, pkBytes) {
			return true
		}
		if !sig.Verify(hash[:], pubKey) {
			return false
		}
		vm.sigCache.Add(*hash, sigBytes, pkBytes)
		return true
	}

	return sig.Verify(hash[:], pubKey)
}
