// Copyright (c) 2015-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/btcec/ecdsa"
	"github.com/stretchr/testify/require"
)

// TestCheckDERSignature ensures each structural violation of a DER signature
// is reported with its own error code.
func TestCheckDERSignature(t *testing.T) {
	t.Parallel()

	// A signature over a real key exercises the 32 and 33 byte integers.
	key := testKey(0x0d)
	realSig := ecdsa.Sign(key, bytes.Repeat([]byte{0x5a}, 32)).Serialize()

	const ok = ErrorCode(-1)

	tests := []struct {
		name string
		sig  []byte
		err  ErrorCode
	}{
		{"real", realSig, ok},
		{"minimal", hexToBytes("3006020101020101"), ok},
		{"padded R", hexToBytes("300702020080020101"), ok},
		{"too short", hexToBytes("30050201010201"), ErrSigTooShort},
		{"too long", append([]byte{0x30, 0x47, 0x02, 0x21},
			make([]byte, 69)...), ErrSigTooLong},
		{"bad sequence", hexToBytes("3106020101020101"), ErrSigInvalidSeqID},
		{"bad data len", hexToBytes("3007020101020101"), ErrSigInvalidDataLen},
		{"S type missing", hexToBytes("3006020401010101"), ErrSigMissingSTypeID},
		{"S len missing", hexToBytes("3006020301010102"), ErrSigMissingSLen},
		{"bad S len", hexToBytes("3006020101020201"), ErrSigInvalidSLen},
		{"bad R marker", hexToBytes("3006030101020101"), ErrSigInvalidRIntID},
		{"zero R len", hexToBytes("3006020002020101"), ErrSigZeroRLen},
		{"negative R", hexToBytes("3006020181020101"), ErrSigNegativeR},
		{"R padding", hexToBytes("300702020001020101"), ErrSigTooMuchRPadding},
		{"bad S marker", hexToBytes("3006020101030101"), ErrSigInvalidSIntID},
		{"zero S len", hexToBytes("3006020201010200"), ErrSigZeroSLen},
		{"negative S", hexToBytes("3006020101020181"), ErrSigNegativeS},
		{"S padding", hexToBytes("300702010102020001"), ErrSigTooMuchSPadding},
	}

	for _, test := range tests {
		err := checkDERSignature(test.sig)
		if test.err == ok {
			require.NoError(t, err, test.name)
			require.True(t, IsCanonicalSignature(append(test.sig,
				byte(SigHashAll))), test.name)
			continue
		}
		require.True(t, IsErrorCode(err, test.err), "%s: got %v",
			test.name, err)
		require.False(t, IsCanonicalSignature(append(test.sig,
			byte(SigHashAll))), test.name)
	}

	require.False(t, IsCanonicalSignature(nil))
}

// TestIsLowS ensures signatures are classified by their S value.
func TestIsLowS(t *testing.T) {
	t.Parallel()

	key := testKey(0x0e)
	sig := ecdsa.Sign(key, bytes.Repeat([]byte{0x01}, 32))
	require.True(t, IsLowS(sig.Serialize()))

	// Negate S to produce the high form of the same signature.
	r, s := sig.R(), sig.S()
	s.Negate()
	highSig := ecdsa.NewSignature(&r, &s).Serialize()
	require.False(t, IsLowS(highSig))
	require.True(t, checkDERSignature(highSig) == nil)

	// S equal to half the order is still low.
	var half btcec.ModNScalar
	half.SetByteSlice(halfOrder.Bytes())
	one := new(btcec.ModNScalar).SetInt(1)
	require.True(t, IsLowS(ecdsa.NewSignature(one, &half).Serialize()))

	// A zero S is structurally valid DER but never low.
	zeroS := hexToBytes("3006020101020100")
	require.NoError(t, checkDERSignature(zeroS))
	require.False(t, IsLowS(zeroS))

	require.False(t, IsLowS(hexToBytes("3106020101020101")))
}

// TestIsDefinedHashType ensures only the three base modes are defined,
// regardless of the modifier bits.
func TestIsDefinedHashType(t *testing.T) {
	t.Parallel()

	defined := map[byte]bool{
		0x01: true, 0x02: true, 0x03: true,
		0x41: true, 0x42: true, 0x43: true,
		0x81: true, 0x82: true, 0x83: true,
		0xc1: true, 0xc2: true, 0xc3: true,
	}
	for i := 0; i < 256; i++ {
		require.Equal(t, defined[byte(i)], IsDefinedHashType(byte(i)),
			"hash type %#x", i)
	}
}

// TestEngineEncodingChecks exercises the flag dependent encoding checks of
// the engine.
func TestEngineEncodingChecks(t *testing.T) {
	t.Parallel()

	newVM := func(flags ScriptFlags) *Engine {
		vm, err := NewEngine([]byte{OP_TRUE}, testSpendTx(nil), 0, flags,
			nil, nil, nil)
		require.NoError(t, err)
		return vm
	}

	const ok = ErrorCode(-1)

	// Hash types.
	hashTypeTests := []struct {
		flags    ScriptFlags
		hashType SigHashType
		err      ErrorCode
	}{
		{0, 0x00, ok},
		{0, 0x44, ok},
		{ScriptVerifyStrictEncoding, SigHashAll, ok},
		{ScriptVerifyStrictEncoding, SigHashSingle | SigHashAnyOneCanPay, ok},
		{ScriptVerifyStrictEncoding, 0x00, ErrInvalidSigHashType},
		{ScriptVerifyStrictEncoding, 0x04, ErrInvalidSigHashType},
		{ScriptVerifyStrictEncoding, 0x21, ErrInvalidSigHashType},
		{ScriptVerifyStrictEncoding, SigHashAll | SigHashForkID,
			ErrIllegalForkID},
		{ScriptVerifyStrictEncoding | ScriptEnableSigHashForkID,
			SigHashAll | SigHashForkID, ok},
		{ScriptVerifyStrictEncoding | ScriptEnableSigHashForkID,
			SigHashAll, ErrMustUseForkID},
		{ScriptEnableSigHashForkID, SigHashAll, ok},
	}
	for i, test := range hashTypeTests {
		err := newVM(test.flags).checkHashTypeEncoding(test.hashType)
		if test.err == ok {
			require.NoError(t, err, "hash type test #%d", i)
			continue
		}
		require.True(t, IsErrorCode(err, test.err),
			"hash type test #%d: got %v", i, err)
	}

	// Public keys.
	comp := testKey(0x0f).PubKey().SerializeCompressed()
	uncomp := testKey(0x0f).PubKey().SerializeUncompressed()
	hybrid := append([]byte{0x06}, uncomp[1:]...)
	strict := newVM(ScriptVerifyStrictEncoding)
	require.NoError(t, strict.checkPubKeyEncoding(comp))
	require.NoError(t, strict.checkPubKeyEncoding(uncomp))
	for _, pubKey := range [][]byte{hybrid, comp[:32], nil} {
		err := strict.checkPubKeyEncoding(pubKey)
		require.True(t, IsErrorCode(err, ErrPubKeyType), "got %v", err)
		require.NoError(t, newVM(0).checkPubKeyEncoding(pubKey))
	}

	// Signatures.
	sig := ecdsa.Sign(testKey(0x0f), bytes.Repeat([]byte{0x02}, 32))
	r, s := sig.R(), sig.S()
	s.Negate()
	highS := ecdsa.NewSignature(&r, &s).Serialize()
	badDER := hexToBytes("3006020181020101")

	require.NoError(t, newVM(0).checkSignatureEncoding(badDER))
	err := newVM(ScriptVerifyDERSignatures).checkSignatureEncoding(badDER)
	require.True(t, IsErrorCode(err, ErrSigNegativeR), "got %v", err)
	require.NoError(t, newVM(ScriptVerifyDERSignatures).
		checkSignatureEncoding(highS))
	err = newVM(ScriptVerifyLowS).checkSignatureEncoding(highS)
	require.True(t, IsErrorCode(err, ErrSigHighS), "got %v", err)
	require.NoError(t, newVM(ScriptVerifyLowS).
		checkSignatureEncoding(sig.Serialize()))
}
