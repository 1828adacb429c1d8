// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOpcodeDisabled tests the opcodeDisabled function manually because all
// disabled opcodes result in a script execution failure before dispatch, so
// the function is not called under normal circumstances.
func TestOpcodeDisabled(t *testing.T) {
	t.Parallel()

	tests := []byte{OP_CAT, OP_SUBSTR, OP_LEFT, OP_RIGHT, OP_INVERT,
		OP_AND, OP_OR, OP_XOR, OP_2MUL, OP_2DIV, OP_MUL, OP_DIV, OP_MOD,
		OP_LSHIFT, OP_RSHIFT,
	}
	for _, opcodeVal := range tests {
		require.True(t, isOpcodeDisabled(opcodeVal), "opcode %x", opcodeVal)

		op := &opcodeArray[opcodeVal]
		err := opcodeDisabled(op, nil, nil)
		require.True(t, IsErrorCode(err, ErrDisabledOpcode),
			"opcodeDisabled: unexpected error - got %v", err)
	}
	require.False(t, isOpcodeDisabled(OP_ADD))
}

// TestOpcodeDisasm tests the print function for all opcodes in both the oneline
// and full modes to ensure it provides the expected disassembly.
func TestOpcodeDisasm(t *testing.T) {
	t.Parallel()

	// First, test the oneline disassembly.

	// The expected strings for the data push opcodes are replaced in the
	// test loops below since they involve repeating bytes.  Also, the
	// OP_NOP# and OP_UNKNOWN# are replaced below too, since it's easier
	// than manually listing them here.
	oneBytes := []byte{0x01}
	oneStr := "01"
	expectedStrings := [256]string{0x00: "0", 0x4f: "-1",
		0x50: "OP_RESERVED", 0x61: "OP_NOP", 0x62: "OP_VER",
		0x63: "OP_IF", 0x64: "OP_NOTIF", 0x65: "OP_VERIF",
		0x66: "OP_VERNOTIF", 0x67: "OP_ELSE", 0x68: "OP_ENDIF",
		0x69: "OP_VERIFY", 0x6a: "OP_RETURN", 0x6b: "OP_TOALTSTACK",
		0x6c: "OP_FROMALTSTACK", 0x6d: "OP_2DROP", 0x6e: "OP_2DUP",
		0x6f: "OP_3DUP", 0x70: "OP_2OVER", 0x71: "OP_2ROT",
		0x72: "OP_2SWAP", 0x73: "OP_IFDUP", 0x74: "OP_DEPTH",
		0x75: "OP_DROP", 0x76: "OP_DUP", 0x77: "OP_NIP",
		0x78: "OP_OVER", 0x79: "OP_PICK", 0x7a: "OP_ROLL",
		0x7b: "OP_ROT", 0x7c: "OP_SWAP", 0x7d: "OP_TUCK",
		0x7e: "OP_CAT", 0x7f: "OP_SUBSTR", 0x80: "OP_LEFT",
		0x81: "OP_RIGHT", 0x82: "OP_SIZE", 0x83: "OP_INVERT",
		0x84: "OP_AND", 0x85: "OP_OR", 0x86: "OP_XOR",
		0x87: "OP_EQUAL", 0x88: "OP_EQUALVERIFY", 0x89: "OP_RESERVED1",
		0x8a: "OP_RESERVED2", 0x8b: "OP_1ADD", 0x8c: "OP_1SUB",
		0x8d: "OP_2MUL", 0x8e: "OP_2DIV", 0x8f: "OP_NEGATE",
		0x90: "OP_ABS", 0x91: "OP_NOT", 0x92: "OP_0NOTEQUAL",
		0x93: "OP_ADD", 0x94: "OP_SUB", 0x95: "OP_MUL", 0x96: "OP_DIV",
		0x97: "OP_MOD", 0x98: "OP_LSHIFT", 0x99: "OP_RSHIFT",
		0x9a: "OP_BOOLAND", 0x9b: "OP_BOOLOR", 0x9c: "OP_NUMEQUAL",
		0x9d: "OP_NUMEQUALVERIFY", 0x9e: "OP_NUMNOTEQUAL",
		0x9f: "OP_LESSTHAN", 0xa0: "OP_GREATERTHAN",
		0xa1: "OP_LESSTHANOREQUAL", 0xa2: "OP_GREATERTHANOREQUAL",
		0xa3: "OP_MIN", 0xa4: "OP_MAX", 0xa5: "OP_WITHIN",
		0xa6: "OP_RIPEMD160", 0xa7: "OP_SHA1", 0xa8: "OP_SHA256",
		0xa9: "OP_HASH160", 0xaa: "OP_HASH256", 0xab: "OP_CODESEPARATOR",
		0xac: "OP_CHECKSIG", 0xad: "OP_CHECKSIGVERIFY",
		0xae: "OP_CHECKMULTISIG", 0xaf: "OP_CHECKMULTISIGVERIFY",
		0xfa: "OP_SMALLINTEGER", 0xfb: "OP_PUBKEYS",
		0xfd: "OP_PUBKEYHASH", 0xfe: "OP_PUBKEY",
		0xff: "OP_INVALIDOPCODE",
	}
	for opcodeVal, expectedStr := range expectedStrings {
		var data []byte
		switch {
		// OP_DATA_1 through OP_DATA_75 display the pushed data.
		case opcodeVal >= 0x01 && opcodeVal < 0x4c:
			data = bytes.Repeat(oneBytes, opcodeVal)
			expectedStr = strings.Repeat(oneStr, opcodeVal)

		// OP_PUSHDATA1.
		case opcodeVal == 0x4c:
			data = bytes.Repeat(oneBytes, 1)
			expectedStr = strings.Repeat(oneStr, 1)

		// OP_PUSHDATA2.
		case opcodeVal == 0x4d:
			data = bytes.Repeat(oneBytes, 2)
			expectedStr = strings.Repeat(oneStr, 2)

		// OP_PUSHDATA4.
		case opcodeVal == 0x4e:
			data = bytes.Repeat(oneBytes, 3)
			expectedStr = strings.Repeat(oneStr, 3)

		// OP_1 through OP_16 display the numbers themselves.
		case opcodeVal >= 0x51 && opcodeVal <= 0x60:
			val := byte(opcodeVal - (0x51 - 1))
			expectedStr = strconv.Itoa(int(val))

		// OP_NOP1 through OP_NOP10.
		case opcodeVal >= 0xb0 && opcodeVal <= 0xb9:
			if opcodeVal == 0xb1 {
				// OP_NOP2 is an alias of OP_CHECKLOCKTIMEVERIFY
				expectedStr = "OP_CHECKLOCKTIMEVERIFY"
			} else {
				val := byte(opcodeVal - (0xb0 - 1))
				expectedStr = "OP_NOP" + strconv.Itoa(int(val))
			}

		// OP_UNKNOWN#.
		case opcodeVal >= 0xba && opcodeVal <= 0xf9 || opcodeVal == 0xfc:
			expectedStr = "OP_UNKNOWN" + strconv.Itoa(opcodeVal)
		}

		var buf strings.Builder
		disasmOpcode(&buf, &opcodeArray[opcodeVal], data, true)
		require.Equalf(t, expectedStr, buf.String(),
			"oneline disasm of opcode %x", opcodeVal)
	}

	// Now, replace the relevant fields and test the full disassembly.
	expectedStrings[0x00] = "OP_0"
	expectedStrings[0x4f] = "OP_1NEGATE"
	for opcodeVal, expectedStr := range expectedStrings {
		var data []byte
		switch {
		// OP_DATA_1 through OP_DATA_75 display the opcode followed by
		// the pushed data.
		case opcodeVal >= 0x01 && opcodeVal < 0x4c:
			data = bytes.Repeat(oneBytes, opcodeVal)
			expectedStr = fmt.Sprintf("OP_DATA_%d 0x%s", opcodeVal,
				strings.Repeat(oneStr, opcodeVal))

		// OP_PUSHDATA1.
		case opcodeVal == 0x4c:
			data = bytes.Repeat(oneBytes, 1)
			expectedStr = fmt.Sprintf("OP_PUSHDATA1 0x%02x 0x%s",
				len(data), strings.Repeat(oneStr, 1))

		// OP_PUSHDATA2.
		case opcodeVal == 0x4d:
			data = bytes.Repeat(oneBytes, 2)
			expectedStr = fmt.Sprintf("OP_PUSHDATA2 0x%04x 0x%s",
				len(data), strings.Repeat(oneStr, 2))

		// OP_PUSHDATA4.
		case opcodeVal == 0x4e:
			data = bytes.Repeat(oneBytes, 3)
			expectedStr = fmt.Sprintf("OP_PUSHDATA4 0x%08x 0x%s",
				len(data), strings.Repeat(oneStr, 3))

		// OP_1 through OP_16.
		case opcodeVal >= 0x51 && opcodeVal <= 0x60:
			val := byte(opcodeVal - (0x51 - 1))
			expectedStr = "OP_" + strconv.Itoa(int(val))

		// OP_NOP1 through OP_NOP10.
		case opcodeVal >= 0xb0 && opcodeVal <= 0xb9:
			if opcodeVal == 0xb1 {
				expectedStr = "OP_CHECKLOCKTIMEVERIFY"
			} else {
				val := byte(opcodeVal - (0xb0 - 1))
				expectedStr = "OP_NOP" + strconv.Itoa(int(val))
			}

		// OP_UNKNOWN#.
		case opcodeVal >= 0xba && opcodeVal <= 0xf9 || opcodeVal == 0xfc:
			expectedStr = "OP_UNKNOWN" + strconv.Itoa(opcodeVal)
		}

		var buf strings.Builder
		disasmOpcode(&buf, &opcodeArray[opcodeVal], data, false)
		require.Equalf(t, expectedStr, buf.String(),
			"full disasm of opcode %x", opcodeVal)
	}
}

// TestOpcodeByName ensures every opcode can be looked up by its name along
// with the aliases.
func TestOpcodeByName(t *testing.T) {
	t.Parallel()

	for i := range opcodeArray {
		op := &opcodeArray[i]
		require.Equal(t, byte(i), op.value, "opcode table order")
		require.Equal(t, op.value, OpcodeByName[op.name], op.name)
		require.NotNil(t, op.opfunc, op.name)

		// Only the data pushes carry a length other than one.
		switch {
		case op.value >= OP_DATA_1 && op.value <= OP_DATA_75:
			require.Equal(t, int(op.value)+1, op.length, op.name)
		case op.value == OP_PUSHDATA1:
			require.Equal(t, -1, op.length)
		case op.value == OP_PUSHDATA2:
			require.Equal(t, -2, op.length)
		case op.value == OP_PUSHDATA4:
			require.Equal(t, -4, op.length)
		default:
			require.Equal(t, 1, op.length, op.name)
		}
	}
	require.Len(t, OpcodeByName, len(opcodeArray)+3)
	require.Equal(t, byte(OP_0), OpcodeByName["OP_FALSE"])
	require.Equal(t, byte(OP_1), OpcodeByName["OP_TRUE"])
	require.Equal(t, byte(OP_CHECKLOCKTIMEVERIFY), OpcodeByName["OP_NOP2"])
}

// TestOpcodeExecution runs short scripts exercising the stack, arithmetic and
// crypto opcodes.
func TestOpcodeExecution(t *testing.T) {
	t.Parallel()

	const ok = ErrorCode(-1)
	tests := []struct {
		script string
		flags  ScriptFlags
		err    ErrorCode
	}{
		// Stack manipulation.
		{"1 TOALTSTACK FROMALTSTACK", 0, ok},
		{"FROMALTSTACK", 0, ErrInvalidStackOperation},
		{"1 2 2DROP 1", 0, ok},
		{"1 2DROP", 0, ErrInvalidStackOperation},
		{"1 2 2DUP 2 EQUALVERIFY 1 EQUALVERIFY 2 EQUALVERIFY 1 EQUAL", 0, ok},
		{"1 2 3 3DUP DEPTH 6 EQUAL", 0, ok},
		{"1 2 3DUP", 0, ErrInvalidStackOperation},
		{"1 2 3 4 2OVER 2 EQUALVERIFY 1 EQUAL", 0, ok},
		{"1 2 2OVER", 0, ErrInvalidStackOperation},
		{"1 2 3 4 5 6 2ROT 2 EQUALVERIFY 1 EQUALVERIFY 2DROP 2DROP 1", 0, ok},
		{"1 2 3 4 2SWAP 2 EQUALVERIFY 1 EQUALVERIFY 4 EQUALVERIFY 3 EQUAL", 0, ok},
		{"0 IFDUP DEPTH 1 EQUAL", 0, ok},
		{"2 IFDUP DEPTH 2 EQUAL", 0, ok},
		{"DEPTH 0 EQUAL", 0, ok},
		{"1 DROP", 0, ErrEmptyStack},
		{"1 DUP EQUAL", 0, ok},
		{"1 2 NIP 2 EQUAL", 0, ok},
		{"1 2 OVER 1 EQUAL", 0, ok},
		{"1 2 3 2 PICK 1 EQUALVERIFY DEPTH 3 EQUAL", 0, ok},
		{"1 2 3 2 ROLL 1 EQUALVERIFY DEPTH 2 EQUAL", 0, ok},
		{"1 1 PICK", 0, ErrInvalidStackOperation},
		{"1 -1 PICK", 0, ErrInvalidStackOperation},
		{"1 2 3 ROT 1 EQUALVERIFY 3 EQUALVERIFY 2 EQUAL", 0, ok},
		{"1 2 SWAP 1 EQUALVERIFY 2 EQUAL", 0, ok},
		{"1 2 TUCK 2 EQUALVERIFY 1 EQUALVERIFY 2 EQUAL", 0, ok},
		{"'abc' SIZE 3 EQUALVERIFY 'abc' EQUAL", 0, ok},

		// Arithmetic.
		{"1 2 ADD 3 EQUAL", 0, ok},
		{"3 5 SUB -2 EQUAL", 0, ok},
		{"5 1ADD 6 EQUAL", 0, ok},
		{"5 1SUB 4 EQUAL", 0, ok},
		{"5 NEGATE ABS 5 EQUAL", 0, ok},
		{"-1 NEGATE 1 EQUAL", 0, ok},
		{"0 NOT", 0, ok},
		{"7 0NOTEQUAL", 0, ok},
		{"1 0 BOOLAND NOT", 0, ok},
		{"1 0 BOOLOR", 0, ok},
		{"2 2 NUMEQUAL", 0, ok},
		{"1 2 NUMEQUALVERIFY 1", 0, ErrNumEqualVerify},
		{"1 2 NUMNOTEQUAL", 0, ok},
		{"1 2 LESSTHAN", 0, ok},
		{"2 1 GREATERTHAN", 0, ok},
		{"2 2 LESSTHANOREQUAL", 0, ok},
		{"2 2 GREATERTHANOREQUAL", 0, ok},
		{"2 3 MIN 2 EQUAL", 0, ok},
		{"2 3 MAX 3 EQUAL", 0, ok},
		{"3 2 5 WITHIN", 0, ok},
		{"5 2 5 WITHIN NOT", 0, ok},
		{"0x04 0xffffff7f DUP ADD 0x05 0xfeffffff00 EQUAL", 0, ok},
		{"0x05 0x0100000000 1ADD", 0, ErrNumberTooBig},
		{"0x01 0x80 NOT", 0, ok},
		{"0x01 0x80 NOT", ScriptVerifyMinimalData, ErrMinimalData},
		{"0x01 0x05", ScriptVerifyMinimalData, ErrMinimalData},
		{"0x01 0x05", 0, ok},

		// Flow control.
		{"0 VERIFY 1", 0, ErrVerify},
		{"1 2 EQUALVERIFY 1", 0, ErrEqualVerify},
		{"RETURN", 0, ErrEarlyReturn},
		{"0 IF RETURN ENDIF 1", 0, ok},
		{"1 IF 0 ELSE 1 ELSE 1 ENDIF", 0, ok},
		{"1 NOTIF 0 ELSE 1 ENDIF", 0, ok},
		{"NOP NOP1 NOP3 NOP10 1", 0, ok},
		{"NOP10 1", ScriptDiscourageUpgradableNops, ErrDiscourageUpgradableNOPs},
		{"NOP 1", ScriptDiscourageUpgradableNops, ok},
		{"NOP2 1", ScriptDiscourageUpgradableNops, ErrDiscourageUpgradableNOPs},
		{"1 1 NUMEQUALVERIFY 1", 0, ok},
		{"0 0 CHECKSIGVERIFY 1", 0, ErrCheckSigVerify},
		{"0 0 0 CHECKMULTISIGVERIFY 1", 0, ok},
		{"0 0 0 CHECKMULTISIG", 0, ok},

		// Crypto.
		{"0 RIPEMD160 0x14 0x9c1185a5c5e9fc54612808977ee8f548b2258d31 EQUAL", 0, ok},
		{"0 SHA1 0x14 0xda39a3ee5e6b4b0d3255bfef95601890afd80709 EQUAL", 0, ok},
		{"0 SHA256 0x20 0xe3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855 EQUAL", 0, ok},
		{"0 HASH160 0x14 0xb472a266d0bd89c13706a4132ccfb16f7c3b9fcb EQUAL", 0, ok},
		{"0 HASH256 0x20 0x5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456 EQUAL", 0, ok},
		{"RIPEMD160", 0, ErrInvalidStackOperation},
	}

	for _, test := range tests {
		err := runScripts(nil, mustParseShortForm(test.script), test.flags)
		if test.err == ok {
			require.NoError(t, err, test.script)
			continue
		}
		require.Truef(t, IsErrorCode(err, test.err),
			"%s: want %v, got %v", test.script, test.err, err)
	}
}
