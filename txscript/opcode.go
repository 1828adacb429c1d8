// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/btcec/ecdsa"
	"github.com/btcsuite/btcscript/wire"
	"golang.org/x/crypto/ripemd160"
)

// opcodeFunc executes an opcode.  data holds the bytes pushed by a data push
// opcode and is nil otherwise.
type opcodeFunc func(op *opcode, data []byte, vm *Engine) error

// opcode describes one of the 256 byte values a script instruction may start
// with.
type opcode struct {
	value byte
	name  string

	// length is 1 for an opcode without data, 1+n for OP_DATA_n and -n for
	// the pushes whose data length is given by the next n bytes.
	length int
	opfunc opcodeFunc
}

// Opcode values.  OP_FALSE, OP_TRUE and OP_CHECKLOCKTIMEVERIFY are aliases
// defined after the full run.
const (
	// Data pushes.  OP_0 pushes an empty item and OP_DATA_n the next n bytes.
	OP_0 = iota // 0x00
	OP_DATA_1
	OP_DATA_2
	OP_DATA_3
	OP_DATA_4
	OP_DATA_5
	OP_DATA_6
	OP_DATA_7
	OP_DATA_8
	OP_DATA_9
	OP_DATA_10
	OP_DATA_11
	OP_DATA_12
	OP_DATA_13
	OP_DATA_14
	OP_DATA_15
	OP_DATA_16
	OP_DATA_17
	OP_DATA_18
	OP_DATA_19
	OP_DATA_20
	OP_DATA_21
	OP_DATA_22
	OP_DATA_23
	OP_DATA_24
	OP_DATA_25
	OP_DATA_26
	OP_DATA_27
	OP_DATA_28
	OP_DATA_29
	OP_DATA_30
	OP_DATA_31
	OP_DATA_32
	OP_DATA_33
	OP_DATA_34
	OP_DATA_35
	OP_DATA_36
	OP_DATA_37
	OP_DATA_38
	OP_DATA_39
	OP_DATA_40
	OP_DATA_41
	OP_DATA_42
	OP_DATA_43
	OP_DATA_44
	OP_DATA_45
	OP_DATA_46
	OP_DATA_47
	OP_DATA_48
	OP_DATA_49
	OP_DATA_50
	OP_DATA_51
	OP_DATA_52
	OP_DATA_53
	OP_DATA_54
	OP_DATA_55
	OP_DATA_56
	OP_DATA_57
	OP_DATA_58
	OP_DATA_59
	OP_DATA_60
	OP_DATA_61
	OP_DATA_62
	OP_DATA_63
	OP_DATA_64
	OP_DATA_65
	OP_DATA_66
	OP_DATA_67
	OP_DATA_68
	OP_DATA_69
	OP_DATA_70
	OP_DATA_71
	OP_DATA_72
	OP_DATA_73
	OP_DATA_74
	OP_DATA_75

	// Pushes with an explicit length, then the constant pushes.
	OP_PUSHDATA1 // 0x4c
	OP_PUSHDATA2
	OP_PUSHDATA4
	OP_1NEGATE
	OP_RESERVED
	OP_1
	OP_2
	OP_3
	OP_4
	OP_5
	OP_6
	OP_7
	OP_8
	OP_9
	OP_10
	OP_11
	OP_12
	OP_13
	OP_14
	OP_15
	OP_16

	// Flow control.
	OP_NOP // 0x61
	OP_VER
	OP_IF
	OP_NOTIF
	OP_VERIF
	OP_VERNOTIF
	OP_ELSE
	OP_ENDIF
	OP_VERIFY
	OP_RETURN

	// Stack manipulation.
	OP_TOALTSTACK // 0x6b
	OP_FROMALTSTACK
	OP_2DROP
	OP_2DUP
	OP_3DUP
	OP_2OVER
	OP_2ROT
	OP_2SWAP
	OP_IFDUP
	OP_DEPTH
	OP_DROP
	OP_DUP
	OP_NIP
	OP_OVER
	OP_PICK
	OP_ROLL
	OP_ROT
	OP_SWAP
	OP_TUCK

	// Splice.
	OP_CAT // 0x7e
	OP_SUBSTR
	OP_LEFT
	OP_RIGHT
	OP_SIZE

	// Bitwise logic.
	OP_INVERT // 0x83
	OP_AND
	OP_OR
	OP_XOR
	OP_EQUAL
	OP_EQUALVERIFY
	OP_RESERVED1
	OP_RESERVED2

	// Arithmetic.
	OP_1ADD // 0x8b
	OP_1SUB
	OP_2MUL
	OP_2DIV
	OP_NEGATE
	OP_ABS
	OP_NOT
	OP_0NOTEQUAL
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_LSHIFT
	OP_RSHIFT
	OP_BOOLAND
	OP_BOOLOR
	OP_NUMEQUAL
	OP_NUMEQUALVERIFY
	OP_NUMNOTEQUAL
	OP_LESSTHAN
	OP_GREATERTHAN
	OP_LESSTHANOREQUAL
	OP_GREATERTHANOREQUAL
	OP_MIN
	OP_MAX
	OP_WITHIN

	// Hashing and signature checks.
	OP_RIPEMD160 // 0xa6
	OP_SHA1
	OP_SHA256
	OP_HASH160
	OP_HASH256
	OP_CODESEPARATOR
	OP_CHECKSIG
	OP_CHECKSIGVERIFY
	OP_CHECKMULTISIG
	OP_CHECKMULTISIGVERIFY

	// Upgradable no-ops.
	OP_NOP1 // 0xb0
	OP_NOP2
	OP_NOP3
	OP_NOP4
	OP_NOP5
	OP_NOP6
	OP_NOP7
	OP_NOP8
	OP_NOP9
	OP_NOP10

	// Unassigned.
	OP_UNKNOWN186 // 0xba
	OP_UNKNOWN187
	OP_UNKNOWN188
	OP_UNKNOWN189
	OP_UNKNOWN190
	OP_UNKNOWN191
	OP_UNKNOWN192
	OP_UNKNOWN193
	OP_UNKNOWN194
	OP_UNKNOWN195
	OP_UNKNOWN196
	OP_UNKNOWN197
	OP_UNKNOWN198
	OP_UNKNOWN199
	OP_UNKNOWN200
	OP_UNKNOWN201
	OP_UNKNOWN202
	OP_UNKNOWN203
	OP_UNKNOWN204
	OP_UNKNOWN205
	OP_UNKNOWN206
	OP_UNKNOWN207
	OP_UNKNOWN208
	OP_UNKNOWN209
	OP_UNKNOWN210
	OP_UNKNOWN211
	OP_UNKNOWN212
	OP_UNKNOWN213
	OP_UNKNOWN214
	OP_UNKNOWN215
	OP_UNKNOWN216
	OP_UNKNOWN217
	OP_UNKNOWN218
	OP_UNKNOWN219
	OP_UNKNOWN220
	OP_UNKNOWN221
	OP_UNKNOWN222
	OP_UNKNOWN223
	OP_UNKNOWN224
	OP_UNKNOWN225
	OP_UNKNOWN226
	OP_UNKNOWN227
	OP_UNKNOWN228
	OP_UNKNOWN229
	OP_UNKNOWN230
	OP_UNKNOWN231
	OP_UNKNOWN232
	OP_UNKNOWN233
	OP_UNKNOWN234
	OP_UNKNOWN235
	OP_UNKNOWN236
	OP_UNKNOWN237
	OP_UNKNOWN238
	OP_UNKNOWN239
	OP_UNKNOWN240
	OP_UNKNOWN241
	OP_UNKNOWN242
	OP_UNKNOWN243
	OP_UNKNOWN244
	OP_UNKNOWN245
	OP_UNKNOWN246
	OP_UNKNOWN247
	OP_UNKNOWN248
	OP_UNKNOWN249

	// Template placeholders used by reference software, never valid in a script.
	OP_SMALLINTEGER // 0xfa
	OP_PUBKEYS
	OP_UNKNOWN252
	OP_PUBKEYHASH
	OP_PUBKEY
	OP_INVALIDOPCODE
)

// Aliases.
const (
	OP_FALSE               = OP_0
	OP_TRUE                = OP_1
	OP_CHECKLOCKTIMEVERIFY = OP_NOP2
)

// Conditional execution constants.
const (
	OpCondFalse = 0
	OpCondTrue  = 1
	OpCondSkip  = 2
)

// opcodeArray describes every byte value.  It is filled by init rather than a
// composite literal since the signature handlers tokenize scripts themselves.
var opcodeArray [256]opcode

// opcodeDef names the handler of one opcode in a run of consecutive values.
type opcodeDef struct {
	name   string
	opfunc opcodeFunc
}

// defineOpcodes assigns defs to the data-less opcodes starting at first.
func defineOpcodes(first byte, defs []opcodeDef) {
	for i, def := range defs {
		value := first + byte(i)
		opcodeArray[value] = opcode{value, def.name, 1, def.opfunc}
	}
}

// OpcodeByName maps opcode names, including the OP_FALSE, OP_TRUE and OP_NOP2
// aliases, to their values.
var OpcodeByName = make(map[string]byte)

func init() {
	// Whatever is not defined below stays an unassigned opcode.
	for i := range opcodeArray {
		opcodeArray[i] = opcode{byte(i), "OP_UNKNOWN" + strconv.Itoa(i),
			1, opcodeInvalid}
	}

	// Data pushes and constants.
	opcodeArray[OP_0] = opcode{OP_0, "OP_0", 1, opcodePushData}
	for v := byte(OP_DATA_1); v <= OP_DATA_75; v++ {
		opcodeArray[v] = opcode{v, "OP_DATA_" + strconv.Itoa(int(v)),
			int(v) + 1, opcodePushData}
	}
	for i, v := range []byte{OP_PUSHDATA1, OP_PUSHDATA2, OP_PUSHDATA4} {
		n := 1 << i
		opcodeArray[v] = opcode{v, "OP_PUSHDATA" + strconv.Itoa(n), -n,
			opcodePushData}
	}
	defineOpcodes(OP_1NEGATE, []opcodeDef{
		{"OP_1NEGATE", opcode1Negate}, {"OP_RESERVED", opcodeReserved},
	})
	for v := byte(OP_1); v <= OP_16; v++ {
		opcodeArray[v] = opcode{v, "OP_" + strconv.Itoa(asSmallInt(v)), 1,
			opcodeN}
	}

	defineOpcodes(OP_NOP, []opcodeDef{
		{"OP_NOP", opcodeNop}, {"OP_VER", opcodeReserved},
		{"OP_IF", opcodeIf}, {"OP_NOTIF", opcodeNotIf},
		{"OP_VERIF", opcodeReserved}, {"OP_VERNOTIF", opcodeReserved},
		{"OP_ELSE", opcodeElse}, {"OP_ENDIF", opcodeEndif},
		{"OP_VERIFY", opcodeVerify}, {"OP_RETURN", opcodeReturn},
	})

	defineOpcodes(OP_TOALTSTACK, []opcodeDef{
		{"OP_TOALTSTACK", opcodeToAltStack},
		{"OP_FROMALTSTACK", opcodeFromAltStack},
		{"OP_2DROP", stackOp((*stack).DropN, 2)},
		{"OP_2DUP", stackOp((*stack).DupN, 2)},
		{"OP_3DUP", stackOp((*stack).DupN, 3)},
		{"OP_2OVER", stackOp((*stack).OverN, 2)},
		{"OP_2ROT", stackOp((*stack).RotN, 2)},
		{"OP_2SWAP", stackOp((*stack).SwapN, 2)},
		{"OP_IFDUP", opcodeIfDup}, {"OP_DEPTH", opcodeDepth},
		{"OP_DROP", stackOp((*stack).DropN, 1)},
		{"OP_DUP", stackOp((*stack).DupN, 1)},
		{"OP_NIP", stackOp((*stack).NipN, 1)},
		{"OP_OVER", stackOp((*stack).OverN, 1)},
		{"OP_PICK", stackIndexOp((*stack).PickN)},
		{"OP_ROLL", stackIndexOp((*stack).RollN)},
		{"OP_ROT", stackOp((*stack).RotN, 1)},
		{"OP_SWAP", stackOp((*stack).SwapN, 1)},
		{"OP_TUCK", opcodeTuck},
	})

	// Splice and bitwise opcodes are disabled apart from the size and
	// equality checks.
	defineOpcodes(OP_CAT, []opcodeDef{
		{"OP_CAT", opcodeDisabled}, {"OP_SUBSTR", opcodeDisabled},
		{"OP_LEFT", opcodeDisabled}, {"OP_RIGHT", opcodeDisabled},
		{"OP_SIZE", opcodeSize},
		{"OP_INVERT", opcodeDisabled}, {"OP_AND", opcodeDisabled},
		{"OP_OR", opcodeDisabled}, {"OP_XOR", opcodeDisabled},
		{"OP_EQUAL", opcodeEqual},
		{"OP_EQUALVERIFY", withVerify(opcodeEqual, ErrEqualVerify)},
		{"OP_RESERVED1", opcodeReserved}, {"OP_RESERVED2", opcodeReserved},
	})

	defineOpcodes(OP_1ADD, []opcodeDef{
		{"OP_1ADD", opcode1Add}, {"OP_1SUB", opcode1Sub},
		{"OP_2MUL", opcodeDisabled}, {"OP_2DIV", opcodeDisabled},
		{"OP_NEGATE", opcodeNegate}, {"OP_ABS", opcodeAbs},
		{"OP_NOT", opcodeNot}, {"OP_0NOTEQUAL", opcode0NotEqual},
		{"OP_ADD", opcodeAdd}, {"OP_SUB", opcodeSub},
		{"OP_MUL", opcodeDisabled}, {"OP_DIV", opcodeDisabled},
		{"OP_MOD", opcodeDisabled}, {"OP_LSHIFT", opcodeDisabled},
		{"OP_RSHIFT", opcodeDisabled},
		{"OP_BOOLAND", opcodeBoolAnd}, {"OP_BOOLOR", opcodeBoolOr},
		{"OP_NUMEQUAL", opcodeNumEqual},
		{"OP_NUMEQUALVERIFY", withVerify(opcodeNumEqual, ErrNumEqualVerify)},
		{"OP_NUMNOTEQUAL", opcodeNumNotEqual},
		{"OP_LESSTHAN", opcodeLessThan},
		{"OP_GREATERTHAN", opcodeGreaterThan},
		{"OP_LESSTHANOREQUAL", opcodeLessThanOrEqual},
		{"OP_GREATERTHANOREQUAL", opcodeGreaterThanOrEqual},
		{"OP_MIN", opcodeMin}, {"OP_MAX", opcodeMax},
		{"OP_WITHIN", opcodeWithin},
	})

	defineOpcodes(OP_RIPEMD160, []opcodeDef{
		{"OP_RIPEMD160", hashOp(ripemd160Sum)}, {"OP_SHA1", hashOp(sha1Sum)},
		{"OP_SHA256", hashOp(chainhash.HashB)},
		{"OP_HASH160", hashOp(Hash160)},
		{"OP_HASH256", hashOp(chainhash.DoubleHashB)},
		{"OP_CODESEPARATOR", opcodeCodeSeparator},
		{"OP_CHECKSIG", opcodeCheckSig},
		{"OP_CHECKSIGVERIFY", withVerify(opcodeCheckSig, ErrCheckSigVerify)},
		{"OP_CHECKMULTISIG", opcodeCheckMultiSig},
		{"OP_CHECKMULTISIGVERIFY",
			withVerify(opcodeCheckMultiSig, ErrCheckMultiSigVerify)},
	})

	for v := byte(OP_NOP1); v <= OP_NOP10; v++ {
		opcodeArray[v] = opcode{v, "OP_NOP" + strconv.Itoa(int(v-OP_NOP1+1)),
			1, opcodeNop}
	}
	opcodeArray[OP_CHECKLOCKTIMEVERIFY] = opcode{OP_CHECKLOCKTIMEVERIFY,
		"OP_CHECKLOCKTIMEVERIFY", 1, opcodeCheckLockTimeVerify}

	// Template placeholders keep the invalid handler.
	for v, name := range map[byte]string{
		OP_SMALLINTEGER:  "OP_SMALLINTEGER",
		OP_PUBKEYS:       "OP_PUBKEYS",
		OP_PUBKEYHASH:    "OP_PUBKEYHASH",
		OP_PUBKEY:        "OP_PUBKEY",
		OP_INVALIDOPCODE: "OP_INVALIDOPCODE",
	} {
		opcodeArray[v].name = name
	}

	for _, op := range opcodeArray {
		OpcodeByName[op.name] = op.value
	}
	OpcodeByName["OP_FALSE"] = OP_FALSE
	OpcodeByName["OP_TRUE"] = OP_TRUE
	OpcodeByName["OP_NOP2"] = OP_CHECKLOCKTIMEVERIFY
}

// compactName returns the name one-line disassembly uses for an opcode.  The
// constant pushes print as the number they push.
func compactName(op *opcode) string {
	switch {
	case op.value == OP_0:
		return "0"
	case op.value == OP_1NEGATE:
		return "-1"
	case op.value >= OP_1 && op.value <= OP_16:
		return strconv.Itoa(asSmallInt(op.value))
	}
	return op.name
}

// disasmOpcode writes the opcode and its data to buf.  The compact form used
// by DisasmString prints data pushes as bare hex and constant pushes as
// numbers, while the full form names every opcode and shows explicit length
// prefixes.
func disasmOpcode(buf *strings.Builder, op *opcode, data []byte, compact bool) {
	switch {
	case op.length == 1 && compact:
		buf.WriteString(compactName(op))
		return
	case op.length == 1:
		buf.WriteString(op.name)
		return
	case compact:
		buf.WriteString(hex.EncodeToString(data))
		return
	}

	buf.WriteString(op.name)
	if op.length < 0 {
		// Two hex digits per length byte.
		fmt.Fprintf(buf, " 0x%0*x", -op.length*2, len(data))
	}
	fmt.Fprintf(buf, " 0x%02x", data)
}

// opcodeDisabled rejects the opcodes removed from the language.  The engine
// refuses them while stepping, executed branch or not, so this is only reached
// when a handler is invoked directly.
func opcodeDisabled(op *opcode, data []byte, vm *Engine) error {
	str := fmt.Sprintf("attempt to execute disabled opcode %s", op.name)
	return scriptError(ErrDisabledOpcode, str)
}

// opcodeReserved rejects OP_RESERVED, OP_VER and friends when executed.
func opcodeReserved(op *opcode, data []byte, vm *Engine) error {
	str := fmt.Sprintf("attempt to execute reserved opcode %s", op.name)
	return scriptError(ErrReservedOpcode, str)
}

// opcodeInvalid rejects unassigned and placeholder opcodes when executed.
func opcodeInvalid(op *opcode, data []byte, vm *Engine) error {
	str := fmt.Sprintf("attempt to execute invalid opcode %s", op.name)
	return scriptError(ErrReservedOpcode, str)
}

// opcodePushData pushes the data carried by OP_0, OP_DATA_n and OP_PUSHDATAn.
// OP_0 carries none, which is also the encoding of the number zero.
func opcodePushData(op *opcode, data []byte, vm *Engine) error {
	vm.dstack.PushByteArray(data)
	return nil
}

func opcode1Negate(op *opcode, data []byte, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(-1))
	return nil
}

// opcodeN pushes the number 1 through 16 named by OP_1 through OP_16.
func opcodeN(op *opcode, data []byte, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(asSmallInt(op.value)))
	return nil
}

// opcodeNop does nothing unless the opcode is an upgradable no-op and the
// engine was asked to discourage those.  Plain OP_NOP is always allowed.
func opcodeNop(op *opcode, data []byte, vm *Engine) error {
	if op.value == OP_NOP {
		return nil
	}
	return checkUpgradableNop(op, vm)
}

// checkUpgradableNop fails with ErrDiscourageUpgradableNOPs when the engine
// discourages the no-ops reserved for future soft forks.
func checkUpgradableNop(op *opcode, vm *Engine) error {
	if !vm.hasFlag(ScriptDiscourageUpgradableNops) {
		return nil
	}
	name := op.name
	if op.value == OP_CHECKLOCKTIMEVERIFY {
		name = "OP_NOP2"
	}
	str := fmt.Sprintf("%s reserved for soft-fork upgrades", name)
	return scriptError(ErrDiscourageUpgradableNOPs, str)
}

// pushCondition opens an OP_IF or OP_NOTIF block.  Inside a skipped block
// nothing is popped and the new block is skipped too.  Otherwise the top item
// is popped and the block executes when its truth equals want.
//
// Conditional stack transformation: [...] -> [... OpCondValue]
func pushCondition(vm *Engine, want bool) error {
	condVal := OpCondSkip
	if vm.isBranchExecuting() {
		ok, err := vm.dstack.PopBool()
		if err != nil {
			return err
		}

		condVal = OpCondFalse
		if ok == want {
			condVal = OpCondTrue
		}
	}
	vm.condStack = append(vm.condStack, condVal)
	return nil
}

// opcodeIf runs even on non-executing branches so that nesting is tracked.
//
// <expression> OP_IF [statements] [OP_ELSE [statements]] OP_ENDIF
func opcodeIf(op *opcode, data []byte, vm *Engine) error {
	return pushCondition(vm, true)
}

func opcodeNotIf(op *opcode, data []byte, vm *Engine) error {
	return pushCondition(vm, false)
}

// requireOpenCondition fails when op is not inside an OP_IF or OP_NOTIF block.
func requireOpenCondition(op *opcode, vm *Engine) error {
	if len(vm.condStack) > 0 {
		return nil
	}
	str := fmt.Sprintf("encountered opcode %s with no matching opcode to "+
		"begin conditional execution", op.name)
	return scriptError(ErrUnbalancedConditional, str)
}

// opcodeElse switches to the other half of the innermost block.  A skipped
// block stays skipped.
func opcodeElse(op *opcode, data []byte, vm *Engine) error {
	if err := requireOpenCondition(op, vm); err != nil {
		return err
	}

	top := &vm.condStack[len(vm.condStack)-1]
	switch *top {
	case OpCondTrue:
		*top = OpCondFalse
	case OpCondFalse:
		*top = OpCondTrue
	}
	return nil
}

// opcodeEndif closes the innermost block.
func opcodeEndif(op *opcode, data []byte, vm *Engine) error {
	if err := requireOpenCondition(op, vm); err != nil {
		return err
	}
	vm.condStack = vm.condStack[:len(vm.condStack)-1]
	return nil
}

// abstractVerify pops the top item and fails with code c unless it is true.
// The VERIFY forms of the comparison and signature opcodes finish with it.
func abstractVerify(op *opcode, vm *Engine, c ErrorCode) error {
	verified, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !verified {
		return scriptError(c, fmt.Sprintf("%s failed", op.name))
	}
	return nil
}

func opcodeVerify(op *opcode, data []byte, vm *Engine) error {
	return abstractVerify(op, vm, ErrVerify)
}

// opcodeReturn marks the output unspendable by always failing.
func opcodeReturn(op *opcode, data []byte, vm *Engine) error {
	return scriptError(ErrEarlyReturn, "script returned early")
}

// verifyLockTime checks a lock time required by a script against the one of
// the transaction.  Both must be block heights or both timestamps, split at
// threshold, and the required one must not be later.
func verifyLockTime(txLockTime, threshold, lockTime int64) error {
	if (txLockTime < threshold) != (lockTime < threshold) {
		str := fmt.Sprintf("mismatched locktime types -- tx locktime "+
			"%d, stack locktime %d", txLockTime, lockTime)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}
	if lockTime > txLockTime {
		str := fmt.Sprintf("locktime requirement not satisfied -- "+
			"locktime is greater than the transaction locktime: "+
			"%d > %d", lockTime, txLockTime)
		return scriptError(ErrUnsatisfiedLockTime, str)
	}
	return nil
}

// opcodeCheckLockTimeVerify fails unless the spending transaction is locked
// until at least the time or height on top of the stack, which it leaves in
// place.  Without ScriptVerifyCheckLockTimeVerify it is OP_NOP2.
func opcodeCheckLockTimeVerify(op *opcode, data []byte, vm *Engine) error {
	if !vm.hasFlag(ScriptVerifyCheckLockTimeVerify) {
		return checkUpgradableNop(op, vm)
	}

	// Lock times may need five bytes, one more than arithmetic operands.
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	lockTime, err := makeScriptNum(so, vm.dstack.verifyMinimalData,
		cltvMaxScriptNumLen)
	if err != nil {
		return err
	}
	if lockTime < 0 {
		str := fmt.Sprintf("negative lock time: %d", lockTime)
		return scriptError(ErrNegativeLockTime, str)
	}

	err = verifyLockTime(int64(vm.tx.LockTime), LockTimeThreshold,
		int64(lockTime))
	if err != nil {
		return err
	}

	// A finalized input disables the transaction lock time altogether, so
	// the input being spent must not be one.
	if vm.tx.TxIn[vm.txIdx].Sequence == wire.MaxTxInSequenceNum {
		return scriptError(ErrUnsatisfiedLockTime,
			"transaction input is finalized")
	}
	return nil
}

// stackOp returns the handler of an opcode that rearranges the top of the data
// stack with one of the stack primitives applied to n.
//
//	OP_DROP      [... x1 x2] -> [... x1]
//	OP_DUP       [... x1] -> [... x1 x1]
//	OP_NIP       [... x1 x2] -> [... x2]
//	OP_OVER      [... x1 x2] -> [... x1 x2 x1]
//	OP_ROT       [... x1 x2 x3] -> [... x2 x3 x1]
//	OP_SWAP      [... x1 x2] -> [... x2 x1]
//
// The 2 and 3 prefixed forms do the same to pairs or triples of items.
func stackOp(fn func(s *stack, n int32) error, n int32) opcodeFunc {
	return func(op *opcode, data []byte, vm *Engine) error {
		return fn(&vm.dstack, n)
	}
}

// stackIndexOp returns the handler of OP_PICK or OP_ROLL, which pop the depth
// of the item to copy or move to the top.
//
//	OP_PICK  [xn ... x1 x0 n] -> [xn ... x1 x0 xn]
//	OP_ROLL  [xn ... x1 x0 n] -> [... x1 x0 xn]
func stackIndexOp(fn func(s *stack, n int32) error) opcodeFunc {
	return func(op *opcode, data []byte, vm *Engine) error {
		n, err := vm.dstack.PopInt()
		if err != nil {
			return err
		}
		return fn(&vm.dstack, n.Int32())
	}
}

// moveItem pops the top item of from and pushes it onto to.
func moveItem(from, to *stack) error {
	so, err := from.PopByteArray()
	if err != nil {
		return err
	}
	to.PushByteArray(so)
	return nil
}

func opcodeToAltStack(op *opcode, data []byte, vm *Engine) error {
	return moveItem(&vm.dstack, &vm.astack)
}

func opcodeFromAltStack(op *opcode, data []byte, vm *Engine) error {
	return moveItem(&vm.astack, &vm.dstack)
}

// opcodeIfDup duplicates the top item when it is true.
func opcodeIfDup(op *opcode, data []byte, vm *Engine) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	if asBool(so) {
		vm.dstack.PushByteArray(so)
	}
	return nil
}

// opcodeDepth pushes the number of items on the data stack.
func opcodeDepth(op *opcode, data []byte, vm *Engine) error {
	vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
	return nil
}

// opcodeTuck copies the top item below the second one.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func opcodeTuck(op *opcode, data []byte, vm *Engine) error {
	return vm.dstack.Tuck()
}

// opcodeSize pushes the length of the top item, leaving the item in place.
func opcodeSize(op *opcode, data []byte, vm *Engine) error {
	so, err := vm.dstack.PeekByteArray(0)
	if err != nil {
		return err
	}
	vm.dstack.PushInt(scriptNum(len(so)))
	return nil
}

// opcodeEqual replaces the top two items with whether they are the same bytes.
func opcodeEqual(op *opcode, data []byte, vm *Engine) error {
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(bytes.Equal(a, b))
	return nil
}

// withVerify returns the VERIFY form of a handler that pushes a boolean.  It
// consumes the boolean and fails with code when it is false.
func withVerify(fn opcodeFunc, code ErrorCode) opcodeFunc {
	return func(op *opcode, data []byte, vm *Engine) error {
		if err := fn(op, data, vm); err != nil {
			return err
		}
		return abstractVerify(op, vm, code)
	}
}

// boolNum returns 1 for true and 0 for false.
func boolNum(v bool) scriptNum {
	if v {
		return 1
	}
	return 0
}

// unaryNumOp pops the top item of the data stack as a script number and
// pushes the result of applying fn to it.
func unaryNumOp(vm *Engine, fn func(m scriptNum) scriptNum) error {
	m, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	vm.dstack.PushInt(fn(m))
	return nil
}

// binaryNumOp pops the top two items of the data stack as script numbers and
// pushes the result of fn.  The argument a is the second-to-top item and b is
// the top item, so OP_SUB computes a-b.
func binaryNumOp(vm *Engine, fn func(a, b scriptNum) scriptNum) error {
	b, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	vm.dstack.PushInt(fn(a, b))
	return nil
}

// opcode1Add replaces the top item with its value plus 1.
//
// Stack transformation: [... x1 x2] -> [... x1 x2+1]
func opcode1Add(op *opcode, data []byte, vm *Engine) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return m + 1 })
}

// opcode1Sub replaces the top item with its value minus 1.
//
// Stack transformation: [... x1 x2] -> [... x1 x2-1]
func opcode1Sub(op *opcode, data []byte, vm *Engine) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return m - 1 })
}

// opcodeNegate replaces the top item with its negation.
//
// Stack transformation: [... x1 x2] -> [... x1 -x2]
func opcodeNegate(op *opcode, data []byte, vm *Engine) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return -m })
}

// opcodeAbs replaces the top item with its absolute value.
//
// Stack transformation: [... x1 x2] -> [... x1 abs(x2)]
func opcodeAbs(op *opcode, data []byte, vm *Engine) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum {
		if m < 0 {
			return -m
		}
		return m
	})
}

// opcodeNot pushes 1 for a zero operand and 0 otherwise.  The operand is a
// number, so unlike a boolean a negative zero or an overlong encoding fails.
func opcodeNot(op *opcode, data []byte, vm *Engine) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return boolNum(m == 0) })
}

// opcode0NotEqual replaces the top item with 0 if it is zero and 1 otherwise.
//
// Stack transformation (x2==0): [... x1 0] -> [... x1 0]
// Stack transformation (x2!=0): [... x1 17] -> [... x1 1]
func opcode0NotEqual(op *opcode, data []byte, vm *Engine) error {
	return unaryNumOp(vm, func(m scriptNum) scriptNum { return boolNum(m != 0) })
}

// opcodeAdd replaces the top two items with their sum.
//
// Stack transformation: [... x1 x2] -> [... x1+x2]
func opcodeAdd(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum { return a + b })
}

// opcodeSub replaces the top two items with the result of subtracting the top
// entry from the second-to-top entry.
//
// Stack transformation: [... x1 x2] -> [... x1-x2]
func opcodeSub(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum { return a - b })
}

// opcodeBoolAnd replaces the top two items with 1 when both are non-zero and 0
// otherwise.
//
// Stack transformation: [... 4 8] -> [... 1]
func opcodeBoolAnd(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a != 0 && b != 0)
	})
}

// opcodeBoolOr replaces the top two items with 1 when either is non-zero and 0
// otherwise.
//
// Stack transformation: [... 0 7] -> [... 1]
func opcodeBoolOr(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a != 0 || b != 0)
	})
}

// opcodeNumEqual replaces the top two items with 1 when they are numerically
// equal and 0 otherwise.
//
// Stack transformation: [... 5 5] -> [... 1]
func opcodeNumEqual(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a == b)
	})
}

// opcodeNumNotEqual replaces the top two items with 1 when they are NOT
// numerically equal and 0 otherwise.
//
// Stack transformation: [... 5 7] -> [... 1]
func opcodeNumNotEqual(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a != b)
	})
}

// opcodeLessThan pushes 1 when the second-to-top item is less than the top
// item.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeLessThan(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a < b)
	})
}

// opcodeGreaterThan pushes 1 when the second-to-top item is greater than the
// top item.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeGreaterThan(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a > b)
	})
}

// opcodeLessThanOrEqual pushes 1 when the second-to-top item is less than or
// equal to the top item.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeLessThanOrEqual(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a <= b)
	})
}

// opcodeGreaterThanOrEqual pushes 1 when the second-to-top item is greater than
// or equal to the top item.
//
// Stack transformation: [... x1 x2] -> [... bool]
func opcodeGreaterThanOrEqual(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		return boolNum(a >= b)
	})
}

// opcodeMin replaces the top two items with the smaller of the two.
//
// Stack transformation: [... x1 x2] -> [... min(x1, x2)]
func opcodeMin(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		if a < b {
			return a
		}
		return b
	})
}

// opcodeMax replaces the top two items with the larger of the two.
//
// Stack transformation: [... x1 x2] -> [... max(x1, x2)]
func opcodeMax(op *opcode, data []byte, vm *Engine) error {
	return binaryNumOp(vm, func(a, b scriptNum) scriptNum {
		if a > b {
			return a
		}
		return b
	})
}

// opcodeWithin pushes whether x lies in the half open range [min, max).
//
// Stack transformation: [... x min max] -> [... bool]
func opcodeWithin(op *opcode, data []byte, vm *Engine) error {
	maxVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	minVal, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	x, err := vm.dstack.PopInt()
	if err != nil {
		return err
	}

	vm.dstack.PushInt(boolNum(x >= minVal && x < maxVal))
	return nil
}

// calcHash calculates the hash of hasher over buf.
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// Hash160 calculates the hash ripemd160(sha256(b)).
func Hash160(buf []byte) []byte {
	h := sha256.Sum256(buf)
	return calcHash(h[:], ripemd160.New())
}

// hashOp returns the handler of a hashing opcode, which replaces the top item
// with its digest.
func hashOp(fn func([]byte) []byte) opcodeFunc {
	return func(op *opcode, data []byte, vm *Engine) error {
		buf, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		vm.dstack.PushByteArray(fn(buf))
		return nil
	}
}

func ripemd160Sum(b []byte) []byte {
	return calcHash(b, ripemd160.New())
}

func sha1Sum(b []byte) []byte {
	h := sha1.Sum(b)
	return h[:]
}

// opcodeCodeSeparator starts the script signatures commit to just after the
// separator.
func opcodeCodeSeparator(op *opcode, data []byte, vm *Engine) error {
	vm.lastCodeSep = int(vm.tokenizer.ByteIndex())
	return nil
}

// opcodeCheckSig pops a public key and a signature with its trailing hash type
// and pushes whether the signature is valid for the input being spent.
//
// Encoding violations enabled by the engine flags abort the script.  A key or
// signature that merely fails to parse or verify pushes false instead, so
// OP_CHECKSIG OP_NOT remains usable with the flags off.
//
// Legacy signatures commit to the script from the last OP_CODESEPARATOR with
// the signature itself removed.  Fork id signatures commit to that script
// unchanged, along with the spent amount.
//
// Stack transformation: [... signature pubkey] -> [... bool]
func opcodeCheckSig(op *opcode, data []byte, vm *Engine) error {
	pkBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	fullSigBytes, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	// Without even a hash type there is nothing to check.
	if len(fullSigBytes) == 0 {
		vm.dstack.PushBool(false)
		return nil
	}

	hashType := SigHashType(fullSigBytes[len(fullSigBytes)-1])
	sigBytes := fullSigBytes[:len(fullSigBytes)-1]
	if err := vm.checkHashTypeEncoding(hashType); err != nil {
		return err
	}
	if err := vm.checkSignatureEncoding(sigBytes); err != nil {
		return err
	}
	if err := vm.checkPubKeyEncoding(pkBytes); err != nil {
		return err
	}

	subScript := vm.subScript()
	if !vm.isForkIDHashType(hashType) {
		subScript = FindAndDelete(subScript, canonicalPush(fullSigBytes))
	}
	hash, err := vm.calcSignatureHash(subScript, hashType)
	if err != nil {
		return err
	}

	valid := false
	pubKey, err := btcec.ParsePubKey(pkBytes)
	if err == nil {
		if signature, err := vm.parseSignature(sigBytes); err == nil {
			valid = vm.verifySignature(&hash, sigBytes, pkBytes,
				signature, pubKey)
		}
	}
	log.Tracef("%v", newLogClosure(func() string {
		return fmt.Sprintf("%s pubkey %x hash %v valid %v", op.name,
			pkBytes, hash, valid)
	}))
	vm.dstack.PushBool(valid)
	return nil
}

// multiSigSig is a signature handed to OP_CHECKMULTISIG.  It may be tried
// against several keys, so its encoding is checked and it is parsed at most
// once.
type multiSigSig struct {
	raw    []byte
	parsed *ecdsa.Signature
	tried  bool
}

// popCount pops the key or signature count of OP_CHECKMULTISIG and fails with
// code unless it lies within [0, limit].
func popCount(vm *Engine, limit int, code ErrorCode, what string) (int, error) {
	n, err := vm.dstack.PopInt()
	if err != nil {
		return 0, err
	}

	count := int(n.Int32())
	switch {
	case count < 0:
		str := fmt.Sprintf("number of %s %d is negative", what, count)
		return 0, scriptError(code, str)
	case count > limit:
		str := fmt.Sprintf("too many %s: %d > %d", what, count, limit)
		return 0, scriptError(code, str)
	}
	return count, nil
}

// popItems pops n items, returning the former top item first.
func popItems(s *stack, n int) ([][]byte, error) {
	items := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		item, err := s.PopByteArray()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// opcodeCheckMultiSig pops n public keys and m signatures, each preceded by
// its count, and pushes whether every signature verifies against a distinct
// key in the same order.  One extra item below the signatures is consumed as
// well and must be empty under ScriptStrictMultiSig.
//
// Stack transformation:
// [... dummy [sig ...] m [pubkey ...] n] -> [... bool]
func opcodeCheckMultiSig(op *opcode, data []byte, vm *Engine) error {
	numPubKeys, err := popCount(vm, MaxPubKeysPerMultiSig,
		ErrInvalidPubKeyCount, "pubkeys")
	if err != nil {
		return err
	}

	// Every key counts towards the operation limit.
	vm.numOps += numPubKeys
	if vm.numOps > MaxOpsPerScript {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			MaxOpsPerScript)
		return scriptError(ErrTooManyOperations, str)
	}

	pubKeys, err := popItems(&vm.dstack, numPubKeys)
	if err != nil {
		return err
	}
	numSigs, err := popCount(vm, numPubKeys, ErrInvalidSignatureCount,
		"signatures")
	if err != nil {
		return err
	}
	rawSigs, err := popItems(&vm.dstack, numSigs)
	if err != nil {
		return err
	}

	dummy, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if vm.hasFlag(ScriptStrictMultiSig) && len(dummy) != 0 {
		str := fmt.Sprintf("multisig dummy argument has length %d "+
			"instead of 0", len(dummy))
		return scriptError(ErrSigNullDummy, str)
	}

	// Legacy signatures are removed from the script they commit to.
	script := vm.subScript()
	sigs := make([]*multiSigSig, len(rawSigs))
	for i, raw := range rawSigs {
		sigs[i] = &multiSigSig{raw: raw}
		if len(raw) > 0 &&
			vm.isForkIDHashType(SigHashType(raw[len(raw)-1])) {

			continue
		}
		script = FindAndDelete(script, canonicalPush(raw))
	}

	valid, err := vm.matchMultiSig(script, sigs, pubKeys)
	if err != nil {
		return err
	}
	vm.dstack.PushBool(valid)
	return nil
}

// matchMultiSig walks the keys once, moving on to the next signature whenever
// the current one verifies against the current key.  It gives up as soon as
// fewer keys than signatures remain.
//
// Encoding checks run lazily in walk order since whether they are reached is
// observable through OP_CHECKMULTISIG OP_NOT.
func (vm *Engine) matchMultiSig(script []byte, sigs []*multiSigSig,
	pubKeys [][]byte) (bool, error) {

	sigIdx := 0
	for keyIdx, pubKey := range pubKeys {
		remaining := len(sigs) - sigIdx
		if remaining == 0 {
			return true, nil
		}
		if remaining > len(pubKeys)-keyIdx {
			return false, nil
		}

		sig := sigs[sigIdx]
		if len(sig.raw) == 0 {
			continue
		}
		hashType := SigHashType(sig.raw[len(sig.raw)-1])
		sigBytes := sig.raw[:len(sig.raw)-1]

		if !sig.tried {
			sig.tried = true
			if err := vm.checkHashTypeEncoding(hashType); err != nil {
				return false, err
			}
			if err := vm.checkSignatureEncoding(sigBytes); err != nil {
				return false, err
			}
			if parsed, err := vm.parseSignature(sigBytes); err == nil {
				sig.parsed = parsed
			}
		}
		if sig.parsed == nil {
			continue
		}

		if err := vm.checkPubKeyEncoding(pubKey); err != nil {
			return false, err
		}
		parsedPubKey, err := btcec.ParsePubKey(pubKey)
		if err != nil {
			continue
		}

		hash, err := vm.calcSignatureHash(script, hashType)
		if err != nil {
			return false, err
		}
		if vm.verifySignature(&hash, sigBytes, pubKey, sig.parsed,
			parsedPubKey) {

			sigIdx++
		}
	}
	return sigIdx == len(sigs), nil
}
