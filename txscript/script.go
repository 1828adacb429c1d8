// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// These are the constants specified for maximums in individual scripts.
const (
	MaxOpsPerScript       = 201 // Max number of non-push operations.
	MaxPubKeysPerMultiSig = 20  // Multisig can't have more sigs than this.
	MaxScriptElementSize  = 520 // Max bytes pushable to the stack.
	MaxScriptSize         = 10000
	MaxStackSize          = 1000
)

// ParsedOpcode is a single opcode of a parsed script along with the data it
// pushes, if any.
type ParsedOpcode struct {
	Opcode byte
	Data   []byte
}

// String returns the opcode in the one-line disassembly format.
func (p ParsedOpcode) String() string {
	var buf strings.Builder
	disasmOpcode(&buf, &opcodeArray[p.Opcode], p.Data, true)
	return buf.String()
}

// isSmallInt returns whether or not the opcode is considered a small integer,
// which is an OP_0, or OP_1 through OP_16.
//
// NOTE: This function is only valid for version 0 opcodes.  Since the function
// does not accept a script version, the results are undefined for other script
// versions.
func isSmallInt(op byte) bool {
	return op == OP_0 || (op >= OP_1 && op <= OP_16)
}

// asSmallInt returns the passed opcode, which must be true according to
// isSmallInt(), as an integer.
func asSmallInt(op byte) int {
	if op == OP_0 {
		return 0
	}

	return int(op - (OP_1 - 1))
}

// ParseScript decodes the passed script into its component opcodes.  An error
// is returned, and no partial result, when the script does not parse.
func ParseScript(script []byte) ([]ParsedOpcode, error) {
	var pops []ParsedOpcode
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		pops = append(pops, ParsedOpcode{
			Opcode: tokenizer.Opcode(),
			Data:   tokenizer.Data(),
		})
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return pops, nil
}

// UnparseScript reverses ParseScript.  Each opcode must carry exactly the
// amount of data its encoding implies.
func UnparseScript(pops []ParsedOpcode) ([]byte, error) {
	script := make([]byte, 0, len(pops))
	for i, pop := range pops {
		op := &opcodeArray[pop.Opcode]
		dataLen := len(pop.Data)

		var prefix []byte
		switch {
		case op.length == 1:
			if dataLen != 0 {
				str := fmt.Sprintf("opcode %s at index %d carries "+
					"%d bytes of data", op.name, i, dataLen)
				return nil, scriptError(ErrInternal, str)
			}

		case op.length > 1:
			if dataLen != op.length-1 {
				str := fmt.Sprintf("opcode %s at index %d requires "+
					"%d bytes, but has %d", op.name, i,
					op.length-1, dataLen)
				return nil, scriptError(ErrInternal, str)
			}

		case op.length == -1:
			if dataLen > 0xff {
				str := fmt.Sprintf("%s at index %d cannot push %d "+
					"bytes", op.name, i, dataLen)
				return nil, scriptError(ErrInternal, str)
			}
			prefix = []byte{byte(dataLen)}

		case op.length == -2:
			if dataLen > 0xffff {
				str := fmt.Sprintf("%s at index %d cannot push %d "+
					"bytes", op.name, i, dataLen)
				return nil, scriptError(ErrInternal, str)
			}
			prefix = binary.LittleEndian.AppendUint16(nil, uint16(dataLen))

		case op.length == -4:
			prefix = binary.LittleEndian.AppendUint32(nil, uint32(dataLen))
		}

		script = append(script, pop.Opcode)
		script = append(script, prefix...)
		script = append(script, pop.Data...)
	}
	return script, nil
}

// checkScriptParses returns an error if the provided script fails to parse.
func checkScriptParses(script []byte) error {
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		// Nothing to do.
	}
	return tokenizer.Err()
}

// isPushOnly returns true if the script only pushes data, false otherwise.
// OP_RESERVED (0x50) counts as a push here, as it does in the reference
// implementation, although executing it fails.
func isPushOnly(script []byte) bool {
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		// All opcodes up to OP_16 are data push instructions.
		if tokenizer.Opcode() > OP_16 {
			return false
		}
	}
	return tokenizer.Err() == nil
}

// IsPushOnlyScript returns whether or not the passed script only pushes data
// according to the consensus definition of pushing data.
//
// WARNING: This function always treats the passed script as version 0.  Great
// care must be taken if introducing a new script version because it is used in
// consensus which, unfortunately as of the time of this writing, does not check
// script versions before checking if it is a push only script which means nodes
// on existing rules will treat new version scripts as if they were version 0.
func IsPushOnlyScript(script []byte) bool {
	return isPushOnly(script)
}

// canonicalPush returns the single-opcode encoding of a data push the way
// signatures are serialized into scripts: the shortest length prefix and no
// small integer substitution.
func canonicalPush(data []byte) []byte {
	dataLen := len(data)
	var script []byte
	switch {
	case dataLen < OP_PUSHDATA1:
		script = make([]byte, 0, 1+dataLen)
		script = append(script, byte(dataLen))

	case dataLen <= 0xff:
		script = make([]byte, 0, 2+dataLen)
		script = append(script, OP_PUSHDATA1, byte(dataLen))

	case dataLen <= 0xffff:
		script = make([]byte, 0, 3+dataLen)
		script = append(script, OP_PUSHDATA2)
		script = binary.LittleEndian.AppendUint16(script, uint16(dataLen))

	default:
		script = make([]byte, 0, 5+dataLen)
		script = append(script, OP_PUSHDATA4)
		script = binary.LittleEndian.AppendUint32(script, uint32(dataLen))
	}
	return append(script, data...)
}

// FindAndDelete returns the script with every occurrence of needle removed.
// Matches are only recognized at opcode boundaries and the needle is compared
// against the raw bytes of the script, so a push with a non-canonical length
// prefix does not match a canonically encoded needle.  Consecutive matches at
// the same boundary are all removed.  The bytes of a trailing malformed
// opcode are kept as-is.
//
// The original script is returned unmodified when nothing matches.
func FindAndDelete(script, needle []byte) []byte {
	if len(needle) == 0 {
		return script
	}

	var result []byte
	var found bool
	var offset, lastCopy int
	for {
		result = append(result, script[lastCopy:offset]...)
		for len(script)-offset >= len(needle) &&
			bytes.Equal(script[offset:offset+len(needle)], needle) {

			offset += len(needle)
			found = true
		}
		lastCopy = offset

		if offset >= len(script) {
			break
		}
		tokenizer := MakeScriptTokenizer(script[offset:])
		if !tokenizer.Next() {
			break
		}
		offset += int(tokenizer.ByteIndex())
	}

	if !found {
		return script
	}
	return append(result, script[lastCopy:]...)
}

// removeOpcodeRaw will return the script after removing any opcodes that match
// `opcode`.  If the opcode does not appear in script, the original script will
// be returned unmodified.  Otherwise, a new script will be allocated to contain
// the filtered script.  This method assumes that the script parses
// successfully.
func removeOpcodeRaw(script []byte, opcode byte) []byte {
	// Avoid work when possible.
	if len(script) == 0 {
		return script
	}

	tokenizer := MakeScriptTokenizer(script)
	var result []byte
	var prevOffset int32
	for tokenizer.Next() {
		if tokenizer.Opcode() == opcode {
			if result == nil {
				result = make([]byte, 0, len(script))
				result = append(result, script[:prevOffset]...)
			}
		} else if result != nil {
			result = append(result, script[prevOffset:tokenizer.ByteIndex()]...)
		}
		prevOffset = tokenizer.ByteIndex()
	}
	if result == nil {
		return script
	}
	return result
}

// checkMinimalDataPush returns whether or not the provided opcode is the
// smallest possible way to represent the given data.  For example, the value 15
// could be pushed with OP_DATA_1 15 (among other variations); however, OP_15 is
// a single opcode that represents the same value and is only a single byte
// versus two bytes.
func checkMinimalDataPush(op *opcode, data []byte) error {
	opcodeVal := op.value
	dataLen := len(data)
	switch {
	case dataLen == 0 && opcodeVal != OP_0:
		str := fmt.Sprintf("zero length data push is encoded with opcode %s "+
			"instead of OP_0", op.name)
		return scriptError(ErrMinimalData, str)
	case dataLen == 1 && data[0] >= 1 && data[0] <= 16:
		if opcodeVal != OP_1+data[0]-1 {
			// Should have used OP_1 .. OP_16
			str := fmt.Sprintf("data push of the value %d encoded with "+
				"opcode %s instead of OP_%d", data[0], op.name, data[0])
			return scriptError(ErrMinimalData, str)
		}
	case dataLen == 1 && data[0] == 0x81:
		if opcodeVal != OP_1NEGATE {
			str := fmt.Sprintf("data push of the value -1 encoded with "+
				"opcode %s instead of OP_1NEGATE", op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 75:
		if int(opcodeVal) != dataLen {
			// Should have used a direct push
			str := fmt.Sprintf("data push of %d bytes encoded with opcode "+
				"%s instead of OP_DATA_%d", dataLen, op.name, dataLen)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 255:
		if opcodeVal != OP_PUSHDATA1 {
			str := fmt.Sprintf("data push of %d bytes encoded with opcode "+
				"%s instead of OP_PUSHDATA1", dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	case dataLen <= 65535:
		if opcodeVal != OP_PUSHDATA2 {
			str := fmt.Sprintf("data push of %d bytes encoded with opcode "+
				"%s instead of OP_PUSHDATA2", dataLen, op.name)
			return scriptError(ErrMinimalData, str)
		}
	}
	return nil
}

// CheckMinimalPush reports whether the opcode at index idx of the parsed
// script is the shortest encoding of the data it pushes.  Opcodes that are not
// pushes are trivially minimal.
func CheckMinimalPush(pops []ParsedOpcode, idx int) bool {
	if idx < 0 || idx >= len(pops) {
		return false
	}
	pop := pops[idx]
	if pop.Opcode > OP_16 {
		return true
	}
	op := &opcodeArray[pop.Opcode]
	if op.value >= OP_1NEGATE {
		// Small integers and OP_RESERVED carry no data.
		return true
	}
	return checkMinimalDataPush(op, pop.Data) == nil
}

// DisasmString formats a disassembled script for one line printing.  When the
// script fails to parse, the returned string will contain the disassembled
// script up to the point the failure occurred along with the string '[error]'
// appended.  In addition, the reason the script failed to parse is returned
// if the caller wants more information about the failure.
func DisasmString(script []byte) (string, error) {
	var disbuf strings.Builder
	tokenizer := MakeScriptTokenizer(script)
	if tokenizer.Next() {
		disasmOpcode(&disbuf, &opcodeArray[tokenizer.Opcode()],
			tokenizer.Data(), true)
	}
	for tokenizer.Next() {
		disbuf.WriteByte(' ')
		disasmOpcode(&disbuf, &opcodeArray[tokenizer.Opcode()],
			tokenizer.Data(), true)
	}
	if tokenizer.Err() != nil {
		if tokenizer.ByteIndex() != 0 {
			disbuf.WriteByte(' ')
		}
		disbuf.WriteString("[error]")
	}
	return disbuf.String(), tokenizer.Err()
}

// countSigOps returns the number of signature operations in the provided
// script up to the point of the first parse failure or the entire script when
// there are no parse failures.  The precise flag attempts to accurately count
// the number of operations for a multisig operation versus using the maximum
// allowed.
func countSigOps(script []byte, precise bool) int {
	numSigOps := 0
	tokenizer := MakeScriptTokenizer(script)
	prevOp := byte(OP_INVALIDOPCODE)
	for tokenizer.Next() {
		switch tokenizer.Opcode() {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			numSigOps++

		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			// Note that OP_0 is treated as the max number of sigops here
			// to match the reference implementation.
			if precise && prevOp >= OP_1 && prevOp <= OP_16 {
				numSigOps += asSmallInt(prevOp)
			} else {
				numSigOps += MaxPubKeysPerMultiSig
			}

		default:
			// Not a sigop.
		}

		prevOp = tokenizer.Opcode()
	}

	return numSigOps
}

// GetSigOpCount provides a quick count of the number of signature operations
// in a script. a CHECKSIG operations counts for 1, and a CHECK_MULTISIG for 20.
// If the script fails to parse, then the count up to the point of failure is
// returned.
func GetSigOpCount(script []byte) int {
	return countSigOps(script, false)
}

// finalOpcodeData returns the data associated with the final opcode in the
// script.  It will return nil if the script fails to parse.
func finalOpcodeData(script []byte) []byte {
	// Avoid unnecessary work.
	if len(script) == 0 {
		return nil
	}

	var data []byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		data = tokenizer.Data()
	}
	if tokenizer.Err() != nil {
		return nil
	}
	return data
}

// GetPreciseSigOpCount returns the number of signature operations in
// scriptPubKey.  If bip16 is true then scriptSig may be searched for the
// Pay-To-Script-Hash script in order to find the precise number of signature
// operations in the transaction.  If the script fails to parse, then the count
// up to the point of failure is returned.
func GetPreciseSigOpCount(scriptSig, scriptPubKey []byte, bip16 bool) int {
	// Treat non P2SH transactions as normal.  Note that signature operation
	// counting includes all operations up to the first parse failure.
	if !(bip16 && isScriptHashScript(scriptPubKey)) {
		return countSigOps(scriptPubKey, true)
	}

	// The signature script must only push data to the stack for P2SH to be
	// a valid pair, so the signature operation count is 0 when that is not
	// the case.
	if len(scriptSig) == 0 || !isPushOnly(scriptSig) {
		return 0
	}

	// The P2SH script is the last item the signature script pushes to the
	// stack.  When the script is empty, there are no signature operations.
	//
	// Notice that signature scripts that fail to fully parse count as 0
	// signature operations unlike public key and redeem scripts.
	redeemScript := finalOpcodeData(scriptSig)
	if len(redeemScript) == 0 {
		return 0
	}

	// Finally, return the signature operation count for the extracted redeem
	// script.  Note that signature operation counting includes all operations
	// up to the first parse failure.
	return countSigOps(redeemScript, true)
}
