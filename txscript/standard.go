// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"
)

const (
	// MaxDataCarrierSize is the maximum number of bytes allowed in pushed
	// data to be considered a nulldata transaction
	MaxDataCarrierSize = 80
)

// ScriptClass is an enumeration for the list of standard types of script.
type ScriptClass byte

// Classes of script payment known about in the blockchain.
const (
	NonStandardTy  ScriptClass = iota // None of the recognized forms.
	PubKeyTy                          // Pay pubkey.
	PubKeyHashTy                      // Pay pubkey hash.
	ScriptHashTy                      // Pay to script hash.
	MultiSigTy                        // Multi signature.
	NullDataTy                        // Empty data-only (provably prunable).
	PubKeyInTy                        // Signature spending a pay pubkey.
	PubKeyHashInTy                    // Signature and pubkey spending a pay pubkey hash.
	ScriptHashInTy                    // Redeem script spending a pay to script hash.
	MultiSigInTy                      // Signatures spending a multi signature.
)

// scriptClassToName houses the human-readable strings which describe each
// script class.
var scriptClassToName = []string{
	NonStandardTy:  "nonstandard",
	PubKeyTy:       "pubkey",
	PubKeyHashTy:   "pubkeyhash",
	ScriptHashTy:   "scripthash",
	MultiSigTy:     "multisig",
	NullDataTy:     "nulldata",
	PubKeyInTy:     "pubkey-in",
	PubKeyHashInTy: "pubkeyhash-in",
	ScriptHashInTy: "scripthash-in",
	MultiSigInTy:   "multisig-in",
}

// String implements the Stringer interface by returning the name of
// the enum script class. If the enum is invalid then "Invalid" will be
// returned.
func (t ScriptClass) String() string {
	if int(t) >= len(scriptClassToName) {
		return "Invalid"
	}
	return scriptClassToName[t]
}

// ScriptRole says whether a script is known to be a locking (output) script,
// an unlocking (input) script, or neither.
type ScriptRole uint8

const (
	RoleUnknown ScriptRole = iota
	RoleOutput
	RoleInput
)

// extractCompressedPubKey extracts a compressed public key from the passed
// script if it is a standard pay-to-compressed-secp256k1-pubkey script.  It
// will return nil otherwise.
func extractCompressedPubKey(script []byte) []byte {
	// A pay-to-compressed-pubkey script is of the form:
	//  OP_DATA_33 <33-byte compressed pubkey> OP_CHECKSIG

	// All compressed secp256k1 public keys must start with 0x02 or 0x03.
	if len(script) == 35 &&
		script[34] == OP_CHECKSIG &&
		script[0] == OP_DATA_33 &&
		(script[1] == 0x02 || script[1] == 0x03) {

		return script[1:34]
	}

	return nil
}

// extractUncompressedPubKey extracts an uncompressed public key from the
// passed script if it is a standard pay-to-uncompressed-secp256k1-pubkey
// script.  It will return nil otherwise.
func extractUncompressedPubKey(script []byte) []byte {
	// A pay-to-uncompressed-pubkey script is of the form:
	//   OP_DATA_65 <65-byte uncompressed pubkey> OP_CHECKSIG
	//
	// All non-hybrid uncompressed secp256k1 public keys must start with 0x04.
	// Hybrid uncompressed secp256k1 public keys start with 0x06 or 0x07:
	//   - 0x06 => hybrid format for even Y coords
	//   - 0x07 => hybrid format for odd Y coords
	if len(script) == 67 &&
		script[66] == OP_CHECKSIG &&
		script[0] == OP_DATA_65 &&
		(script[1] == 0x04 || script[1] == 0x06 || script[1] == 0x07) {

		return script[1:66]
	}
	return nil
}

// extractPubKey extracts either compressed or uncompressed public key from the
// passed script if it is a either a standard pay-to-compressed-secp256k1-pubkey
// or pay-to-uncompressed-secp256k1-pubkey script, respectively.  It will return
// nil otherwise.
func extractPubKey(script []byte) []byte {
	if pubKey := extractCompressedPubKey(script); pubKey != nil {
		return pubKey
	}
	return extractUncompressedPubKey(script)
}

// isPubKeyScript returns whether or not the passed script is either a standard
// pay-to-compressed-secp256k1-pubkey or pay-to-uncompressed-secp256k1-pubkey
// script.
func isPubKeyScript(script []byte) bool {
	return extractPubKey(script) != nil
}

// extractPubKeyHash extracts the public key hash from the passed script if it
// is a standard pay-to-pubkey-hash script.  It will return nil otherwise.
func extractPubKeyHash(script []byte) []byte {
	// A pay-to-pubkey-hash script is of the form:
	//  OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG
	if len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == OP_DATA_20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG {

		return script[3:23]
	}

	return nil
}

// isPubKeyHashScript returns whether or not the passed script is a standard
// pay-to-pubkey-hash script.
func isPubKeyHashScript(script []byte) bool {
	return extractPubKeyHash(script) != nil
}

// extractScriptHash extracts the script hash from the passed script if it is a
// standard pay-to-script-hash script.  It will return nil otherwise.
//
// NOTE: This function is only valid for version 0 opcodes.  Since the function
// does not accept a script version, the results are undefined for other script
// versions.
func extractScriptHash(script []byte) []byte {
	// A pay-to-script-hash script is of the form:
	//  OP_HASH160 <20-byte scripthash> OP_EQUAL
	if len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == OP_DATA_20 &&
		script[22] == OP_EQUAL {

		return script[2:22]
	}

	return nil
}

// isScriptHashScript returns whether or not the passed script is a standard
// pay-to-script-hash script.
func isScriptHashScript(script []byte) bool {
	return extractScriptHash(script) != nil
}

// IsPayToScriptHash returns true if the script is in the standard
// pay-to-script-hash (P2SH) format, false otherwise.
func IsPayToScriptHash(script []byte) bool {
	return isScriptHashScript(script)
}

// multiSigDetails houses details extracted from a standard multisig script.
type multiSigDetails struct {
	requiredSigs int
	numPubKeys   int
	pubKeys      [][]byte
	valid        bool
}

// extractMultisigScriptDetails attempts to extract details from the passed
// script if it is a standard multisig script.  The returned details struct will
// have the valid flag set to false otherwise.
//
// The extract pubkeys flag indicates whether or not the pubkeys themselves
// should also be extracted and is provided because extracting them results in
// an allocation that the caller might wish to avoid.  The pubKeys member of
// the returned details struct will be nil when the flag is false.
func extractMultisigScriptDetails(script []byte, extractPubKeys bool) multiSigDetails {
	// A multi-signature script is of the form:
	//  NUM_SIGS PUBKEY PUBKEY PUBKEY ... NUM_PUBKEYS OP_CHECKMULTISIG

	// The script can't possibly be a multisig script if it doesn't end with
	// OP_CHECKMULTISIG or have at least two small integer pushes preceding
	// it.  Fail fast to avoid more work below.
	if len(script) < 3 || script[len(script)-1] != OP_CHECKMULTISIG {
		return multiSigDetails{}
	}

	// The first opcode must be a small integer specifying the number of
	// signatures required.
	tokenizer := MakeScriptTokenizer(script)
	if !tokenizer.Next() || !isSmallInt(tokenizer.Opcode()) {
		return multiSigDetails{}
	}
	requiredSigs := asSmallInt(tokenizer.Opcode())

	// The next series of opcodes must either push public keys or be a small
	// integer specifying the number of public keys.
	var numPubKeys int
	var pubKeys [][]byte
	if extractPubKeys {
		pubKeys = make([][]byte, 0, MaxPubKeysPerMultiSig)
	}
	for tokenizer.Next() {
		if isSmallInt(tokenizer.Opcode()) {
			break
		}

		data := tokenizer.Data()
		numPubKeys++
		if !isStrictPubKeyEncoding(data) {
			return multiSigDetails{}
		}
		if extractPubKeys {
			pubKeys = append(pubKeys, data)
		}
	}
	if tokenizer.Done() {
		return multiSigDetails{}
	}

	// The next opcode must be a small integer specifying the number of public
	// keys required.
	op := tokenizer.Opcode()
	if !isSmallInt(op) || asSmallInt(op) != numPubKeys {
		return multiSigDetails{}
	}

	// There must only be a single opcode left unparsed which will be
	// OP_CHECKMULTISIG per the check above.
	if int32(len(tokenizer.Script()))-tokenizer.ByteIndex() != 1 {
		return multiSigDetails{}
	}

	// At least one key is required and the number of required signatures
	// can't exceed the number of keys.
	if numPubKeys == 0 || requiredSigs > numPubKeys {
		return multiSigDetails{}
	}

	return multiSigDetails{
		requiredSigs: requiredSigs,
		numPubKeys:   numPubKeys,
		pubKeys:      pubKeys,
		valid:        true,
	}
}

// isMultisigScript returns whether or not the passed script is a standard
// multisig script.
func isMultisigScript(script []byte) bool {
	// Since this is only checking the form of the script, don't extract the
	// public keys to avoid the allocation.
	details := extractMultisigScriptDetails(script, false)
	return details.valid
}

// IsMultisigScript returns whether or not the passed script is a standard
// multisignature script.
func IsMultisigScript(script []byte) bool {
	return isMultisigScript(script)
}

// isNullDataScript returns whether or not the passed script is a standard
// null data script.
func isNullDataScript(script []byte) bool {
	// A null script is of the form:
	//  OP_RETURN <optional data>
	//
	// Thus, it can either be a single OP_RETURN or an OP_RETURN followed by a
	// data push up to MaxDataCarrierSize bytes.

	// The script can't possibly be a null data script if it doesn't start
	// with OP_RETURN.  Fail fast to avoid more work below.
	if len(script) < 1 || script[0] != OP_RETURN {
		return false
	}

	// Single OP_RETURN.
	if len(script) == 1 {
		return true
	}

	// OP_RETURN followed by data push up to MaxDataCarrierSize bytes.
	tokenizer := MakeScriptTokenizer(script[1:])
	return tokenizer.Next() && tokenizer.Done() &&
		(isSmallInt(tokenizer.Opcode()) || tokenizer.Opcode() <= OP_PUSHDATA4) &&
		len(tokenizer.Data()) <= MaxDataCarrierSize
}

// typeOfScript returns the type of the locking script provided.  The templates
// are tried in a fixed order and the first match wins.
func typeOfScript(script []byte) ScriptClass {
	switch {
	case isPubKeyHashScript(script):
		return PubKeyHashTy
	case isPubKeyScript(script):
		return PubKeyTy
	case isMultisigScript(script):
		return MultiSigTy
	case isScriptHashScript(script):
		return ScriptHashTy
	case isNullDataScript(script):
		return NullDataTy
	}

	return NonStandardTy
}

// GetScriptClass returns the class of the script passed.
//
// NonStandardTy will be returned when the script does not parse.
func GetScriptClass(script []byte) ScriptClass {
	return typeOfScript(script)
}

// isSigPush returns whether the data looks like a transaction signature: a
// structurally valid DER encoding followed by a hash type byte.  An empty push
// is accepted when allowEmpty is set since it stands in for a missing
// signature in partially signed multisig inputs.
func isSigPush(data []byte, allowEmpty bool) bool {
	if len(data) == 0 {
		return allowEmpty
	}
	return IsCanonicalSignature(data)
}

// inputPushes returns the data pushed by a push-only script, or false when the
// script contains anything else.
func inputPushes(script []byte) ([][]byte, bool) {
	if len(script) == 0 || !isPushOnly(script) {
		return nil, false
	}
	pushes, err := PushedData(script)
	if err != nil {
		return nil, false
	}
	return pushes, true
}

// isPubKeyInput returns whether the pushes satisfy a pay-to-pubkey output:
// a single signature.
func isPubKeyInput(pushes [][]byte) bool {
	return len(pushes) == 1 && isSigPush(pushes[0], false)
}

// isPubKeyHashInput returns whether the pushes satisfy a pay-to-pubkey-hash
// output: a signature followed by a public key.
func isPubKeyHashInput(pushes [][]byte) bool {
	return len(pushes) == 2 && isSigPush(pushes[0], false) &&
		isStrictPubKeyEncoding(pushes[1])
}

// isMultiSigInput returns whether the pushes satisfy a multisig output: the
// dummy OP_0 followed by at least one signature.
func isMultiSigInput(script []byte, pushes [][]byte) bool {
	if len(pushes) < 2 || script[0] != OP_0 {
		return false
	}
	for _, sig := range pushes[1:] {
		if !isSigPush(sig, true) {
			return false
		}
	}
	return true
}

// isScriptHashInput returns whether the script spends a pay-to-script-hash
// output.  The final push must be a standard redeem script and the remaining
// pushes must satisfy it.
func isScriptHashInput(pushes [][]byte) bool {
	if len(pushes) == 0 {
		return false
	}
	redeemScript := pushes[len(pushes)-1]
	if len(redeemScript) == 0 || checkScriptParses(redeemScript) != nil {
		return false
	}

	// The unlocking pushes in front of the redeem script are re-serialized
	// so the same classifiers can be applied.  A push the engine would
	// refuse to place on the stack fails the builder.
	redeemPushes := pushes[:len(pushes)-1]
	builder := NewScriptBuilder()
	for _, data := range redeemPushes {
		builder.AddData(data)
	}
	redeemIn, err := builder.Script()
	if err != nil {
		return false
	}

	switch typeOfScript(redeemScript) {
	case PubKeyTy:
		return isPubKeyInput(redeemPushes)
	case PubKeyHashTy:
		return isPubKeyHashInput(redeemPushes)
	case MultiSigTy:
		return len(redeemIn) > 0 && isMultiSigInput(redeemIn, redeemPushes)
	}
	return false
}

// typeOfInputScript returns the type of the unlocking script provided.
func typeOfInputScript(script []byte) ScriptClass {
	pushes, ok := inputPushes(script)
	if !ok {
		return NonStandardTy
	}

	switch {
	case isPubKeyHashInput(pushes):
		return PubKeyHashInTy
	case isScriptHashInput(pushes):
		return ScriptHashInTy
	case isMultiSigInput(script, pushes):
		return MultiSigInTy
	case isPubKeyInput(pushes):
		return PubKeyInTy
	}
	return NonStandardTy
}

// GetInputScriptClass returns the class of the passed unlocking script.
// Scripts that are not push only are always NonStandardTy.
func GetInputScriptClass(sigScript []byte) ScriptClass {
	return typeOfInputScript(sigScript)
}

// ClassifyScript classifies the script according to its role.  Scripts with
// an unknown role are tried as locking scripts first and then as unlocking
// scripts.
func ClassifyScript(script []byte, role ScriptRole) ScriptClass {
	switch role {
	case RoleOutput:
		return typeOfScript(script)
	case RoleInput:
		return typeOfInputScript(script)
	}

	if class := typeOfScript(script); class != NonStandardTy {
		return class
	}
	return typeOfInputScript(script)
}

// CalcMultiSigStats returns the number of public keys and signatures from
// a multi-signature transaction script.  The passed script MUST already be
// known to be a multi-signature script.
func CalcMultiSigStats(script []byte) (int, int, error) {
	// The public keys are not needed here, so pass false to avoid the extra
	// allocation.
	details := extractMultisigScriptDetails(script, false)
	if !details.valid {
		str := fmt.Sprintf("script %x is not a multisig script", script)
		return 0, 0, scriptError(ErrNotMultisigScript, str)
	}

	return details.numPubKeys, details.requiredSigs, nil
}

// payToPubKeyHashScript creates a new script to pay a transaction
// output to a 20-byte pubkey hash. It is expected that the input is a valid
// hash.
func payToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_DUP).AddOp(OP_HASH160).
		AddData(pubKeyHash).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG).
		Script()
}

// payToScriptHashScript creates a new script to pay a transaction output to a
// script hash. It is expected that the input is a valid hash.
func payToScriptHashScript(scriptHash []byte) ([]byte, error) {
	return NewScriptBuilder().AddOp(OP_HASH160).AddData(scriptHash).
		AddOp(OP_EQUAL).Script()
}

// PayToPubKeyHashScript creates a pay-to-pubkey-hash locking script for the
// 20-byte hash of a serialized public key.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		str := fmt.Sprintf("pubkey hash is %d bytes instead of 20",
			len(pubKeyHash))
		return nil, scriptError(ErrUnsupportedAddress, str)
	}
	return payToPubKeyHashScript(pubKeyHash)
}

// PayToScriptHashScript creates a pay-to-script-hash locking script for the
// 20-byte hash of a redeem script.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	if len(scriptHash) != 20 {
		str := fmt.Sprintf("script hash is %d bytes instead of 20",
			len(scriptHash))
		return nil, scriptError(ErrUnsupportedAddress, str)
	}
	return payToScriptHashScript(scriptHash)
}

// PayToPubKeyScript creates a new script to pay a transaction output to a
// public key.  The key must be a serialized compressed or uncompressed key.
func PayToPubKeyScript(serializedPubKey []byte) ([]byte, error) {
	if !isStrictPubKeyEncoding(serializedPubKey) {
		str := fmt.Sprintf("unsupported public key encoding %x",
			serializedPubKey)
		return nil, scriptError(ErrUnsupportedAddress, str)
	}
	return NewScriptBuilder().AddData(serializedPubKey).
		AddOp(OP_CHECKSIG).Script()
}

// Address is the capability the template builders need from an address:
// the payload the locking script commits to and the template it selects.
type Address interface {
	// ScriptAddress returns the raw bytes committed to by the locking
	// script, a hash for hash based templates or the serialized key for
	// pay-to-pubkey.
	ScriptAddress() []byte

	// ScriptClass returns PubKeyTy, PubKeyHashTy or ScriptHashTy.
	ScriptClass() ScriptClass
}

// scriptAddress is the Address implementation returned by
// ExtractPkScriptAddrs.
type scriptAddress struct {
	class ScriptClass
	data  []byte
}

func (a scriptAddress) ScriptAddress() []byte    { return a.data }
func (a scriptAddress) ScriptClass() ScriptClass { return a.class }

// NewAddress returns an Address for the given template class and payload.
func NewAddress(class ScriptClass, data []byte) Address {
	return scriptAddress{class: class, data: data}
}

// PayToAddrScript creates a new script to pay a transaction output to the
// specified address.
func PayToAddrScript(addr Address) ([]byte, error) {
	const nilAddrErrStr = "unable to generate payment script for nil address"

	if addr == nil {
		return nil, scriptError(ErrUnsupportedAddress, nilAddrErrStr)
	}

	switch addr.ScriptClass() {
	case PubKeyHashTy:
		return PayToPubKeyHashScript(addr.ScriptAddress())

	case ScriptHashTy:
		return PayToScriptHashScript(addr.ScriptAddress())

	case PubKeyTy:
		return PayToPubKeyScript(addr.ScriptAddress())
	}

	str := fmt.Sprintf("unable to generate payment script for unsupported "+
		"address class %v", addr.ScriptClass())
	return nil, scriptError(ErrUnsupportedAddress, str)
}

// NullDataScript creates a provably-prunable script containing OP_RETURN
// followed by the passed data.  An Error with the error code ErrTooMuchNullData
// will be returned if the length of the passed data exceeds MaxDataCarrierSize.
func NullDataScript(data []byte) ([]byte, error) {
	if len(data) > MaxDataCarrierSize {
		str := fmt.Sprintf("data size %d is larger than max "+
			"allowed size %d", len(data), MaxDataCarrierSize)
		return nil, scriptError(ErrTooMuchNullData, str)
	}

	return NewScriptBuilder().AddOp(OP_RETURN).AddData(data).Script()
}

// MultiSigScript returns a valid script for a multisignature redemption where
// nrequired of the keys in pubkeys are required to have signed the transaction
// for success.  An Error with the error code ErrTooManyRequiredSigs will be
// returned if nrequired is larger than the number of keys provided.
func MultiSigScript(pubKeys [][]byte, nrequired int) ([]byte, error) {
	if len(pubKeys) < nrequired {
		str := fmt.Sprintf("unable to generate multisig script with "+
			"%d required signatures when there are only %d public "+
			"keys available", nrequired, len(pubKeys))
		return nil, scriptError(ErrTooManyRequiredSigs, str)
	}
	if nrequired < 1 || len(pubKeys) > 16 {
		str := fmt.Sprintf("unable to generate %d-of-%d multisig "+
			"script", nrequired, len(pubKeys))
		return nil, scriptError(ErrInvalidPubKeyCount, str)
	}

	builder := NewScriptBuilder().AddInt64(int64(nrequired))
	for _, key := range pubKeys {
		if !isStrictPubKeyEncoding(key) {
			str := fmt.Sprintf("unsupported public key encoding %x",
				key)
			return nil, scriptError(ErrPubKeyType, str)
		}
		builder.AddData(key)
	}
	builder.AddInt64(int64(len(pubKeys)))
	builder.AddOp(OP_CHECKMULTISIG)

	return builder.Script()
}

// PubKeyInScript returns the unlocking script for a pay-to-pubkey output.
func PubKeyInScript(sig []byte) ([]byte, error) {
	return NewScriptBuilder().AddData(sig).Script()
}

// PubKeyHashInScript returns the unlocking script for a pay-to-pubkey-hash
// output.
func PubKeyHashInScript(sig, pubKey []byte) ([]byte, error) {
	return NewScriptBuilder().AddData(sig).AddData(pubKey).Script()
}

// MultiSigInScript returns the unlocking script for a multisig output.  The
// signatures must be in the same order as their keys in the locking script.
func MultiSigInScript(sigs [][]byte) ([]byte, error) {
	builder := NewScriptBuilder().AddOp(OP_0)
	for _, sig := range sigs {
		builder.AddData(sig)
	}
	return builder.Script()
}

// ScriptHashInScript appends the redeem script to the unlocking pushes that
// satisfy it, producing the unlocking script of a pay-to-script-hash output.
func ScriptHashInScript(redeemIn, redeemScript []byte) ([]byte, error) {
	if len(redeemIn) != 0 && !isPushOnly(redeemIn) {
		return nil, scriptError(ErrNotPushOnly,
			"redeem script inputs are not push only")
	}

	script := make([]byte, len(redeemIn), len(redeemIn)+len(redeemScript)+5)
	copy(script, redeemIn)
	builder := NewScriptBuilder().AddData(redeemScript)
	push, err := builder.Script()
	if err != nil {
		return nil, err
	}
	return append(script, push...), nil
}

// PushedData returns an array of byte slices containing any pushed data found
// in the passed script.  This includes OP_0, but not OP_1 - OP_16.
func PushedData(script []byte) ([][]byte, error) {
	var data [][]byte
	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if tokenizer.Data() != nil {
			data = append(data, tokenizer.Data())
		} else if tokenizer.Opcode() == OP_0 {
			data = append(data, nil)
		}
	}
	if err := tokenizer.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// ExtractPkScriptAddrs returns the type of script, addresses and required
// signatures associated with the passed PkScript.  Note that it only works for
// 'standard' transaction script types.  Any data such as public keys which are
// invalid are omitted from the results.
func ExtractPkScriptAddrs(pkScript []byte) (ScriptClass, []Address, int, error) {
	// Check for pay-to-pubkey-hash script.
	if hash := extractPubKeyHash(pkScript); hash != nil {
		addrs := []Address{NewAddress(PubKeyHashTy, hash)}
		return PubKeyHashTy, addrs, 1, nil
	}

	// Check for pay-to-pubkey script.
	if data := extractPubKey(pkScript); data != nil {
		var addrs []Address
		if isStrictPubKeyEncoding(data) {
			addrs = append(addrs, NewAddress(PubKeyTy, data))
		}
		return PubKeyTy, addrs, 1, nil
	}

	// Check for multi-signature script.
	details := extractMultisigScriptDetails(pkScript, true)
	if details.valid {
		addrs := make([]Address, 0, len(details.pubKeys))
		for _, pubkey := range details.pubKeys {
			addrs = append(addrs, NewAddress(PubKeyTy, pubkey))
		}
		return MultiSigTy, addrs, details.requiredSigs, nil
	}

	// Check for pay-to-script-hash.
	if hash := extractScriptHash(pkScript); hash != nil {
		addrs := []Address{NewAddress(ScriptHashTy, hash)}
		return ScriptHashTy, addrs, 1, nil
	}

	// Check for null data script.
	if isNullDataScript(pkScript) {
		// Null data transactions have no addresses or required signatures.
		return NullDataTy, nil, 0, nil
	}

	// Don't attempt to extract addresses or required signatures for
	// nonstandard transactions.
	return NonStandardTy, nil, 0, nil
}
