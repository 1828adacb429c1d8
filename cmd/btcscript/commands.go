// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcscript/btcec"
	"github.com/btcsuite/btcscript/scriptval"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/txsort"
	"github.com/btcsuite/btcscript/wire"
	"github.com/davecgh/go-spew/spew"
)

// commandHandler runs a single command against the parsed positional
// arguments, writing its result to w.
type commandHandler func(cfg *config, args []string, w io.Writer) error

type command struct {
	minArgs int
	maxArgs int
	handler commandHandler
}

// commands maps each command name to its handler and the number of positional
// arguments it accepts.  A negative maxArgs means the count is unbounded.
var commands = map[string]command{
	"disasm":     {1, 1, handleDisasm},
	"classify":   {1, 1, handleClassify},
	"addrscript": {1, 1, handleAddrScript},
	"multisig":   {2, -1, handleMultiSig},
	"sighash":    {3, 3, handleSigHash},
	"verify":     {3, 3, handleVerify},
	"verifytx":   {2, -1, handleVerifyTx},
	"sign":       {4, 4, handleSign},
	"sort":       {1, 1, handleSort},
}

// runCommand looks up and executes the named command.
func runCommand(cfg *config, args []string, w io.Writer) error {
	if len(args) == 0 {
		return errors.New("no command specified")
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return fmt.Errorf("wrong number of arguments for %s: got %d",
			name, len(args))
	}

	log.Debugf("Running %s with %d argument(s)", name, len(args))
	return cmd.handler(cfg, args, w)
}

// decodeHex decodes a hex string that may carry a 0x prefix.
func decodeHex(what, str string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", what, err)
	}
	return b, nil
}

// decodeTx deserializes a hex encoded transaction.
func decodeTx(str string) (*wire.MsgTx, error) {
	serialized, err := decodeHex("transaction", str)
	if err != nil {
		return nil, err
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(serialized)); err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}
	log.Tracef("Decoded transaction %v", spew.Sdump(&tx))
	return &tx, nil
}

// decodeIndex parses an input index and ensures it refers to an input of tx.
func decodeIndex(tx *wire.MsgTx, str string) (int, error) {
	idx, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid input index: %w", err)
	}
	if idx < 0 || idx >= len(tx.TxIn) {
		return 0, fmt.Errorf("input index %d out of range for %d "+
			"inputs", idx, len(tx.TxIn))
	}
	return idx, nil
}

// prevOutFetcher returns the fetcher supplying the amount configured on the
// command line, or nil when no amount was given.
func prevOutFetcher(cfg *config, pkScript []byte) (txscript.PrevOutputFetcher,
	error) {

	if cfg.Amount == 0 {
		return nil, nil
	}
	amt, err := btcutil.NewAmount(cfg.Amount)
	if err != nil {
		return nil, err
	}
	return txscript.NewCannedPrevOutputFetcher(pkScript, int64(amt)), nil
}

// encodeAddress returns the network encoding of an address extracted from a
// script.
func encodeAddress(addr txscript.Address, params *chaincfg.Params) (string,
	error) {

	var (
		encoded btcutil.Address
		err     error
	)
	switch addr.ScriptClass() {
	case txscript.PubKeyHashTy:
		encoded, err = btcutil.NewAddressPubKeyHash(addr.ScriptAddress(),
			params)
	case txscript.ScriptHashTy:
		encoded, err = btcutil.NewAddressScriptHashFromHash(
			addr.ScriptAddress(), params)
	case txscript.PubKeyTy:
		encoded, err = btcutil.NewAddressPubKey(addr.ScriptAddress(),
			params)
	default:
		return "", fmt.Errorf("unsupported address class %v",
			addr.ScriptClass())
	}
	if err != nil {
		return "", err
	}
	return encoded.EncodeAddress(), nil
}

// decodeAddress converts a network encoded address into the template address
// used by the script builders.
func decodeAddress(str string, params *chaincfg.Params) (txscript.Address,
	error) {

	addr, err := btcutil.DecodeAddress(str, params)
	if err != nil {
		return nil, err
	}
	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("address %s is not for %s", str,
			params.Name)
	}

	switch addr := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return txscript.NewAddress(txscript.PubKeyHashTy,
			addr.ScriptAddress()), nil
	case *btcutil.AddressScriptHash:
		return txscript.NewAddress(txscript.ScriptHashTy,
			addr.ScriptAddress()), nil
	case *btcutil.AddressPubKey:
		return txscript.NewAddress(txscript.PubKeyTy,
			addr.ScriptAddress()), nil
	}
	return nil, fmt.Errorf("unsupported address type %T", addr)
}

func handleDisasm(_ *config, args []string, w io.Writer) error {
	script, err := decodeHex("script", args[0])
	if err != nil {
		return err
	}
	disasm, err := txscript.DisasmString(script)
	fmt.Fprintln(w, disasm)
	return err
}

func handleClassify(cfg *config, args []string, w io.Writer) error {
	script, err := decodeHex("script", args[0])
	if err != nil {
		return err
	}

	class, addrs, nRequired, err := txscript.ExtractPkScriptAddrs(script)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "class: %v\n", class)
	if class == txscript.NonStandardTy {
		fmt.Fprintf(w, "input class: %v\n",
			txscript.GetInputScriptClass(script))
	}
	fmt.Fprintf(w, "required signatures: %d\n", nRequired)
	fmt.Fprintf(w, "sigops: %d\n", txscript.GetSigOpCount(script))
	for _, addr := range addrs {
		encoded, err := encodeAddress(addr, cfg.params)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "address: %s\n", encoded)
	}
	return nil
}

func handleAddrScript(cfg *config, args []string, w io.Writer) error {
	addr, err := decodeAddress(args[0], cfg.params)
	if err != nil {
		return err
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, hex.EncodeToString(script))
	return nil
}

func handleMultiSig(cfg *config, args []string, w io.Writer) error {
	nRequired, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid number of required signatures: %w", err)
	}
	pubKeys := make([][]byte, 0, len(args)-1)
	for _, arg := range args[1:] {
		pubKey, err := decodeHex("public key", arg)
		if err != nil {
			return err
		}
		pubKeys = append(pubKeys, pubKey)
	}

	script, err := txscript.MultiSigScript(pubKeys, nRequired)
	if err != nil {
		return err
	}
	p2sh, err := btcutil.NewAddressScriptHash(script, cfg.params)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "redeem script: %x\n", script)
	fmt.Fprintf(w, "address: %s\n", p2sh.EncodeAddress())
	return nil
}

func handleSigHash(cfg *config, args []string, w io.Writer) error {
	tx, err := decodeTx(args[0])
	if err != nil {
		return err
	}
	idx, err := decodeIndex(tx, args[1])
	if err != nil {
		return err
	}
	subScript, err := decodeHex("script", args[2])
	if err != nil {
		return err
	}
	hashType, err := parseHashType(cfg.HashType)
	if err != nil {
		return err
	}
	prevOuts, err := prevOutFetcher(cfg, subScript)
	if err != nil {
		return err
	}

	hash, err := txscript.CalcSigHash(subScript, hashType, tx, idx,
		prevOuts, flagsForConfig(cfg))
	if err != nil {
		return err
	}

	// The digest is printed in the byte order it is signed in unless the
	// reversed display order is requested.
	if cfg.DisplayOrder {
		fmt.Fprintln(w, hash.String())
		return nil
	}
	fmt.Fprintln(w, hex.EncodeToString(hash[:]))
	return nil
}

func handleVerify(cfg *config, args []string, w io.Writer) error {
	tx, err := decodeTx(args[0])
	if err != nil {
		return err
	}
	idx, err := decodeIndex(tx, args[1])
	if err != nil {
		return err
	}
	pkScript, err := decodeHex("script", args[2])
	if err != nil {
		return err
	}
	prevOuts, err := prevOutFetcher(cfg, pkScript)
	if err != nil {
		return err
	}

	vm, err := txscript.NewEngine(pkScript, tx, idx, flagsForConfig(cfg),
		nil, nil, prevOuts)
	if err != nil {
		return err
	}
	if !cfg.Trace {
		if err := vm.Execute(); err != nil {
			return describeScriptError(err)
		}
		fmt.Fprintln(w, "ok")
		return nil
	}

	for {
		disasm, err := vm.DisasmPC()
		if err != nil {
			return err
		}
		done, err := vm.Step()
		if err != nil {
			return fmt.Errorf("%s: %w", disasm, describeScriptError(err))
		}
		fmt.Fprintf(w, "%s\n", disasm)
		for i, item := range vm.GetStack() {
			fmt.Fprintf(w, "\t%d: %x\n", i, item)
		}
		if done {
			break
		}
	}
	if err := vm.CheckErrorCondition(true); err != nil {
		return describeScriptError(err)
	}
	fmt.Fprintln(w, "ok")
	return nil
}

// handleVerifyTx validates every input of a transaction.  Each spent output is
// given as its public key script optionally followed by a colon and the amount
// in BTC, in input order.
func handleVerifyTx(cfg *config, args []string, w io.Writer) error {
	tx, err := decodeTx(args[0])
	if err != nil {
		return err
	}
	if len(args)-1 != len(tx.TxIn) {
		return fmt.Errorf("%d spent outputs given for %d inputs",
			len(args)-1, len(tx.TxIn))
	}

	prevOuts := txscript.NewMultiPrevOutFetcher(nil)
	for i, arg := range args[1:] {
		scriptHex, amountStr, hasAmount := strings.Cut(arg, ":")
		pkScript, err := decodeHex("script", scriptHex)
		if err != nil {
			return err
		}
		var amt btcutil.Amount
		if hasAmount {
			value, err := strconv.ParseFloat(amountStr, 64)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			amt, err = btcutil.NewAmount(value)
			if err != nil {
				return err
			}
		}
		prevOuts.AddPrevOut(tx.TxIn[i].PreviousOutPoint,
			wire.NewTxOut(int64(amt), pkScript))
	}

	sigCache := txscript.NewSigCache(uint(len(tx.TxIn)))
	err = scriptval.ValidateTransactionScripts(tx, prevOuts,
		flagsForConfig(cfg), sigCache, nil)
	if err != nil {
		return describeScriptError(err)
	}
	fmt.Fprintln(w, "ok")
	return nil
}

// describeScriptError prefixes script errors with their error code and
// reference identifier.
func describeScriptError(err error) error {
	var serr txscript.Error
	if !errors.As(err, &serr) {
		return err
	}
	return fmt.Errorf("%v (%s): %w", serr.ErrorCode,
		serr.ErrorCode.ScriptErr(), err)
}

func handleSign(cfg *config, args []string, w io.Writer) error {
	tx, err := decodeTx(args[0])
	if err != nil {
		return err
	}
	idx, err := decodeIndex(tx, args[1])
	if err != nil {
		return err
	}
	pkScript, err := decodeHex("script", args[2])
	if err != nil {
		return err
	}
	wif, err := btcutil.DecodeWIF(args[3])
	if err != nil {
		return err
	}
	if !wif.IsForNet(cfg.params) {
		return fmt.Errorf("private key is not for %s", cfg.params.Name)
	}
	hashType, err := parseHashType(cfg.HashType)
	if err != nil {
		return err
	}
	prevOuts, err := prevOutFetcher(cfg, pkScript)
	if err != nil {
		return err
	}

	var redeemScript []byte
	if cfg.RedeemScript != "" {
		redeemScript, err = decodeHex("redeem script", cfg.RedeemScript)
		if err != nil {
			return err
		}
	}

	kdb := keyDBForWIF(wif.PrivKey, wif.CompressPubKey)
	sdb := txscript.ScriptClosure(func(addr txscript.Address) ([]byte, error) {
		if redeemScript == nil ||
			!bytes.Equal(addr.ScriptAddress(), txscript.Hash160(redeemScript)) {

			return nil, errors.New("redeem script not provided")
		}
		return redeemScript, nil
	})

	sigScript, err := txscript.SignTxInput(tx, idx, pkScript, hashType,
		kdb, sdb, tx.TxIn[idx].SignatureScript, prevOuts)
	if err != nil {
		return err
	}
	tx.TxIn[idx].SignatureScript = sigScript
	log.Debugf("Signed input %d of %v", idx, tx.TxHash())

	return writeTx(w, tx)
}

func handleSort(_ *config, args []string, w io.Writer) error {
	tx, err := decodeTx(args[0])
	if err != nil {
		return err
	}
	if txsort.IsSorted(tx) {
		log.Infof("Transaction %v is already sorted", tx.TxHash())
	} else {
		for _, txIn := range tx.TxIn {
			if len(txIn.SignatureScript) != 0 {
				log.Warnf("Sorting invalidates the signatures of " +
					"transaction inputs")
				break
			}
		}
	}
	return writeTx(w, txsort.Sort(tx))
}

// writeTx writes the hex encoded serialized transaction as a single line.
func writeTx(w io.Writer, tx *wire.MsgTx) error {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return err
	}
	fmt.Fprintln(w, hex.EncodeToString(buf.Bytes()))
	return nil
}

// keyDBForWIF returns a key database holding the single passed key.  It
// answers for the key itself in either encoding and for the hash of the
// encoding selected by compress.
func keyDBForWIF(key *btcec.PrivateKey, compress bool) txscript.KeyDB {
	pubKey := key.PubKey()
	serialized := pubKey.SerializeUncompressed()
	if compress {
		serialized = pubKey.SerializeCompressed()
	}
	pkHash := txscript.Hash160(serialized)

	return txscript.KeyClosure(func(addr txscript.Address) (*btcec.PrivateKey,
		bool, error) {

		payload := addr.ScriptAddress()
		switch {
		case bytes.Equal(payload, pkHash):
			return key, compress, nil
		case bytes.Equal(payload, pubKey.SerializeCompressed()):
			return key, true, nil
		case bytes.Equal(payload, pubKey.SerializeUncompressed()):
			return key, false, nil
		}
		return nil, false, errors.New("no key for address")
	})
}
