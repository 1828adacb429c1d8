// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcscript/btcec"
	blog "github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/scriptval"
	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/txsort"
	"github.com/btcsuite/btcscript/wire"
	"github.com/stretchr/testify/require"
)

// testConfig returns a validated mainnet configuration.
func testConfig(t *testing.T) *config {
	t.Helper()
	cfg := &config{HashType: defaultHashType}
	require.NoError(t, validateConfig(cfg))
	return cfg
}

// run executes the command and returns its trimmed output.
func run(t *testing.T, cfg *config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runCommand(cfg, args, &out)
	return strings.TrimSpace(out.String()), err
}

func testPrivKey() *btcec.PrivateKey {
	key, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x42}, 32))
	return key
}

// spendTxHex returns a serialized transaction with a single unsigned input.
func spendTxHex(t *testing.T) string {
	t.Helper()
	prevHash := chainhash.Hash{0x01, 0x02, 0x03}
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&prevHash, 0), nil))
	tx.AddTxOut(wire.NewTxOut(90000, []byte{txscript.OP_TRUE}))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

// TestCommandLogger ensures the tool logs through the BSCR subsystem so its
// level follows --debuglevel.
func TestCommandLogger(t *testing.T) {
	require.True(t, blog.SubsystemLoggers["BSCR"] == log)

	require.NoError(t, blog.ParseAndSetDebugLevels("BSCR=trace"))
	require.Equal(t, btclog.LevelTrace, log.Level())
	require.NoError(t, blog.ParseAndSetDebugLevels("info"))
	require.Equal(t, btclog.LevelInfo, log.Level())
}

func TestParseHashType(t *testing.T) {
	tests := []struct {
		str  string
		want txscript.SigHashType
		ok   bool
	}{
		{"ALL", txscript.SigHashAll, true},
		{"sighash_none", txscript.SigHashNone, true},
		{"SINGLE|ANYONECANPAY", txscript.SigHashSingle |
			txscript.SigHashAnyOneCanPay, true},
		{"ALL|FORKID|ANYONECANPAY", txscript.SigHashAll |
			txscript.SigHashForkID | txscript.SigHashAnyOneCanPay, true},
		{"FORKID", 0, false},
		{"ALL|SINGLE", 0, false},
		{"", 0, false},
	}
	for _, test := range tests {
		got, err := parseHashType(test.str)
		if !test.ok {
			require.Error(t, err, test.str)
			continue
		}
		require.NoError(t, err, test.str)
		require.Equal(t, test.want, got, test.str)
	}
}

func TestValidateConfig(t *testing.T) {
	cfg := &config{HashType: "ALL", TestNet3: true, SimNet: true}
	require.Error(t, validateConfig(cfg))

	cfg = &config{HashType: "ALL", Amount: -1}
	require.Error(t, validateConfig(cfg))

	cfg = &config{HashType: "BOGUS"}
	require.Error(t, validateConfig(cfg))

	cfg = &config{HashType: "ALL", RegressionNet: true}
	require.NoError(t, validateConfig(cfg))
	require.Equal(t, "regtest", cfg.params.Name)

	cfg.ForkID = true
	require.NotZero(t, flagsForConfig(cfg)&txscript.ScriptEnableSigHashForkID)
	cfg.Consensus = true
	require.Zero(t, flagsForConfig(cfg)&txscript.ScriptVerifyLowS)
}

func TestRunCommandErrors(t *testing.T) {
	cfg := testConfig(t)

	_, err := run(t, cfg)
	require.Error(t, err)
	_, err = run(t, cfg, "bogus")
	require.Error(t, err)
	_, err = run(t, cfg, "disasm")
	require.Error(t, err)
	_, err = run(t, cfg, "disasm", "00", "00")
	require.Error(t, err)
	_, err = run(t, cfg, "disasm", "zz")
	require.Error(t, err)
}

func TestDisasmCommand(t *testing.T) {
	out, err := run(t, testConfig(t), "disasm", "0x76a90088ac")
	require.NoError(t, err)
	require.Equal(t, "OP_DUP OP_HASH160 0 OP_EQUALVERIFY OP_CHECKSIG", out)

	out, err = run(t, testConfig(t), "disasm", "5102")
	require.Error(t, err)
	require.Contains(t, out, "[error]")
}

func TestAddressRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	pubKey := testPrivKey().PubKey().SerializeCompressed()

	pkhAddr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(pubKey),
		cfg.params)
	require.NoError(t, err)
	pkScript, err := run(t, cfg, "addrscript", pkhAddr.EncodeAddress())
	require.NoError(t, err)

	out, err := run(t, cfg, "classify", pkScript)
	require.NoError(t, err)
	require.Contains(t, out, "class: pubkeyhash")
	require.Contains(t, out, "required signatures: 1")
	require.Contains(t, out, "address: "+pkhAddr.EncodeAddress())

	// Addresses for another network are refused.
	testCfg := &config{HashType: "ALL", TestNet3: true}
	require.NoError(t, validateConfig(testCfg))
	_, err = run(t, testCfg, "addrscript", pkhAddr.EncodeAddress())
	require.Error(t, err)

	// Classify a signature script too.
	out, err = run(t, cfg, "classify", "00")
	require.NoError(t, err)
	require.Contains(t, out, "class: nonstandard")
}

func TestMultiSigCommand(t *testing.T) {
	cfg := testConfig(t)
	pubKey1 := testPrivKey().PubKey().SerializeCompressed()
	key2, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x43}, 32))
	pubKey2 := key2.PubKey().SerializeCompressed()

	out, err := run(t, cfg, "multisig", "2", hex.EncodeToString(pubKey1),
		hex.EncodeToString(pubKey2))
	require.NoError(t, err)

	script, err := txscript.MultiSigScript([][]byte{pubKey1, pubKey2}, 2)
	require.NoError(t, err)
	p2sh, err := btcutil.NewAddressScriptHash(script, cfg.params)
	require.NoError(t, err)
	require.Contains(t, out, hex.EncodeToString(script))
	require.Contains(t, out, p2sh.EncodeAddress())

	_, err = run(t, cfg, "multisig", "3", hex.EncodeToString(pubKey1),
		hex.EncodeToString(pubKey2))
	require.Error(t, err)
}

func TestSignVerifyCommands(t *testing.T) {
	key := testPrivKey()
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := txscript.PayToPubKeyHashScript(txscript.Hash160(pubKey))
	require.NoError(t, err)
	pkScriptHex := hex.EncodeToString(pkScript)

	tests := []struct {
		name     string
		hashType string
		forkID   bool
		amount   float64
	}{
		{"legacy all", "ALL", false, 0},
		{"legacy single anyonecanpay", "SINGLE|ANYONECANPAY", false, 0},
		{"fork id", "ALL|FORKID", true, 0.5},
	}

	for _, test := range tests {
		cfg := &config{
			HashType: test.hashType,
			ForkID:   test.forkID,
			Amount:   test.amount,
		}
		require.NoError(t, validateConfig(cfg))

		wif, err := btcutil.NewWIF(key, cfg.params, true)
		require.NoError(t, err)

		txHex := spendTxHex(t)
		_, err = run(t, cfg, "verify", txHex, "0", pkScriptHex)
		require.Error(t, err, test.name)

		signed, err := run(t, cfg, "sign", txHex, "0", pkScriptHex,
			wif.String())
		require.NoError(t, err, test.name)

		out, err := run(t, cfg, "verify", signed, "0", pkScriptHex)
		require.NoError(t, err, test.name)
		require.Equal(t, "ok", out)

		cfg.Trace = true
		out, err = run(t, cfg, "verify", signed, "0", pkScriptHex)
		require.NoError(t, err, test.name)
		require.Contains(t, out, "OP_CHECKSIG")
		require.True(t, strings.HasSuffix(out, "ok"))

		_, err = run(t, cfg, "verify", signed, "1", pkScriptHex)
		require.Error(t, err, test.name)

		hash, err := run(t, cfg, "sighash", signed, "0", pkScriptHex)
		require.NoError(t, err, test.name)
		require.Len(t, hash, 64)

		// Display order is the signed order byte reversed.
		cfg.DisplayOrder = true
		display, err := run(t, cfg, "sighash", signed, "0", pkScriptHex)
		require.NoError(t, err, test.name)
		signedOrder, err := hex.DecodeString(hash)
		require.NoError(t, err)
		displayHash, err := chainhash.NewHashFromStr(display)
		require.NoError(t, err)
		require.Equal(t, signedOrder, displayHash[:], test.name)
		cfg.DisplayOrder = false
	}

	// A fork id signature hash needs the amount.
	cfg := &config{HashType: "ALL|FORKID", ForkID: true}
	require.NoError(t, validateConfig(cfg))
	_, err = run(t, cfg, "sighash", spendTxHex(t), "0", pkScriptHex)
	require.True(t, txscript.IsErrorCode(err, txscript.ErrMissingAmount),
		"got %v", err)

	// Signing with the wrong key fails.
	other, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x44}, 32))
	wif, err := btcutil.NewWIF(other, cfg.params, true)
	require.NoError(t, err)
	_, err = run(t, testConfig(t), "sign", spendTxHex(t), "0", pkScriptHex,
		wif.String())
	require.Error(t, err)
}

func TestSignP2SHCommand(t *testing.T) {
	key := testPrivKey()
	pubKey := key.PubKey().SerializeUncompressed()
	redeemScript, err := txscript.PayToPubKeyScript(pubKey)
	require.NoError(t, err)
	pkScript, err := txscript.PayToScriptHashScript(
		txscript.Hash160(redeemScript))
	require.NoError(t, err)
	pkScriptHex := hex.EncodeToString(pkScript)

	cfg := testConfig(t)
	wif, err := btcutil.NewWIF(key, cfg.params, false)
	require.NoError(t, err)

	_, err = run(t, cfg, "sign", spendTxHex(t), "0", pkScriptHex,
		wif.String())
	require.Error(t, err)

	cfg.RedeemScript = hex.EncodeToString(redeemScript)
	signed, err := run(t, cfg, "sign", spendTxHex(t), "0", pkScriptHex,
		wif.String())
	require.NoError(t, err)
	out, err := run(t, cfg, "verify", signed, "0", pkScriptHex)
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestSortCommand(t *testing.T) {
	cfg := testConfig(t)

	hashA := chainhash.Hash{0x01}
	hashB := chainhash.Hash{0x02}
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hashA, 1), nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hashA, 0), nil))
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&hashB, 0), nil))
	tx.AddTxOut(wire.NewTxOut(5, []byte{txscript.OP_TRUE}))
	tx.AddTxOut(wire.NewTxOut(4, []byte{txscript.OP_TRUE}))
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	out, err := run(t, cfg, "sort", hex.EncodeToString(buf.Bytes()))
	require.NoError(t, err)
	serialized, err := hex.DecodeString(out)
	require.NoError(t, err)
	var sorted wire.MsgTx
	require.NoError(t, sorted.Deserialize(bytes.NewReader(serialized)))
	require.True(t, txsort.IsSorted(&sorted))
	require.Equal(t, uint32(0), sorted.TxIn[0].PreviousOutPoint.Index)
	require.Equal(t, int64(4), sorted.TxOut[0].Value)
}

func TestVerifyTxCommand(t *testing.T) {
	key := testPrivKey()
	pubKey := key.PubKey().SerializeCompressed()
	pkScript, err := txscript.PayToPubKeyScript(pubKey)
	require.NoError(t, err)
	pkScriptHex := hex.EncodeToString(pkScript)

	cfg := &config{HashType: "ALL|FORKID", ForkID: true, Amount: 0.25}
	require.NoError(t, validateConfig(cfg))
	wif, err := btcutil.NewWIF(key, cfg.params, true)
	require.NoError(t, err)

	signed, err := run(t, cfg, "sign", spendTxHex(t), "0", pkScriptHex,
		wif.String())
	require.NoError(t, err)

	out, err := run(t, cfg, "verifytx", signed, pkScriptHex+":0.25")
	require.NoError(t, err)
	require.Equal(t, "ok", out)

	// The wrong amount fails validation.
	_, err = run(t, cfg, "verifytx", signed, pkScriptHex+":0.26")
	require.True(t, scriptval.IsErrorCode(err, scriptval.ErrScriptValidation),
		"got %v", err)

	// One spent output is needed per input.
	_, err = run(t, cfg, "verifytx", signed, pkScriptHex, pkScriptHex)
	require.Error(t, err)
	_, err = run(t, cfg, "verifytx", signed, pkScriptHex+":abc")
	require.Error(t, err)
}
