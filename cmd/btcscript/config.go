// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	blog "github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/internal/version"
	"github.com/btcsuite/btcscript/txscript"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultLogFilename = version.AppName + ".log"
	defaultLogLevel    = "info"
	defaultHashType    = "ALL"
)

var (
	btcscriptHomeDir = btcutil.AppDataDir(version.AppName, false)
	defaultLogDir    = filepath.Join(btcscriptHomeDir, "logs")
)

// config defines the configuration options for btcscript.
//
// See loadConfig for details on the configuration load process.
type config struct {
	ShowVersion   bool    `short:"V" long:"version" description:"Display version information and exit"`
	LogDir        string  `long:"logdir" description:"Directory to log output"`
	NoFileLog     bool    `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string  `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	TestNet3      bool    `long:"testnet" description:"Use the test network"`
	RegressionNet bool    `long:"regtest" description:"Use the regression test network"`
	SimNet        bool    `long:"simnet" description:"Use the simulation test network"`
	ForkID        bool    `long:"forkid" description:"Enable the value-committing signature hash for hash types carrying SIGHASH_FORKID"`
	Consensus     bool    `long:"consensus" description:"Verify with the consensus rules only instead of the standard policy rules"`
	Trace         bool    `long:"trace" description:"Print every executed opcode and the resulting stack while verifying"`
	Amount        float64 `short:"a" long:"amount" description:"Amount in BTC of the output being spent"`
	HashType      string  `short:"t" long:"hashtype" description:"Signature hash type such as ALL, SINGLE|ANYONECANPAY or ALL|FORKID"`
	RedeemScript  string  `long:"redeemscript" description:"Hex encoded redeem script used when signing a pay-to-script-hash output"`
	DisplayOrder  bool    `long:"displayorder" description:"Print signature hashes byte reversed, the order transaction and block hashes are displayed in"`

	params *chaincfg.Params
}

// usageMessage is appended to the help output of the parser.
const usageMessage = `
Commands:
  disasm <script>                     Disassemble a hex encoded script
  classify <pkscript>                 Print the template and addresses of a script
  addrscript <address>                Print the locking script paying to an address
  multisig <nrequired> <pubkey>...    Build a multisig redeem script and its P2SH address
  sighash <tx> <idx> <subscript>      Print the signature hash of an input
  verify <tx> <idx> <pkscript>        Execute the scripts of an input
  verifytx <tx> <pkscript[:amount]>...
                                      Validate every input, one spent output per input
  sign <tx> <idx> <pkscript> <wif>    Sign an input and print the updated transaction
  sort <tx>                           Sort inputs and outputs per BIP0069
`

// flagsForConfig returns the script flags the engine runs with for the
// configuration.
func flagsForConfig(cfg *config) txscript.ScriptFlags {
	scriptFlags := txscript.StandardVerifyFlags
	if cfg.Consensus {
		scriptFlags = txscript.ScriptBip16 |
			txscript.ScriptVerifyCheckLockTimeVerify
	}
	if cfg.ForkID {
		scriptFlags |= txscript.ScriptEnableSigHashForkID
	}
	return scriptFlags
}

// parseHashType parses a signature hash type written as its base mode
// optionally followed by |ANYONECANPAY and |FORKID modifiers.
func parseHashType(str string) (txscript.SigHashType, error) {
	var hashType txscript.SigHashType
	for i, part := range strings.Split(strings.ToUpper(str), "|") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "SIGHASH_")
		switch {
		case i == 0 && part == "ALL":
			hashType |= txscript.SigHashAll
		case i == 0 && part == "NONE":
			hashType |= txscript.SigHashNone
		case i == 0 && part == "SINGLE":
			hashType |= txscript.SigHashSingle
		case i > 0 && part == "ANYONECANPAY":
			hashType |= txscript.SigHashAnyOneCanPay
		case i > 0 && part == "FORKID":
			hashType |= txscript.SigHashForkID
		default:
			return 0, fmt.Errorf("invalid hash type %q", str)
		}
	}
	return hashType, nil
}

// loadConfig initializes and parses the config using command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Override with any specified command line options
//  3. Set up logging for the selected levels
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		LogDir:     defaultLogDir,
		DebugLevel: defaultLogLevel,
		HashType:   defaultHashType,
	}

	// Parse command line options.
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] <command> <args...>\n" + usageMessage
	remainingArgs, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	if cfg.ShowVersion {
		fmt.Println(version.Full())
		os.Exit(0)
	}

	if err := validateConfig(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", blog.SupportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLog {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := blog.InitLogRotator(logFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return nil, nil, err
		}
	}

	// Parse, validate, and set debug log level(s).
	if err := blog.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	if len(remainingArgs) == 0 {
		err := errors.New("loadConfig: no command specified")
		fmt.Fprintln(os.Stderr, err)
		parser.WriteHelp(os.Stderr)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}

// validateConfig selects the network parameters and checks the options that
// don't depend on the command.
func validateConfig(cfg *config) error {
	// Multiple networks can't be selected simultaneously.
	funcName := "loadConfig"
	numNets := 0
	cfg.params = &chaincfg.MainNetParams
	if cfg.TestNet3 {
		numNets++
		cfg.params = &chaincfg.TestNet3Params
	}
	if cfg.RegressionNet {
		numNets++
		cfg.params = &chaincfg.RegressionNetParams
	}
	if cfg.SimNet {
		numNets++
		cfg.params = &chaincfg.SimNetParams
	}
	if numNets > 1 {
		str := "%s: the testnet, regtest, and simnet params can't be " +
			"used together -- choose one of the three"
		return fmt.Errorf(str, funcName)
	}

	if cfg.Amount < 0 {
		str := "%s: the amount may not be negative -- parsed [%v]"
		return fmt.Errorf(str, funcName, cfg.Amount)
	}

	if _, err := parseHashType(cfg.HashType); err != nil {
		return fmt.Errorf("%s: %w", funcName, err)
	}

	return nil
}
