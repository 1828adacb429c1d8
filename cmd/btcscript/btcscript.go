// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	blog "github.com/btcsuite/btcscript/internal/log"
	"github.com/btcsuite/btcscript/internal/version"
)

// log is the logger for the command itself.
var log = blog.BscrLog

func btcscriptMain() error {
	cfg, args, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() {
		if blog.LogRotator != nil {
			blog.LogRotator.Close()
		}
	}()

	log.Debugf("%s", version.Full())

	if err := runCommand(cfg, args, os.Stdout); err != nil {
		log.Errorf("%s: %v", args[0], err)
		return err
	}
	return nil
}

func main() {
	if err := btcscriptMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
