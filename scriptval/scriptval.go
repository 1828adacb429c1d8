// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package scriptval validates every input script of a transaction
// concurrently, sharing signature and signature hash caches between the
// inputs.
package scriptval

import (
	"fmt"
	"math"
	"runtime"

	"github.com/btcsuite/btcscript/txscript"
	"github.com/btcsuite/btcscript/wire"
)

// txValidateItem holds a transaction along with which input to validate.
type txValidateItem struct {
	txInIndex int
	txIn      *wire.TxIn
	tx        *wire.MsgTx
	sigHashes *txscript.TxSigHashes
}

// txValidator provides a type which asynchronously validates transaction
// inputs.  It provides several channels for communication and a processing
// function that is intended to be in run multiple goroutines.
type txValidator struct {
	validateChan chan *txValidateItem
	quitChan     chan struct{}
	resultChan   chan error
	prevOuts     txscript.PrevOutputFetcher
	flags        txscript.ScriptFlags
	sigCache     *txscript.SigCache
}

// sendResult sends the result of a script pair validation on the internal
// result channel while respecting the quit channel.  This allows orderly
// shutdown when the validation process is aborted early due to a validation
// error in one of the other goroutines.
func (v *txValidator) sendResult(result error) {
	select {
	case v.resultChan <- result:
	case <-v.quitChan:
	}
}

// validateInput executes the script pair of a single input.
func (v *txValidator) validateInput(txVI *txValidateItem) error {
	txIn := txVI.txIn
	txHash := txVI.tx.TxHash()
	var prevOut *wire.TxOut
	if v.prevOuts != nil {
		prevOut = v.prevOuts.FetchPrevOutput(txIn.PreviousOutPoint)
	}
	if prevOut == nil {
		str := fmt.Sprintf("unable to find unspent output %v "+
			"referenced from transaction %v:%d",
			txIn.PreviousOutPoint, txHash, txVI.txInIndex)
		return ruleError(ErrMissingTxOut, str, nil)
	}

	// Create a new script engine for the script pair.
	sigScript := txIn.SignatureScript
	pkScript := prevOut.PkScript
	vm, err := txscript.NewEngine(pkScript, txVI.tx, txVI.txInIndex,
		v.flags, v.sigCache, txVI.sigHashes, v.prevOuts)
	if err != nil {
		str := fmt.Sprintf("failed to parse input %v:%d which "+
			"references output %v - %v (input script bytes %x, "+
			"prev output script bytes %x)", txHash, txVI.txInIndex,
			txIn.PreviousOutPoint, err, sigScript, pkScript)
		return ruleError(ErrScriptMalformed, str, err)
	}

	// Execute the script pair.
	if err := vm.Execute(); err != nil {
		str := fmt.Sprintf("failed to validate input %v:%d which "+
			"references output %v - %v (input script bytes %x, "+
			"prev output script bytes %x)", txHash, txVI.txInIndex,
			txIn.PreviousOutPoint, err, sigScript, pkScript)
		return ruleError(ErrScriptValidation, str, err)
	}

	return nil
}

// validateHandler consumes items to validate from the internal validate channel
// and returns the result of the validation on the internal result channel. It
// must be run as a goroutine.
func (v *txValidator) validateHandler() {
out:
	for {
		select {
		case txVI := <-v.validateChan:
			err := v.validateInput(txVI)
			v.sendResult(err)
			if err != nil {
				break out
			}

		case <-v.quitChan:
			break out
		}
	}
}

// Validate validates the scripts for all of the passed transaction inputs using
// multiple goroutines.
func (v *txValidator) Validate(items []*txValidateItem) error {
	if len(items) == 0 {
		return nil
	}

	// Limit the number of goroutines to do script validation based on the
	// number of processor cores.  This helps ensure the system stays
	// reasonably responsive under heavy load.
	maxGoRoutines := runtime.NumCPU() * 3
	if maxGoRoutines <= 0 {
		maxGoRoutines = 1
	}
	if maxGoRoutines > len(items) {
		maxGoRoutines = len(items)
	}

	// Start up validation handlers that are used to asynchronously
	// validate each transaction input.
	for i := 0; i < maxGoRoutines; i++ {
		go v.validateHandler()
	}

	// Validate each of the inputs.  The quit channel is closed when any
	// errors occur so all processing goroutines exit regardless of which
	// input had the validation error.
	numInputs := len(items)
	currentItem := 0
	processedItems := 0
	for processedItems < numInputs {
		// Only send items while there are still items that need to
		// be processed.  The select statement will never select a nil
		// channel.
		var validateChan chan *txValidateItem
		var item *txValidateItem
		if currentItem < numInputs {
			validateChan = v.validateChan
			item = items[currentItem]
		}

		select {
		case validateChan <- item:
			currentItem++

		case err := <-v.resultChan:
			processedItems++
			if err != nil {
				close(v.quitChan)
				return err
			}
		}
	}

	close(v.quitChan)
	return nil
}

// newTxValidator returns a new instance of txValidator to be used for
// validating transaction scripts asynchronously.
func newTxValidator(prevOuts txscript.PrevOutputFetcher,
	flags txscript.ScriptFlags, sigCache *txscript.SigCache) *txValidator {

	return &txValidator{
		validateChan: make(chan *txValidateItem),
		quitChan:     make(chan struct{}),
		resultChan:   make(chan error),
		prevOuts:     prevOuts,
		flags:        flags,
		sigCache:     sigCache,
	}
}

// ValidateTransactionScripts validates the scripts for the passed transaction
// using multiple goroutines.  The outputs spent by the inputs are looked up
// through prevOuts.  Both caches are optional.  When the value-committing
// signature hash is enabled the shared midstate is taken from hashCache, or
// computed once for all inputs when no cache is passed.
func ValidateTransactionScripts(tx *wire.MsgTx,
	prevOuts txscript.PrevOutputFetcher, flags txscript.ScriptFlags,
	sigCache *txscript.SigCache, hashCache *txscript.HashCache) error {

	// Compute the midstate up front so the goroutines don't each do it.
	var sigHashes *txscript.TxSigHashes
	if flags&txscript.ScriptEnableSigHashForkID != 0 {
		if hashCache != nil {
			txHash := tx.TxHash()
			var ok bool
			sigHashes, ok = hashCache.GetSigHashes(&txHash)
			if !ok {
				sigHashes = hashCache.AddSigHashes(tx)
			}
		} else {
			sigHashes = txscript.NewTxSigHashes(tx)
		}
	}

	// Collect all of the transaction inputs and required information for
	// validation.
	txValItems := make([]*txValidateItem, 0, len(tx.TxIn))
	for txInIdx, txIn := range tx.TxIn {
		// Skip coinbases.
		if txIn.PreviousOutPoint.Index == math.MaxUint32 {
			continue
		}

		txVI := &txValidateItem{
			txInIndex: txInIdx,
			txIn:      txIn,
			tx:        tx,
			sigHashes: sigHashes,
		}
		txValItems = append(txValItems, txVI)
	}

	// Validate all of the inputs.
	validator := newTxValidator(prevOuts, flags, sigCache)
	return validator.Validate(txValItems)
}
