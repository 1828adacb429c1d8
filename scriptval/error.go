// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package scriptval

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of script validation error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrMissingTxOut indicates a transaction input references an output
	// the previous output fetcher does not know about.
	ErrMissingTxOut ErrorCode = iota

	// ErrScriptMalformed indicates a script pair could not be prepared for
	// execution, for example because one of the scripts fails to parse.
	ErrScriptMalformed

	// ErrScriptValidation indicates the result of executing a script pair
	// failed.  The error covers any failure when executing scripts such
	// as signature verification failures and execution past the end of
	// the stack.
	ErrScriptValidation
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrMissingTxOut:     "ErrMissingTxOut",
	ErrScriptMalformed:  "ErrScriptMalformed",
	ErrScriptValidation: "ErrScriptValidation",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  The underlying script error, when
// there is one, is available through errors.Unwrap.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying script error, may be nil
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap returns the underlying script error.
func (e RuleError) Unwrap() error {
	return e.Err
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string, err error) RuleError {
	return RuleError{ErrorCode: c, Description: desc, Err: err}
}

// IsErrorCode returns whether or not the provided error is a rule error with
// the provided error code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == c
}
