// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package txscript implements the bitcoin transaction script language.

This package provides data structures and functions to parse, build, classify
and execute bitcoin transaction scripts, together with the signature hash
algorithms that signatures commit to.

# Script Overview

Bitcoin transaction scripts are written in a stack-base, FORTH-like language.

The bitcoin script language consists of a number of opcodes which fall into
several categories such pushing and popping data to and from the stack,
performing basic arithmetic, conditional branching, comparing hashes, and
checking cryptographic signatures.  Scripts are processed from left to right
and intentionally do not provide loops.

The vast majority of Bitcoin scripts at the time of this writing are of several
standard forms which consist of a spender providing a public key and a signature
which proves the spender owns the associated private key.  This information
is used to prove the the spender is authorized to perform the transaction.

One benefit of using a scripting language is added flexibility in specifying
what conditions must be met in order to spend bitcoins.

# Execution

A spend is validated by running the signature script of the input, then the
public key script of the output being spent on the resulting stack.  When the
ScriptBip16 flag is set and the public key script is a pay-to-script-hash
template, the final push of the signature script is additionally executed as
a redeem script on the stack the signature script left behind.  Only the main
data stack carries over between these scripts.

Chain specific behavior, such as accepting the value-committing signature hash
selected by SigHashForkID, is enabled through ScriptFlags passed by the caller
rather than through any package level state.

# Errors

Errors returned by this package are of type txscript.Error.  This allows the
caller to programmatically determine the specific error by examining the
ErrorCode field of the type asserted txscript.Error while still providing rich
error messages with contextual information.  A convenience function named
IsErrorCode is also provided to allow callers to easily check for a specific
error code.  ErrorCode.ScriptErr maps a code to the stable SCRIPT_ERR_*
identifier used by reference test vectors.  See ErrorCode in the package
documentation for a full list.
*/
package txscript
