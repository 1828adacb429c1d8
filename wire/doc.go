// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package wire implements the bitcoin transaction wire encoding.

Only the pieces needed to hash, sign and validate transactions are provided:
the MsgTx type with its inputs and outputs, and the variable length integer
and byte array primitives the encoding is built from.

All integers are encoded in little-endian byte order.  Counts and lengths use
the canonical variable length integer encoding; a value encoded with more
bytes than necessary is rejected with a MessageError when decoding.

Errors

Errors returned by this package are either the raw errors provided by the
underlying io.Reader or io.Writer, or of type *MessageError.  This allows the
caller to differentiate between general IO errors and malformed data.
*/
package wire
