// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestLogClosure ensures closures are only rendered when the level is enabled
// and that engine traces reach a configured logger.
func TestLogClosure(t *testing.T) {
	var buf bytes.Buffer
	backend := btclog.NewBackend(&buf)
	logger := backend.Logger("SCRP")
	UseLogger(logger)
	defer DisableLog()

	var calls int
	closure := newLogClosure(func() string {
		calls++
		return "traced"
	})

	logger.SetLevel(btclog.LevelInfo)
	log.Tracef("%v", closure)
	require.Zero(t, calls)
	require.Zero(t, buf.Len())

	logger.SetLevel(btclog.LevelTrace)
	log.Tracef("%v", closure)
	require.Equal(t, 1, calls)
	require.Contains(t, buf.String(), "traced")

	// Executing a script with tracing enabled logs every step.
	buf.Reset()
	tx := testSpendTx(nil)
	vm, err := NewEngine([]byte{OP_1, OP_1, OP_EQUAL}, tx, 0, 0, nil, nil,
		nil)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	require.Contains(t, buf.String(), "stepping")
	require.Contains(t, buf.String(), "OP_EQUAL")
}
