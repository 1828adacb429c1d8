// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"BSCR", "SCRP"}, SupportedSubsystems())
}

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		debugLevel string
		want       map[string]btclog.Level
		wantErr    bool
	}{{
		debugLevel: "debug",
		want: map[string]btclog.Level{
			"BSCR": btclog.LevelDebug,
			"SCRP": btclog.LevelDebug,
		},
	}, {
		debugLevel: "BSCR=warn,SCRP=trace",
		want: map[string]btclog.Level{
			"BSCR": btclog.LevelWarn,
			"SCRP": btclog.LevelTrace,
		},
	}, {
		debugLevel: "verbose",
		wantErr:    true,
	}, {
		debugLevel: "SCRP=info,BSCR",
		wantErr:    true,
	}, {
		debugLevel: "PEER=info",
		wantErr:    true,
	}, {
		debugLevel: "SCRP=loud",
		wantErr:    true,
	}}

	for _, test := range tests {
		err := ParseAndSetDebugLevels(test.debugLevel)
		if test.wantErr {
			require.Error(t, err, test.debugLevel)
			continue
		}
		require.NoError(t, err, test.debugLevel)
		for subsysID, level := range test.want {
			require.Equal(t, level, SubsystemLoggers[subsysID].Level(),
				"%s: %s", test.debugLevel, subsysID)
		}
	}

	// Unknown subsystems are ignored.
	SetLogLevel("NONE", "debug")
}

func TestInitLogRotator(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "btcscript.log")
	require.NoError(t, InitLogRotator(logFile))
	defer func() {
		LogRotator.Close()
		LogRotator = nil
	}()

	require.DirExists(t, filepath.Dir(logFile))
	BscrLog.Infof("rotator initialized")
}
