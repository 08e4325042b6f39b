// Copyright (c) 2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package log

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    map[string]btclog.Level
		wantErr bool
	}{{
		name:  "single level",
		level: "debug",
		want: map[string]btclog.Level{
			"CHAN": btclog.LevelDebug,
			"STAK": btclog.LevelDebug,
		},
	}, {
		name:  "subsystem pairs",
		level: "STAK=trace,TXMP=warn",
		want: map[string]btclog.Level{
			"STAK": btclog.LevelTrace,
			"TXMP": btclog.LevelWarn,
		},
	}, {
		name:    "invalid level",
		level:   "loud",
		wantErr: true,
	}, {
		name:    "unknown subsystem",
		level:   "PEER=debug",
		wantErr: true,
	}, {
		name:    "missing pair separator",
		level:   "STAK=debug,TXMP",
		wantErr: true,
	}, {
		name:    "invalid pair level",
		level:   "STAK=loud",
		wantErr: true,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			SetLogLevels("info")
			err := ParseAndSetDebugLevels(test.level)
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for subsys, level := range test.want {
				require.Equal(t, level, SubsystemLoggers[subsys].Level(),
					subsys)
			}
		})
	}
}

func TestSupportedSubsystems(t *testing.T) {
	require.Equal(t, []string{"BCDB", "BGD", "CHAN", "DIVD", "MINR",
		"SRVR", "STAK", "TXMP"}, SupportedSubsystems())
}

func TestInitLogRotator(t *testing.T) {
	defer func() { LogRotator = nil }()

	logFile := filepath.Join(t.TempDir(), "logs", "bgd.log")
	require.NoError(t, InitLogRotator(logFile))
	require.NotNil(t, LogRotator)
	BgdLog.Infof("rotator ready")
	require.NoError(t, LogRotator.Close())
}

func TestPickNoun(t *testing.T) {
	require.Equal(t, "block", PickNoun(1, "block", "blocks"))
	require.Equal(t, "blocks", PickNoun(0, "block", "blocks"))
	require.Equal(t, "blocks", PickNoun(2, "block", "blocks"))
}
