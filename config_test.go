// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/sampleconfig"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	btcdchaincfg "github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// testArgs returns arguments pointing the config file and the data and log
// directories into a temporary directory.
func testArgs(t *testing.T, extra ...string) []string {
	dir := t.TempDir()
	args := []string{
		"--configfile=" + filepath.Join(dir, "bgd.conf"),
		"--datadir=" + filepath.Join(dir, "data"),
		"--logdir=" + filepath.Join(dir, "logs"),
	}
	return append(args, extra...)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, _, err := loadConfig(testArgs(t))
	require.NoError(t, err)

	require.Equal(t, chaincfg.MainNetParams.Name, cfg.chainParams.Name)
	require.Equal(t, "mainnet", filepath.Base(cfg.DataDir))
	require.Equal(t, "mainnet", filepath.Base(cfg.LogDir))
	require.Equal(t, defaultDbType, cfg.DbType)
	require.EqualValues(t, 255, cfg.PriorityClamp)
	require.EqualValues(t, 300, cfg.MaxMempool)
	require.EqualValues(t, 1000, cfg.minRelayTxFee)
	require.False(t, cfg.PriorityEngine)
	require.False(t, cfg.Staking)
	require.Zero(t, cfg.reserveBalance)
	require.Zero(t, cfg.splitThreshold)
	require.Nil(t, cfg.coldStakeScript)
	require.True(t, cfg.chainParams.DividendPayouts)

	// The resolved parameters are a copy.
	require.NotSame(t, &chaincfg.MainNetParams, cfg.chainParams)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "bgd.conf")
	contents := "[Application Options]\npriorityengine=1\nmaxmempool=50\n" +
		"regtest=1\n"
	require.NoError(t, os.WriteFile(configFile, []byte(contents), 0600))

	cfg, _, err := loadConfig([]string{
		"--configfile=" + configFile,
		"--datadir=" + filepath.Join(dir, "data"),
		"--maxmempool=75",
	})
	require.NoError(t, err)
	require.True(t, cfg.PriorityEngine)
	require.Equal(t, "regtest", cfg.chainParams.Name)

	// Command line options take precedence over the file.
	require.EqualValues(t, 75, cfg.MaxMempool)
}

func TestCreateDefaultConfigFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "nested", "bgd.conf")
	require.NoError(t, createDefaultConfigFile(dest))

	contents, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Equal(t, sampleconfig.FileContents, string(contents))
}

func TestLoadConfigNetworks(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "mainnet", want: "mainnet"},
		{name: "testnet", args: []string{"--testnet"},
			want: chaincfg.TestNetParams.Name},
		{name: "regtest", args: []string{"--regtest"}, want: "regtest"},
		{name: "simnet", args: []string{"--simnet"},
			want: chaincfg.SimNetParams.Name},
		{name: "two networks", args: []string{"--testnet", "--simnet"},
			wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, _, err := loadConfig(testArgs(t, test.args...))
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, cfg.chainParams.Name)
		})
	}
}

func TestLoadConfigDividendPayouts(t *testing.T) {
	cfg, _, err := loadConfig(testArgs(t, "--dividendpayouts=off"))
	require.NoError(t, err)
	require.False(t, cfg.chainParams.DividendPayouts)
	require.True(t, chaincfg.MainNetParams.DividendPayouts)

	cfg, _, err = loadConfig(testArgs(t, "--dividendpayouts=on"))
	require.NoError(t, err)
	require.True(t, cfg.chainParams.DividendPayouts)

	_, _, err = loadConfig(testArgs(t, "--dividendpayouts=sometimes"))
	require.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"db type", []string{"--dbtype=sqlite"}},
		{"debug level", []string{"--debuglevel=loud"}},
		{"priority clamp", []string{"--priorityclamp=0"}},
		{"mempool size", []string{"--maxmempool=0"}},
		{"relay fee", []string{"--minrelaytxfee=-1"}},
		{"reserve balance", []string{"--reservebalance=abc"}},
		{"split threshold", []string{"--splitthreshold=0.000000001"}},
		{"stake key", []string{"--stakekey=notakey"}},
		{"staking without keys", []string{"--staking"}},
		{"cold staking on mainnet", []string{"--coldstaking=" +
			"00112233445566778899aabbccddeeff00112233"}},
		{"cold staking hash size", []string{"--regtest",
			"--coldstaking=0011"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := loadConfig(testArgs(t, test.args...))
			require.Error(t, err)
		})
	}
}

func TestLoadConfigStaking(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wif, err := btcutil.NewWIF(key, &btcdchaincfg.MainNetParams, true)
	require.NoError(t, err)

	owner := "00112233445566778899aabbccddeeff00112233"
	cfg, _, err := loadConfig(testArgs(t, "--regtest", "--staking",
		"--stakekey="+wif.String(), "--reservebalance=12.5",
		"--splitthreshold=100", "--coldstaking="+owner))
	require.NoError(t, err)

	require.True(t, cfg.Staking)
	require.Len(t, cfg.stakeKeys, 1)
	require.Equal(t, key.Serialize(), cfg.stakeKeys[0].Serialize())
	require.EqualValues(t, 1250000000, cfg.reserveBalance)
	require.EqualValues(t, 10000000000, cfg.splitThreshold)

	ownerHash, err := hex.DecodeString(owner)
	require.NoError(t, err)
	require.Equal(t, ownerHash, stake.ExtractPubKeyHash(cfg.coldStakeScript))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		str     string
		want    int64
		wantErr bool
	}{
		{str: "0", want: 0},
		{str: "1", want: 100000000},
		{str: "0.00001", want: 1000},
		{str: "21000000", want: 2100000000000000},
		{str: "0.00000001", want: 1},
		{str: "0.000000001", wantErr: true},
		{str: "-0.5", wantErr: true},
		{str: "21000000.00000001", wantErr: true},
		{str: "ten", wantErr: true},
	}

	for _, test := range tests {
		got, err := parseAmount("test", test.str)
		if test.wantErr {
			require.Error(t, err, test.str)
			continue
		}
		require.NoError(t, err, test.str)
		require.Equal(t, test.want, got, test.str)
	}
}
