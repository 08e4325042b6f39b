// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/database/engine/leveldb"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

// testServerConfig returns the options of a regression test node.
func testServerConfig() *config {
	params := chaincfg.RegressionNetParams
	return &config{
		PriorityClamp: 255,
		MaxMempool:    300,
		chainParams:   &params,
		minRelayTxFee: 1000,
	}
}

func TestLoadBlockDB(t *testing.T) {
	for _, dbType := range knownDbTypes {
		t.Run(dbType, func(t *testing.T) {
			dataDir := filepath.Join(t.TempDir(), "data")

			db, err := loadBlockDB(dataDir, dbType)
			require.NoError(t, err)
			require.NoError(t, db.Close())

			_, err = os.Stat(blockDbPath(dataDir, dbType))
			require.NoError(t, err)

			// Reopening an existing database must not try to create
			// it again.
			db, err = loadBlockDB(dataDir, dbType)
			require.NoError(t, err)
			require.NoError(t, db.Close())
		})
	}
}

func TestOpenEngineUnsupported(t *testing.T) {
	_, err := openEngine("sqlite", filepath.Join(t.TempDir(), "blocks"))
	require.Error(t, err)
}

func TestNewServer(t *testing.T) {
	db, err := leveldb.NewMemDB()
	require.NoError(t, err)
	defer db.Close()

	s, err := newServer(testServerConfig(), db)
	require.NoError(t, err)
	require.Nil(t, s.staker)
	require.EqualValues(t, 0, s.chain.BestSnapshot().Height)
	require.Equal(t, 0, s.txMemPool.Count())

	s.Start()
	require.NoError(t, s.Stop())
	s.WaitForShutdown()

	// Stopping again is a no-op.
	require.NoError(t, s.Stop())
}

func TestNewServerStaking(t *testing.T) {
	db, err := leveldb.NewMemDB()
	require.NoError(t, err)
	defer db.Close()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	cfg := testServerConfig()
	cfg.Staking = true
	cfg.stakeKeys = []*btcec.PrivateKey{key}
	cfg.StakeWorkers = 1

	s, err := newServer(cfg, db)
	require.NoError(t, err)
	require.NotNil(t, s.staker)

	s.Start()
	require.True(t, s.staker.IsStaking())
	require.NoError(t, s.Stop())
	s.WaitForShutdown()
	require.False(t, s.staker.IsStaking())
}

func TestNewServerColdStakingRefused(t *testing.T) {
	db, err := leveldb.NewMemDB()
	require.NoError(t, err)
	defer db.Close()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	params := chaincfg.MainNetParams
	cfg := testServerConfig()
	cfg.chainParams = &params
	cfg.Staking = true
	cfg.stakeKeys = []*btcec.PrivateKey{key}
	cfg.coldStakeScript = make([]byte, 25)

	_, err = newServer(cfg, db)
	require.Error(t, err)
}

func TestHandleChainNotification(t *testing.T) {
	db, err := leveldb.NewMemDB()
	require.NoError(t, err)
	defer db.Close()

	s, err := newServer(testServerConfig(), db)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		s.handleChainNotification(&blockchain.Notification{
			Type: blockchain.NTDividendPayout,
			Data: &dividend.Snapshot{
				Height:      90,
				PoolBefore:  1000,
				Distributed: 100,
				PoolAfter:   900,
				Payouts:     make([]dividend.Payout, 2),
			},
		})
		s.handleChainNotification(&blockchain.Notification{
			Type: blockchain.NTDividendPayout,
			Data: "not a snapshot",
		})
		s.handleChainNotification(&blockchain.Notification{
			Type: blockchain.NTReorganization,
		})
	})
}
