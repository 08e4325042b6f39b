// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/database/engine"
	"github.com/bitgoldsuite/bgd/database/engine/leveldb"
	"github.com/bitgoldsuite/bgd/database/engine/pebbledb"
	"github.com/bitgoldsuite/bgd/internal/log"
	"github.com/bitgoldsuite/bgd/mempool"
	"github.com/bitgoldsuite/bgd/mining"
	"github.com/bitgoldsuite/bgd/mining/staker"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// blockDbNamePrefix is the prefix for the block database name.  The
	// database type is appended to this value to form the full block
	// database name.
	blockDbNamePrefix = "blocks"

	// dbOpenAttempts is the number of times opening the block database is
	// tried before giving up.  A previous instance may still be releasing
	// the database lock.
	dbOpenAttempts = 3

	// statsInterval is how often the staking and mempool counters are
	// logged.
	statsInterval = 10 * time.Minute
)

// server provides the block chain, the memory pool and the staker of a bgd
// node and routes chain notifications between them.
type server struct {
	started  int32
	shutdown int32

	chainParams *chaincfg.Params
	db          engine.Engine
	chain       *blockchain.BlockChain
	txMemPool   *mempool.TxPool
	staker      *staker.Staker

	wg   sync.WaitGroup
	quit chan struct{}
}

// blockDbPath returns the path to the block database given a database type.
func blockDbPath(dataDir, dbType string) string {
	return filepath.Join(dataDir, blockDbNamePrefix+"_"+dbType)
}

// openEngine opens the database of the given type at dbPath, creating it when
// it does not exist yet.
func openEngine(dbType, dbPath string) (engine.Engine, error) {
	_, err := os.Stat(dbPath)
	create := os.IsNotExist(err)

	switch dbType {
	case "leveldb":
		return leveldb.NewDB(dbPath, create)
	case "pebble":
		return pebbledb.NewDB(dbPath, create, pebbledb.DefaultCache,
			pebbledb.DefaultHandles)
	}
	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

// loadBlockDB loads (or creates when needed) the block database taking into
// account the selected database backend.
func loadBlockDB(dataDir, dbType string) (engine.Engine, error) {
	dbPath := blockDbPath(dataDir, dbType)
	log.BgdLog.Infof("Loading block database from '%s'", dbPath)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, err
	}

	var db engine.Engine
	err := retry.Do(func() error {
		var err error
		db, err = openEngine(dbType, dbPath)
		return err
	},
		retry.Attempts(dbOpenAttempts),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.BcdbLog.Warnf("Unable to open block database (attempt "+
				"%d): %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	log.BgdLog.Info("Block database loaded")
	return db, nil
}

// handleChainNotification forwards chain events to the memory pool and the
// staker and logs dividend payouts.
func (s *server) handleChainNotification(n *blockchain.Notification) {
	switch n.Type {
	case blockchain.NTBlockConnected, blockchain.NTBlockDisconnected:
		s.txMemPool.HandleChainNotification(n)
		if s.staker != nil {
			s.staker.HandleChainNotification(n)
		}

	case blockchain.NTDividendPayout:
		snap, ok := n.Data.(*dividend.Snapshot)
		if !ok {
			log.SrvrLog.Warnf("Dividend payout notification is not a " +
				"snapshot")
			return
		}
		log.SrvrLog.Infof("Paid %v in dividends to %d %s at height %d "+
			"(pool %v -> %v)", btcutil.Amount(snap.Distributed),
			len(snap.Payouts), log.PickNoun(uint64(len(snap.Payouts)),
				"holder", "holders"), snap.Height,
			btcutil.Amount(snap.PoolBefore), btcutil.Amount(snap.PoolAfter))
	}
}

// statsHandler periodically logs the staking counters and the pool size.
//
// It must be run as a goroutine.
func (s *server) statsHandler() {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

out:
	for {
		select {
		case <-ticker.C:
			best := s.chain.BestSnapshot()
			log.SrvrLog.Infof("Height %d, %d %s in the mempool",
				best.Height, s.txMemPool.Count(),
				log.PickNoun(uint64(s.txMemPool.Count()),
					"transaction", "transactions"))
			if s.staker != nil && s.staker.IsStaking() {
				stats := s.staker.Stats()
				log.SrvrLog.Infof("Staked %d of %d kernel searches "+
					"for %v in rewards", stats.Successes,
					stats.Attempts, btcutil.Amount(stats.Rewards))
			}

		case <-s.quit:
			break out
		}
	}

	s.wg.Done()
}

// Start begins the staker when it is enabled and the housekeeping goroutines.
func (s *server) Start() {
	// Already started?
	if atomic.AddInt32(&s.started, 1) != 1 {
		return
	}

	log.SrvrLog.Trace("Starting server")

	s.wg.Add(1)
	go s.statsHandler()

	if s.staker != nil {
		s.staker.Start()
	}
}

// Stop gracefully shuts down the server by stopping and disconnecting all
// of its subsystems.
func (s *server) Stop() error {
	// Make sure this only happens once.
	if atomic.AddInt32(&s.shutdown, 1) != 1 {
		log.SrvrLog.Infof("Server is already in the process of shutting down")
		return nil
	}

	log.SrvrLog.Warnf("Server shutting down")

	if s.staker != nil {
		s.staker.Stop()
	}

	// Signal the remaining goroutines to quit.
	close(s.quit)
	return nil
}

// WaitForShutdown blocks until the main listener and peer handlers are stopped.
func (s *server) WaitForShutdown() {
	s.wg.Wait()
}

// newServer returns a new bgd server configured to run the chain stored in
// db under the options of cfg.
func newServer(cfg *config, db engine.Engine) (*server, error) {
	chainParams := cfg.chainParams
	chain, err := blockchain.New(&blockchain.Config{
		DB:          db,
		ChainParams: chainParams,
		TimeSource:  blockchain.NewMedianTime(),
	})
	if err != nil {
		return nil, err
	}

	s := server{
		chainParams: chainParams,
		db:          db,
		chain:       chain,
		quit:        make(chan struct{}),
	}

	s.txMemPool = mempool.New(&mempool.Config{
		Policy: mempool.Policy{
			MaxTxVersion:   mempool.MaxStandardTxVersion,
			AcceptNonStd:   cfg.RelayNonStd,
			MinRelayTxFee:  cfg.minRelayTxFee,
			MaxPoolSize:    cfg.MaxMempool * 1000 * 1000,
			PriorityEngine: cfg.PriorityEngine,
			MaxPriority:    cfg.PriorityClamp,
		},
		ChainParams: chainParams,
		FetchUtxoView: func(tx *btcutil.Tx) (*blockchain.UtxoViewpoint, error) {
			return chain.FetchUtxoView(tx), nil
		},
		BestHeight: func() int32 { return chain.BestSnapshot().Height },
	})

	if cfg.Staking {
		tmplGenerator := mining.NewBlkTmplGenerator(&mining.Policy{
			BlockMaxSize: mining.DefaultBlockMaxSize,
			TxMinFreeFee: cfg.minRelayTxFee,
		}, chainParams, s.txMemPool, chain)

		source, err := newChainStakeSource(chain, cfg.stakeKeys)
		if err != nil {
			return nil, err
		}
		s.staker, err = staker.New(&staker.Config{
			ChainParams:            chainParams,
			Chain:                  chain,
			BlockTemplateGenerator: tmplGenerator,
			StakeSource:            source,
			Signer:                 staker.NewKeySigner(cfg.stakeKeys...),
			ProcessBlock:           chain.ProcessBlock,
			ReserveBalance:         cfg.reserveBalance,
			SplitThreshold:         cfg.splitThreshold,
			PayScript:              cfg.coldStakeScript,
			NumWorkers:             cfg.StakeWorkers,
		})
		if err != nil {
			return nil, err
		}
	}

	chain.Subscribe(s.handleChainNotification)

	best := chain.BestSnapshot()
	log.SrvrLog.Infof("Chain state (height %d, hash %v, pool %v)",
		best.Height, best.Hash, btcutil.Amount(chain.DividendPool()))

	return &s, nil
}
