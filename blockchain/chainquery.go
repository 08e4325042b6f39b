// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChainTip represents a tip of a chain in the block index.
type ChainTip struct {
	Hash      chainhash.Hash
	Height    int32
	BranchLen int32
	Status    string
}

// ChainTips returns information about all known chain tips.  The main chain
// tip has a branch length of zero.
//
// This function is safe for concurrent access.
func (b *BlockChain) ChainTips() []ChainTip {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	nodes := b.index.ChainTips()
	tips := make([]ChainTip, 0, len(nodes))
	for _, n := range nodes {
		tip := ChainTip{
			Hash:      n.hash,
			Height:    n.height,
			BranchLen: n.height - b.bestChain.FindFork(n).height,
		}
		status := b.index.NodeStatus(n)
		switch {
		case b.bestChain.Contains(n):
			tip.Status = "active"
		case status.KnownInvalid():
			tip.Status = "invalid"
		case status.KnownValid():
			tip.Status = "valid-fork"
		default:
			tip.Status = "valid-headers"
		}
		tips = append(tips, tip)
	}
	return tips
}

// HaveBlock returns whether or not the chain instance has the block
// represented by the passed hash.  This includes checking the various places
// a block can be like part of the main chain or on a side chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) HaveBlock(hash *chainhash.Hash) bool {
	return b.index.HaveBlock(hash)
}

// MainChainHasBlock returns whether or not the block with the given hash is in
// the main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) MainChainHasBlock(hash *chainhash.Hash) bool {
	node := b.index.LookupNode(hash)
	return node != nil && b.bestChain.Contains(node)
}

// BlockByHash returns the block from the main chain or a side chain with the
// given hash.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockByHash(hash *chainhash.Hash) (*bgutil.Block, error) {
	node := b.index.LookupNode(hash)
	if node == nil {
		return nil, fmt.Errorf("block %s is not known", hash)
	}
	block, err := b.fetchBlockByHash(hash)
	if err != nil {
		return nil, err
	}
	block.SetHeight(node.height)
	return block, nil
}

// BlockHashByHeight returns the hash of the block at the given height in the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) BlockHashByHeight(height int32) (*chainhash.Hash, error) {
	node := b.bestChain.NodeByHeight(height)
	if node == nil {
		return nil, fmt.Errorf("no block at height %d exists", height)
	}
	return &node.hash, nil
}

// StakeContext returns the kernel context for a block built on the current
// tip together with the proof of stake difficulty it must meet.
//
// This function is safe for concurrent access.
func (b *BlockChain) StakeContext() (*stake.PrevBlock, uint32) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	tip := b.bestChain.Tip()
	return tip.prevBlock(), calcNextRequiredDifficulty(b.chainParams, tip,
		true)
}

// DividendPool returns the undistributed dividend pool as of the main chain
// tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) DividendPool() int64 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.dividends.Pool()
}

// StakeEntry returns the stake registry entry of key as of the main chain tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) StakeEntry(key dividend.Key) (dividend.Entry, bool) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.dividends.Entry(key)
}

// Stakes returns every stake registry entry sorted by key.
//
// This function is safe for concurrent access.
func (b *BlockChain) Stakes() []dividend.Stake {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.dividends.Stakes()
}

// SettledBalance returns the cumulative dividend settled to key.  It
// implements the dividend.SettledSource interface.
//
// This function is safe for concurrent access.
func (b *BlockChain) SettledBalance(key dividend.Key) int64 {
	entry, ok := b.StakeEntry(key)
	if !ok {
		return 0
	}
	return entry.Settled
}

// PendingDividend returns the payout key would receive at the next quarter
// boundary if the pool and the registry stayed as they are.
//
// This function is safe for concurrent access.
func (b *BlockChain) PendingDividend(key dividend.Key) int64 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.dividends.PendingPayout(key, b.bestChain.Tip().height)
}

// NextDividendHeight returns the height of the next quarter boundary after
// the main chain tip.
//
// This function is safe for concurrent access.
func (b *BlockChain) NextDividendHeight() int32 {
	return dividend.NextBoundary(b.chainParams, b.bestChain.Height())
}

// DividendSchedule returns a preview of the payouts at the next quarter
// boundary computed from the current registry and pool.
//
// This function is safe for concurrent access.
func (b *BlockChain) DividendSchedule() []dividend.PayoutEstimate {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	if !b.chainParams.DividendPayouts {
		return nil
	}
	next := dividend.NextBoundary(b.chainParams, b.bestChain.Tip().height)
	return dividend.Schedule(b.chainParams, b.dividends.Stakes(), next,
		b.dividends.Pool())
}

// DividendSnapshot returns the quarter snapshot recorded at height on the
// main chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) DividendSnapshot(height int32) (*dividend.Snapshot, bool) {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.dividends.Snapshot(height)
}

// DividendSnapshotHeights returns the heights of every quarter snapshot on the
// main chain in ascending order.
//
// This function is safe for concurrent access.
func (b *BlockChain) DividendSnapshotHeights() []int32 {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()
	return b.dividends.SnapshotHeights()
}

// NextBlockPayouts returns the quarter payouts a block built on the current
// tip with the given dividend contribution must carry.  The height of the
// contribution is set to the next block height.
//
// This function is safe for concurrent access.
func (b *BlockChain) NextBlockPayouts(c *dividend.BlockContribution) []dividend.Payout {
	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	c.Height = b.bestChain.Tip().height + 1
	return b.dividends.BlockPayouts(c)
}

// ClaimLedger returns the ledger of claims against settled dividends.
func (b *BlockChain) ClaimLedger() *dividend.ClaimLedger {
	return b.claims
}

// ChainParams returns the network parameters of the chain.
func (b *BlockChain) ChainParams() *chaincfg.Params {
	return b.chainParams
}
