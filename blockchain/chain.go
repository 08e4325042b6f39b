// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/database/engine"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BestState houses information about the current best block and other info
// related to the state of the main chain as it exists from the point of view
// of the current best block.
//
// The BestSnapshot method can be used to obtain access to this information
// in a concurrent safe manner and the data will not be changed out from under
// the caller when chain state changes occur as the function name implies.
// However, the returned snapshot must be treated as immutable since it is
// shared by all callers.
type BestState struct {
	Hash         chainhash.Hash // The hash of the block.
	Height       int32          // The height of the block.
	Bits         uint32         // The difficulty bits of the block.
	NumTxns      uint64         // The number of txns in the block.
	MedianTime   time.Time      // Median time as per CalcPastMedianTime.
	Timestamp    time.Time      // The timestamp of the block.
	ProofOfStake bool           // Whether the block is proof of stake.
	DividendPool int64          // The undistributed dividend pool.
}

// newBestState returns a new best stats instance for the given parameters.
func newBestState(node *blockNode, numTxns uint64, pool int64) *BestState {
	return &BestState{
		Hash:         node.hash,
		Height:       node.height,
		Bits:         node.bits,
		NumTxns:      numTxns,
		MedianTime:   node.CalcPastMedianTime(),
		Timestamp:    time.Unix(node.timestamp, 0),
		ProofOfStake: node.proofOfStake,
		DividendPool: pool,
	}
}

// BlockChain provides functions for working with the block chain.  It includes
// functionality such as rejecting duplicate blocks, ensuring blocks follow all
// rules, stake kernel validation, dividend accounting, and best chain
// selection with reorganization.
type BlockChain struct {
	// The following fields are set when the instance is created and can't
	// be changed afterwards, so there is no need to protect them with a
	// separate mutex.
	db          engine.Engine
	chainParams *chaincfg.Params
	timeSource  MedianTimeSource

	// chainLock protects concurrent access to the vast majority of the
	// fields in this struct below this point.
	chainLock sync.RWMutex

	// index houses the entire block index in memory.  The block index is
	// a tree-shaped structure.
	//
	// bestChain tracks the current active chain by making use of an
	// efficient chain view into the block index.
	index     *blockIndex
	bestChain *chainView

	// utxos is the unspent output set of the main chain tip.
	utxos utxoSet

	// dividends is the dividend pool, stake registry and snapshot history
	// of the main chain tip.
	dividends *dividend.State

	// seenStakes tracks the kernels claimed by accepted blocks and
	// duplicateStakes counts the blocks that claimed one again.
	seenStakes      *stake.SeenStakes
	duplicateStakes int64

	// claims tracks the claimed portion of settled dividends.
	claims *dividend.ClaimLedger

	// These fields are related to handling of the best state snapshot.
	// The state lock is used to protect the snapshot.
	stateLock     sync.RWMutex
	stateSnapshot *BestState

	// pendingNtfns holds the notifications raised while the chain lock is
	// held.  They are delivered once the lock is released, so subscribers
	// only ever observe committed chain state.  Protected by chainLock.
	pendingNtfns []Notification

	// The notifications field stores a slice of callbacks to be executed on
	// certain blockchain events.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// tipView returns an empty view on top of the committed utxo set positioned
// at the current tip.
//
// This function MUST be called with the chain state lock held.
func (b *BlockChain) tipView() *UtxoViewpoint {
	view := newUtxoViewpoint(b.utxos)
	view.SetBestHash(&b.bestChain.Tip().hash)
	return view
}

// updateStateSnapshot replaces the best state snapshot with one describing
// the current tip.
//
// This function MUST be called with the chain state lock held.
func (b *BlockChain) updateStateSnapshot(numTxns uint64) {
	state := newBestState(b.bestChain.Tip(), numTxns, b.dividends.Pool())
	b.stateLock.Lock()
	b.stateSnapshot = state
	b.stateLock.Unlock()
}

// BestSnapshot returns information about the current best chain block and
// related state as of the current point in time.  The returned instance must
// be treated as immutable since it is shared by all callers.
//
// This function is safe for concurrent access.
func (b *BlockChain) BestSnapshot() *BestState {
	b.stateLock.RLock()
	snapshot := b.stateSnapshot
	b.stateLock.RUnlock()
	return snapshot
}

// getReorganizeNodes finds the fork point between the main chain and the passed
// node and returns a list of block nodes that would need to be detached from
// the main chain and a list of block nodes that would need to be attached to
// the fork point (which will be the end of the main chain after detaching the
// returned list of block nodes) in order to reorganize the chain such that the
// passed node is the new end of the main chain.  The lists will be empty if the
// passed node is not on a side chain.
//
// This function MUST be called with the chain state lock held (for reads).
func (b *BlockChain) getReorganizeNodes(node *blockNode) (*list.List, *list.List) {
	attachNodes := list.New()
	detachNodes := list.New()

	// Do not reorganize to a known invalid chain.  Ancestors deeper than
	// the direct parent are checked below.  This is unlikely to occur since
	// invalid blocks and their descendants are flagged when they fail.
	if b.index.NodeStatus(node.parent).KnownInvalid() {
		b.index.SetStatusFlags(node, statusInvalidAncestor)
		return detachNodes, attachNodes
	}

	// Find the fork point (if any) adding each block to the list of nodes
	// to attach to the main tree.  Push them onto the list in reverse order
	// so they are attached in the appropriate order when iterating the list
	// later.
	forkNode := b.bestChain.FindFork(node)
	invalidChain := false
	for n := node; n != nil && n != forkNode; n = n.parent {
		if b.index.NodeStatus(n).KnownInvalid() {
			invalidChain = true
			break
		}
		attachNodes.PushFront(n)
	}

	// If any of the node's ancestors are invalid, unwind attachNodes,
	// marking each one as invalid for future reference.
	if invalidChain {
		var next *list.Element
		for e := attachNodes.Front(); e != nil; e = next {
			next = e.Next()
			n := attachNodes.Remove(e).(*blockNode)
			b.index.SetStatusFlags(n, statusInvalidAncestor)
		}
		return detachNodes, attachNodes
	}

	// Start from the end of the main chain and work backwards until the
	// common ancestor adding each block to the list of nodes to detach from
	// the main chain.
	for n := b.bestChain.Tip(); n != nil && n != forkNode; n = n.parent {
		detachNodes.PushBack(n)
	}

	return detachNodes, attachNodes
}

// connectBlock handles connecting the passed node/block to the end of the main
// (best) chain.
//
// The view must hold the changes made by connecting the block and stxos the
// outputs it spent, both as produced by checkConnectBlock.  Nothing is
// mutated when the block cannot be persisted.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBlock(node *blockNode, block *bgutil.Block,
	view *UtxoViewpoint, stxos []SpentTxOut,
	contribution *dividend.BlockContribution) error {

	// Make sure it's extending the end of the best chain.
	prevHash := &block.MsgBlock().Header.PrevBlock
	if !prevHash.IsEqual(&b.bestChain.Tip().hash) {
		return AssertError("connectBlock must be called with a block " +
			"that extends the main chain")
	}

	// Apply the dividend accounting first so a quarter snapshot can be
	// written in the same database transaction as the new tip.
	undo, payouts := b.dividends.ApplyBlock(contribution)
	var snap *dividend.Snapshot
	if undo.Snapshot {
		snap, _ = b.dividends.Snapshot(node.height)
	}
	if err := b.dbConnectBlock(node, snap); err != nil {
		if rerr := b.dividends.Revert(undo); rerr != nil {
			log.Errorf("Unable to revert dividend state of block %v: %v",
				node.hash, rerr)
		}
		return err
	}

	view.commit()
	node.stxos = stxos
	node.dividendUndo = undo
	b.index.SetStatusFlags(node, statusValid)

	// This node is now the end of the best chain.
	b.bestChain.SetTip(node)
	block.SetHeight(node.height)
	b.updateStateSnapshot(uint64(len(block.MsgBlock().Transactions)))

	if len(payouts) > 0 {
		log.Infof("Block %v (height %d) paid %d dividends totalling %d",
			node.hash, node.height, len(payouts),
			dividend.TotalPaid(payouts))
	}

	// Notify the caller that the block was connected to the main chain.
	// The caller would typically want to react with actions such as
	// updating wallets.
	b.queueNotification(NTBlockConnected, block)
	if snap != nil {
		b.queueNotification(NTDividendPayout, snap)
	}

	return nil
}

// disconnectBlock handles disconnecting the passed node/block from the end of
// the main (best) chain.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) disconnectBlock(node *blockNode, block *bgutil.Block) error {
	// Make sure the node being disconnected is the end of the best chain.
	if node != b.bestChain.Tip() {
		return AssertError("disconnectBlock must be called with the " +
			"block at the end of the main chain")
	}
	if node.parent == nil {
		return AssertError("disconnectBlock called on the genesis block")
	}

	view := b.tipView()
	err := view.disconnectTransactions(block, node,
		b.chainParams.DividendPayouts, node.stxos)
	if err != nil {
		return err
	}

	if err := b.dbDisconnectBlock(node); err != nil {
		return err
	}

	view.commit()
	if err := b.dividends.Revert(node.dividendUndo); err != nil {
		return AssertError(fmt.Sprintf("unable to revert dividend state "+
			"of block %v: %v", node.hash, err))
	}
	node.stxos = nil
	node.dividendUndo = nil

	// This node's parent is now the end of the best chain.
	b.bestChain.SetTip(node.parent)
	parentTxns := uint64(0)
	if parent, err := b.fetchBlockByHash(&node.parent.hash); err == nil {
		parentTxns = uint64(len(parent.MsgBlock().Transactions))
	}
	b.updateStateSnapshot(parentTxns)

	// Notify the caller that the block was disconnected from the main
	// chain.  The caller would typically want to react with actions such as
	// updating wallets.
	b.queueNotification(NTBlockDisconnected, block)

	return nil
}

// attachData holds the result of validating a block to attach during a
// reorganization.
type attachData struct {
	node         *blockNode
	block        *bgutil.Block
	stxos        []SpentTxOut
	contribution *dividend.BlockContribution
}

// reorganizeChain reorganizes the block chain by disconnecting the nodes in the
// detachNodes list and connecting the nodes in the attach list.  It expects
// that the lists are already in the correct order and are in sync with the
// end of the current best chain.  Specifically, nodes that are being
// disconnected must be in reverse order (think of popping them off the end of
// the chain) and nodes the are being attached must be in forwards order
// (think pushing them onto the end of the chain).
//
// Every block to attach is validated against a scratch copy of the chain
// state before anything is modified, so a failure leaves the chain untouched.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) reorganizeChain(detachNodes, attachNodes *list.List) error {
	payouts := b.chainParams.DividendPayouts
	oldTip := b.bestChain.Tip()

	// Disconnect the blocks to detach from a scratch view and dividend
	// state, then evaluate each block to attach on top of them.
	view := b.tipView()
	state := b.dividends.Clone()
	detachBlocks := make([]*bgutil.Block, 0, detachNodes.Len())
	for e := detachNodes.Front(); e != nil; e = e.Next() {
		n := e.Value.(*blockNode)
		block, err := b.fetchBlockByHash(&n.hash)
		if err != nil {
			return err
		}
		err = view.disconnectTransactions(block, n, payouts, n.stxos)
		if err != nil {
			return err
		}
		if err := state.Revert(n.dividendUndo); err != nil {
			return AssertError(fmt.Sprintf("unable to revert dividend "+
				"state of block %v: %v", n.hash, err))
		}
		detachBlocks = append(detachBlocks, block)
	}

	attach := make([]attachData, 0, attachNodes.Len())
	for e := attachNodes.Front(); e != nil; e = e.Next() {
		n := e.Value.(*blockNode)
		block, err := b.fetchBlockByHash(&n.hash)
		if err != nil {
			return err
		}

		log.Debugf("Evaluating block %v (height %v) for correctness",
			n.hash, n.height)
		var stxos []SpentTxOut
		contribution, err := b.checkConnectBlock(n, block, view, state,
			&stxos)
		if err != nil {
			if _, ok := err.(RuleError); ok {
				b.index.SetStatusFlags(n, statusValidateFailed)
				b.index.markDescendantsInvalid(n)
			}
			return err
		}
		state.ApplyBlock(contribution)
		attach = append(attach, attachData{n, block, stxos, contribution})
	}
	newTip := attachNodes.Back().Value.(*blockNode)
	log.Debugf("New best chain validation completed successfully, " +
		"commencing with the reorganization.")

	// Announce the reorganization ahead of the disconnect and connect
	// notifications it causes.
	b.queueNotification(NTReorganization, &ReorganizationNtfnsData{
		OldHash:   oldTip.hash,
		OldHeight: oldTip.height,
		NewHash:   newTip.hash,
		NewHeight: newTip.height,
	})

	// Disconnect blocks from the main chain.
	i := 0
	for e := detachNodes.Front(); e != nil; e = e.Next() {
		n := e.Value.(*blockNode)
		if err := b.disconnectBlock(n, detachBlocks[i]); err != nil {
			return err
		}
		i++
	}

	// Connect the new best chain blocks.
	for _, a := range attach {
		view := b.tipView()
		err := view.connectTransactions(a.block, a.node, payouts, nil)
		if err != nil {
			return err
		}
		err = b.connectBlock(a.node, a.block, view, a.stxos, a.contribution)
		if err != nil {
			return err
		}
	}

	// Log the point where the chain forked and old and new best chain
	// heads.
	firstAttachNode := attachNodes.Front().Value.(*blockNode)
	log.Infof("REORGANIZE: Chain forks at %v (height %v)",
		firstAttachNode.parent.hash, firstAttachNode.parent.height)
	log.Infof("REORGANIZE: Old best chain head was %v (height %v)",
		oldTip.hash, oldTip.height)
	log.Infof("REORGANIZE: New best chain head is %v (height %v)",
		newTip.hash, newTip.height)

	return nil
}

// betterTip returns whether node should replace tip as the end of the main
// chain: more cumulative work wins and equal work is broken in favour of the
// lower block hash.
func betterTip(node, tip *blockNode) bool {
	switch node.workSum.Cmp(tip.workSum) {
	case 1:
		return true
	case 0:
		return HashToBig(&node.hash).Cmp(HashToBig(&tip.hash)) < 0
	}
	return false
}

// connectBestChain handles connecting the passed block to the chain while
// respecting proper chain selection according to the chain with the most
// proof of work.  In the typical case, the new block simply extends the main
// chain.  However, it may also be extending (or creating) a side chain (fork)
// which may or may not end up becoming the main chain depending on which fork
// cumulatively has the most proof of work.  It returns whether or not the
// block ended up on the main chain (either due to extending the main chain or
// causing a reorganization to become the main chain).
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) connectBestChain(node *blockNode, block *bgutil.Block) (bool, error) {
	// We are extending the main (best) chain with a new block.  This is the
	// most common case.
	parentHash := &block.MsgBlock().Header.PrevBlock
	if parentHash.IsEqual(&b.bestChain.Tip().hash) {
		// Perform several checks to verify the block can be connected
		// to the main chain without violating any rules and without
		// actually connecting the block.
		view := b.tipView()
		var stxos []SpentTxOut
		contribution, err := b.checkConnectBlock(node, block, view,
			b.dividends, &stxos)
		if err != nil {
			if _, ok := err.(RuleError); ok {
				b.index.SetStatusFlags(node, statusValidateFailed)
			}
			return false, err
		}

		// Connect the block to the main chain.
		err = b.connectBlock(node, block, view, stxos, contribution)
		if err != nil {
			return false, err
		}

		return true, nil
	}

	// We're extending (or creating) a side chain, but the cumulative
	// work for this new side chain is not enough to make it the new chain.
	if !betterTip(node, b.bestChain.Tip()) {
		// Log information about how the block is forking the chain.
		fork := b.bestChain.FindFork(node)
		if fork.hash.IsEqual(parentHash) {
			log.Infof("FORK: Block %v forks the chain at height %d"+
				"/block %v, but does not cause a reorganize",
				node.hash, fork.height, fork.hash)
		} else {
			log.Infof("EXTEND FORK: Block %v extends a side chain "+
				"which forks the chain at height %d/block %v",
				node.hash, fork.height, fork.hash)
		}

		return false, nil
	}

	// We're extending (or creating) a side chain and the cumulative work
	// for this new side chain is more than the old best chain, so this side
	// chain needs to become the main chain.  In order to accomplish that,
	// find the common ancestor of both sides of the fork, disconnect the
	// blocks that form the (now) old fork from the main chain, and attach
	// the blocks that form the new chain to the main chain starting at the
	// common ancenstor (the point where the chain forked).
	detachNodes, attachNodes := b.getReorganizeNodes(node)
	if attachNodes.Len() == 0 {
		str := fmt.Sprintf("block %v builds on an invalid chain",
			node.hash)
		return false, ruleError(ErrInvalidAncestor, str)
	}

	// Reorganize the chain.
	log.Infof("REORGANIZE: Block %v is causing a reorganize.", node.hash)
	if err := b.reorganizeChain(detachNodes, attachNodes); err != nil {
		return false, err
	}

	// Either getReorganizeNodes or reorganizeChain could have made unsaved
	// changes to the block index, so the best chain tip is reported.
	return node == b.bestChain.Tip(), nil
}

// Config is a descriptor which specifies the blockchain instance configuration.
type Config struct {
	// DB defines the database which houses the blocks and will be used to
	// store all metadata created by this package such as the main chain
	// heights, dividend snapshots and claims.
	//
	// This field is required.
	DB engine.Engine

	// ChainParams identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	ChainParams *chaincfg.Params

	// TimeSource defines the median time source to use for things such as
	// block processing and determining whether or not the chain is current.
	//
	// The caller is expected to keep a reference to the time source as well
	// and add time samples from other peers on the network so the local
	// time is adjusted to be in agreement with other peers.
	//
	// A system clock source is used when it is nil.
	TimeSource MedianTimeSource

	// SeenStakesSize is the number of claimed kernels remembered to detect
	// duplicate stakes.  The default is used when it is zero.
	SeenStakesSize uint
}

// New returns a BlockChain instance using the provided configuration details.
// The chain state is loaded from the database, replaying every stored main
// chain block, or initialized with the genesis block when the database is
// empty.
func New(config *Config) (*BlockChain, error) {
	// Enforce required config fields.
	if config.DB == nil {
		return nil, AssertError("blockchain.New database is nil")
	}
	if config.ChainParams == nil {
		return nil, AssertError("blockchain.New chain parameters nil")
	}

	timeSource := config.TimeSource
	if timeSource == nil {
		timeSource = NewMedianTime()
	}

	params := config.ChainParams
	b := BlockChain{
		db:          config.DB,
		chainParams: params,
		timeSource:  timeSource,
		index:       newBlockIndex(),
		bestChain:   newChainView(nil),
		utxos:       make(utxoSet),
		dividends:   dividend.NewState(params),
		seenStakes:  stake.NewSeenStakes(config.SeenStakesSize),
	}
	b.claims = dividend.NewClaimLedger(&b, &b, params.DividendPayouts)

	// Initialize the chain state from the passed database.  When the db
	// does not yet contain any chain state, it and the appropriate buckets
	// will be created.
	if err := b.initChainState(); err != nil {
		return nil, err
	}

	tip := b.bestChain.Tip()
	log.Infof("Chain state (height %d, hash %v, dividend pool %d, "+
		"stakers %d)", tip.height, tip.hash, b.dividends.Pool(),
		len(b.dividends.Stakes()))

	return &b, nil
}
