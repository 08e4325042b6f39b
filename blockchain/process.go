// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
)

// trackStake records the kernel claimed by a proof of stake block and
// reports when another accepted block already claimed it.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) trackStake(block *bgutil.Block) {
	if !block.IsProofOfStake() {
		return
	}
	kernel := block.MsgBlock().Transactions[1].TxIn[0].PreviousOutPoint
	stakeTime := block.MsgBlock().Header.Timestamp.Unix()
	if b.seenStakes.Seen(kernel, stakeTime) {
		atomic.AddInt64(&b.duplicateStakes, 1)
		log.Warnf("Block %v reuses stake kernel %v at time %d already "+
			"claimed by another block", block.Hash(), kernel, stakeTime)
		return
	}
	b.seenStakes.Add(kernel, stakeTime)
}

// maybeAcceptBlock potentially accepts a block into the block chain and, if
// accepted, returns whether or not it is on the main chain.  It performs
// several validation checks which depend on its position within the block
// chain before adding it.  The block is expected to have already gone through
// checkBlockSanity and its parent must be known.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) maybeAcceptBlock(block *bgutil.Block) (bool, error) {
	// The height of this block is one more than the referenced previous
	// block.
	prevHash := &block.MsgBlock().Header.PrevBlock
	prevNode := b.index.LookupNode(prevHash)
	if prevNode == nil {
		str := fmt.Sprintf("previous block %s is unknown", prevHash)
		return false, ruleError(ErrMissingParent, str)
	} else if b.index.NodeStatus(prevNode).KnownInvalid() {
		str := fmt.Sprintf("previous block %s is known to be invalid",
			prevHash)
		return false, ruleError(ErrInvalidAncestor, str)
	}

	// The block must pass all of the validation rules which depend on the
	// position of the block within the block chain.
	header := &block.MsgBlock().Header
	proofOfStake := block.IsProofOfStake()
	err := checkBlockHeaderContext(b.chainParams, header, prevNode,
		proofOfStake)
	if err != nil {
		return false, err
	}

	// Insert the block into the database if it's not already there.  Even
	// though it is possible the block will ultimately fail to connect, it
	// has already passed all proof-of-work and validity tests which means
	// it would be prohibitively expensive for an attacker to fill up the
	// disk with a bunch of blocks that fail to connect.  This is necessary
	// since it allows block download to be decoupled from the much more
	// expensive connection logic.  It also has some other nice properties
	// such as making blocks that never become part of the main chain or
	// blocks that fail to connect available for further analysis.
	if err := b.dbStoreBlock(block); err != nil {
		return false, err
	}

	// Create a new block node for the block and add it to the block index.
	// The block could either be on a side chain or the main chain, but it
	// starts off as a side chain regardless.
	newNode := newBlockNode(header, prevNode, b.chainParams)
	newNode.proofOfStake = proofOfStake
	newNode.status = statusDataStored
	b.index.AddNode(newNode)
	block.SetHeight(newNode.height)

	// Connect the passed block to the chain while respecting proper chain
	// selection according to the chain with the most proof of work.  This
	// also handles validation of the transaction scripts.
	isMainChain, err := b.connectBestChain(newNode, block)
	if err != nil {
		return false, err
	}
	b.trackStake(block)

	// Notify the caller that the new block was accepted into the block
	// chain.  The caller would typically want to react by relaying the
	// inventory to other peers.
	b.queueNotification(NTBlockAccepted, &BlockAcceptedNtfnsData{
		OnMainChain: isMainChain,
		Block:       block,
	})

	return isMainChain, nil
}

// ProcessBlock is the main workhorse for handling insertion of new blocks into
// the block chain.  It includes functionality such as rejecting duplicate
// blocks, ensuring blocks follow all rules and insertion into the block chain
// along with best chain selection and reorganization.
//
// Blocks whose parent is unknown are rejected with ErrMissingParent; there is
// no orphan pool.
//
// When no errors occurred during processing, the first return value indicates
// whether or not the block is on the main chain.  Rule violations are returned
// as a RuleError whose RejectReason is the stable reject string.
//
// Notifications raised while processing are delivered in order after the
// chain lock is released.
//
// This function is safe for concurrent access.
func (b *BlockChain) ProcessBlock(block *bgutil.Block) (bool, error) {
	b.chainLock.Lock()
	isMainChain, err := b.processBlock(block)
	ntfns := b.takeNotifications()
	b.chainLock.Unlock()

	b.dispatchNotifications(ntfns)
	return isMainChain, err
}

// processBlock performs the work of ProcessBlock.
//
// This function MUST be called with the chain state lock held (for writes).
func (b *BlockChain) processBlock(block *bgutil.Block) (bool, error) {
	blockHash := block.Hash()
	log.Tracef("Processing block %v", blockHash)
	currentTime := time.Now()
	defer func() {
		elapsedTime := time.Since(currentTime)
		log.Debugf("Block %v (height %v) finished processing in %s",
			blockHash, block.Height(), elapsedTime)
	}()

	// The block must not already exist in the main chain or side chains.
	if b.index.HaveBlock(blockHash) {
		str := fmt.Sprintf("already have block %v", blockHash)
		return false, ruleError(ErrDuplicateBlock, str)
	}

	// Perform preliminary sanity checks on the block and its transactions.
	err := checkBlockSanity(block, b.chainParams, b.timeSource)
	if err != nil {
		return false, err
	}

	// The block has passed all context independent checks and appears sane
	// enough to potentially accept it into the block chain.
	isMainChain, err := b.maybeAcceptBlock(block)
	if err != nil {
		return false, err
	}

	log.Debugf("Accepted block %v", blockHash)

	return isMainChain, nil
}

// DuplicateStakes returns the number of accepted proof of stake blocks that
// claimed a kernel already claimed by another block.
//
// This function is safe for concurrent access.
func (b *BlockChain) DuplicateStakes() int64 {
	return atomic.LoadInt64(&b.duplicateStakes)
}

// StakeSeen returns whether a kernel outpoint at the given stake time was
// already claimed by an accepted block.
//
// This function is safe for concurrent access.
func (b *BlockChain) StakeSeen(hit *stake.KernelHit) bool {
	return b.seenStakes.Seen(hit.Input.OutPoint, hit.Time)
}
