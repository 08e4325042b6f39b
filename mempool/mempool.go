// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/mining"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
	"github.com/pkg/errors"
)

const (
	// DefaultRejectedCacheSize is the default number of recently rejected
	// transaction hashes remembered by the pool.
	DefaultRejectedCacheSize = 50000
)

// Config is a descriptor containing the memory pool configuration.
type Config struct {
	// Policy defines the various mempool configuration options related
	// to policy.
	Policy Policy

	// ChainParams identifies which chain parameters the txpool is
	// associated with.
	ChainParams *chaincfg.Params

	// FetchUtxoView defines the function to use to fetch unspent
	// transaction output information.
	FetchUtxoView func(*btcutil.Tx) (*blockchain.UtxoViewpoint, error)

	// BestHeight defines the function to use to access the block height of
	// the current best chain.
	BestHeight func() int32

	// Now returns the current time.  It defaults to time.Now and is
	// replaceable by tests.
	Now func() time.Time
}

// Policy houses the policy (configuration parameters) which is used to
// control the mempool.
type Policy struct {
	// MaxTxVersion is the transaction version that the mempool should
	// accept.  All transactions above this version are rejected as
	// non-standard.
	MaxTxVersion int32

	// AcceptNonStd defines whether to accept non-standard transactions. If
	// true, non-standard transactions will be accepted into the mempool.
	// Otherwise, all non-standard transactions will be rejected.
	AcceptNonStd bool

	// MinRelayTxFee defines the minimum transaction fee in base units/kB
	// to be considered a non-zero fee.
	MinRelayTxFee btcutil.Amount

	// MaxPoolSize is the cap on the estimated memory usage of the pool in
	// bytes.  Zero disables the cap.
	MaxPoolSize int64

	// PriorityEngine selects the hybrid ordering policy when set and the
	// feerate-only policy otherwise.
	PriorityEngine bool

	// MaxPriority bounds the absolute value of priority scores.  The
	// hybrid order also caps stake weight at MaxPriority coins.
	MaxPriority int64

	// RejectedCacheSize is the number of recently rejected transaction
	// hashes remembered.
	RejectedCacheSize uint
}

// TxDesc is a descriptor containing a transaction in the mempool along with
// additional metadata.
type TxDesc struct {
	mining.TxDesc

	// VSize is the virtual size of the transaction.
	VSize int64

	// Replaceable is set when the transaction signals replaceability.
	Replaceable bool

	// Congested is set when the transaction was admitted while the pool
	// was congested.
	Congested bool

	// ChildBonus is set while an in-pool child pays a higher fee rate.
	ChildBonus bool

	// oldestInputHeight is the lowest confirmation height among the
	// inputs, or mining.UnminedHeight when all inputs are unconfirmed.
	oldestInputHeight int32

	// usage is the memory charged against the pool cap.
	usage int64
}

// EntryInfo describes a pooled transaction and the components of its
// priority score.
type EntryInfo struct {
	Hash        chainhash.Hash
	Fee         int64
	VSize       int64
	FeePerKB    int64
	StakeWeight int64
	Priority    int64
	Replaceable bool
	Congested   bool
	ChildBonus  bool
	Added       time.Time
	Height      int32
	Depends     []chainhash.Hash
}

// TxPool is used as a source of transactions that need to be mined into blocks
// and relayed to other peers.  It is safe for concurrent access from multiple
// peers.
type TxPool struct {
	// The following variables must only be used atomically.
	lastUpdated int64 // last time pool was updated

	mtx         sync.RWMutex
	cfg         Config
	pool        map[chainhash.Hash]*TxDesc
	outpoints   map[wire.OutPoint]*btcutil.Tx
	usage       int64
	ordering    OrderingPolicy
	maxPriority int64
	rejected    lru.Cache

	// pending holds notifications queued under mtx.
	pending []pendingNotification

	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// Ensure the TxPool type implements the mining.TxSource interface.
var _ mining.TxSource = (*TxPool)(nil)

// now returns the current time as seen by the pool.
func (mp *TxPool) now() time.Time {
	if mp.cfg.Now != nil {
		return mp.cfg.Now()
	}
	return time.Now()
}

// unlockAndNotify releases the pool lock and then delivers any notifications
// queued while it was held.
func (mp *TxPool) unlockAndNotify() {
	pending := mp.pending
	mp.pending = nil
	mp.mtx.Unlock()
	mp.flushNotifications(pending)
}

// isTransactionInPool returns whether or not the passed transaction already
// exists in the main pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) isTransactionInPool(hash *chainhash.Hash) bool {
	_, exists := mp.pool[*hash]
	return exists
}

// IsTransactionInPool returns whether or not the passed transaction already
// exists in the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsTransactionInPool(hash *chainhash.Hash) bool {
	// Protect concurrent access.
	mp.mtx.RLock()
	inPool := mp.isTransactionInPool(hash)
	mp.mtx.RUnlock()

	return inPool
}

// HaveTransaction returns whether or not the passed transaction already exists
// in the pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) HaveTransaction(hash *chainhash.Hash) bool {
	return mp.IsTransactionInPool(hash)
}

// IsRecentlyRejected returns whether the transaction was rejected recently.
//
// This function is safe for concurrent access.
func (mp *TxPool) IsRecentlyRejected(hash *chainhash.Hash) bool {
	return mp.rejected.Contains(*hash)
}

// removeTransaction is the internal function which implements the public
// RemoveTransaction.  See the comment for RemoveTransaction for more details.
// A notification of type typ is queued for every transaction removed.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeTransaction(tx *btcutil.Tx, removeRedeemers bool,
	typ NotificationType) {

	txHash := tx.Hash()
	if removeRedeemers {
		// Remove any transactions which rely on this one.
		for i := uint32(0); i < uint32(len(tx.MsgTx().TxOut)); i++ {
			prevOut := wire.OutPoint{Hash: *txHash, Index: i}
			if txRedeemer, exists := mp.outpoints[prevOut]; exists {
				mp.removeTransaction(txRedeemer, true, typ)
			}
		}
	}

	// Remove the transaction if needed.
	txDesc, exists := mp.pool[*txHash]
	if !exists {
		return
	}

	// Mark the referenced outpoints as unspent by the pool.
	for _, txIn := range txDesc.Tx.MsgTx().TxIn {
		delete(mp.outpoints, txIn.PreviousOutPoint)
	}
	delete(mp.pool, *txHash)
	mp.usage -= txDesc.usage
	atomic.StoreInt64(&mp.lastUpdated, mp.now().Unix())
	mp.queueRemoved(typ, []*btcutil.Tx{txDesc.Tx})

	// A parent may have lost the child paying for it.
	mp.rescoreParents(txDesc.Tx, mp.cfg.BestHeight())
}

// RemoveTransaction removes the passed transaction from the mempool.  When the
// removeRedeemers flag is set, any transactions that redeem outputs from the
// removed transaction will also be removed recursively from the mempool, as
// they would otherwise become orphans.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveTransaction(tx *btcutil.Tx, removeRedeemers bool) {
	// Protect concurrent access.
	mp.mtx.Lock()
	mp.removeTransaction(tx, removeRedeemers, NTTxRemoved)
	mp.unlockAndNotify()
}

// removeDoubleSpends removes all transactions which spend outputs spent by the
// passed transaction from the memory pool along with their redeemers.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) removeDoubleSpends(tx *btcutil.Tx) {
	for _, txIn := range tx.MsgTx().TxIn {
		if txRedeemer, ok := mp.outpoints[txIn.PreviousOutPoint]; ok {
			if !txRedeemer.Hash().IsEqual(tx.Hash()) {
				mp.removeTransaction(txRedeemer, true, NTTxRemoved)
			}
		}
	}
}

// RemoveDoubleSpends removes all transactions which spend outputs spent by the
// passed transaction from the memory pool.  Removing those transactions then
// leads to removing all transactions which rely on them, recursively.  This is
// necessary when a block is connected to the main chain because the block may
// contain transactions which were previously unknown to the memory pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) RemoveDoubleSpends(tx *btcutil.Tx) {
	// Protect concurrent access.
	mp.mtx.Lock()
	mp.removeDoubleSpends(tx)
	mp.unlockAndNotify()
}

// isCongested returns whether usage is above the congestion threshold.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) isCongested() bool {
	maxSize := mp.cfg.Policy.MaxPoolSize
	return maxSize > 0 && mp.usage > maxSize*congestionPercent/100
}

// hasRicherChild returns whether an in-pool transaction spending an output of
// desc pays a higher fee rate.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) hasRicherChild(desc *TxDesc) bool {
	prevOut := wire.OutPoint{Hash: *desc.Tx.Hash()}
	for i := range desc.Tx.MsgTx().TxOut {
		prevOut.Index = uint32(i)
		child, ok := mp.outpoints[prevOut]
		if !ok {
			continue
		}
		if childDesc, ok := mp.pool[*child.Hash()]; ok &&
			childDesc.FeePerKB > desc.FeePerKB {

			return true
		}
	}
	return false
}

// rescore recomputes the priority score of desc against bestHeight.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) rescore(desc *TxDesc, bestHeight int32) {
	desc.ChildBonus = mp.hasRicherChild(desc)
	desc.Priority = calcPriority(&priorityInputs{
		stakeWeight: desc.StakeWeight,
		fee:         desc.Fee,
		age: inputAge(mp.cfg.ChainParams, bestHeight,
			desc.oldestInputHeight),
		replaceable: desc.Replaceable,
		childBonus:  desc.ChildBonus,
		congested:   desc.Congested,
	}, mp.maxPriority)
}

// rescoreParents recomputes the scores of the in-pool parents of tx.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) rescoreParents(tx *btcutil.Tx, bestHeight int32) {
	for _, txIn := range tx.MsgTx().TxIn {
		if parent, ok := mp.pool[txIn.PreviousOutPoint.Hash]; ok {
			mp.rescore(parent, bestHeight)
		}
	}
}

// rescoreAll recomputes every priority score.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) rescoreAll(bestHeight int32) {
	for _, desc := range mp.pool {
		mp.rescore(desc, bestHeight)
	}
}

// addTransaction adds the passed transaction to the memory pool.  It should
// not be called directly as it doesn't perform any validation.  This is a
// helper for maybeAcceptTransaction.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) addTransaction(utxoView *blockchain.UtxoViewpoint, tx *btcutil.Tx,
	height int32, fee, vsize int64) *TxDesc {

	msgTx := tx.MsgTx()
	var stakeWeight int64
	for _, txOut := range msgTx.TxOut {
		stakeWeight += txOut.Value
	}
	oldest := int32(mining.UnminedHeight)
	for _, txIn := range msgTx.TxIn {
		entry := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if entry != nil && entry.BlockHeight() < oldest {
			oldest = entry.BlockHeight()
		}
	}

	// Add the transaction to the pool and mark the referenced outpoints
	// as spent by the pool.
	txD := &TxDesc{
		TxDesc: mining.TxDesc{
			Tx:          tx,
			Added:       mp.now(),
			Height:      height,
			Fee:         fee,
			FeePerKB:    fee * 1000 / vsize,
			StakeWeight: stakeWeight,
		},
		VSize:             vsize,
		Replaceable:       signalsReplacement(msgTx),
		Congested:         mp.isCongested(),
		oldestInputHeight: oldest,
	}
	txD.usage = txDescMemUsage(txD)
	mp.pool[*tx.Hash()] = txD
	mp.usage += txD.usage

	for _, txIn := range msgTx.TxIn {
		mp.outpoints[txIn.PreviousOutPoint] = tx
	}
	atomic.StoreInt64(&mp.lastUpdated, mp.now().Unix())

	mp.rescore(txD, height)
	mp.rescoreParents(tx, height)
	mp.pending = append(mp.pending, pendingNotification{NTTxAccepted, txD})

	return txD
}

// worstEntry returns the pooled transaction ranked last under the active
// ordering policy.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) worstEntry() *TxDesc {
	before := rankFunc(mp.ordering, mp.maxPriority)
	var worst *TxDesc
	for _, desc := range mp.pool {
		if worst == nil || before(worst, desc) {
			worst = desc
		}
	}
	return worst
}

// limitPoolSize evicts the lowest ranked transactions, together with their
// descendants, until the pool is back under its cap.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) limitPoolSize() {
	maxSize := mp.cfg.Policy.MaxPoolSize
	for maxSize > 0 && mp.usage > maxSize && len(mp.pool) > 0 {
		worst := mp.worstEntry()
		log.Debugf("Evicting transaction %v (fee rate %d, priority %d, "+
			"pool usage %d > %d)", worst.Tx.Hash(), worst.FeePerKB,
			worst.Priority, mp.usage, maxSize)
		mp.removeTransaction(worst.Tx, true, NTTxEvicted)
	}
}

// checkPoolDoubleSpend checks whether or not the passed transaction is
// attempting to spend coins already spent by other transactions in the pool.
// Note it does not check for double spends against transactions already in the
// main chain.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) checkPoolDoubleSpend(tx *btcutil.Tx) error {
	for _, txIn := range tx.MsgTx().TxIn {
		if txR, exists := mp.outpoints[txIn.PreviousOutPoint]; exists {
			str := fmt.Sprintf("output %v already spent by "+
				"transaction %v in the memory pool",
				txIn.PreviousOutPoint, txR.Hash())
			return txRuleError(wire.RejectDuplicate, str)
		}
	}

	return nil
}

// fetchInputUtxos loads utxo details about the input transactions referenced by
// the passed transaction.  First, it loads the details form the viewpoint of
// the main chain, then it adjusts them based upon the contents of the
// transaction pool.
//
// This function MUST be called with the mempool lock held (for reads).
func (mp *TxPool) fetchInputUtxos(tx *btcutil.Tx) (*blockchain.UtxoViewpoint, error) {
	utxoView, err := mp.cfg.FetchUtxoView(tx)
	if err != nil {
		return nil, err
	}

	// Attempt to populate any missing inputs from the transaction pool.
	for _, txIn := range tx.MsgTx().TxIn {
		prevOut := txIn.PreviousOutPoint
		entry := utxoView.LookupEntry(prevOut)
		if entry != nil && !entry.IsSpent() {
			continue
		}

		if poolTxDesc, exists := mp.pool[prevOut.Hash]; exists {
			utxoView.AddTxOuts(poolTxDesc.Tx, mining.UnminedHeight)
		}
	}
	return utxoView, nil
}

// FetchTransaction returns the requested transaction from the transaction pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) FetchTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error) {
	// Protect concurrent access.
	mp.mtx.RLock()
	txDesc, exists := mp.pool[*txHash]
	mp.mtx.RUnlock()

	if exists {
		return txDesc.Tx, nil
	}

	return nil, fmt.Errorf("transaction is not in the pool")
}

// maybeAcceptTransaction is the internal function which implements the public
// MaybeAcceptTransaction.  See the comment for MaybeAcceptTransaction for
// more details.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) maybeAcceptTransaction(tx *btcutil.Tx, isNew bool) ([]*chainhash.Hash, *TxDesc, error) {
	txHash := tx.Hash()

	// Don't accept the transaction if it already exists in the pool.  This
	// is intended to be a quick check to weed out duplicates.
	if mp.isTransactionInPool(txHash) {
		str := fmt.Sprintf("already have transaction %v", txHash)
		return nil, nil, txRuleError(wire.RejectDuplicate, str)
	}

	// Don't waste time on a transaction that was rejected recently.
	if isNew && mp.rejected.Contains(*txHash) {
		str := fmt.Sprintf("transaction %v was recently rejected",
			txHash)
		return nil, nil, txRuleError(wire.RejectDuplicate, str)
	}

	// Perform preliminary sanity checks on the transaction.  This makes
	// use of blockchain which contains the invariant rules for what
	// transactions are allowed into blocks.
	err := blockchain.CheckTransactionSanity(tx)
	if err != nil {
		var cerr blockchain.RuleError
		if errors.As(err, &cerr) {
			return nil, nil, chainRuleError(cerr)
		}
		return nil, nil, err
	}

	// A standalone transaction must not be a coinbase or a coinstake.
	if blockchain.IsCoinBase(tx) {
		str := fmt.Sprintf("transaction %v is an individual coinbase",
			txHash)
		return nil, nil, txRuleError(wire.RejectInvalid, str)
	}
	if stake.IsCoinStakeTx(tx.MsgTx()) {
		str := fmt.Sprintf("transaction %v is an individual coinstake",
			txHash)
		return nil, nil, txRuleError(wire.RejectInvalid, str)
	}

	// Get the current height of the main chain.  A standalone transaction
	// will be mined into the next block at best, so its height is at least
	// one more than the current height.
	bestHeight := mp.cfg.BestHeight()
	nextBlockHeight := bestHeight + 1

	// Don't allow non-standard transactions if the network parameters
	// forbid their acceptance.
	if !mp.cfg.Policy.AcceptNonStd {
		err = CheckTransactionStandard(tx, mp.cfg.Policy.MinRelayTxFee,
			mp.cfg.Policy.MaxTxVersion)
		if err != nil {
			// Attempt to extract a reject code from the error so
			// it can be retained.  When not possible, fall back to
			// a non standard error.
			rejectCode, found := extractRejectCode(err)
			if !found {
				rejectCode = wire.RejectNonstandard
			}
			str := fmt.Sprintf("transaction %v is not standard: %v",
				txHash, err)
			return nil, nil, txRuleError(rejectCode, str)
		}
	}

	// The transaction may not use any of the same outputs as other
	// transactions already in the pool as that would ultimately result in a
	// double spend.  This check is intended to be quick and therefore only
	// detects double spends within the transaction pool itself.  The
	// transaction could still be double spending coins from the main chain
	// at this point.  There is a more in-depth check that happens later
	// after fetching the referenced transaction inputs from the main chain
	// which examines the actual spend data and prevents double spends.
	err = mp.checkPoolDoubleSpend(tx)
	if err != nil {
		return nil, nil, err
	}

	// Fetch all of the unspent transaction outputs referenced by the inputs
	// to this transaction.  This function also attempts to fetch the
	// outputs of the transaction itself to be used for detecting a
	// duplicate transaction without needing to do a separate lookup.
	utxoView, err := mp.fetchInputUtxos(tx)
	if err != nil {
		var cerr blockchain.RuleError
		if errors.As(err, &cerr) {
			return nil, nil, chainRuleError(cerr)
		}
		return nil, nil, err
	}

	// Don't allow the transaction if it exists in the main chain and is not
	// already fully spent.
	prevOut := wire.OutPoint{Hash: *txHash}
	for txOutIdx := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(txOutIdx)
		entry := utxoView.LookupEntry(prevOut)
		if entry != nil && !entry.IsSpent() {
			return nil, nil, txRuleError(wire.RejectDuplicate,
				"transaction already exists")
		}
		delete(utxoView.Entries(), prevOut)
	}

	// Transaction is an orphan if any of the referenced transaction outputs
	// don't exist or are already spent.
	var missingParents []*chainhash.Hash
	for _, txIn := range tx.MsgTx().TxIn {
		entry := utxoView.LookupEntry(txIn.PreviousOutPoint)
		if entry == nil || entry.IsSpent() {
			// Must make a copy of the hash here since the iterator
			// is replaced and taking its address directly would
			// result in all of the entries pointing to the same
			// memory location and thus all be the final hash.
			hashCopy := txIn.PreviousOutPoint.Hash
			missingParents = append(missingParents, &hashCopy)
		}
	}
	if len(missingParents) > 0 {
		return missingParents, nil, nil
	}

	// Perform several checks on the transaction inputs using the invariant
	// rules in blockchain for what transactions are allowed into blocks.
	// Also returns the fees associated with the transaction which will be
	// used later.
	txFee, err := blockchain.CheckTransactionInputs(tx, nextBlockHeight,
		utxoView, mp.cfg.ChainParams)
	if err != nil {
		var cerr blockchain.RuleError
		if errors.As(err, &cerr) {
			return nil, nil, chainRuleError(cerr)
		}
		return nil, nil, err
	}

	// Don't allow transactions with non-standard inputs if the network
	// parameters forbid their acceptance.
	if !mp.cfg.Policy.AcceptNonStd {
		err := checkInputsStandard(tx, utxoView)
		if err != nil {
			// Attempt to extract a reject code from the error so
			// it can be retained.  When not possible, fall back to
			// a non standard error.
			rejectCode, found := extractRejectCode(err)
			if !found {
				rejectCode = wire.RejectNonstandard
			}
			str := fmt.Sprintf("transaction %v has a non-standard "+
				"input: %v", txHash, err)
			return nil, nil, txRuleError(rejectCode, str)
		}
	}

	// Don't allow transactions with fees too low to get into a mined block.
	vsize := GetTxVirtualSize(tx)
	err = CheckRelayFee(tx, txFee, vsize, mp.cfg.Policy.MinRelayTxFee, isNew)
	if err != nil {
		return nil, nil, err
	}

	// Add to transaction pool and bring the pool back under its cap.  The
	// new transaction itself may be the one that goes.
	txD := mp.addTransaction(utxoView, tx, bestHeight, txFee, vsize)
	mp.limitPoolSize()
	if !mp.isTransactionInPool(txHash) {
		str := fmt.Sprintf("transaction %v ranks below every pooled "+
			"transaction and the pool is full", txHash)
		return nil, nil, txRuleError(wire.RejectInsufficientFee, str)
	}

	log.Debugf("Accepted transaction %v (pool size: %v, priority %d)",
		txHash, len(mp.pool), txD.Priority)

	return nil, txD, nil
}

// MaybeAcceptTransaction is the main workhorse for handling insertion of new
// free-standing transactions into a memory pool.  It includes functionality
// such as rejecting duplicate transactions, ensuring transactions follow all
// rules, detecting transactions with missing inputs, and insertion into the
// memory pool.
//
// If the transaction spends unknown outputs, it is NOT added to the pool, and
// each unknown referenced parent is returned.
//
// This function is safe for concurrent access.
func (mp *TxPool) MaybeAcceptTransaction(tx *btcutil.Tx, isNew bool) ([]*chainhash.Hash, *TxDesc, error) {
	// Protect concurrent access.
	mp.mtx.Lock()
	hashes, txD, err := mp.maybeAcceptTransaction(tx, isNew)
	mp.unlockAndNotify()

	return hashes, txD, err
}

// ProcessTransaction is the main workhorse for handling insertion of new
// free-standing transactions into the memory pool.  Transactions that spend
// unknown outputs are rejected since the pool keeps no orphans.  Rejected
// transactions are remembered so that repeats are turned away cheaply.
//
// This function is safe for concurrent access.
func (mp *TxPool) ProcessTransaction(tx *btcutil.Tx) (*TxDesc, error) {
	log.Tracef("Processing transaction %v", tx.Hash())

	// Protect concurrent access.
	mp.mtx.Lock()
	defer mp.unlockAndNotify()

	missingParents, txD, err := mp.maybeAcceptTransaction(tx, true)
	if err == nil && len(missingParents) > 0 {
		// NOTE: RejectDuplicate is really not an accurate reject code
		// here, but missing inputs are assumed to mean they are
		// already spent which is not really always the case.
		str := fmt.Sprintf("orphan transaction %v references "+
			"outputs of unknown or fully-spent "+
			"transaction %v", tx.Hash(), missingParents[0])
		err = txRuleError(wire.RejectDuplicate, str)
	}
	if err != nil {
		var rerr RuleError
		if errors.As(err, &rerr) && !mp.isTransactionInPool(tx.Hash()) {
			mp.rejected.Add(*tx.Hash())
		}
		return nil, err
	}

	return txD, nil
}

// HandleChainNotification updates the pool for blocks connected to or
// disconnected from the main chain.  Mined transactions and their conflicts
// leave the pool, transactions of disconnected blocks are offered back, and
// every priority score is recomputed for the new tip.
//
// This function is safe for concurrent access.
func (mp *TxPool) HandleChainNotification(n *blockchain.Notification) {
	switch n.Type {
	case blockchain.NTBlockConnected:
		block, ok := n.Data.(*bgutil.Block)
		if !ok {
			log.Warnf("Chain connected notification is not a block.")
			return
		}

		mp.mtx.Lock()
		for _, tx := range block.Transactions() {
			mp.removeTransaction(tx, false, NTTxRemoved)
			mp.removeDoubleSpends(tx)
			mp.confirmOutputs(tx, block.Height())
		}
		mp.rescoreAll(mp.cfg.BestHeight())
		mp.unlockAndNotify()

	case blockchain.NTBlockDisconnected:
		block, ok := n.Data.(*bgutil.Block)
		if !ok {
			log.Warnf("Chain disconnected notification is not a block.")
			return
		}

		mp.mtx.Lock()
		for _, tx := range block.Transactions() {
			if blockchain.IsCoinBase(tx) ||
				stake.IsCoinStakeTx(tx.MsgTx()) {

				continue
			}
			_, _, err := mp.maybeAcceptTransaction(tx, false)
			if err != nil {
				log.Debugf("Dropping transaction %v of "+
					"disconnected block %v: %v", tx.Hash(),
					block.Hash(), err)
			}
		}
		mp.rescoreAll(mp.cfg.BestHeight())
		mp.unlockAndNotify()
	}
}

// confirmOutputs records that the outputs of tx confirmed at height so that
// pooled spenders age from then on.
//
// This function MUST be called with the mempool lock held (for writes).
func (mp *TxPool) confirmOutputs(tx *btcutil.Tx, height int32) {
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for i := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(i)
		redeemer, ok := mp.outpoints[prevOut]
		if !ok {
			continue
		}
		desc := mp.pool[*redeemer.Hash()]
		if desc != nil && height < desc.oldestInputHeight {
			desc.oldestInputHeight = height
		}
	}
}

// SetPriorityPolicy switches between the hybrid ordering policy (enabled) and
// the feerate-only policy and sets the absolute bound on priority scores.
// Every score is recomputed under the new bound.
//
// This function is safe for concurrent access.
func (mp *TxPool) SetPriorityPolicy(enabled bool, maxPriority int64) error {
	if maxPriority < 1 {
		return fmt.Errorf("priority clamp %d must be positive",
			maxPriority)
	}

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.ordering = FeeRateOnly
	if enabled {
		mp.ordering = Hybrid
	}
	mp.maxPriority = maxPriority
	mp.rescoreAll(mp.cfg.BestHeight())

	log.Infof("Mempool ordering policy set to %v (priority clamp %d)",
		mp.ordering, maxPriority)
	return nil
}

// PriorityPolicy returns whether the hybrid ordering policy is active and
// the current priority clamp.
//
// This function is safe for concurrent access.
func (mp *TxPool) PriorityPolicy() (bool, int64) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.ordering == Hybrid, mp.maxPriority
}

// OrderingPolicy returns the active ordering policy.
//
// This function is safe for concurrent access.
func (mp *TxPool) OrderingPolicy() OrderingPolicy {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.ordering
}

// EntryInfo returns the fee, fee rate, stake weight and priority details of a
// pooled transaction.
//
// This function is safe for concurrent access.
func (mp *TxPool) EntryInfo(hash *chainhash.Hash) (*EntryInfo, error) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	desc, ok := mp.pool[*hash]
	if !ok {
		return nil, fmt.Errorf("transaction %v is not in the pool", hash)
	}

	info := &EntryInfo{
		Hash:        *hash,
		Fee:         desc.Fee,
		VSize:       desc.VSize,
		FeePerKB:    desc.FeePerKB,
		StakeWeight: desc.StakeWeight,
		Priority:    desc.Priority,
		Replaceable: desc.Replaceable,
		Congested:   desc.Congested,
		ChildBonus:  desc.ChildBonus,
		Added:       desc.Added,
		Height:      desc.Height,
	}
	for _, txIn := range desc.Tx.MsgTx().TxIn {
		parent := txIn.PreviousOutPoint.Hash
		if mp.isTransactionInPool(&parent) {
			info.Depends = append(info.Depends, parent)
		}
	}
	return info, nil
}

// Count returns the number of transactions in the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) Count() int {
	mp.mtx.RLock()
	count := len(mp.pool)
	mp.mtx.RUnlock()

	return count
}

// Usage returns the estimated memory usage of the pool in bytes.
//
// This function is safe for concurrent access.
func (mp *TxPool) Usage() int64 {
	mp.mtx.RLock()
	usage := mp.usage
	mp.mtx.RUnlock()

	return usage
}

// TxHashes returns a slice of hashes for all of the transactions in the memory
// pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxHashes() []*chainhash.Hash {
	mp.mtx.RLock()
	hashes := make([]*chainhash.Hash, len(mp.pool))
	i := 0
	for hash := range mp.pool {
		hashCopy := hash
		hashes[i] = &hashCopy
		i++
	}
	mp.mtx.RUnlock()

	return hashes
}

// TxDescs returns a slice of descriptors for all the transactions in the pool
// ordered best first under the active policy.  The descriptors are to be
// treated as read only.
//
// This function is safe for concurrent access.
func (mp *TxPool) TxDescs() []*TxDesc {
	mp.mtx.RLock()
	descs := make([]*TxDesc, 0, len(mp.pool))
	for _, desc := range mp.pool {
		descCopy := *desc
		descs = append(descs, &descCopy)
	}
	ordering, maxPriority := mp.ordering, mp.maxPriority
	mp.mtx.RUnlock()

	sortTxDescs(descs, ordering, maxPriority)
	return descs
}

// MiningDescs returns a slice of mining descriptors for all the transactions
// in the pool ordered best first under the active policy.
//
// This is part of the mining.TxSource interface implementation and is safe for
// concurrent access as required by the interface contract.
func (mp *TxPool) MiningDescs() []*mining.TxDesc {
	descs := mp.TxDescs()
	miningDescs := make([]*mining.TxDesc, len(descs))
	for i, desc := range descs {
		miningDescs[i] = &desc.TxDesc
	}
	return miningDescs
}

// LastUpdated returns the last time a transaction was added to or removed from
// the main pool.
//
// This function is safe for concurrent access.
func (mp *TxPool) LastUpdated() time.Time {
	return time.Unix(atomic.LoadInt64(&mp.lastUpdated), 0)
}

// New returns a new memory pool for validating and storing standalone
// transactions until they are mined into a block.
func New(cfg *Config) *TxPool {
	maxPriority := cfg.Policy.MaxPriority
	if maxPriority < 1 {
		maxPriority = DefaultMaxPriority
	}
	rejectedSize := cfg.Policy.RejectedCacheSize
	if rejectedSize == 0 {
		rejectedSize = DefaultRejectedCacheSize
	}
	ordering := FeeRateOnly
	if cfg.Policy.PriorityEngine {
		ordering = Hybrid
	}

	return &TxPool{
		cfg:         *cfg,
		pool:        make(map[chainhash.Hash]*TxDesc),
		outpoints:   make(map[wire.OutPoint]*btcutil.Tx),
		ordering:    ordering,
		maxPriority: maxPriority,
		rejected:    lru.NewCache(rejectedSize),
	}
}
