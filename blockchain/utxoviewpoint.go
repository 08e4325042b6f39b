// Copyright (c) 2015-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// txoFlags is a bitmask defining additional information and state for a
// transaction output in a utxo view.
type txoFlags uint8

const (
	// tfCoinBase indicates that a txout was contained in a coinbase tx.
	tfCoinBase txoFlags = 1 << iota

	// tfCoinStake indicates that a txout was contained in a coinstake tx.
	tfCoinStake

	// tfSpent indicates that a txout is spent.
	tfSpent

	// tfModified indicates that a txout has been modified since it was
	// loaded.
	tfModified
)

// UtxoEntry houses details about an individual transaction output in a utxo
// view such as whether or not it was contained in a coinbase or coinstake
// tx, the block that contains the tx, whether or not it is spent, its public
// key script, and how much it pays.
type UtxoEntry struct {
	amount      int64
	pkScript    []byte // The public key script for the output.
	blockHash   chainhash.Hash
	blockTime   int64
	blockHeight int32 // Height of block containing tx.

	// packedFlags contains additional info about output such as whether it
	// is a coinbase, whether it is spent, and whether it has been modified
	// since it was loaded.
	packedFlags txoFlags
}

// isModified returns whether or not the output has been modified since it was
// loaded.
func (entry *UtxoEntry) isModified() bool {
	return entry.packedFlags&tfModified == tfModified
}

// IsCoinBase returns whether or not the output was contained in a coinbase
// transaction.
func (entry *UtxoEntry) IsCoinBase() bool {
	return entry.packedFlags&tfCoinBase == tfCoinBase
}

// IsCoinStake returns whether or not the output was contained in a coinstake
// transaction.
func (entry *UtxoEntry) IsCoinStake() bool {
	return entry.packedFlags&tfCoinStake == tfCoinStake
}

// BlockHeight returns the height of the block containing the output.
func (entry *UtxoEntry) BlockHeight() int32 {
	return entry.blockHeight
}

// BlockHash returns the hash of the block containing the output.  It is the
// origin hash of the output when it is used as a stake kernel.
func (entry *UtxoEntry) BlockHash() chainhash.Hash {
	return entry.blockHash
}

// BlockTime returns the timestamp of the block containing the output.
func (entry *UtxoEntry) BlockTime() int64 {
	return entry.blockTime
}

// IsSpent returns whether or not the output has been spent based upon the
// current state of the unspent transaction output view it was obtained from.
func (entry *UtxoEntry) IsSpent() bool {
	return entry.packedFlags&tfSpent == tfSpent
}

// Spend marks the output as spent.  Spending an output that is already spent
// has no effect.
func (entry *UtxoEntry) Spend() {
	// Nothing to do if the output is already spent.
	if entry.IsSpent() {
		return
	}

	// Mark the output as spent and modified.
	entry.packedFlags |= tfSpent | tfModified
}

// Amount returns the amount of the output.
func (entry *UtxoEntry) Amount() int64 {
	return entry.amount
}

// PkScript returns the public key script for the output.
func (entry *UtxoEntry) PkScript() []byte {
	return entry.pkScript
}

// Clone returns a shallow copy of the utxo entry.
func (entry *UtxoEntry) Clone() *UtxoEntry {
	if entry == nil {
		return nil
	}

	newEntry := *entry
	return &newEntry
}

// NewUtxoEntry returns a new UtxoEntry built from the arguments.
func NewUtxoEntry(txOut *wire.TxOut, blockHeight int32, blockHash chainhash.Hash,
	blockTime int64, isCoinBase, isCoinStake bool) *UtxoEntry {

	var flags txoFlags
	if isCoinBase {
		flags |= tfCoinBase
	}
	if isCoinStake {
		flags |= tfCoinStake
	}

	return &UtxoEntry{
		amount:      txOut.Value,
		pkScript:    txOut.PkScript,
		blockHash:   blockHash,
		blockTime:   blockTime,
		blockHeight: blockHeight,
		packedFlags: flags,
	}
}

// SpentTxOut contains a spent transaction output and potentially additional
// contextual information such as whether or not it was contained in a
// coinbase transaction and the block it was created in.  Blocks keep one per
// spent input, in the order they are spent, so the outputs can be restored
// when the block is disconnected.
type SpentTxOut struct {
	Amount      int64
	PkScript    []byte
	BlockHash   chainhash.Hash
	BlockTime   int64
	Height      int32
	IsCoinBase  bool
	IsCoinStake bool
}

// utxoSet is the committed set of unspent outputs of the main chain.
type utxoSet map[wire.OutPoint]*UtxoEntry

// UtxoViewpoint represents a view into the set of unspent transaction outputs
// from a specific point of view in the chain.  For example, it could be for
// the end of the main chain, some point in the history of the main chain, or
// down a side chain.
//
// Lookups fall through to the base set the view was created on.  Changes
// are recorded in the view only until commit applies them to the base.
type UtxoViewpoint struct {
	base     utxoSet
	entries  map[wire.OutPoint]*UtxoEntry
	bestHash chainhash.Hash
}

// BestHash returns the hash of the best block in the chain the view currently
// respresents.
func (view *UtxoViewpoint) BestHash() *chainhash.Hash {
	return &view.bestHash
}

// SetBestHash sets the hash of the best block in the chain the view currently
// respresents.
func (view *UtxoViewpoint) SetBestHash(hash *chainhash.Hash) {
	view.bestHash = *hash
}

// LookupEntry returns information about a given transaction output according to
// the current state of the view.  It will return nil if the passed output does
// not exist in the view.
func (view *UtxoViewpoint) LookupEntry(outpoint wire.OutPoint) *UtxoEntry {
	if entry, ok := view.entries[outpoint]; ok {
		return entry
	}
	if view.base != nil {
		return view.base[outpoint]
	}
	return nil
}

// addTxOut adds the specified output to the view if it is not provably
// unspendable.  When the view already has an entry for the output, it will be
// marked unspent.  All fields will be updated for existing entries since it's
// possible it has changed during a reorg.
func (view *UtxoViewpoint) addTxOut(outpoint wire.OutPoint, txOut *wire.TxOut,
	flags txoFlags, node *blockNode) {

	// Don't add provably unspendable outputs.
	if txscript.IsUnspendable(txOut.PkScript) {
		return
	}

	view.entries[outpoint] = &UtxoEntry{
		amount:      txOut.Value,
		pkScript:    txOut.PkScript,
		blockHash:   node.hash,
		blockTime:   node.timestamp,
		blockHeight: node.height,
		packedFlags: flags | tfModified,
	}
}

// skipOutput returns whether the output at idx of the transaction at txIdx in
// a block never enters the utxo set: empty coinstake markers and the dividend
// output, whose value is carried by the dividend pool instead.
func skipOutput(txIdx, idx int, txOut *wire.TxOut, pos, payouts bool) bool {
	if txOut.Value == 0 && len(txOut.PkScript) == 0 {
		return true
	}
	if !payouts {
		return false
	}
	switch {
	case txIdx == 0 && !pos:
		return idx == 1
	case txIdx == 1 && pos:
		return idx == 2
	}
	return false
}

// txFlags returns the utxo flags for the outputs of the transaction at txIdx.
func txFlags(txIdx int, pos bool) txoFlags {
	switch {
	case txIdx == 0:
		return tfCoinBase
	case txIdx == 1 && pos:
		return tfCoinStake
	}
	return 0
}

// addBlockTxOuts adds the outputs of the transaction at txIdx of a block to
// the view.
func (view *UtxoViewpoint) addBlockTxOuts(tx *btcutil.Tx, txIdx int,
	node *blockNode, payouts bool) {

	flags := txFlags(txIdx, node.proofOfStake)
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for idx, txOut := range tx.MsgTx().TxOut {
		if skipOutput(txIdx, idx, txOut, node.proofOfStake, payouts) {
			continue
		}
		prevOut.Index = uint32(idx)
		view.addTxOut(prevOut, txOut, flags, node)
	}
}

// connectTransaction updates the view by adding all new utxos created by the
// passed transaction and marking all utxos that the transactions spend as
// spent.  In addition, when the 'stxos' argument is not nil, it will be updated
// to append an entry for each spent txout.  An error will be returned if the
// view does not contain the required utxos.
func (view *UtxoViewpoint) connectTransaction(tx *btcutil.Tx, txIdx int,
	node *blockNode, payouts bool, stxos *[]SpentTxOut) error {

	// Spend the referenced utxos by marking them spent in the view and, if
	// a slice was provided for the spent txout details, append an entry to
	// it.
	if txIdx != 0 {
		for _, txIn := range tx.MsgTx().TxIn {
			entry := view.LookupEntry(txIn.PreviousOutPoint)
			if entry == nil || entry.IsSpent() {
				return AssertError(fmt.Sprintf("view missing input %v",
					txIn.PreviousOutPoint))
			}

			if stxos != nil {
				*stxos = append(*stxos, SpentTxOut{
					Amount:      entry.Amount(),
					PkScript:    entry.PkScript(),
					BlockHash:   entry.BlockHash(),
					BlockTime:   entry.BlockTime(),
					Height:      entry.BlockHeight(),
					IsCoinBase:  entry.IsCoinBase(),
					IsCoinStake: entry.IsCoinStake(),
				})
			}

			// Base entries are shared with the committed set, so
			// the spend is recorded on a copy.
			spent := entry.Clone()
			spent.Spend()
			view.entries[txIn.PreviousOutPoint] = spent
		}
	}

	view.addBlockTxOuts(tx, txIdx, node, payouts)
	return nil
}

// connectTransactions updates the view by adding all new utxos created by all
// of the transactions in the passed block, marking all utxos the transactions
// spend as spent, and setting the best hash for the view to the passed block.
func (view *UtxoViewpoint) connectTransactions(block *bgutil.Block,
	node *blockNode, payouts bool, stxos *[]SpentTxOut) error {

	for txIdx, tx := range block.Transactions() {
		err := view.connectTransaction(tx, txIdx, node, payouts, stxos)
		if err != nil {
			return err
		}
	}

	// Update the best hash for view to include this block since all of its
	// transactions have been connected.
	view.SetBestHash(&node.hash)
	return nil
}

// disconnectTransactions updates the view by removing all of the transactions
// created by the passed block, restoring all utxos the transactions spent by
// using the provided spent txo information, and setting the best hash for the
// view to the block before the passed block.
func (view *UtxoViewpoint) disconnectTransactions(block *bgutil.Block,
	node *blockNode, payouts bool, stxos []SpentTxOut) error {

	// Sanity check the correct number of stxos are provided.
	numSpent := 0
	for _, tx := range block.Transactions()[1:] {
		numSpent += len(tx.MsgTx().TxIn)
	}
	if len(stxos) != numSpent {
		return AssertError(fmt.Sprintf("disconnect of block %v has %d "+
			"spent outputs, want %d", node.hash, len(stxos), numSpent))
	}

	// Loop backwards through all transactions so everything is unspent in
	// reverse order.
	stxoIdx := len(stxos) - 1
	transactions := block.Transactions()
	for txIdx := len(transactions) - 1; txIdx > -1; txIdx-- {
		tx := transactions[txIdx]

		// Mark all of the spendable outputs originally created by the
		// transaction as spent.
		prevOut := wire.OutPoint{Hash: *tx.Hash()}
		for idx, txOut := range tx.MsgTx().TxOut {
			if skipOutput(txIdx, idx, txOut, node.proofOfStake, payouts) ||
				txscript.IsUnspendable(txOut.PkScript) {
				continue
			}

			prevOut.Index = uint32(idx)
			entry := view.LookupEntry(prevOut).Clone()
			if entry == nil {
				entry = &UtxoEntry{
					amount:      txOut.Value,
					pkScript:    txOut.PkScript,
					blockHash:   node.hash,
					blockTime:   node.timestamp,
					blockHeight: node.height,
					packedFlags: txFlags(txIdx, node.proofOfStake),
				}
			}
			entry.Spend()
			view.entries[prevOut] = entry
		}

		// Loop backwards through all of the transaction inputs (except
		// for the coinbase which has no inputs) and unspend the
		// referenced txos.
		if txIdx == 0 {
			continue
		}
		msgTx := tx.MsgTx()
		for txInIdx := len(msgTx.TxIn) - 1; txInIdx > -1; txInIdx-- {
			stxo := &stxos[stxoIdx]
			stxoIdx--

			var flags txoFlags
			if stxo.IsCoinBase {
				flags |= tfCoinBase
			}
			if stxo.IsCoinStake {
				flags |= tfCoinStake
			}
			view.entries[msgTx.TxIn[txInIdx].PreviousOutPoint] = &UtxoEntry{
				amount:      stxo.Amount,
				pkScript:    stxo.PkScript,
				blockHash:   stxo.BlockHash,
				blockTime:   stxo.BlockTime,
				blockHeight: stxo.Height,
				packedFlags: flags | tfModified,
			}
		}
	}

	// Update the best hash for view to the previous block since all of the
	// transactions for the current block have been disconnected.
	view.SetBestHash(&node.parent.hash)
	return nil
}

// commit applies the changes recorded in the view to its base set and
// resets the view.
func (view *UtxoViewpoint) commit() {
	for outpoint, entry := range view.entries {
		if entry.IsSpent() {
			delete(view.base, outpoint)
			continue
		}
		entry.packedFlags &^= tfModified
		view.base[outpoint] = entry
	}
	view.entries = make(map[wire.OutPoint]*UtxoEntry)
}

// newUtxoViewpoint returns a new empty unspent transaction output view on top
// of the given committed set.
func newUtxoViewpoint(base utxoSet) *UtxoViewpoint {
	return &UtxoViewpoint{
		base:    base,
		entries: make(map[wire.OutPoint]*UtxoEntry),
	}
}

// NewUtxoViewpoint returns a new empty unspent transaction output view.
func NewUtxoViewpoint() *UtxoViewpoint {
	return newUtxoViewpoint(nil)
}

// FetchUtxoEntry loads and returns the requested unspent transaction output
// from the point of view of the end of the main chain.  It returns nil when
// the output does not exist or is spent.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchUtxoEntry(outpoint wire.OutPoint) *UtxoEntry {
	b.chainLock.RLock()
	entry := b.utxos[outpoint].Clone()
	b.chainLock.RUnlock()
	return entry
}

// FetchUtxosByScript returns every unspent main chain output that pays to one
// of the passed scripts.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchUtxosByScript(pkScripts [][]byte) map[wire.OutPoint]*UtxoEntry {
	wanted := make(map[string]struct{}, len(pkScripts))
	for _, pkScript := range pkScripts {
		wanted[string(pkScript)] = struct{}{}
	}

	entries := make(map[wire.OutPoint]*UtxoEntry)
	b.chainLock.RLock()
	for outpoint, entry := range b.utxos {
		if entry == nil || entry.IsSpent() {
			continue
		}
		if _, ok := wanted[string(entry.pkScript)]; ok {
			entries[outpoint] = entry.Clone()
		}
	}
	b.chainLock.RUnlock()
	return entries
}

// FetchUtxoView loads unspent transaction outputs for the inputs referenced by
// the passed transaction from the point of view of the end of the main chain.
// It also attempts to fetch the utxos for the outputs of the transaction
// itself so the returned view can be examined for duplicate transactions.
//
// This function is safe for concurrent access.
func (b *BlockChain) FetchUtxoView(tx *btcutil.Tx) *UtxoViewpoint {
	view := NewUtxoViewpoint()
	view.entries = make(map[wire.OutPoint]*UtxoEntry)

	b.chainLock.RLock()
	defer b.chainLock.RUnlock()

	for _, txIn := range tx.MsgTx().TxIn {
		op := txIn.PreviousOutPoint
		if entry := b.utxos[op]; entry != nil {
			view.entries[op] = entry.Clone()
		}
	}
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for idx := range tx.MsgTx().TxOut {
		prevOut.Index = uint32(idx)
		if entry := b.utxos[prevOut]; entry != nil {
			view.entries[prevOut] = entry.Clone()
		}
	}
	view.SetBestHash(&b.bestChain.Tip().hash)
	return view
}

// AddTxOuts adds all outputs in the passed transaction which are not provably
// unspendable to the view as if they were created at the given height.  It is
// used by the mempool to make in-pool outputs visible to descendants.
func (view *UtxoViewpoint) AddTxOuts(tx *btcutil.Tx, height int32) {
	prevOut := wire.OutPoint{Hash: *tx.Hash()}
	for idx, txOut := range tx.MsgTx().TxOut {
		if txscript.IsUnspendable(txOut.PkScript) {
			continue
		}
		prevOut.Index = uint32(idx)
		view.entries[prevOut] = &UtxoEntry{
			amount:      txOut.Value,
			pkScript:    txOut.PkScript,
			blockHeight: height,
			packedFlags: tfModified,
		}
	}
}

// Entries returns the underlying map that stores of all the utxo entries
// recorded in the view.
func (view *UtxoViewpoint) Entries() map[wire.OutPoint]*UtxoEntry {
	return view.entries
}
