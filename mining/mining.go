// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"errors"
	"fmt"
	"time"

	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// UnminedHeight is the height used for the "block" height field of the
	// contextual transaction information provided in a transaction store
	// when it has not yet been mined into a block.
	UnminedHeight = 0x7fffffff

	// coinbaseFlags is added to the coinbase script of a generated block
	// and is used to monitor BIP16 support as well as blocks that are
	// generated via bgd.
	coinbaseFlags = "/bgd/"
)

// TxDesc is a descriptor about a transaction in a transaction source along with
// additional metadata.
type TxDesc struct {
	// Tx is the transaction associated with the entry.
	Tx *btcutil.Tx

	// Added is the time when the entry was added to the source pool.
	Added time.Time

	// Height is the block height when the entry was added to the the source
	// pool.
	Height int32

	// Fee is the total fee the transaction associated with the entry pays.
	Fee int64

	// FeePerKB is the fee the transaction pays in base units per 1000
	// bytes.
	FeePerKB int64

	// StakeWeight is the total value the transaction moves.
	StakeWeight int64

	// Priority is the current priority score of the transaction.
	Priority int64
}

// TxSource represents a source of transactions to consider for inclusion in
// new blocks.
//
// The interface contract requires that all of these methods are safe for
// concurrent access with respect to the source.
type TxSource interface {
	// LastUpdated returns the last time a transaction was added to or
	// removed from the source pool.
	LastUpdated() time.Time

	// MiningDescs returns a slice of mining descriptors for all the
	// transactions in the source pool, best first.
	MiningDescs() []*TxDesc

	// HaveTransaction returns whether or not the passed transaction hash
	// exists in the source pool.
	HaveTransaction(hash *chainhash.Hash) bool
}

// ChainSource is the view of the block chain needed to build a proof of stake
// block on its tip.  It is satisfied by *blockchain.BlockChain.
type ChainSource interface {
	// BestSnapshot returns information about the current chain tip.
	BestSnapshot() *blockchain.BestState

	// StakeContext returns the kernel context for a block built on the
	// tip and the difficulty it must meet.
	StakeContext() (*stake.PrevBlock, uint32)

	// NextBlockPayouts returns the quarter payouts owed by a block built
	// on the tip.
	NextBlockPayouts(c *dividend.BlockContribution) []dividend.Payout
}

// StakeRequest describes the coinstake a template is built around.
type StakeRequest struct {
	// Hit is the kernel that satisfied the stake target.
	Hit *stake.KernelHit

	// Extra are additional mature outputs merged into the coinstake.
	Extra []*stake.KernelInput

	// PayScript receives the staked amount plus the validator reward.
	PayScript []byte
}

// BlockTemplate houses a block that has yet to be signed along with
// additional details about the fees and the reward it claims.
type BlockTemplate struct {
	// Block is a block that is ready to be signed by the staker.  The
	// merkle root is already computed.
	Block *wire.MsgBlock

	// Fees contains the amount of fees each transaction in the generated
	// template pays in base units.  The coinbase and coinstake entries
	// are zero.
	Fees []int64

	// Height is the height at which the block template connects to the
	// main chain.
	Height int32

	// Reward is the total reward the coinstake claims, fees included.
	Reward int64

	// Staked is the value of all coinstake inputs.
	Staked int64
}

// BlkTmplGenerator provides a type that can be used to generate block templates
// based on a given mining policy and source of transactions to choose from.
type BlkTmplGenerator struct {
	policy      *Policy
	chainParams *chaincfg.Params
	txSource    TxSource
	chain       ChainSource
}

// NewBlkTmplGenerator returns a new block template generator for the given
// policy using transactions from the provided transaction source.
func NewBlkTmplGenerator(policy *Policy, params *chaincfg.Params,
	txSource TxSource, chain ChainSource) *BlkTmplGenerator {

	return &BlkTmplGenerator{
		policy:      policy,
		chainParams: params,
		txSource:    txSource,
		chain:       chain,
	}
}

// standardCoinbaseScript returns a standard script suitable for use as the
// signature script of the coinbase transaction of a new block.  In particular,
// it starts with the block height that is required by version 2 blocks and
// adds the extra nonce as well as additional coinbase flags.
func standardCoinbaseScript(nextBlockHeight int32, extraNonce uint64) ([]byte, error) {
	return txscript.NewScriptBuilder().AddInt64(int64(nextBlockHeight)).
		AddInt64(int64(extraNonce)).AddData([]byte(coinbaseFlags)).
		Script()
}

// createStakeCoinbaseTx returns the empty coinbase of a proof of stake block.
// The reward is claimed by the coinstake so its single output carries nothing.
func createStakeCoinbaseTx(coinbaseScript []byte) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		// Coinbase transactions have no inputs, so previous outpoint is
		// zero hash and max index.
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{},
			wire.MaxPrevOutIndex),
		SignatureScript: coinbaseScript,
		Sequence:        wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{})
	return tx
}

// selectTransactions walks the policy ordered source and returns the
// transactions that fit in a block of maxSize bytes.  A transaction is only
// taken after every in-pool parent it spends, and anything spending one of
// the excluded outpoints is skipped along with its descendants.
func (g *BlkTmplGenerator) selectTransactions(excluded map[wire.OutPoint]struct{},
	blockSize uint32) ([]*btcutil.Tx, []int64) {

	descs := g.txSource.MiningDescs()
	inSource := make(map[chainhash.Hash]struct{}, len(descs))
	for _, desc := range descs {
		inSource[*desc.Tx.Hash()] = struct{}{}
	}

	var (
		txns     []*btcutil.Tx
		fees     []int64
		included = make(map[chainhash.Hash]struct{})
		dropped  = make(map[chainhash.Hash]struct{})
	)
	pending := descs
	for len(pending) > 0 {
		var deferred []*TxDesc
	nextDesc:
		for _, desc := range pending {
			tx := desc.Tx
			for _, txIn := range tx.MsgTx().TxIn {
				prev := txIn.PreviousOutPoint
				if _, ok := excluded[prev]; ok {
					log.Tracef("Skipping tx %s which spends a "+
						"coinstake input", tx.Hash())
					dropped[*tx.Hash()] = struct{}{}
					continue nextDesc
				}
				if _, ok := dropped[prev.Hash]; ok {
					dropped[*tx.Hash()] = struct{}{}
					continue nextDesc
				}
				_, fromSource := inSource[prev.Hash]
				_, have := included[prev.Hash]
				if fromSource && !have {
					deferred = append(deferred, desc)
					continue nextDesc
				}
			}

			if desc.FeePerKB < int64(g.policy.TxMinFreeFee) {
				log.Tracef("Skipping tx %s with feePerKB %d < "+
					"TxMinFreeFee %d", tx.Hash(), desc.FeePerKB,
					g.policy.TxMinFreeFee)
				dropped[*tx.Hash()] = struct{}{}
				continue
			}

			txSize := uint32(tx.MsgTx().SerializeSize())
			if blockSize+txSize > g.policy.BlockMaxSize {
				log.Tracef("Skipping tx %s because it would "+
					"exceed the max block size", tx.Hash())
				dropped[*tx.Hash()] = struct{}{}
				continue
			}

			blockSize += txSize
			txns = append(txns, tx)
			fees = append(fees, desc.Fee)
			included[*tx.Hash()] = struct{}{}
		}

		// Stop once a pass makes no progress; whatever is left depends
		// on parents that were never taken.
		if len(deferred) == len(pending) {
			break
		}
		pending = deferred
	}

	return txns, fees
}

// NewStakeTemplate returns a new proof of stake block template on the current
// chain tip built around the coinstake described by req.  The block carries
// the transactions the source offers, in its order, subject to the policy and
// their in-pool dependencies, and a coinstake claiming the subsidy scaled
// by the stake age and the fees of the selected transactions.
//
// The returned block is unsigned.  Its time is the kernel time.
func (g *BlkTmplGenerator) NewStakeTemplate(req *StakeRequest) (*BlockTemplate, error) {
	if req.Hit == nil || req.Hit.Input == nil {
		return nil, errors.New("stake template requires a kernel")
	}

	best := g.chain.BestSnapshot()
	prev, bits := g.chain.StakeContext()
	if prev.Hash != best.Hash {
		return nil, fmt.Errorf("chain tip moved from %v to %v while "+
			"building template", best.Hash, prev.Hash)
	}
	nextHeight := best.Height + 1
	if !g.chainParams.IsPoSHeight(nextHeight) {
		return nil, fmt.Errorf("height %d is before proof of stake "+
			"activation at %d", nextHeight,
			g.chainParams.PoSActivationHeight)
	}

	kernel := req.Hit.Input
	inputs := []wire.OutPoint{kernel.OutPoint}
	staked := kernel.Amount
	excluded := map[wire.OutPoint]struct{}{kernel.OutPoint: {}}
	for _, in := range req.Extra {
		if _, ok := excluded[in.OutPoint]; ok {
			return nil, fmt.Errorf("coinstake input %v listed twice",
				in.OutPoint)
		}
		excluded[in.OutPoint] = struct{}{}
		inputs = append(inputs, in.OutPoint)
		staked += in.Amount
	}

	coinbaseScript, err := standardCoinbaseScript(nextHeight, 0)
	if err != nil {
		return nil, err
	}
	coinbase := createStakeCoinbaseTx(coinbaseScript)

	// Reserve room for the coinbase, the coinstake and the block header
	// before choosing transactions.
	reserved := uint32(blockHeaderOverhead + coinbase.SerializeSize() +
		coinStakeOverhead + len(inputs)*coinStakeInputSize)
	txns, txFees := g.selectTransactions(excluded, reserved)

	var totalFees int64
	for _, fee := range txFees {
		totalFees += fee
	}

	age := time.Duration(req.Hit.Time-kernel.OriginTime) * time.Second
	subsidy := blockchain.CalcBlockSubsidy(nextHeight, g.chainParams)
	reward := stake.CalcStakeReward(g.chainParams, subsidy, totalFees, age)

	var payouts []*wire.TxOut
	if g.chainParams.DividendPayouts {
		_, div := stake.SplitReward(reward)
		for _, p := range g.chain.NextBlockPayouts(&dividend.BlockContribution{
			Dividend:     div,
			StakerScript: req.PayScript,
			Staked:       staked,
		}) {
			payouts = append(payouts, p.TxOut())
		}
	}

	coinStake := stake.NewCoinStakeTx(&stake.CoinStakeTemplate{
		Inputs:          inputs,
		Staked:          staked,
		Reward:          reward,
		PayScript:       req.PayScript,
		DividendPayouts: g.chainParams.DividendPayouts,
		Payouts:         payouts,
		Time:            req.Hit.Time,
	})

	blockTxns := make([]*btcutil.Tx, 0, len(txns)+2)
	blockTxns = append(blockTxns, btcutil.NewTx(coinbase),
		btcutil.NewTx(coinStake))
	blockTxns = append(blockTxns, txns...)

	msgBlock := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    1,
			PrevBlock:  best.Hash,
			MerkleRoot: blockchain.CalcMerkleRoot(blockTxns),
			Timestamp:  time.Unix(req.Hit.Time, 0),
			Bits:       bits,
		},
	}
	fees := make([]int64, 0, len(blockTxns))
	fees = append(fees, 0, 0)
	fees = append(fees, txFees...)
	for _, tx := range blockTxns {
		msgBlock.AddTransaction(tx.MsgTx())
	}

	log.Debugf("Created stake template at height %d with %d transactions "+
		"claiming %v (fees %v)", nextHeight, len(blockTxns),
		btcutil.Amount(reward), btcutil.Amount(totalFees))

	return &BlockTemplate{
		Block:  msgBlock,
		Fees:   fees,
		Height: nextHeight,
		Reward: reward,
		Staked: staked,
	}, nil
}
