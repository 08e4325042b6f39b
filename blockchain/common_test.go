// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/database/engine"
	"github.com/bitgoldsuite/bgd/database/engine/leveldb"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

const (
	// stakeOutputs is the number of stake outputs created by the funding
	// transaction.
	stakeOutputs = 40

	// stakeValue is the value of every stake output.
	stakeValue int64 = 1000 * chaincfg.Coin
)

var (
	testPrivKey, testPubKey = btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x11}, 32))
	otherPrivKey, _         = btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x22}, 32))

	// testPkScript receives every reward paid by the test generator.
	testPkScript = mustPayToPubKeyHash(testPubKey)

	// testKey is the dividend registry key of testPkScript.
	testKey = dividend.KeyFromScript(testPkScript)
)

func mustPayToPubKeyHash(pub *btcec.PublicKey) []byte {
	script, err := stake.PayToPubKeyHashScript(
		btcutil.Hash160(pub.SerializeCompressed()))
	if err != nil {
		panic(err)
	}
	return script
}

// regtestParams returns a copy of the regression test parameters so tests
// may tweak them freely.
func regtestParams() *chaincfg.Params {
	params := chaincfg.RegressionNetParams
	return &params
}

// newTestDB returns an in-memory database closed when the test ends.
func newTestDB(t *testing.T) engine.Engine {
	db, err := leveldb.NewMemDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// chainSetup creates a chain instance on top of db.
func chainSetup(t *testing.T, db engine.Engine, params *chaincfg.Params) *BlockChain {
	chain, err := New(&Config{
		DB:          db,
		ChainParams: params,
		TimeSource:  NewMedianTime(),
	})
	require.NoError(t, err)
	return chain
}

// merkleRoot returns the merkle root of txns.
func merkleRoot(txns []*wire.MsgTx) chainhash.Hash {
	txs := make([]*btcutil.Tx, 0, len(txns))
	for _, tx := range txns {
		txs = append(txs, btcutil.NewTx(tx))
	}
	return CalcMerkleRoot(txs)
}

// solveBlock increments the nonce until the header meets its own target.
func solveBlock(header *wire.BlockHeader, powLimit *big.Int) {
	for checkProofOfWork(header, powLimit) != nil {
		header.Nonce++
	}
}

// genBlock is a block built by the test generator.
type genBlock struct {
	block  *bgutil.Block
	parent *genBlock
	height int32
	time   int64

	// kernel is the stake spent by a proof of stake block.
	kernel *stakeOutput
}

// stakeOutput is an output usable as a stake kernel.
type stakeOutput struct {
	outPoint   wire.OutPoint
	amount     int64
	originHash chainhash.Hash
	originTime int64
}

// testGenerator builds valid regtest blocks on top of its current tip.  The
// tip does not follow the chain: tests move it to build side chains.
type testGenerator struct {
	t      *testing.T
	params *chaincfg.Params
	chain  *BlockChain
	blocks map[chainhash.Hash]*genBlock
	tip    *genBlock
	stakes []*stakeOutput
	nonce  int64
}

func newTestGenerator(t *testing.T, chain *BlockChain) *testGenerator {
	params := chain.ChainParams()
	genesis := &genBlock{
		block: bgutil.NewBlock(params.GenesisBlock),
		time:  params.GenesisBlock.Header.Timestamp.Unix(),
	}
	g := &testGenerator{
		t:      t,
		params: params,
		chain:  chain,
		blocks: make(map[chainhash.Hash]*genBlock),
		tip:    genesis,
	}
	g.blocks[*genesis.block.Hash()] = genesis
	return g
}

// add records block as the new generator tip.
func (g *testGenerator) add(block *bgutil.Block, parent *genBlock, kernel *stakeOutput) *bgutil.Block {
	height := parent.height + 1
	gb := &genBlock{
		block:  block,
		parent: parent,
		height: height,
		time:   block.MsgBlock().Header.Timestamp.Unix(),
		kernel: kernel,
	}
	block.SetHeight(height)
	g.blocks[*block.Hash()] = gb
	g.tip = gb
	return block
}

// lookup returns the generator record of block.
func (g *testGenerator) lookup(block *bgutil.Block) *genBlock {
	gb, ok := g.blocks[*block.Hash()]
	require.True(g.t, ok, "unknown block %v", block.Hash())
	return gb
}

// setTip moves the generator tip to block.
func (g *testGenerator) setTip(block *bgutil.Block) {
	g.tip = g.lookup(block)
}

// branch returns the blocks from height 1 up to and including block.
func (g *testGenerator) branch(block *bgutil.Block) []*bgutil.Block {
	var blocks []*bgutil.Block
	for gb := g.lookup(block); gb.parent != nil; gb = gb.parent {
		blocks = append(blocks, gb.block)
	}
	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	return blocks
}

// payouts returns the quarter payouts owed by the next block.  They are only
// known when the generator builds on the chain tip.
func (g *testGenerator) payouts(c *dividend.BlockContribution) []*wire.TxOut {
	if !g.params.DividendPayouts ||
		*g.tip.block.Hash() != g.chain.BestSnapshot().Hash {
		return nil
	}
	var outs []*wire.TxOut
	for _, p := range g.chain.NextBlockPayouts(c) {
		outs = append(outs, p.TxOut())
	}
	return outs
}

// coinbaseTx returns a coinbase unique to this generator paying outs.
func (g *testGenerator) coinbaseTx(height int32, outs ...*wire.TxOut) *wire.MsgTx {
	g.nonce++
	sigScript, err := txscript.NewScriptBuilder().
		AddInt64(int64(height)).
		AddInt64(g.nonce).
		Script()
	require.NoError(g.t, err)

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	for _, out := range outs {
		tx.AddTxOut(out)
	}
	return tx
}

// nextWorkBlock builds a proof of work block on the generator tip paying the
// miner share to testPkScript.  Additional transactions must pay no fee.  The
// mungers run before the merkle root is computed and the block is solved.
func (g *testGenerator) nextWorkBlock(mungers ...func(*wire.MsgBlock)) *bgutil.Block {
	parent := g.tip
	height := parent.height + 1
	reward := CalcBlockSubsidy(height, g.params)

	var outs []*wire.TxOut
	if g.params.DividendPayouts {
		miner, div := stake.SplitReward(reward)
		outs = append(outs, wire.NewTxOut(miner, testPkScript),
			wire.NewTxOut(div, stake.DividendScript()))
		outs = append(outs, g.payouts(&dividend.BlockContribution{
			Dividend: div,
		})...)
	} else {
		outs = append(outs, wire.NewTxOut(reward, testPkScript))
	}

	msg := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: *parent.block.Hash(),
			Timestamp: time.Unix(parent.time+60, 0),
			Bits:      g.params.PowLimitBits,
		},
		Transactions: []*wire.MsgTx{g.coinbaseTx(height, outs...)},
	}
	for _, munge := range mungers {
		munge(msg)
	}
	msg.Header.MerkleRoot = merkleRoot(msg.Transactions)
	solveBlock(&msg.Header, g.params.PowLimit)

	return g.add(bgutil.NewBlock(msg), parent, nil)
}

// withTxns appends txns to a block.
func withTxns(txns ...*wire.MsgTx) func(*wire.MsgBlock) {
	return func(msg *wire.MsgBlock) {
		msg.Transactions = append(msg.Transactions, txns...)
	}
}

// fundingTx splits the genesis allocation into stake outputs paying
// testPkScript and returns the remainder to the genesis script.
func (g *testGenerator) fundingTx() *wire.MsgTx {
	genesisTx := g.params.GenesisBlock.Transactions[0]
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: genesisTx.TxHash()}, nil, nil))
	for i := 0; i < stakeOutputs; i++ {
		tx.AddTxOut(wire.NewTxOut(stakeValue, testPkScript))
	}
	tx.AddTxOut(wire.NewTxOut(genesisTx.TxOut[0].Value-stakeOutputs*stakeValue,
		genesisTx.TxOut[0].PkScript))
	return tx
}

// nextFundingBlock builds a proof of work block carrying the funding
// transaction and makes its outputs available as stakes.
func (g *testGenerator) nextFundingBlock() *bgutil.Block {
	funding := g.fundingTx()
	block := g.nextWorkBlock(withTxns(funding))

	hash := funding.TxHash()
	g.stakes = g.stakes[:0]
	for i := 0; i < stakeOutputs; i++ {
		g.stakes = append(g.stakes, &stakeOutput{
			outPoint:   wire.OutPoint{Hash: hash, Index: uint32(i)},
			amount:     stakeValue,
			originHash: *block.Hash(),
			originTime: g.tip.time,
		})
	}
	return block
}

// coinbaseStake returns the miner output of a proof of work block as a stake.
func (g *testGenerator) coinbaseStake(block *bgutil.Block) *stakeOutput {
	coinbase := block.MsgBlock().Transactions[0]
	return &stakeOutput{
		outPoint:   wire.OutPoint{Hash: coinbase.TxHash()},
		amount:     coinbase.TxOut[0].Value,
		originHash: *block.Hash(),
		originTime: g.lookup(block).time,
	}
}

// stakeTime returns the earliest valid proof of stake timestamp after
// parentTime for a stake created at originTime.
func (g *testGenerator) stakeTime(parentTime, originTime int64) int64 {
	mask := int64(g.params.StakeTimestampMask)
	t := parentTime + int64(g.params.TargetTimePerBlock/time.Second)
	if min := originTime + int64(g.params.MinStakeAge/time.Second); t < min {
		t = min
	}
	return (t + mask) &^ mask
}

// stakeOpts customizes a proof of stake block.
type stakeOpts struct {
	kernel    *stakeOutput
	time      int64
	signer    *btcec.PrivateKey
	unsigned  bool
	coinStake func(*wire.MsgTx)
	block     func(*wire.MsgBlock)
}

type stakeOption func(*stakeOpts)

func withKernel(kernel *stakeOutput) stakeOption {
	return func(o *stakeOpts) { o.kernel = kernel }
}

func withStakeTime(t int64) stakeOption {
	return func(o *stakeOpts) { o.time = t }
}

func withSigner(key *btcec.PrivateKey) stakeOption {
	return func(o *stakeOpts) { o.signer = key }
}

func withoutSignature() stakeOption {
	return func(o *stakeOpts) { o.unsigned = true }
}

func withCoinStake(munge func(*wire.MsgTx)) stakeOption {
	return func(o *stakeOpts) { o.coinStake = munge }
}

func withBlock(munge func(*wire.MsgBlock)) stakeOption {
	return func(o *stakeOpts) { o.block = munge }
}

// nextStakeBlock builds a signed proof of stake block on the generator tip.
// Unless overridden the kernel is the next unused funding output and the
// timestamp is the earliest the kernel and spacing rules permit.
func (g *testGenerator) nextStakeBlock(opts ...stakeOption) *bgutil.Block {
	o := stakeOpts{signer: testPrivKey}
	for _, opt := range opts {
		opt(&o)
	}
	if o.kernel == nil {
		require.NotEmpty(g.t, g.stakes, "out of stakes")
		o.kernel = g.stakes[0]
		g.stakes = g.stakes[1:]
	}
	parent := g.tip
	height := parent.height + 1
	if o.time == 0 {
		o.time = g.stakeTime(parent.time, o.kernel.originTime)
	}

	age := time.Duration(o.time-o.kernel.originTime) * time.Second
	reward := stake.CalcStakeReward(g.params,
		CalcBlockSubsidy(height, g.params), 0, age)
	_, div := stake.SplitReward(reward)
	coinStake := stake.NewCoinStakeTx(&stake.CoinStakeTemplate{
		Inputs:          []wire.OutPoint{o.kernel.outPoint},
		Staked:          o.kernel.amount,
		Reward:          reward,
		PayScript:       testPkScript,
		DividendPayouts: g.params.DividendPayouts,
		Payouts: g.payouts(&dividend.BlockContribution{
			Dividend:     div,
			StakerScript: testPkScript,
			Staked:       o.kernel.amount,
		}),
		Time: o.time,
	})
	if o.coinStake != nil {
		o.coinStake(coinStake)
	}

	msg := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:   1,
			PrevBlock: *parent.block.Hash(),
			Timestamp: time.Unix(o.time, 0),
			Bits:      g.params.PosLimitBits,
		},
		Transactions: []*wire.MsgTx{
			g.coinbaseTx(height, wire.NewTxOut(0, nil)),
			coinStake,
		},
	}
	if o.block != nil {
		o.block(msg)
	}
	msg.Header.MerkleRoot = merkleRoot(msg.Transactions)

	block := bgutil.NewBlock(msg)
	if !o.unsigned {
		hash := block.Hash()
		sig := ecdsa.SignCompact(o.signer, hash[:], true)
		block.SetSignature(sig)
	}
	return g.add(block, parent, o.kernel)
}

// accept processes block and requires it to extend the main chain.
func (g *testGenerator) accept(block *bgutil.Block) {
	g.t.Helper()
	isMainChain, err := g.chain.ProcessBlock(block)
	require.NoError(g.t, err, "block at height %d", block.Height())
	require.True(g.t, isMainChain, "block at height %d", block.Height())
}

// acceptSide processes block without requiring it to become the tip.
func (g *testGenerator) acceptSide(block *bgutil.Block) bool {
	g.t.Helper()
	isMainChain, err := g.chain.ProcessBlock(block)
	require.NoError(g.t, err, "block at height %d", block.Height())
	return isMainChain
}

// reject processes block, requires it to fail with the given reject reason
// and moves the generator tip back to the parent the block was built on.
func (g *testGenerator) reject(block *bgutil.Block, reason string) {
	g.t.Helper()
	_, err := g.chain.ProcessBlock(block)
	require.Error(g.t, err, "block at height %d", block.Height())
	require.Equal(g.t, reason, RejectReason(err), err.Error())
	g.tip = g.lookup(block).parent
}

// extendWork accepts proof of work blocks up to the given height.  The
// funding transaction is mined at height 5.
func (g *testGenerator) extendWork(height int32) {
	for g.tip.height < height {
		if g.tip.height == 4 {
			g.accept(g.nextFundingBlock())
			continue
		}
		g.accept(g.nextWorkBlock())
	}
}

// extendStake accepts proof of stake blocks up to the given height.
func (g *testGenerator) extendStake(height int32) {
	for g.tip.height < height {
		g.accept(g.nextStakeBlock())
	}
}

// replayChain processes blocks into a fresh chain.
func replayChain(t *testing.T, params *chaincfg.Params, blocks []*bgutil.Block) *BlockChain {
	chain := chainSetup(t, newTestDB(t), params)
	for _, block := range blocks {
		_, err := chain.ProcessBlock(block)
		require.NoError(t, err)
	}
	return chain
}
