// Copyright (c) 2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// fakeTxSource serves a fixed, already ordered set of descriptors.
type fakeTxSource struct {
	descs []*TxDesc
}

func (s *fakeTxSource) LastUpdated() time.Time { return time.Time{} }

func (s *fakeTxSource) MiningDescs() []*TxDesc { return s.descs }

func (s *fakeTxSource) HaveTransaction(hash *chainhash.Hash) bool {
	for _, desc := range s.descs {
		if desc.Tx.Hash().IsEqual(hash) {
			return true
		}
	}
	return false
}

// fakeChain serves a fixed tip and records the contribution it was asked to
// pay out against.
type fakeChain struct {
	best         blockchain.BestState
	prev         stake.PrevBlock
	bits         uint32
	payouts      []dividend.Payout
	contribution *dividend.BlockContribution
}

func (c *fakeChain) BestSnapshot() *blockchain.BestState {
	best := c.best
	return &best
}

func (c *fakeChain) StakeContext() (*stake.PrevBlock, uint32) {
	prev := c.prev
	return &prev, c.bits
}

func (c *fakeChain) NextBlockPayouts(contrib *dividend.BlockContribution) []dividend.Payout {
	contrib.Height = c.best.Height + 1
	c.contribution = contrib
	return c.payouts
}

const (
	testTipHeight = 30
	testTipTime   = 1700000000
)

func newFakeChain(params *chaincfg.Params) *fakeChain {
	tip := chainhash.Hash{0xaa}
	return &fakeChain{
		best: blockchain.BestState{
			Hash:   tip,
			Height: testTipHeight,
		},
		prev: stake.PrevBlock{
			Hash:   tip,
			Height: testTipHeight,
			Time:   testTipTime,
		},
		bits: params.PosLimitBits,
	}
}

// newTestTx returns a transaction spending the given outpoints with a single
// output of value.
func newTestTx(value int64, spends ...wire.OutPoint) *btcutil.Tx {
	msgTx := wire.NewMsgTx(wire.TxVersion)
	for i := range spends {
		msgTx.AddTxIn(wire.NewTxIn(&spends[i], []byte{0x51}, nil))
	}
	msgTx.AddTxOut(wire.NewTxOut(value, []byte{0x51}))
	return btcutil.NewTx(msgTx)
}

func newTestDesc(tx *btcutil.Tx, fee, feePerKB int64) *TxDesc {
	return &TxDesc{Tx: tx, Fee: fee, FeePerKB: feePerKB}
}

// newTestRequest returns a stake request whose kernel was confirmed a day
// before the hit.
func newTestRequest() *StakeRequest {
	hitTime := int64(testTipTime + 64)
	return &StakeRequest{
		Hit: &stake.KernelHit{
			Input: &stake.KernelInput{
				OutPoint:   wire.OutPoint{Hash: chainhash.Hash{0x01}},
				Amount:     100 * chaincfg.Coin,
				OriginTime: hitTime - 24*60*60,
			},
			Time: hitTime,
		},
		PayScript: []byte{0x76, 0xa9},
	}
}

func txHashes(block *wire.MsgBlock) []chainhash.Hash {
	hashes := make([]chainhash.Hash, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		hashes = append(hashes, tx.TxHash())
	}
	return hashes
}

// TestNewStakeTemplate ensures templates carry a stake coinbase, a coinstake
// claiming the reward and fees, the dividend outputs and the selected
// transactions.
func TestNewStakeTemplate(t *testing.T) {
	params := chaincfg.RegressionNetParams
	chain := newFakeChain(&params)
	chain.payouts = []dividend.Payout{{Script: []byte{0x52}, Amount: 7000}}

	txA := newTestTx(1000, wire.OutPoint{Hash: chainhash.Hash{0x10}})
	txB := newTestTx(2000, wire.OutPoint{Hash: chainhash.Hash{0x11}})
	source := &fakeTxSource{descs: []*TxDesc{
		newTestDesc(txA, 3000, 30000),
		newTestDesc(txB, 1500, 15000),
	}}

	req := newTestRequest()
	extra := &stake.KernelInput{
		OutPoint: wire.OutPoint{Hash: chainhash.Hash{0x02}, Index: 1},
		Amount:   50 * chaincfg.Coin,
	}
	req.Extra = []*stake.KernelInput{extra}

	g := NewBlkTmplGenerator(&Policy{BlockMaxSize: DefaultBlockMaxSize},
		&params, source, chain)
	tmpl, err := g.NewStakeTemplate(req)
	require.NoError(t, err)

	block := tmpl.Block
	require.Equal(t, int32(testTipHeight+1), tmpl.Height)
	require.Equal(t, chain.best.Hash, block.Header.PrevBlock)
	require.Equal(t, chain.bits, block.Header.Bits)
	require.Equal(t, req.Hit.Time, block.Header.Timestamp.Unix())
	require.Len(t, block.Transactions, 4)
	require.True(t, blockchain.IsCoinBaseTx(block.Transactions[0]))
	require.Len(t, block.Transactions[0].TxOut, 1)
	require.Zero(t, block.Transactions[0].TxOut[0].Value)
	require.True(t, stake.IsCoinStakeTx(block.Transactions[1]))
	require.Equal(t, []chainhash.Hash{*txA.Hash(), *txB.Hash()},
		txHashes(block)[2:])
	require.Equal(t, []int64{0, 0, 3000, 1500}, tmpl.Fees)

	btxns := make([]*btcutil.Tx, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		btxns = append(btxns, btcutil.NewTx(tx))
	}
	require.Equal(t, blockchain.CalcMerkleRoot(btxns),
		block.Header.MerkleRoot)

	// The reward covers the subsidy, age and the fees of both
	// transactions.
	subsidy := blockchain.CalcBlockSubsidy(testTipHeight+1, &params)
	wantReward := stake.CalcStakeReward(&params, subsidy, 4500, 24*time.Hour)
	require.Equal(t, wantReward, tmpl.Reward)
	require.Equal(t, int64(150*chaincfg.Coin), tmpl.Staked)

	coinStake := block.Transactions[1]
	require.Equal(t, uint32(req.Hit.Time), coinStake.LockTime)
	require.Len(t, coinStake.TxIn, 2)
	require.Equal(t, req.Hit.Input.OutPoint, coinStake.TxIn[0].PreviousOutPoint)
	require.Equal(t, extra.OutPoint, coinStake.TxIn[1].PreviousOutPoint)

	validator, div := stake.SplitReward(wantReward)
	require.Len(t, coinStake.TxOut, 4)
	require.Equal(t, tmpl.Staked+validator, coinStake.TxOut[1].Value)
	require.Equal(t, req.PayScript, coinStake.TxOut[1].PkScript)
	require.Equal(t, div, coinStake.TxOut[2].Value)
	require.True(t, stake.IsDividendScript(coinStake.TxOut[2].PkScript))
	require.Equal(t, int64(7000), coinStake.TxOut[3].Value)

	require.NotNil(t, chain.contribution)
	require.Equal(t, div, chain.contribution.Dividend)
	require.Equal(t, tmpl.Staked, chain.contribution.Staked)
	require.Equal(t, req.PayScript, chain.contribution.StakerScript)
}

// TestNewStakeTemplateNoDividend ensures the validator keeps the whole reward
// on networks without dividend payouts.
func TestNewStakeTemplateNoDividend(t *testing.T) {
	params := chaincfg.RegressionNetParams
	params.DividendPayouts = false
	chain := newFakeChain(&params)

	g := NewBlkTmplGenerator(&Policy{BlockMaxSize: DefaultBlockMaxSize},
		&params, &fakeTxSource{}, chain)
	tmpl, err := g.NewStakeTemplate(newTestRequest())
	require.NoError(t, err)

	coinStake := tmpl.Block.Transactions[1]
	require.Len(t, coinStake.TxOut, 2)
	require.Equal(t, tmpl.Staked+tmpl.Reward, coinStake.TxOut[1].Value)
	require.Nil(t, chain.contribution)
}

// TestSelectTransactions ensures parents precede children, spends of the
// coinstake inputs are dropped with their descendants and the policy limits
// apply.
func TestSelectTransactions(t *testing.T) {
	params := chaincfg.RegressionNetParams
	chain := newFakeChain(&params)
	req := newTestRequest()

	parent := newTestTx(5000, wire.OutPoint{Hash: chainhash.Hash{0x20}})
	child := newTestTx(4000, wire.OutPoint{Hash: *parent.Hash()})
	conflict := newTestTx(9000, req.Hit.Input.OutPoint)
	conflictChild := newTestTx(8000, wire.OutPoint{Hash: *conflict.Hash()})
	cheap := newTestTx(3000, wire.OutPoint{Hash: chainhash.Hash{0x21}})
	orphanChild := newTestTx(2000, wire.OutPoint{Hash: *cheap.Hash()})

	// The source lists children ahead of their parents.
	source := &fakeTxSource{descs: []*TxDesc{
		newTestDesc(child, 5000, 50000),
		newTestDesc(conflict, 4000, 40000),
		newTestDesc(conflictChild, 3000, 30000),
		newTestDesc(parent, 1000, 10000),
		newTestDesc(orphanChild, 900, 9000),
		newTestDesc(cheap, 10, 100),
	}}

	policy := &Policy{BlockMaxSize: DefaultBlockMaxSize, TxMinFreeFee: 1000}
	g := NewBlkTmplGenerator(policy, &params, source, chain)
	tmpl, err := g.NewStakeTemplate(req)
	require.NoError(t, err)
	require.Equal(t, []chainhash.Hash{*parent.Hash(), *child.Hash()},
		txHashes(tmpl.Block)[2:])
	require.Equal(t, []int64{0, 0, 1000, 5000}, tmpl.Fees)

	// A block with no room beyond the reserved space takes nothing.
	policy.BlockMaxSize = 1
	tmpl, err = g.NewStakeTemplate(req)
	require.NoError(t, err)
	require.Len(t, tmpl.Block.Transactions, 2)
}

// TestNewStakeTemplateErrors ensures invalid requests and chain states are
// refused.
func TestNewStakeTemplateErrors(t *testing.T) {
	params := chaincfg.RegressionNetParams
	policy := &Policy{BlockMaxSize: DefaultBlockMaxSize}

	chain := newFakeChain(&params)
	g := NewBlkTmplGenerator(policy, &params, &fakeTxSource{}, chain)
	_, err := g.NewStakeTemplate(&StakeRequest{})
	require.Error(t, err)

	// The kernel listed again as an extra input.
	req := newTestRequest()
	req.Extra = []*stake.KernelInput{req.Hit.Input}
	_, err = g.NewStakeTemplate(req)
	require.Error(t, err)

	// The tip moved between the snapshot and the stake context.
	chain.prev.Hash = chainhash.Hash{0xbb}
	_, err = g.NewStakeTemplate(newTestRequest())
	require.Error(t, err)

	// Proof of stake is not active yet.
	chain = newFakeChain(&params)
	chain.best.Height = params.PoSActivationHeight - 5
	chain.prev.Height = chain.best.Height
	g = NewBlkTmplGenerator(policy, &params, &fakeTxSource{}, chain)
	_, err = g.NewStakeTemplate(newTestRequest())
	require.Error(t, err)
}
