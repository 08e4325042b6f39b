// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/bgutil"
	"github.com/bitgoldsuite/bgd/blockchain/dividend"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// spendTx returns a transaction spending op to testPkScript.
func spendTx(op wire.OutPoint, value int64) *wire.MsgTx {
	tx := wire.NewMsgTx(1)
	tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	tx.AddTxOut(wire.NewTxOut(value, testPkScript))
	return tx
}

// TestCheckTransactionSanity tests the context free transaction checks.
func TestCheckTransactionSanity(t *testing.T) {
	t.Parallel()

	prevOut := wire.OutPoint{Hash: chainhash.Hash{0x01}, Index: 0}

	tests := []struct {
		name  string
		munge func(*wire.MsgTx)
		code  ErrorCode
		ok    bool
	}{
		{
			name:  "valid",
			munge: func(*wire.MsgTx) {},
			ok:    true,
		},
		{
			name:  "no inputs",
			munge: func(tx *wire.MsgTx) { tx.TxIn = nil },
			code:  ErrNoTxInputs,
		},
		{
			name:  "no outputs",
			munge: func(tx *wire.MsgTx) { tx.TxOut = nil },
			code:  ErrNoTxOutputs,
		},
		{
			name:  "negative output",
			munge: func(tx *wire.MsgTx) { tx.TxOut[0].Value = -1 },
			code:  ErrBadTxOutValue,
		},
		{
			name: "output above max",
			munge: func(tx *wire.MsgTx) {
				tx.TxOut[0].Value = btcutil.MaxSatoshi + 1
			},
			code: ErrBadTxOutValue,
		},
		{
			name: "total above max",
			munge: func(tx *wire.MsgTx) {
				tx.TxOut[0].Value = btcutil.MaxSatoshi
				tx.AddTxOut(wire.NewTxOut(1, testPkScript))
			},
			code: ErrBadTxOutValue,
		},
		{
			name: "duplicate inputs",
			munge: func(tx *wire.MsgTx) {
				tx.AddTxIn(wire.NewTxIn(&prevOut, nil, nil))
			},
			code: ErrDuplicateTxInputs,
		},
		{
			name: "null input",
			munge: func(tx *wire.MsgTx) {
				tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{
					Index: wire.MaxPrevOutIndex,
				}, nil, nil))
			},
			code: ErrBadTxInput,
		},
	}

	for _, test := range tests {
		tx := spendTx(prevOut, 1000)
		test.munge(tx)
		err := CheckTransactionSanity(btcutil.NewTx(tx))
		if test.ok {
			require.NoError(t, err, test.name)
			continue
		}
		var rerr RuleError
		require.ErrorAs(t, err, &rerr, test.name)
		require.Equal(t, test.code, rerr.ErrorCode, test.name)
	}
}

// TestIsCoinBaseTx ensures only transactions spending the single null
// outpoint are treated as coinbases.
func TestIsCoinBaseTx(t *testing.T) {
	t.Parallel()

	coinbase := wire.NewMsgTx(1)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{
		Index: wire.MaxPrevOutIndex,
	}, nil, nil))
	coinbase.AddTxOut(wire.NewTxOut(1, testPkScript))
	require.True(t, IsCoinBaseTx(coinbase))

	coinbase.TxIn[0].PreviousOutPoint.Hash[0] = 1
	require.False(t, IsCoinBaseTx(coinbase))

	spend := spendTx(wire.OutPoint{Hash: chainhash.Hash{0x02}}, 1)
	require.False(t, IsCoinBaseTx(spend))
	require.False(t, IsCoinBase(btcutil.NewTx(spend)))
}

// TestCheckBlockSanity tests the context free block checks against mutations
// of a valid proof of work block.
func TestCheckBlockSanity(t *testing.T) {
	params := regtestParams()
	chain := chainSetup(t, newTestDB(t), params)
	g := newTestGenerator(t, chain)
	timeSource := NewMedianTime()

	valid := g.nextWorkBlock()
	require.NoError(t, CheckBlockSanity(valid, params, timeSource))

	extraTx := spendTx(wire.OutPoint{Hash: chainhash.Hash{0x03}}, 1)

	tests := []struct {
		name      string
		munge     func(*wire.MsgBlock)
		sig       []byte
		keepRoot  bool
		wantError ErrorCode
	}{
		{
			name: "time too new",
			munge: func(b *wire.MsgBlock) {
				b.Header.Timestamp = time.Now().Add(3 * time.Hour)
			},
			wantError: ErrTimeTooNew,
		},
		{
			name:      "no transactions",
			munge:     func(b *wire.MsgBlock) { b.Transactions = nil },
			wantError: ErrNoTransactions,
		},
		{
			name: "first tx not coinbase",
			munge: func(b *wire.MsgBlock) {
				b.Transactions[0] = extraTx
			},
			wantError: ErrFirstTxNotCoinbase,
		},
		{
			name: "second coinbase",
			munge: func(b *wire.MsgBlock) {
				b.Transactions = append(b.Transactions,
					g.coinbaseTx(1, wire.NewTxOut(1, testPkScript)))
			},
			wantError: ErrMultipleCoinbases,
		},
		{
			name: "bad merkle root",
			munge: func(b *wire.MsgBlock) {
				b.Header.MerkleRoot = chainhash.Hash{0x04}
			},
			keepRoot:  true,
			wantError: ErrBadMerkleRoot,
		},
		{
			name: "duplicate transaction",
			munge: func(b *wire.MsgBlock) {
				b.Transactions = append(b.Transactions, extraTx,
					extraTx)
			},
			wantError: ErrDuplicateTx,
		},
		{
			name: "bad transaction",
			munge: func(b *wire.MsgBlock) {
				tx := extraTx.Copy()
				tx.TxOut[0].Value = -1
				b.Transactions = append(b.Transactions, tx)
			},
			wantError: ErrBadTxOutValue,
		},
		{
			name:      "signed work block",
			munge:     func(*wire.MsgBlock) {},
			sig:       []byte{0x01},
			wantError: ErrCoinStakeMissing,
		},
		{
			name: "work above limit",
			munge: func(b *wire.MsgBlock) {
				b.Header.Bits = 0x217fffff
			},
			wantError: ErrUnexpectedDifficulty,
		},
	}

	for _, test := range tests {
		msg := valid.MsgBlock().Copy()
		test.munge(msg)
		if !test.keepRoot {
			msg.Header.MerkleRoot = merkleRoot(msg.Transactions)
		}
		if test.wantError != ErrUnexpectedDifficulty {
			solveBlock(&msg.Header, params.PowLimit)
		}

		err := CheckBlockSanity(bgutil.NewSignedBlock(msg, test.sig),
			params, timeSource)
		var rerr RuleError
		require.ErrorAs(t, err, &rerr, test.name)
		require.Equal(t, test.wantError, rerr.ErrorCode, test.name)
	}
}

// TestCheckBlockHeaderContext tests the checks that depend on the position of
// a header within the chain.
func TestCheckBlockHeaderContext(t *testing.T) {
	t.Parallel()

	params := regtestParams()
	const baseTime = 1704067200

	workTip := tstTip(chainedNodes(nil, 5))
	workTip.timestamp = baseTime
	stakeTip := tstTip(chainedNodes(nil, int(params.PoSActivationHeight)))
	stakeTip.timestamp = baseTime

	header := func(bits uint32, offset int64) *wire.BlockHeader {
		return &wire.BlockHeader{
			Bits:      bits,
			Timestamp: time.Unix(baseTime+offset, 0),
		}
	}

	tests := []struct {
		name   string
		prev   *blockNode
		header *wire.BlockHeader
		pos    bool
		reason string
	}{
		{"work", workTip, header(params.PowLimitBits, 60), false, ""},
		{"stake before activation", workTip, header(params.PosLimitBits, 64), true, "bad-pos-height"},
		{"work after activation", stakeTip, header(params.PowLimitBits, 60), false, "bad-pow"},
		{"wrong bits", workTip, header(0x207ffffe, 60), false, "bad-diffbits"},
		{"same time", workTip, header(params.PowLimitBits, 0), false, "time-too-old"},
		{"stake", stakeTip, header(params.PosLimitBits, 48), true, ""},
		{"stake too close", stakeTip, header(params.PosLimitBits, 32), true, "bad-pos-time-spacing"},
	}

	for _, test := range tests {
		err := checkBlockHeaderContext(params, test.header, test.prev,
			test.pos)
		if test.reason == "" {
			require.NoError(t, err, test.name)
			continue
		}
		require.Equal(t, test.reason, RejectReason(err), test.name)
	}
}

// TestCheckDividendOutputs tests the dividend and quarter payout output
// checks shared by coinbases and coinstakes.
func TestCheckDividendOutputs(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkDividendOutput(
		wire.NewTxOut(10, stake.DividendScript()), 10))
	require.Equal(t, "bad-dividend-amount", RejectReason(
		checkDividendOutput(wire.NewTxOut(11, stake.DividendScript()), 10)))
	require.Equal(t, "bad-dividend-script", RejectReason(
		checkDividendOutput(wire.NewTxOut(10, testPkScript), 10)))

	// The amount is checked before the script.
	require.Equal(t, "bad-dividend-amount", RejectReason(
		checkDividendOutput(wire.NewTxOut(9, testPkScript), 10)))

	otherScript := mustPayToPubKeyHash(otherPrivKey.PubKey())
	payouts := []dividend.Payout{
		{Key: testKey, Script: testPkScript, Amount: 5},
		{Key: dividend.KeyFromScript(otherScript), Script: otherScript, Amount: 7},
	}
	outs := []*wire.TxOut{payouts[0].TxOut(), payouts[1].TxOut()}

	tests := []struct {
		name   string
		outs   []*wire.TxOut
		reason string
	}{
		{"exact", outs, ""},
		{"missing", outs[:1], "bad-dividend-payout"},
		{"extra", append(append([]*wire.TxOut{}, outs...),
			wire.NewTxOut(1, testPkScript)), "bad-dividend-extra"},
		{"swapped", []*wire.TxOut{outs[1], outs[0]}, "bad-dividend-payout"},
		{"wrong amount", []*wire.TxOut{outs[0],
			wire.NewTxOut(8, otherScript)}, "bad-dividend-payout"},
	}

	for _, test := range tests {
		err := checkPayoutOutputs(test.outs, payouts)
		if test.reason == "" {
			require.NoError(t, err, test.name)
			continue
		}
		require.Equal(t, test.reason, RejectReason(err), test.name)
	}

	require.NoError(t, checkPayoutOutputs(nil, nil))
	require.Equal(t, "bad-dividend-extra", RejectReason(
		checkPayoutOutputs(outs[:1], nil)))
}
