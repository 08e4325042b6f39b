// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/mining"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestCalcStakePriority(t *testing.T) {
	tests := []struct {
		name        string
		weight      int64
		maxPriority int64
		want        int64
	}{
		{"dust weight", chaincfg.Coin - 1, DefaultMaxPriority, 0},
		{"one coin", chaincfg.Coin, DefaultMaxPriority, 1},
		{"fractional coins round down", 5*chaincfg.Coin + chaincfg.Coin/2, DefaultMaxPriority, 5},
		{"just under full weight", 1000*chaincfg.Coin - 1, DefaultMaxPriority, 999},
		{"full weight", 1000 * chaincfg.Coin, DefaultMaxPriority, StakePriorityPoints},
		{"whale", 1e6 * chaincfg.Coin, DefaultMaxPriority, StakePriorityPoints},
		{"clamped", 999 * chaincfg.Coin, 100, 100},
	}

	for _, test := range tests {
		got := calcStakePriority(test.weight, test.maxPriority)
		require.Equal(t, test.want, got, test.name)
	}
}

func TestCalcFeePriority(t *testing.T) {
	tests := []struct {
		fee  int64
		want int64
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{1099, 1},
		{1100, 2},
		{10000, 10},
		{49099, 49},
		{49100, 50},
		{1e9, FeePriorityPoints},
	}

	for _, test := range tests {
		require.Equal(t, test.want, calcFeePriority(test.fee),
			"fee %d", test.fee)
	}
}

func TestCalcDurationPriority(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		age  time.Duration
		want int64
	}{
		{0, 0},
		{7*day - time.Second, 0},
		{7 * day, DurationWeekPoints},
		{30*day - time.Second, DurationWeekPoints},
		{30 * day, DurationMonthPoints},
		{365 * day, DurationMonthPoints},
	}

	for _, test := range tests {
		require.Equal(t, test.want, calcDurationPriority(test.age),
			"age %v", test.age)
	}
}

func TestInputAge(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	require.Zero(t, inputAge(params, 100, mining.UnminedHeight))
	require.Zero(t, inputAge(params, 100, 100))
	require.Zero(t, inputAge(params, 100, 150))
	require.Equal(t, 40*params.TargetTimePerBlock, inputAge(params, 100, 60))
}

func TestSignalsReplacement(t *testing.T) {
	msgTx := wire.NewMsgTx(wire.TxVersion)
	op := wire.NewOutPoint(&chainhash.Hash{0x01}, 0)
	msgTx.AddTxIn(wire.NewTxIn(op, nil, nil))
	require.False(t, signalsReplacement(msgTx))

	msgTx.TxIn[0].Sequence = wire.MaxTxInSequenceNum - 1
	require.False(t, signalsReplacement(msgTx))

	msgTx.AddTxIn(wire.NewTxIn(op, nil, nil))
	msgTx.TxIn[1].Sequence = wire.MaxTxInSequenceNum - 2
	require.True(t, signalsReplacement(msgTx))
}

func TestCalcPriority(t *testing.T) {
	base := priorityInputs{
		stakeWeight: 20 * btcutil.SatoshiPerBitcoin,
		fee:         5100,
		age:         8 * 24 * time.Hour,
	}

	tests := []struct {
		name        string
		adjust      func(in *priorityInputs)
		maxPriority int64
		want        int64
	}{{
		name:        "stake fee and duration",
		adjust:      func(*priorityInputs) {},
		maxPriority: DefaultMaxPriority,
		want:        20 + 6 + DurationWeekPoints,
	}, {
		name:        "replaceable",
		adjust:      func(in *priorityInputs) { in.replaceable = true },
		maxPriority: DefaultMaxPriority,
		want:        20 + 6 + DurationWeekPoints + RBFPenalty,
	}, {
		name:        "child pays for parent",
		adjust:      func(in *priorityInputs) { in.childBonus = true },
		maxPriority: DefaultMaxPriority,
		want:        20 + 6 + DurationWeekPoints + CPFPBonus,
	}, {
		name:        "congested",
		adjust:      func(in *priorityInputs) { in.congested = true },
		maxPriority: DefaultMaxPriority,
		want:        20 + 6 + DurationWeekPoints + CongestionPenalty,
	}, {
		name: "all penalties drive the score negative",
		adjust: func(in *priorityInputs) {
			*in = priorityInputs{replaceable: true, congested: true}
		},
		maxPriority: DefaultMaxPriority,
		want:        RBFPenalty + CongestionPenalty,
	}, {
		name:        "positive clamp",
		adjust:      func(*priorityInputs) {},
		maxPriority: 12,
		want:        12,
	}, {
		name: "negative clamp",
		adjust: func(in *priorityInputs) {
			*in = priorityInputs{replaceable: true, congested: true}
		},
		maxPriority: 7,
		want:        -7,
	}}

	for _, test := range tests {
		in := base
		test.adjust(&in)
		require.Equal(t, test.want, calcPriority(&in, test.maxPriority),
			test.name)
	}
}
