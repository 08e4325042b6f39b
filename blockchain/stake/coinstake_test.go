// Copyright (c) 2014-2014 PPCD developers.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestSplitReward(t *testing.T) {
	// Scenario: a 50 coin reward pays 45 to the validator and 5 to the
	// dividend pool.
	validator, dividend := SplitReward(50 * chaincfg.Coin)
	require.EqualValues(t, 45*chaincfg.Coin, validator)
	require.EqualValues(t, 5*chaincfg.Coin, dividend)

	for _, total := range []int64{0, 1, 2, 3, 7, 9, 11, 13, 19, 97, 101,
		7919, 104729, 4999999999, 5000000029} {

		validator, dividend := SplitReward(total)
		require.Equal(t, total, validator+dividend, "total %d", total)
		require.Equal(t, total/10, dividend, "total %d", total)
	}
	for total := int64(0); total < 10000; total++ {
		validator, dividend := SplitReward(total)
		require.Equal(t, total, validator+dividend)
		require.Equal(t, total/10, dividend)
	}
}

func TestStakeAgeWeight(t *testing.T) {
	params := chaincfg.MainNetParams
	tests := []struct {
		age  time.Duration
		want time.Duration
	}{
		{0, 0},
		{params.MinStakeAge - time.Second, 0},
		{params.MinStakeAge, params.MinStakeAge},
		{90 * time.Minute, 90 * time.Minute},
		{params.MaxAgeWeight, params.MaxAgeWeight},
		{10 * params.MaxAgeWeight, params.MaxAgeWeight},
	}
	for _, test := range tests {
		require.Equal(t, test.want, StakeAgeWeight(&params, test.age), "age %v", test.age)
	}
}

func TestCalcStakeReward(t *testing.T) {
	params := chaincfg.RegressionNetParams
	subsidy := int64(50 * chaincfg.Coin)
	maxMultiple := int64(params.MaxAgeWeight / params.MinStakeAge)

	tests := []struct {
		name string
		age  time.Duration
		fees int64
		want int64
	}{
		{"ineligible", params.MinStakeAge - time.Second, 123, 123},
		{"one multiple", params.MinStakeAge, 123, subsidy + 123},
		{"fractional age", 90 * time.Minute, 0, 7500000000},
		{"fractional truncates", params.MinStakeAge + time.Second, 0,
			subsidy + subsidy/3600},
		{"clipped", 10 * params.MaxAgeWeight, 7, subsidy*maxMultiple + 7},
	}
	for _, test := range tests {
		got := CalcStakeReward(&params, subsidy, test.fees, test.age)
		require.Equal(t, test.want, got, test.name)
	}
}

func TestNewCoinStakeTx(t *testing.T) {
	pkh := btcutil.Hash160([]byte("staker"))
	payScript, err := PayToPubKeyHashScript(pkh)
	require.NoError(t, err)
	require.Equal(t, pkh, ExtractPubKeyHash(payScript))
	require.Nil(t, ExtractPubKeyHash(DividendScript()))

	payout := wire.NewTxOut(7, payScript)
	tx := NewCoinStakeTx(&CoinStakeTemplate{
		Inputs:          []wire.OutPoint{{Index: 3}},
		Staked:          100 * chaincfg.Coin,
		Reward:          50 * chaincfg.Coin,
		PayScript:       payScript,
		DividendPayouts: true,
		Payouts:         []*wire.TxOut{payout},
		Time:            1704067200,
	})

	require.True(t, IsCoinStakeTx(tx))
	require.Len(t, tx.TxOut, 4)
	require.EqualValues(t, 145*chaincfg.Coin, tx.TxOut[CoinStakeValidatorIndex].Value)
	require.EqualValues(t, 5*chaincfg.Coin, tx.TxOut[CoinStakeDividendIndex].Value)
	require.True(t, IsDividendScript(tx.TxOut[CoinStakeDividendIndex].PkScript))
	require.Same(t, payout, tx.TxOut[3])
	require.EqualValues(t, 1704067200, tx.LockTime)

	noDiv := NewCoinStakeTx(&CoinStakeTemplate{
		Inputs:    []wire.OutPoint{{Index: 3}},
		Staked:    100 * chaincfg.Coin,
		Reward:    50 * chaincfg.Coin,
		PayScript: payScript,
	})
	require.Len(t, noDiv.TxOut, 2)
}

func TestIsCoinStakeTx(t *testing.T) {
	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: wire.MaxPrevOutIndex}, nil, nil))
	coinbase.AddTxOut(&wire.TxOut{})
	coinbase.AddTxOut(wire.NewTxOut(1, []byte{0x51}))
	require.False(t, IsCoinStakeTx(coinbase))

	regular := wire.NewMsgTx(wire.TxVersion)
	regular.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	regular.AddTxOut(wire.NewTxOut(1, []byte{0x51}))
	regular.AddTxOut(wire.NewTxOut(1, []byte{0x51}))
	require.False(t, IsCoinStakeTx(regular))

	regular.TxOut[0] = &wire.TxOut{}
	require.True(t, IsCoinStakeTx(regular))
}
