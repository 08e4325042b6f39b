// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/stretchr/testify/require"
)

// testKey returns a registry key with every byte set to b.
func testKey(b byte) Key {
	var k Key
	for i := range k {
		k[i] = b
	}
	return k
}

func TestCalcAprBP(t *testing.T) {
	params := &chaincfg.MainNetParams
	year := params.YearBlocks()

	tests := []struct {
		name   string
		weight int64
		held   int32
		want   int64
	}{
		{"fresh small stake", chaincfg.Coin, 0, 100},
		{"quarter", 10 * chaincfg.Coin, params.QuarterBlocks, 325},
		{"full year", chaincfg.Coin, year, 1000},
		{"beyond a year", chaincfg.Coin, 3 * year, 1000},
		{"weight cap", params.DividendWeightCap, 1, 1000},
		{"above weight cap", 5 * params.DividendWeightCap, 1, 1000},
		{"half cap", params.DividendWeightCap / 2, 1, 550},
	}
	for _, test := range tests {
		got := CalcAprBP(params, test.weight, test.held)
		require.Equal(t, test.want, got, test.name)
	}

	require.Equal(t, "3.25", AprPercent(325).String())
}

func TestCalculatePayoutsKnownValues(t *testing.T) {
	params := &chaincfg.MainNetParams
	height := params.QuarterBlocks

	stakes := []Stake{
		{Key: testKey(2), Weight: 20 * chaincfg.Coin, Script: []byte{2}},
		{Key: testKey(1), Weight: 10 * chaincfg.Coin, Script: []byte{1}},
	}
	payouts := CalculatePayouts(params, stakes, height, 1000*chaincfg.Coin)
	require.Len(t, payouts, 2)

	// Sorted by key with the registry scripts attached.
	require.Equal(t, testKey(1), payouts[0].Key)
	require.EqualValues(t, 8125000, payouts[0].Amount)
	require.Equal(t, []byte{1}, payouts[0].Script)
	require.Equal(t, testKey(2), payouts[1].Key)
	require.EqualValues(t, 16250000, payouts[1].Amount)
}

func TestCalculatePayoutsSkips(t *testing.T) {
	params := &chaincfg.MainNetParams
	height := params.QuarterBlocks
	stakes := []Stake{{Key: testKey(1), Weight: 10 * chaincfg.Coin}}

	require.Empty(t, CalculatePayouts(params, stakes, height+1, chaincfg.Coin))
	require.Empty(t, CalculatePayouts(params, stakes, height, 0))
	require.Empty(t, CalculatePayouts(params, stakes, height, -5))
	require.Empty(t, CalculatePayouts(params, stakes, 0, chaincfg.Coin))

	// Nothing desired: every stake was just paid or has no weight.
	idle := []Stake{
		{Key: testKey(1), Weight: 10 * chaincfg.Coin, LastPayoutHeight: height},
		{Key: testKey(2), Weight: 0},
		{Key: testKey(3), Weight: 1},
	}
	require.Empty(t, CalculatePayouts(params, idle, height, chaincfg.Coin))
}

func TestCalculatePayoutsScaled(t *testing.T) {
	params := &chaincfg.MainNetParams
	height := params.QuarterBlocks

	// Two stakers with W1 = 2*W2 and a pool smaller than the total desired
	// amount are both scaled by pool/totalDesired and rounded down.
	w2 := int64(100 * chaincfg.Coin)
	stakes := []Stake{
		{Key: testKey(1), Weight: 2 * w2},
		{Key: testKey(2), Weight: w2},
	}
	estimates := Schedule(params, stakes, height, 1)
	require.Len(t, estimates, 2)
	totalDesired := estimates[0].Desired + estimates[1].Desired
	require.Equal(t, 2*estimates[1].Desired, estimates[0].Desired)

	pool := totalDesired/2 + 1
	payouts := CalculatePayouts(params, stakes, height, pool)
	require.Len(t, payouts, 2)
	for i, p := range payouts {
		want := new(big.Int).Mul(big.NewInt(pool), big.NewInt(estimates[i].Desired))
		want.Quo(want, big.NewInt(totalDesired))
		require.Equal(t, want.Int64(), p.Amount)
	}
	require.LessOrEqual(t, TotalPaid(payouts), pool)

	// A pool covering everything pays the desired amounts exactly.
	payouts = CalculatePayouts(params, stakes, height, totalDesired)
	require.Equal(t, totalDesired, TotalPaid(payouts))
}

func TestCalculatePayoutsNeverExceedPool(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 500; round++ {
		height := params.QuarterBlocks * int32(1+rng.Intn(20))
		stakes := make([]Stake, rng.Intn(12))
		for i := range stakes {
			stakes[i] = Stake{
				Key:              testKey(byte(i)),
				Weight:           rng.Int63n(5000 * chaincfg.Coin),
				LastPayoutHeight: int32(rng.Intn(int(height) + 1)),
			}
		}
		pool := rng.Int63n(100 * chaincfg.Coin)

		payouts := CalculatePayouts(params, stakes, height, pool)
		require.LessOrEqual(t, TotalPaid(payouts), pool, "round %d", round)
		for i := 1; i < len(payouts); i++ {
			require.True(t, payouts[i-1].Key.Less(payouts[i].Key))
		}
		for _, p := range payouts {
			require.Positive(t, p.Amount)
		}
	}
}

func TestBoundaries(t *testing.T) {
	params := &chaincfg.MainNetParams
	require.False(t, IsBoundary(params, 0))
	require.True(t, IsBoundary(params, 16200))
	require.False(t, IsBoundary(params, 16201))
	require.EqualValues(t, 16200, NextBoundary(params, 0))
	require.EqualValues(t, 32400, NextBoundary(params, 16200))
	require.EqualValues(t, 32400, NextBoundary(params, 16201))
}
