// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/mining"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// newSortDesc returns a descriptor around a distinct transaction.
func newSortDesc(lockTime uint32, feePerKB, priority, weight int64,
	added time.Time) *TxDesc {

	msgTx := wire.NewMsgTx(wire.TxVersion)
	msgTx.LockTime = lockTime
	return &TxDesc{TxDesc: mining.TxDesc{
		Tx:          btcutil.NewTx(msgTx),
		Added:       added,
		FeePerKB:    feePerKB,
		Priority:    priority,
		StakeWeight: weight,
	}}
}

func TestHybridOrdering(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	coin := int64(chaincfg.Coin)

	rich := newSortDesc(1, 5000, 0, 0, t0)
	important := newSortDesc(2, 1000, 40, 10*coin, t0)
	heavy := newSortDesc(3, 1000, 10, 900*coin, t0)
	early := newSortDesc(4, 1000, 10, 100*coin, t0)
	late := newSortDesc(5, 1000, 10, 100*coin, t0.Add(time.Minute))

	descs := []*TxDesc{late, early, heavy, important, rich}
	sortTxDescs(descs, Hybrid, DefaultMaxPriority)
	require.Equal(t, []*TxDesc{rich, heavy, early, late, important}, descs)

	// Feerate-only ignores everything but the fee rate and the hash.
	sortTxDescs(descs, FeeRateOnly, DefaultMaxPriority)
	require.Equal(t, rich, descs[0])
	for i := 2; i < len(descs); i++ {
		require.Negative(t, bytes.Compare(descs[i-1].Tx.Hash()[:],
			descs[i].Tx.Hash()[:]))
	}
}

// TestHybridStakeWeightBeatsPriority ensures that at an equal fee rate the
// larger stake weight ranks first whatever the priority score says.
func TestHybridStakeWeightBeatsPriority(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	coin := int64(chaincfg.Coin)

	// The small stake carries the higher score, as it would after a child
	// bonus.
	whale := newSortDesc(1, 1000, StakePriorityPoints, 2000*coin, t0)
	minnow := newSortDesc(2, 1000, StakePriorityPoints+25, 200*coin, t0)

	descs := []*TxDesc{minnow, whale}
	sortTxDescs(descs, Hybrid, DefaultMaxPriority)
	require.Equal(t, []*TxDesc{whale, minnow}, descs)
	require.True(t, hybridBefore(whale, minnow, DefaultMaxPriority))
	require.False(t, hybridBefore(minnow, whale, DefaultMaxPriority))
}

// TestHybridStakeWeightClamp ensures stake weights above the clamp tie and
// fall through to arrival time.
func TestHybridStakeWeightClamp(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	coin := int64(chaincfg.Coin)

	huge := newSortDesc(1, 1000, 0, 5000*coin, t0.Add(time.Minute))
	large := newSortDesc(2, 1000, 0, 300*coin, t0)
	small := newSortDesc(3, 1000, 0, 200*coin, t0)

	descs := []*TxDesc{huge, small, large}
	sortTxDescs(descs, Hybrid, DefaultMaxPriority)
	require.Equal(t, []*TxDesc{large, huge, small}, descs)

	// A clamp of 100 coins flattens all three.
	sortTxDescs(descs, Hybrid, 100)
	require.Equal(t, huge, descs[2])

	require.Equal(t, 255*coin, clampedStakeWeight(huge, DefaultMaxPriority))
	require.Equal(t, 200*coin, clampedStakeWeight(small, DefaultMaxPriority))
}

func TestHashTieBreak(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	a := newSortDesc(1, 1000, 10, 100, t0)
	b := newSortDesc(2, 1000, 10, 100, t0)

	want := bytes.Compare(a.Tx.Hash()[:], b.Tx.Hash()[:]) < 0
	require.Equal(t, want, hybridBefore(a, b, DefaultMaxPriority))
	require.Equal(t, !want, hybridBefore(b, a, DefaultMaxPriority))
	require.Equal(t, want, feeRateBefore(a, b))
}

func TestOrderingPolicyString(t *testing.T) {
	require.Equal(t, "feerate-only", FeeRateOnly.String())
	require.Equal(t, "hybrid", Hybrid.String())
	require.Equal(t, "unknown", OrderingPolicy(9).String())
}
