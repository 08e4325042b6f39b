// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"testing"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
)

// stateView captures everything observable about a state for comparisons.
type stateView struct {
	Pool      int64
	Registry  []RegistryRecord
	Snapshots map[int32]*Snapshot
}

func viewOf(s *State) stateView {
	snaps := make(map[int32]*Snapshot, len(s.snapshots))
	for h, snap := range s.snapshots {
		snaps[h] = snap
	}
	return stateView{
		Pool:      s.pool,
		Registry:  s.registryRecords(),
		Snapshots: snaps,
	}
}

// testContribution returns the contribution of a proof of stake block at
// height paying a five coin dividend.
func testContribution(height int32, script []byte) *BlockContribution {
	return &BlockContribution{
		Height:       height,
		Hash:         chainhash.DoubleHashH([]byte{byte(height), byte(height >> 8)}),
		Dividend:     5 * chaincfg.Coin,
		StakerScript: script,
		Staked:       100 * chaincfg.Coin,
	}
}

// applyRange applies contributions for heights [from, to] alternating between
// the given scripts and returns the undo data.
func applyRange(s *State, from, to int32, scripts ...[]byte) []*BlockUndo {
	var undos []*BlockUndo
	for h := from; h <= to; h++ {
		script := scripts[int(h)%len(scripts)]
		undo, _ := s.ApplyBlock(testContribution(h, script))
		undos = append(undos, undo)
	}
	return undos
}

func TestApplyBlockQuarterPayout(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	s := NewState(params)
	scriptA, scriptB := []byte{0x51, 0x01}, []byte{0x51, 0x02}

	applyRange(s, 21, params.QuarterBlocks-1, scriptA, scriptB)
	require.EqualValues(t, int64(params.QuarterBlocks-21)*5*chaincfg.Coin, s.Pool())
	require.Empty(t, s.SnapshotHeights())

	boundary := testContribution(params.QuarterBlocks, scriptA)
	expected := s.BlockPayouts(boundary)
	poolBefore := s.Pool() + boundary.Dividend

	_, payouts := s.ApplyBlock(boundary)
	require.Equal(t, expected, payouts, spew.Sdump(payouts))
	require.Len(t, payouts, 2)
	require.Equal(t, poolBefore-TotalPaid(payouts), s.Pool())

	snap, ok := s.Snapshot(params.QuarterBlocks)
	require.True(t, ok)
	require.Equal(t, poolBefore, snap.PoolBefore)
	require.Equal(t, TotalPaid(payouts), snap.Distributed)
	require.Equal(t, s.Pool(), snap.PoolAfter)
	require.Equal(t, boundary.Hash, snap.Hash)

	for _, p := range payouts {
		e, ok := s.Entry(p.Key)
		require.True(t, ok)
		require.Equal(t, params.QuarterBlocks, e.LastPayoutHeight)
		require.Equal(t, p.Amount, e.Settled)
		require.Equal(t, e.Script, p.Script)
	}
}

func TestApplyRevertIdempotent(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	s := NewState(params)
	scriptA, scriptB := []byte{0x51, 0x01}, []byte{0x51, 0x02}

	undos := applyRange(s, 21, 2*params.QuarterBlocks, scriptA, scriptB)
	before := viewOf(s)

	// Disconnect and reconnect every block back to the first boundary one
	// at a time.
	for h := 2 * params.QuarterBlocks; h >= params.QuarterBlocks; h-- {
		undo := undos[h-21]
		require.NoError(t, s.Revert(undo))
		redo, _ := s.ApplyBlock(testContribution(h, [][]byte{scriptA, scriptB}[int(h)%2]))
		require.Equal(t, undo, redo)
		require.Equal(t, before, viewOf(s), "height %d", h)
	}

	// Reverting everything yields the empty state.
	for i := len(undos) - 1; i >= 0; i-- {
		require.NoError(t, s.Revert(undos[i]))
	}
	require.Equal(t, viewOf(NewState(params)), viewOf(s))
	require.Error(t, s.Revert(nil))
}

func TestEmptyBoundaryRecordsSnapshot(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	s := NewState(params)

	// A proof of work boundary block with nothing in the pool.
	undo, payouts := s.ApplyBlock(&BlockContribution{Height: params.QuarterBlocks})
	require.Empty(t, payouts)
	require.True(t, undo.Snapshot)

	snap, ok := s.Snapshot(params.QuarterBlocks)
	require.True(t, ok)
	require.Zero(t, snap.PoolBefore)
	require.Zero(t, snap.Distributed)
	require.Empty(t, snap.Payouts)
}

func TestApplyBlockPayoutsDisabled(t *testing.T) {
	params := chaincfg.RegressionNetParams
	params.DividendPayouts = false
	s := NewState(&params)

	applyRange(s, 21, params.QuarterBlocks, []byte{0x51})
	require.Zero(t, s.Pool())
	require.Empty(t, s.Stakes())
	require.Empty(t, s.SnapshotHeights())
	require.Zero(t, s.PendingPayout(KeyFromScript([]byte{0x51}), 21))
}

func TestPendingPayout(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	s := NewState(params)
	script := []byte{0x51, 0x01}
	applyRange(s, 21, 30, script)

	key := KeyFromScript(script)
	pending := s.PendingPayout(key, 30)
	require.Positive(t, pending)
	require.LessOrEqual(t, pending, s.Pool())
	require.Zero(t, s.PendingPayout(testKey(9), 30))

	// The pending amount is exactly what the schedule preview reports.
	next := NextBoundary(params, 30)
	estimates := Schedule(params, s.Stakes(), next, s.Pool())
	require.Len(t, estimates, 1)
	require.Equal(t, estimates[0].Payout, pending)
}

func TestStateClone(t *testing.T) {
	params := &chaincfg.RegressionNetParams
	s := NewState(params)
	applyRange(s, 21, 25, []byte{0x51, 0x01})

	c := s.Clone()
	require.Equal(t, viewOf(s), viewOf(c))

	c.ApplyBlock(testContribution(26, []byte{0x51, 0x01}))
	require.NotEqual(t, viewOf(s), viewOf(c))
}

func TestSnapshotSerialize(t *testing.T) {
	snap := &Snapshot{
		Height:      16200,
		Hash:        chainhash.DoubleHashH([]byte("snap")),
		PoolBefore:  1000,
		Distributed: 900,
		PoolAfter:   100,
		Payouts: []Payout{
			{Key: testKey(1), Script: []byte{0x51}, Amount: 600},
			{Key: testKey(2), Script: []byte{0x52, 0x53}, Amount: 300},
		},
		Registry: []RegistryRecord{
			{Key: testKey(1), Weight: 10, LastPayoutHeight: 16200, Settled: 600},
			{Key: testKey(2), Weight: 5, LastPayoutHeight: 16200, Settled: 300},
		},
	}

	b, err := snap.Bytes()
	require.NoError(t, err)
	got, err := SnapshotFromBytes(b)
	require.NoError(t, err)
	require.Equal(t, snap, got)

	_, err = SnapshotFromBytes(b[:len(b)-3])
	require.Error(t, err)
}
