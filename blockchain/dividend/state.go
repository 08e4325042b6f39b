// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"fmt"
	"sort"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Entry is the registry record of a staker.
type Entry struct {
	// Weight is the total amount the staker has staked.
	Weight int64

	// LastPayoutHeight is the height of the last quarter boundary that
	// paid the staker, or the height it first staked at.
	LastPayoutHeight int32

	// Settled is the cumulative amount paid to the staker.
	Settled int64

	// Script is the output script payouts are sent to.
	Script []byte
}

// clone returns a deep copy of the entry.
func (e *Entry) clone() *Entry {
	script := make([]byte, len(e.Script))
	copy(script, e.Script)
	return &Entry{
		Weight:           e.Weight,
		LastPayoutHeight: e.LastPayoutHeight,
		Settled:          e.Settled,
		Script:           script,
	}
}

// BlockContribution describes the dividend relevant parts of a connected
// block.
type BlockContribution struct {
	Height int32
	Hash   chainhash.Hash

	// Dividend is the dividend share of the block reward added to the
	// pool.
	Dividend int64

	// StakerScript is the validator output script of a proof of stake
	// block.  It is nil for proof of work blocks.
	StakerScript []byte

	// Staked is the amount the coinstake staked.
	Staked int64
}

// entryUndo restores a single registry entry.  A nil Prev means the entry did
// not exist before the block.
type entryUndo struct {
	Key  Key
	Prev *Entry
}

// BlockUndo holds everything needed to revert the dividend mutations of a
// single block.
type BlockUndo struct {
	Height   int32
	PrevPool int64
	Entries  []entryUndo

	// Snapshot is set when the block recorded a quarter snapshot.
	Snapshot bool
}

// State is the dividend pool, stake registry and snapshot history of a chain
// tip.  It is mutated only through ApplyBlock and Revert and is not safe for
// concurrent access; the chain serializes access with its own lock.
type State struct {
	params    *chaincfg.Params
	pool      int64
	entries   map[Key]*Entry
	snapshots map[int32]*Snapshot
}

// NewState returns an empty dividend state.
func NewState(params *chaincfg.Params) *State {
	return &State{
		params:    params,
		entries:   make(map[Key]*Entry),
		snapshots: make(map[int32]*Snapshot),
	}
}

// Clone returns a deep copy of the state, used to validate a branch without
// mutating the live state.
func (s *State) Clone() *State {
	c := &State{
		params:    s.params,
		pool:      s.pool,
		entries:   make(map[Key]*Entry, len(s.entries)),
		snapshots: make(map[int32]*Snapshot, len(s.snapshots)),
	}
	for k, e := range s.entries {
		c.entries[k] = e.clone()
	}
	for h, snap := range s.snapshots {
		c.snapshots[h] = snap
	}
	return c
}

// Pool returns the undistributed dividend pool.
func (s *State) Pool() int64 {
	return s.pool
}

// Entry returns a copy of the registry entry for key.
func (s *State) Entry(key Key) (Entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e.clone(), true
}

// Stakes returns the registry as a slice sorted by key.
func (s *State) Stakes() []Stake {
	stakes := make([]Stake, 0, len(s.entries))
	for k, e := range s.entries {
		stakes = append(stakes, Stake{
			Key:              k,
			Weight:           e.Weight,
			LastPayoutHeight: e.LastPayoutHeight,
			Script:           e.Script,
		})
	}
	sort.Slice(stakes, func(i, j int) bool {
		return stakes[i].Key.Less(stakes[j].Key)
	})
	return stakes
}

// registryRecords returns the full registry sorted by key.
func (s *State) registryRecords() []RegistryRecord {
	records := make([]RegistryRecord, 0, len(s.entries))
	for k, e := range s.entries {
		records = append(records, RegistryRecord{
			Key:              k,
			Weight:           e.Weight,
			LastPayoutHeight: e.LastPayoutHeight,
			Settled:          e.Settled,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key.Less(records[j].Key)
	})
	return records
}

// Snapshot returns the snapshot recorded at height.
func (s *State) Snapshot(height int32) (*Snapshot, bool) {
	snap, ok := s.snapshots[height]
	return snap, ok
}

// SnapshotHeights returns the heights of every recorded snapshot in
// ascending order.
func (s *State) SnapshotHeights() []int32 {
	heights := make([]int32, 0, len(s.snapshots))
	for h := range s.snapshots {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	return heights
}

// AddSnapshot records a snapshot loaded from storage.
func (s *State) AddSnapshot(snap *Snapshot) {
	s.snapshots[snap.Height] = snap
}

// stakesWith returns the registry sorted by key as it would look after
// applying the registry update of c.
func (s *State) stakesWith(c *BlockContribution) []Stake {
	stakes := s.Stakes()
	if c.StakerScript == nil || !s.params.DividendPayouts {
		return stakes
	}

	key := KeyFromScript(c.StakerScript)
	idx := sort.Search(len(stakes), func(i int) bool {
		return !stakes[i].Key.Less(key)
	})
	if idx < len(stakes) && stakes[idx].Key == key {
		stakes[idx].Weight += c.Staked
		return stakes
	}

	stakes = append(stakes, Stake{})
	copy(stakes[idx+1:], stakes[idx:])
	stakes[idx] = Stake{
		Key:              key,
		Weight:           c.Staked,
		LastPayoutHeight: c.Height,
		Script:           c.StakerScript,
	}
	return stakes
}

// BlockPayouts returns the payouts the block described by c owes without
// modifying the state.  It is empty unless payouts are enabled and the block
// is at a quarter boundary.
func (s *State) BlockPayouts(c *BlockContribution) []Payout {
	if !s.params.DividendPayouts || !IsBoundary(s.params, c.Height) {
		return nil
	}
	return CalculatePayouts(s.params, s.stakesWith(c), c.Height,
		s.pool+c.Dividend)
}

// PendingPayout returns the payout key would receive at the next quarter
// boundary above height if the pool and registry stayed as they are.
func (s *State) PendingPayout(key Key, height int32) int64 {
	if !s.params.DividendPayouts {
		return 0
	}
	next := NextBoundary(s.params, height)
	for _, p := range CalculatePayouts(s.params, s.Stakes(), next, s.pool) {
		if p.Key == key {
			return p.Amount
		}
	}
	return 0
}

// touch records the current value of the entry for key in undo before it is
// mutated.
func (s *State) touch(undo *BlockUndo, key Key) {
	for _, eu := range undo.Entries {
		if eu.Key == key {
			return
		}
	}
	var prev *Entry
	if e, ok := s.entries[key]; ok {
		prev = e.clone()
	}
	undo.Entries = append(undo.Entries, entryUndo{Key: key, Prev: prev})
}

// ApplyBlock applies the dividend mutations of a connected block: the pool
// grows by the dividend share, the staker's registry weight grows by the
// staked amount and, at a quarter boundary, the payouts are settled and a
// snapshot is recorded.  It returns the undo data for the block along with
// the payouts made.
func (s *State) ApplyBlock(c *BlockContribution) (*BlockUndo, []Payout) {
	undo := &BlockUndo{Height: c.Height, PrevPool: s.pool}
	if !s.params.DividendPayouts {
		return undo, nil
	}

	s.pool += c.Dividend

	if c.StakerScript != nil {
		key := KeyFromScript(c.StakerScript)
		s.touch(undo, key)
		if e, ok := s.entries[key]; ok {
			e.Weight += c.Staked
		} else {
			script := make([]byte, len(c.StakerScript))
			copy(script, c.StakerScript)
			s.entries[key] = &Entry{
				Weight:           c.Staked,
				LastPayoutHeight: c.Height,
				Script:           script,
			}
		}
	}

	if !IsBoundary(s.params, c.Height) {
		return undo, nil
	}

	poolBefore := s.pool
	payouts := CalculatePayouts(s.params, s.Stakes(), c.Height, s.pool)
	for _, p := range payouts {
		s.touch(undo, p.Key)
		e := s.entries[p.Key]
		e.LastPayoutHeight = c.Height
		e.Settled += p.Amount
	}
	distributed := TotalPaid(payouts)
	s.pool -= distributed

	s.snapshots[c.Height] = &Snapshot{
		Height:      c.Height,
		Hash:        c.Hash,
		PoolBefore:  poolBefore,
		Distributed: distributed,
		PoolAfter:   s.pool,
		Payouts:     payouts,
		Registry:    s.registryRecords(),
	}
	undo.Snapshot = true

	log.Debugf("Quarter boundary %d: distributed %d of %d to %d stakers",
		c.Height, distributed, poolBefore, len(payouts))

	return undo, payouts
}

// Revert undoes the mutations recorded in undo.  It must be applied to the
// state the block left behind.
func (s *State) Revert(undo *BlockUndo) error {
	if undo == nil {
		return fmt.Errorf("missing dividend undo data")
	}

	s.pool = undo.PrevPool
	for i := len(undo.Entries) - 1; i >= 0; i-- {
		eu := undo.Entries[i]
		if eu.Prev == nil {
			delete(s.entries, eu.Key)
			continue
		}
		s.entries[eu.Key] = eu.Prev.clone()
	}
	if undo.Snapshot {
		delete(s.snapshots, undo.Height)
	}
	return nil
}
