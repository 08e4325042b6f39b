// Copyright (c) 2014-2014 PPCD developers.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/lru"
)

// DefaultSeenStakesSize is the default number of kernels remembered by a
// SeenStakes tracker.
const DefaultSeenStakesSize = 10000

// seenKey identifies a kernel claim.
type seenKey struct {
	outPoint wire.OutPoint
	time     int64
}

// SeenStakes remembers the (outpoint, timestamp) kernels claimed by accepted
// proof of stake blocks.  A second block claiming an already seen kernel is
// evidence that the staker signed competing blocks.  It is safe for
// concurrent access.
type SeenStakes struct {
	cache lru.Cache
}

// NewSeenStakes returns a tracker remembering up to limit kernels.
func NewSeenStakes(limit uint) *SeenStakes {
	if limit == 0 {
		limit = DefaultSeenStakesSize
	}
	return &SeenStakes{
		cache: lru.NewCache(limit),
	}
}

// Seen returns whether the kernel was already claimed by an accepted block.
func (s *SeenStakes) Seen(op wire.OutPoint, stakeTime int64) bool {
	return s.cache.Contains(seenKey{op, stakeTime})
}

// Add records the kernel as claimed.
func (s *SeenStakes) Add(op wire.OutPoint, stakeTime int64) {
	s.cache.Add(seenKey{op, stakeTime})
}

// Remove forgets the kernel.
func (s *SeenStakes) Remove(op wire.OutPoint, stakeTime int64) {
	s.cache.Delete(seenKey{op, stakeTime})
}
