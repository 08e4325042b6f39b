// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"math"
	"sort"

	"github.com/bitgoldsuite/bgd/chaincfg"
)

// OrderingPolicy identifies how pooled transactions are ranked for block
// templates and eviction.
type OrderingPolicy int

const (
	// FeeRateOnly ranks transactions by fee rate and then by hash.
	FeeRateOnly OrderingPolicy = iota

	// Hybrid ranks transactions by fee rate, clamped stake weight,
	// arrival time and then by hash.
	Hybrid
)

// orderingPolicyStrings is a map of ordering policies back to their names for
// pretty printing.
var orderingPolicyStrings = map[OrderingPolicy]string{
	FeeRateOnly: "feerate-only",
	Hybrid:      "hybrid",
}

// String returns the OrderingPolicy in human-readable form.
func (p OrderingPolicy) String() string {
	if s, ok := orderingPolicyStrings[p]; ok {
		return s
	}
	return "unknown"
}

// feeRateBefore reports whether a ranks ahead of b under the feerate-only
// policy.
func feeRateBefore(a, b *TxDesc) bool {
	if a.FeePerKB != b.FeePerKB {
		return a.FeePerKB > b.FeePerKB
	}
	return hashBefore(a, b)
}

// clampedStakeWeight bounds the stake weight of desc to maxPriority coins so
// outsized stakes cannot buy unbounded precedence.
func clampedStakeWeight(desc *TxDesc, maxPriority int64) int64 {
	if maxPriority > math.MaxInt64/int64(chaincfg.Coin) {
		return desc.StakeWeight
	}
	return min(desc.StakeWeight, maxPriority*chaincfg.Coin)
}

// hybridBefore reports whether a ranks ahead of b under the hybrid policy
// with stake weights clamped to maxPriority coins.
func hybridBefore(a, b *TxDesc, maxPriority int64) bool {
	if a.FeePerKB != b.FeePerKB {
		return a.FeePerKB > b.FeePerKB
	}
	aWeight := clampedStakeWeight(a, maxPriority)
	bWeight := clampedStakeWeight(b, maxPriority)
	if aWeight != bWeight {
		return aWeight > bWeight
	}
	if !a.Added.Equal(b.Added) {
		return a.Added.Before(b.Added)
	}
	return hashBefore(a, b)
}

// rankFunc returns the comparison ranking descriptors under policy.
func rankFunc(policy OrderingPolicy, maxPriority int64) func(a, b *TxDesc) bool {
	if policy == Hybrid {
		return func(a, b *TxDesc) bool {
			return hybridBefore(a, b, maxPriority)
		}
	}
	return feeRateBefore
}

// hashBefore breaks ties on the transaction hash so the order is total.
func hashBefore(a, b *TxDesc) bool {
	return bytes.Compare(a.Tx.Hash()[:], b.Tx.Hash()[:]) < 0
}

// txDescSorter sorts transaction descriptors best first under a policy.
type txDescSorter struct {
	descs  []*TxDesc
	before func(a, b *TxDesc) bool
}

// Len returns the number of descriptors in the slice.  It is part of the
// sort.Interface implementation.
func (s txDescSorter) Len() int {
	return len(s.descs)
}

// Swap swaps the descriptors at the passed indices.  It is part of the
// sort.Interface implementation.
func (s txDescSorter) Swap(i, j int) {
	s.descs[i], s.descs[j] = s.descs[j], s.descs[i]
}

// Less returns whether the descriptor with index i should sort before the
// descriptor with index j.  It is part of the sort.Interface implementation.
func (s txDescSorter) Less(i, j int) bool {
	return s.before(s.descs[i], s.descs[j])
}

// sortTxDescs orders descs best first under policy.
func sortTxDescs(descs []*TxDesc, policy OrderingPolicy, maxPriority int64) {
	sort.Sort(txDescSorter{
		descs:  descs,
		before: rankFunc(policy, maxPriority),
	})
}
