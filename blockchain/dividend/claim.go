// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// SettledSource provides the cumulative settled dividend of a key.  The chain
// implements it from its registry.
type SettledSource interface {
	SettledBalance(key Key) int64
}

// ClaimStore persists the claimed total of a key.
type ClaimStore interface {
	PutClaimed(key Key, claimed int64) error
}

// ClaimRecord is a single successful claim.
type ClaimRecord struct {
	Key    Key
	Amount int64
	Time   time.Time
}

// ClaimLedger tracks how much of each key's settled dividend has been
// claimed.  Claims only draw from balances already settled by quarter
// boundaries, never from the undistributed pool.  It is safe for concurrent
// access.
type ClaimLedger struct {
	mtx     sync.Mutex
	source  SettledSource
	store   ClaimStore
	enabled bool
	claimed map[Key]int64
	history []ClaimRecord
	now     func() time.Time
}

// NewClaimLedger returns a ledger drawing settled balances from source.
// Claims are rejected when enabled is false.  The store may be nil.
func NewClaimLedger(source SettledSource, store ClaimStore, enabled bool) *ClaimLedger {
	return &ClaimLedger{
		source:  source,
		store:   store,
		enabled: enabled,
		claimed: make(map[Key]int64),
		now:     time.Now,
	}
}

// Load seeds the claimed totals, typically from storage on startup.
func (l *ClaimLedger) Load(claimed map[Key]int64) {
	l.mtx.Lock()
	for k, v := range claimed {
		l.claimed[k] = v
	}
	l.mtx.Unlock()
}

// available returns the settled but unclaimed balance of key.  A reorg can
// lower the settled total below what was already claimed, in which case
// nothing is available.
//
// This function MUST be called with the ledger lock held.
func (l *ClaimLedger) available(key Key) int64 {
	avail := l.source.SettledBalance(key) - l.claimed[key]
	if avail < 0 {
		return 0
	}
	return avail
}

// Available returns the settled but unclaimed balance of key.
func (l *ClaimLedger) Available(key Key) int64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.available(key)
}

// Claimed returns the total claimed by key.
func (l *ClaimLedger) Claimed(key Key) int64 {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.claimed[key]
}

// Claim draws amount from the settled balance of key and returns the amount
// claimed.  An amount of zero claims the whole available balance.  Rejected
// claims return a ClaimError and leave the ledger untouched.
func (l *ClaimLedger) Claim(key Key, amount int64) (int64, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !l.enabled {
		return 0, claimError(ErrClaimsDisabled, "dividend payouts are disabled")
	}
	if amount < 0 {
		str := fmt.Sprintf("claim amount %d is negative", amount)
		return 0, claimError(ErrNegativeClaim, str)
	}

	avail := l.available(key)
	if amount == 0 {
		if avail == 0 {
			str := fmt.Sprintf("no settled dividends to claim for %v", key)
			return 0, claimError(ErrNothingToClaim, str)
		}
		amount = avail
	}
	if amount > avail {
		str := fmt.Sprintf("claim amount %d exceeds available balance %d",
			amount, avail)
		return 0, claimError(ErrClaimExceedsAvailable, str)
	}

	total := l.claimed[key] + amount
	if l.store != nil {
		if err := l.store.PutClaimed(key, total); err != nil {
			return 0, ClaimError{
				ErrorCode:   ErrClaimStore,
				Description: "unable to store claim",
				Err:         err,
			}
		}
	}
	l.claimed[key] = total
	l.history = append(l.history, ClaimRecord{
		Key:    key,
		Amount: amount,
		Time:   l.now(),
	})

	log.Infof("Claimed %d of settled dividends for %v", amount, key)
	return amount, nil
}

// History returns the claims made through this ledger, oldest first, limited
// to the given key unless it is nil.
func (l *ClaimLedger) History(key *Key) []ClaimRecord {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	records := make([]ClaimRecord, 0, len(l.history))
	for _, r := range l.history {
		if key == nil || r.Key == *key {
			records = append(records, r)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.Before(records[j].Time)
	})
	return records
}
