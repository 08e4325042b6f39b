// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// mapSource is a SettledSource backed by a map.
type mapSource map[Key]int64

func (m mapSource) SettledBalance(key Key) int64 {
	return m[key]
}

// mapStore is a ClaimStore backed by a map that can be made to fail.
type mapStore struct {
	claimed map[Key]int64
	err     error
}

func (m *mapStore) PutClaimed(key Key, claimed int64) error {
	if m.err != nil {
		return m.err
	}
	m.claimed[key] = claimed
	return nil
}

// requireClaimError asserts err is a ClaimError with the given code.
func requireClaimError(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var cerr ClaimError
	require.True(t, errors.As(err, &cerr), "unexpected error %v", err)
	require.Equal(t, code, cerr.ErrorCode, cerr.Error())
}

func TestClaimLedger(t *testing.T) {
	alice, bob := testKey(1), testKey(2)
	source := mapSource{alice: 1000}
	store := &mapStore{claimed: make(map[Key]int64)}
	ledger := NewClaimLedger(source, store, true)

	require.EqualValues(t, 1000, ledger.Available(alice))

	_, err := ledger.Claim(alice, -1)
	requireClaimError(t, err, ErrNegativeClaim)

	_, err = ledger.Claim(alice, 1001)
	requireClaimError(t, err, ErrClaimExceedsAvailable)

	_, err = ledger.Claim(bob, 0)
	requireClaimError(t, err, ErrNothingToClaim)

	// Failed claims leave the ledger untouched.
	require.EqualValues(t, 1000, ledger.Available(alice))
	require.Empty(t, ledger.History(nil))

	got, err := ledger.Claim(alice, 400)
	require.NoError(t, err)
	require.EqualValues(t, 400, got)
	require.EqualValues(t, 600, ledger.Available(alice))
	require.EqualValues(t, 400, store.claimed[alice])

	// Zero claims everything left.
	got, err = ledger.Claim(alice, 0)
	require.NoError(t, err)
	require.EqualValues(t, 600, got)
	require.Zero(t, ledger.Available(alice))
	require.EqualValues(t, 1000, ledger.Claimed(alice))

	history := ledger.History(&alice)
	require.Len(t, history, 2)
	require.EqualValues(t, 400, history[0].Amount)
	require.EqualValues(t, 600, history[1].Amount)
	require.Empty(t, ledger.History(&bob))

	// A reorg lowering the settled balance leaves nothing available rather
	// than a negative balance.
	source[alice] = 500
	require.Zero(t, ledger.Available(alice))
}

func TestClaimLedgerDisabled(t *testing.T) {
	key := testKey(1)
	ledger := NewClaimLedger(mapSource{key: 1000}, nil, false)

	_, err := ledger.Claim(key, 10)
	requireClaimError(t, err, ErrClaimsDisabled)
	require.Zero(t, ledger.Claimed(key))
}

func TestClaimLedgerStoreFailure(t *testing.T) {
	key := testKey(1)
	storeErr := errors.New("disk full")
	store := &mapStore{claimed: make(map[Key]int64), err: storeErr}
	ledger := NewClaimLedger(mapSource{key: 1000}, store, true)

	_, err := ledger.Claim(key, 10)
	requireClaimError(t, err, ErrClaimStore)
	require.ErrorIs(t, err, storeErr)
	require.EqualValues(t, 1000, ledger.Available(key))
}

func TestClaimLedgerLoad(t *testing.T) {
	key := testKey(1)
	ledger := NewClaimLedger(mapSource{key: 1000}, nil, true)
	ledger.Load(map[Key]int64{key: 750})
	require.EqualValues(t, 250, ledger.Available(key))
}
