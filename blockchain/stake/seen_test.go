// Copyright (c) 2014-2014 PPCD developers.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestSeenStakes ensures kernels are keyed by outpoint and time and the
// oldest claims are forgotten once the limit is reached.
func TestSeenStakes(t *testing.T) {
	t.Parallel()

	seen := NewSeenStakes(2)
	op := func(b byte) wire.OutPoint {
		return wire.OutPoint{Hash: chainhash.Hash{b}, Index: 1}
	}

	seen.Add(op(1), 1600)
	require.True(t, seen.Seen(op(1), 1600))
	require.False(t, seen.Seen(op(1), 1616))
	require.False(t, seen.Seen(op(2), 1600))

	seen.Add(op(2), 1600)
	seen.Add(op(3), 1600)
	require.False(t, seen.Seen(op(1), 1600))
	require.True(t, seen.Seen(op(3), 1600))

	seen.Remove(op(3), 1600)
	require.False(t, seen.Seen(op(3), 1600))

	require.NotNil(t, NewSeenStakes(0))
}

// TestSeenStakesSameOutPoint ensures claims of one outpoint at different
// times are tracked and evicted independently.
func TestSeenStakesSameOutPoint(t *testing.T) {
	t.Parallel()

	seen := NewSeenStakes(2)
	op := wire.OutPoint{Index: 1}

	seen.Add(op, 16)
	require.True(t, seen.Seen(op, 16))
	require.False(t, seen.Seen(op, 32))

	seen.Add(op, 32)
	seen.Add(op, 48)
	require.False(t, seen.Seen(op, 16))
	require.True(t, seen.Seen(op, 32))
	require.True(t, seen.Seen(op, 48))

	seen.Remove(op, 48)
	require.False(t, seen.Seen(op, 48))
	require.True(t, seen.Seen(op, 32))
}
