// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package workmath

import (
	"math/big"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func TestBigToCompact(t *testing.T) {
	tests := []struct {
		in  int64
		out uint32
	}{
		{0, 0},
		{-1, 25231360},
	}

	for x, test := range tests {
		n := big.NewInt(test.in)
		r := BigToCompact(n)
		require.Equal(t, test.out, r, "test #%d", x)
	}
}

func TestCompactToBig(t *testing.T) {
	tests := []struct {
		in  uint32
		out int64
	}{
		{10000000, 0},
		{0x03123456, 0x123456},
		{0x04123456, 0x12345600},
	}

	for x, test := range tests {
		n := CompactToBig(test.in)
		require.Equal(t, test.out, n.Int64(), "test #%d", x)
	}
}

func TestCompactRoundTrip(t *testing.T) {
	for _, bits := range []uint32{0x1d00ffff, 0x1e0fffff, 0x207fffff} {
		require.Equal(t, bits, BigToCompact(CompactToBig(bits)))
	}
}

func TestCalcWork(t *testing.T) {
	tests := []struct {
		in  uint32
		out int64
	}{
		{10000000, 0},
	}

	for x, test := range tests {
		r := CalcWork(test.in)
		require.Equal(t, test.out, r.Int64(), "test #%d", x)
	}

	// Lower targets must represent more work.
	easy := CalcWork(0x207fffff)
	hard := CalcWork(0x1d00ffff)
	require.Equal(t, 1, hard.Cmp(easy))
}

func TestHashToBig(t *testing.T) {
	var hash chainhash.Hash
	hash[0] = 0x01
	hash[31] = 0x80
	n := HashToBig(&hash)

	want := new(big.Int).Lsh(big.NewInt(0x80), 248)
	want.Add(want, big.NewInt(1))
	require.Zero(t, want.Cmp(n))

	// The source hash must not be modified.
	require.Equal(t, byte(0x01), hash[0])
}
