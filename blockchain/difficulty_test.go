// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"testing"
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// timedNodes returns a chain of nodes with the given timestamps, bits and
// proof kinds on top of a genesis node.
func timedNodes(params *chaincfg.Params, times []int64, bits []uint32, pos []bool) []*blockNode {
	genesis := newBlockNode(&params.GenesisBlock.Header, nil, params)
	nodes := []*blockNode{genesis}
	for i := range times {
		header := wire.BlockHeader{
			PrevBlock: nodes[len(nodes)-1].hash,
			Timestamp: time.Unix(times[i], 0),
			Bits:      bits[i],
		}
		node := newBlockNode(&header, nodes[len(nodes)-1], params)
		node.proofOfStake = pos[i]
		nodes = append(nodes, node)
	}
	return nodes
}

func TestCalcNextRequiredDifficulty(t *testing.T) {
	params := chaincfg.MainNetParams
	const bits = 0x1c0fffff
	spacing := int64(params.TargetTimePerBlock / time.Second)
	interval := int64(params.TargetTimespan / params.TargetTimePerBlock)

	expected := func(actual int64) uint32 {
		target := CompactToBig(bits)
		target.Mul(target, big.NewInt((interval-1)*spacing+2*actual))
		target.Div(target, big.NewInt((interval+1)*spacing))
		return BigToCompact(target)
	}

	base := params.GenesisBlock.Header.Timestamp.Unix()
	tests := []struct {
		name   string
		actual int64
		easier bool
	}{
		{"on target", spacing, false},
		{"slow", 4 * spacing, true},
		{"fast", spacing / 4, false},
	}
	for _, test := range tests {
		nodes := timedNodes(&params,
			[]int64{base + 100, base + 100 + test.actual, base + 200 + test.actual},
			[]uint32{bits, bits, params.PowLimitBits},
			[]bool{true, true, false})

		got := calcNextRequiredDifficulty(&params, tstTip(nodes), true)
		require.Equal(t, expected(test.actual), got, test.name)
		if test.easier {
			require.True(t, CompactToBig(got).Cmp(CompactToBig(bits)) > 0, test.name)
		} else {
			require.True(t, CompactToBig(got).Cmp(CompactToBig(bits)) <= 0, test.name)
		}
	}

	// Without two prior blocks of the kind the limit applies.
	nodes := timedNodes(&params, []int64{base + 60}, []uint32{bits}, []bool{true})
	require.Equal(t, params.PosLimitBits,
		calcNextRequiredDifficulty(&params, tstTip(nodes), true))
	require.Equal(t, params.PowLimitBits,
		calcNextRequiredDifficulty(&params, tstTip(nodes), false))

	// A very slow chain never exceeds the limit.
	nodes = timedNodes(&params,
		[]int64{base + 60, base + 60 + 1e7},
		[]uint32{params.PosLimitBits, params.PosLimitBits},
		[]bool{true, true})
	require.Equal(t, params.PosLimitBits,
		calcNextRequiredDifficulty(&params, tstTip(nodes), true))

	// Networks without retargeting are pinned to the limit.
	regtest := &chaincfg.RegressionNetParams
	require.Equal(t, regtest.PosLimitBits,
		calcNextRequiredDifficulty(regtest, tstTip(nodes), true))
}

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
		require.Equalf(t, test.out, BigToCompact(n), "test #%d", x)
	}
}
