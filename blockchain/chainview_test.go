// Copyright (c) 2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// testNoncePrng provides a deterministic prng for the nonce in generated fake
// nodes.  The ensures that the node have unique hashes.
var testNoncePrng = rand.New(rand.NewSource(0))

// chainedNodes returns the specified number of nodes constructed such that each
// subsequent node points to the previous one to create a chain.  The first node
// will point to the passed parent which can be nil if desired.
func chainedNodes(parent *blockNode, numNodes int) []*blockNode {
	nodes := make([]*blockNode, numNodes)
	tip := parent
	for i := 0; i < numNodes; i++ {
		// This is invalid, but all that is needed is enough to get the
		// synthetic tests to work.
		header := wire.BlockHeader{
			Nonce: testNoncePrng.Uint32(),
			Bits:  chaincfg.RegressionNetParams.PowLimitBits,
		}
		if tip != nil {
			header.PrevBlock = tip.hash
		}
		nodes[i] = newBlockNode(&header, tip, &chaincfg.RegressionNetParams)
		tip = nodes[i]
	}
	return nodes
}

// String returns the block node as a human-readable name.
func (node blockNode) String() string {
	return fmt.Sprintf("%s(%d)", node.hash, node.height)
}

// tstTip is a convenience function to grab the tip of a chain of block nodes
// created via chainedNodes.
func tstTip(nodes []*blockNode) *blockNode {
	return nodes[len(nodes)-1]
}

// TestChainView ensures the exported functionality of chain views works as
// intended.
func TestChainView(t *testing.T) {
	// Construct a synthetic block index consisting of the following
	// structure.
	// 0 -> 1 -> 2  -> 3  -> 4
	//       \-> 2a -> 3a -> 4a  -> 5a -> 6a -> 7a
	//             \-> 3a'-> 4a' -> 5a'
	branch0Nodes := chainedNodes(nil, 5)
	branch1Nodes := chainedNodes(branch0Nodes[1], 6)
	branch2Nodes := chainedNodes(branch1Nodes[0], 3)

	view := newChainView(tstTip(branch0Nodes))
	require.Equal(t, branch0Nodes[0], view.Genesis())
	require.Equal(t, tstTip(branch0Nodes), view.Tip())
	require.EqualValues(t, 4, view.Height())
	for _, node := range branch0Nodes {
		require.True(t, view.Contains(node))
		require.Equal(t, node, view.NodeByHeight(node.height))
	}
	require.False(t, view.Contains(branch1Nodes[0]))
	require.Nil(t, view.NodeByHeight(5))
	require.Nil(t, view.NodeByHeight(-1))

	// The fork of a side chain is the last common node.
	require.Equal(t, branch0Nodes[1], view.FindFork(tstTip(branch1Nodes)))
	require.Equal(t, branch0Nodes[1], view.FindFork(tstTip(branch2Nodes)))
	require.Equal(t, branch0Nodes[3], view.FindFork(branch0Nodes[3]))
	require.Nil(t, view.FindFork(nil))

	// Switching the tip to another branch only keeps the shared prefix.
	view.SetTip(tstTip(branch2Nodes))
	require.EqualValues(t, 5, view.Height())
	require.True(t, view.Contains(branch1Nodes[0]))
	require.False(t, view.Contains(branch1Nodes[1]))
	require.False(t, view.Contains(branch0Nodes[2]))
	require.Equal(t, branch0Nodes[1], view.NodeByHeight(1))

	// Rewinding to a shorter tip trims the view.
	view.SetTip(branch0Nodes[1])
	require.EqualValues(t, 1, view.Height())
	require.Equal(t, branch0Nodes[1], view.Tip())

	view.SetTip(nil)
	require.Nil(t, view.Tip())
	require.Nil(t, view.Genesis())
	require.EqualValues(t, -1, view.Height())
}
