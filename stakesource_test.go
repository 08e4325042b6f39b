// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// fakeUtxoScanner filters a fixed set of entries by script.
type fakeUtxoScanner struct {
	entries map[wire.OutPoint]*blockchain.UtxoEntry
	scripts [][]byte
}

func (f *fakeUtxoScanner) FetchUtxosByScript(pkScripts [][]byte) map[wire.OutPoint]*blockchain.UtxoEntry {
	f.scripts = pkScripts
	wanted := make(map[string]struct{})
	for _, pkScript := range pkScripts {
		wanted[string(pkScript)] = struct{}{}
	}
	entries := make(map[wire.OutPoint]*blockchain.UtxoEntry)
	for op, entry := range f.entries {
		if _, ok := wanted[string(entry.PkScript())]; ok {
			entries[op] = entry
		}
	}
	return entries
}

func TestChainStakeSource(t *testing.T) {
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	pkScript, err := stake.PayToPubKeyHashScript(
		btcutil.Hash160(key.PubKey().SerializeCompressed()))
	require.NoError(t, err)
	otherScript, err := stake.PayToPubKeyHashScript(
		btcutil.Hash160(other.PubKey().SerializeCompressed()))
	require.NoError(t, err)

	blockHash := chainhash.Hash{0x01}
	plain := wire.OutPoint{Hash: chainhash.Hash{0x10}, Index: 0}
	coinbase := wire.OutPoint{Hash: chainhash.Hash{0x11}, Index: 0}
	coinstake := wire.OutPoint{Hash: chainhash.Hash{0x12}, Index: 1}
	foreign := wire.OutPoint{Hash: chainhash.Hash{0x13}, Index: 0}

	scanner := &fakeUtxoScanner{
		entries: map[wire.OutPoint]*blockchain.UtxoEntry{
			plain: blockchain.NewUtxoEntry(wire.NewTxOut(500, pkScript),
				7, blockHash, 1700000000, false, false),
			coinbase: blockchain.NewUtxoEntry(wire.NewTxOut(600, pkScript),
				8, blockHash, 1700000060, true, false),
			coinstake: blockchain.NewUtxoEntry(wire.NewTxOut(700, pkScript),
				9, blockHash, 1700000120, false, true),
			foreign: blockchain.NewUtxoEntry(wire.NewTxOut(800, otherScript),
				9, blockHash, 1700000120, false, false),
		},
	}

	source, err := newChainStakeSource(scanner, []*btcec.PrivateKey{key})
	require.NoError(t, err)

	candidates, err := source.StakeCandidates()
	require.NoError(t, err)
	require.Equal(t, [][]byte{pkScript}, scanner.scripts)
	require.Len(t, candidates, 3)

	byOutPoint := make(map[wire.OutPoint]bool)
	for _, c := range candidates {
		require.Equal(t, pkScript, c.PkScript)
		require.Equal(t, blockHash, c.BlockHash)
		byOutPoint[c.OutPoint] = c.Generated

		switch c.OutPoint {
		case plain:
			require.EqualValues(t, 500, c.Amount)
			require.EqualValues(t, 7, c.BlockHeight)
			require.EqualValues(t, 1700000000, c.BlockTime)
		case coinstake:
			require.EqualValues(t, 700, c.Amount)
		}
	}
	require.Equal(t, map[wire.OutPoint]bool{
		plain:     false,
		coinbase:  true,
		coinstake: true,
	}, byOutPoint)
}
