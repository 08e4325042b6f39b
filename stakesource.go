// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitgoldsuite/bgd/blockchain"
	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/mining/staker"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// utxoScanner is the part of the chain the stake source enumerates outputs
// from.
type utxoScanner interface {
	FetchUtxosByScript(pkScripts [][]byte) map[wire.OutPoint]*blockchain.UtxoEntry
}

// chainStakeSource offers the unspent main chain outputs paying to the
// staking keys as stake candidates.
type chainStakeSource struct {
	chain     utxoScanner
	pkScripts [][]byte
}

// newChainStakeSource returns a stake source for the pay-to-pubkey-hash
// scripts of the passed keys.
func newChainStakeSource(chain utxoScanner, keys []*btcec.PrivateKey) (*chainStakeSource, error) {
	pkScripts := make([][]byte, 0, len(keys))
	for _, key := range keys {
		pubKeyHash := btcutil.Hash160(key.PubKey().SerializeCompressed())
		pkScript, err := stake.PayToPubKeyHashScript(pubKeyHash)
		if err != nil {
			return nil, err
		}
		pkScripts = append(pkScripts, pkScript)
	}
	return &chainStakeSource{chain: chain, pkScripts: pkScripts}, nil
}

// StakeCandidates returns every unspent output owned by the staking keys.
//
// This is part of the staker.StakeSource interface.
func (s *chainStakeSource) StakeCandidates() ([]*staker.Candidate, error) {
	entries := s.chain.FetchUtxosByScript(s.pkScripts)
	candidates := make([]*staker.Candidate, 0, len(entries))
	for outpoint, entry := range entries {
		candidates = append(candidates, &staker.Candidate{
			OutPoint:    outpoint,
			Amount:      entry.Amount(),
			PkScript:    entry.PkScript(),
			BlockHeight: entry.BlockHeight(),
			BlockHash:   entry.BlockHash(),
			BlockTime:   entry.BlockTime(),
			Generated:   entry.IsCoinBase() || entry.IsCoinStake(),
		})
	}
	return candidates, nil
}
