// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staker

import (
	"bytes"
	"sort"

	"github.com/bitgoldsuite/bgd/blockchain/stake"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/scylladb/go-set/strset"
)

// maxMergeInputs bounds the number of small outputs merged into a single
// coinstake.
const maxMergeInputs = 10

// Candidate is a spendable output offered for staking.
type Candidate struct {
	// OutPoint identifies the output.
	OutPoint wire.OutPoint

	// Amount is the value of the output.
	Amount int64

	// PkScript is the script the output pays to.  Only pay-to-pubkey-hash
	// outputs can stake.
	PkScript []byte

	// BlockHeight, BlockHash and BlockTime describe the block that
	// confirmed the output.
	BlockHeight int32
	BlockHash   chainhash.Hash
	BlockTime   int64

	// Generated is set for coinbase and coinstake outputs.
	Generated bool
}

// kernelInput returns the kernel view of the candidate.
func (c *Candidate) kernelInput() *stake.KernelInput {
	return &stake.KernelInput{
		OutPoint:   c.OutPoint,
		Amount:     c.Amount,
		OriginHash: c.BlockHash,
		OriginTime: c.BlockTime,
	}
}

// isMature returns whether the candidate may be spent by a coinstake in a
// block at height.
func (c *Candidate) isMature(params *chaincfg.Params, height int32) bool {
	confirmations := height - c.BlockHeight
	if confirmations < params.StakeMinConfirmations {
		return false
	}
	return !c.Generated || confirmations >= int32(params.CoinbaseMaturity)
}

// sortCandidates orders candidates by value, largest first, breaking ties on
// the outpoint so the order is total.
func sortCandidates(candidates []*Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		if c := bytes.Compare(a.OutPoint.Hash[:], b.OutPoint.Hash[:]); c != 0 {
			return c < 0
		}
		return a.OutPoint.Index < b.OutPoint.Index
	})
}

// eligibleCandidates returns the candidates that can stake in a block at
// height, largest first, leaving at least reserve unstaked.  Outputs listed
// in inFlight are already committed to a submitted block.
func eligibleCandidates(params *chaincfg.Params, candidates []*Candidate,
	height int32, reserve int64, inFlight *strset.Set) []*Candidate {

	var (
		usable []*Candidate
		total  int64
	)
	for _, c := range candidates {
		total += c.Amount
		if inFlight.Has(c.OutPoint.String()) {
			continue
		}
		if stake.ExtractPubKeyHash(c.PkScript) == nil {
			continue
		}
		if !c.isMature(params, height) {
			continue
		}
		usable = append(usable, c)
	}
	sortCandidates(usable)

	spendable := total - reserve
	if spendable <= 0 {
		return nil
	}
	var (
		picked []*Candidate
		sum    int64
	)
	for _, c := range usable {
		if sum+c.Amount > spendable {
			continue
		}
		picked = append(picked, c)
		sum += c.Amount
	}
	return picked
}

// mergeInputs returns the outputs to fold into a coinstake whose kernel is
// kernel.  Only outputs paying to the kernel script are taken, smallest
// first, while the staked total stays below threshold.
func mergeInputs(kernel *Candidate, candidates []*Candidate,
	threshold int64) []*Candidate {

	if threshold <= 0 {
		return nil
	}

	var merge []*Candidate
	staked := kernel.Amount
	for i := len(candidates) - 1; i >= 0 && len(merge) < maxMergeInputs; i-- {
		c := candidates[i]
		if c.OutPoint == kernel.OutPoint ||
			!bytes.Equal(c.PkScript, kernel.PkScript) {

			continue
		}
		if staked+c.Amount >= threshold {
			break
		}
		merge = append(merge, c)
		staked += c.Amount
	}
	return merge
}
