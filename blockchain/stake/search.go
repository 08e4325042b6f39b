// Copyright (c) 2014-2014 PPCD developers.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"context"
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// KernelHit is a successful kernel found by SearchKernel.
type KernelHit struct {
	Input    *KernelInput
	Time     int64
	Modifier chainhash.Hash
	Proof    chainhash.Hash
}

// SearchKernel tries the candidate timestamps in [from, to] in steps of the
// stake timestamp granularity and returns the first input whose kernel meets
// the target.  The window is clipped to MaxKernelSearchWindow.  A nil hit with
// a nil error means the window was exhausted.
//
// The search stops with ctx.Err() as soon as the context is cancelled, which
// the staker does whenever the chain tip changes.
func SearchKernel(ctx context.Context, params *chaincfg.Params, prev *PrevBlock,
	bits uint32, inputs []*KernelInput, from, to int64) (*KernelHit, error) {

	mask := int64(params.StakeTimestampMask)
	step := mask + 1
	start := (from + mask) &^ mask
	if window := int64(params.MaxKernelSearchWindow / time.Second); to-start > window {
		to = start + window
	}

	modifier := CalcStakeModifier(params, prev)
	for t := start; t <= to; t += step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, in := range inputs {
			if checkKernelTime(params, in.OriginTime, t) != nil ||
				in.Amount < chaincfg.Coin {
				continue
			}

			proof := KernelProof(params, &modifier, in, t)
			if hashMeetsTarget(&proof, bits, in.Amount) {
				log.Debugf("Found kernel %v at time %d (proof %v)",
					in.OutPoint, t, proof)
				return &KernelHit{
					Input:    in,
					Time:     t,
					Modifier: modifier,
					Proof:    proof,
				}, nil
			}
		}
	}

	return nil, nil
}
