// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"sort"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/shopspring/decimal"
)

// BasisPoints is the fixed point scale used by the dividend rate arithmetic.
const BasisPoints = 10000

// KeySize is the size of a registry key.
const KeySize = 20

// Key identifies a staker in the registry.  It is the hash160 of the script
// the staker's coinstake pays its validator output to.
type Key [KeySize]byte

// KeyFromScript returns the registry key for the given output script.
func KeyFromScript(pkScript []byte) Key {
	var k Key
	copy(k[:], btcutil.Hash160(pkScript))
	return k
}

// String returns the key as a hex string.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Less returns whether k sorts before other in byte order.
func (k Key) Less(other Key) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

// Stake is the registry view consumed by the payout calculation.
type Stake struct {
	Key              Key
	Weight           int64
	LastPayoutHeight int32
	Script           []byte
}

// Payout is a single dividend payment.
type Payout struct {
	Key    Key
	Script []byte
	Amount int64
}

// TxOut returns the coinstake output carrying the payout.
func (p *Payout) TxOut() *wire.TxOut {
	return wire.NewTxOut(p.Amount, p.Script)
}

// IsBoundary returns whether height is a quarter boundary.
func IsBoundary(params *chaincfg.Params, height int32) bool {
	return height > 0 && params.QuarterBlocks > 0 &&
		height%params.QuarterBlocks == 0
}

// NextBoundary returns the first quarter boundary strictly above height.
func NextBoundary(params *chaincfg.Params, height int32) int32 {
	return (height/params.QuarterBlocks + 1) * params.QuarterBlocks
}

// CalcAprBP returns the annual dividend rate in basis points for a stake of
// the given weight held for the given number of blocks.  The rate grows
// linearly from BaseAprBP to BaseAprBP+AprRangeBP with the larger of the age
// and amount factors.
func CalcAprBP(params *chaincfg.Params, weight int64, blocksHeld int32) int64 {
	year := int64(params.YearBlocks())
	held := int64(blocksHeld)
	if held > year {
		held = year
	}
	ageFactor := held * BasisPoints / year

	capped := weight
	if capped > params.DividendWeightCap {
		capped = params.DividendWeightCap
	}
	amountFactor := capped * BasisPoints / params.DividendWeightCap

	factor := ageFactor
	if amountFactor > factor {
		factor = amountFactor
	}
	return params.BaseAprBP + params.AprRangeBP*factor/BasisPoints
}

// AprPercent renders a basis point rate as a percentage.
func AprPercent(aprBP int64) decimal.Decimal {
	return decimal.New(aprBP, -2)
}

// desiredPayout returns the quarterly share of the annual rate for a stake.
func desiredPayout(weight, aprBP int64) int64 {
	d := new(big.Int).Mul(big.NewInt(weight), big.NewInt(aprBP))
	d.Quo(d, big.NewInt(4*BasisPoints))
	return d.Int64()
}

// PayoutEstimate is a single line of a payout schedule preview.
type PayoutEstimate struct {
	Key     Key
	AprBP   int64
	Desired int64
	Payout  int64
}

// APR returns the estimate's rate as a percentage.
func (e *PayoutEstimate) APR() decimal.Decimal {
	return AprPercent(e.AprBP)
}

// Schedule computes the desired and scaled payouts of every eligible stake at
// height given the pool.  The result is sorted by key and includes stakes
// whose scaled payout rounds to zero.  Nothing is returned unless height is a
// quarter boundary and the pool is positive.
func Schedule(params *chaincfg.Params, stakes []Stake, height int32, pool int64) []PayoutEstimate {
	if pool <= 0 || !IsBoundary(params, height) {
		return nil
	}

	var totalDesired int64
	estimates := make([]PayoutEstimate, 0, len(stakes))
	for i := range stakes {
		stake := &stakes[i]
		duration := height - stake.LastPayoutHeight
		if duration <= 0 || stake.Weight <= 0 {
			continue
		}
		aprBP := CalcAprBP(params, stake.Weight, duration)
		desired := desiredPayout(stake.Weight, aprBP)
		if desired <= 0 {
			continue
		}
		estimates = append(estimates, PayoutEstimate{
			Key:     stake.Key,
			AprBP:   aprBP,
			Desired: desired,
		})
		totalDesired += desired
	}
	if totalDesired <= 0 {
		return nil
	}

	bigPool := big.NewInt(pool)
	bigTotal := big.NewInt(totalDesired)
	for i := range estimates {
		e := &estimates[i]
		if totalDesired <= pool {
			e.Payout = e.Desired
			continue
		}
		p := new(big.Int).Mul(bigPool, big.NewInt(e.Desired))
		e.Payout = p.Quo(p, bigTotal).Int64()
	}

	sort.Slice(estimates, func(i, j int) bool {
		return estimates[i].Key.Less(estimates[j].Key)
	})
	return estimates
}

// CalculatePayouts returns the payouts owed at height given the registry
// stakes and the pool.  Only positive payouts are returned, sorted by key.
// The total never exceeds the pool.
func CalculatePayouts(params *chaincfg.Params, stakes []Stake, height int32, pool int64) []Payout {
	estimates := Schedule(params, stakes, height, pool)
	if len(estimates) == 0 {
		return nil
	}

	scripts := make(map[Key][]byte, len(stakes))
	for i := range stakes {
		scripts[stakes[i].Key] = stakes[i].Script
	}

	payouts := make([]Payout, 0, len(estimates))
	for _, e := range estimates {
		if e.Payout <= 0 {
			continue
		}
		payouts = append(payouts, Payout{
			Key:    e.Key,
			Script: scripts[e.Key],
			Amount: e.Payout,
		})
	}
	return payouts
}

// TotalPaid returns the sum of the payouts.
func TotalPaid(payouts []Payout) int64 {
	var total int64
	for i := range payouts {
		total += payouts[i].Amount
	}
	return total
}
