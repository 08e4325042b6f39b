// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/bitgoldsuite/bgd/mining"
	"github.com/btcsuite/btcd/wire"
)

const (
	// StakePriorityPoints is the stake priority awarded to transactions
	// moving at least stakePriorityFullWeight.
	StakePriorityPoints = 50

	// FeePriorityPoints is the most priority a fee alone can earn.
	FeePriorityPoints = 50

	// DurationWeekPoints and DurationMonthPoints are awarded when the
	// oldest confirmed input has aged a week or a month respectively.
	DurationWeekPoints  = 10
	DurationMonthPoints = 20

	// CongestionPenalty applies to transactions admitted while the pool
	// is more than congestionPercent full.
	CongestionPenalty = -10

	// RBFPenalty applies to transactions signalling replaceability.
	RBFPenalty = -5

	// CPFPBonus applies to parents with an in-pool child paying a higher
	// fee rate.
	CPFPBonus = 5

	// DefaultMaxPriority is the default absolute bound on a priority
	// score.
	DefaultMaxPriority = 255

	// stakePriorityFullWeight is the stake weight at which the full
	// StakePriorityPoints are awarded.
	stakePriorityFullWeight = 1000 * chaincfg.Coin

	// minFeeForPriority is the smallest fee, in base units, that earns
	// fee priority.
	minFeeForPriority = 100

	// feePriorityStep is the additional fee per extra point.
	feePriorityStep = 1000

	// congestionPercent is the usage, as a percentage of the pool cap,
	// above which new admissions are penalised.
	congestionPercent = 90

	durationWeek  = 7 * 24 * time.Hour
	durationMonth = 30 * 24 * time.Hour
)

// calcStakePriority returns the priority earned by the stake weight of a
// transaction, never exceeding maxPriority.
func calcStakePriority(stakeWeight int64, maxPriority int64) int64 {
	points := stakeWeight / chaincfg.Coin
	if stakeWeight >= stakePriorityFullWeight {
		points = StakePriorityPoints
	}
	if points > maxPriority {
		points = maxPriority
	}
	return points
}

// calcFeePriority returns the priority earned by the absolute fee of a
// transaction.
func calcFeePriority(fee int64) int64 {
	if fee < minFeeForPriority {
		return 0
	}
	points := 1 + (fee-minFeeForPriority)/feePriorityStep
	if points > FeePriorityPoints {
		points = FeePriorityPoints
	}
	return points
}

// calcDurationPriority returns the priority earned by the age of the oldest
// confirmed input.
func calcDurationPriority(age time.Duration) int64 {
	switch {
	case age >= durationMonth:
		return DurationMonthPoints
	case age >= durationWeek:
		return DurationWeekPoints
	}
	return 0
}

// inputAge returns how long the input confirmed at coinHeight has been in the
// chain at bestHeight, measured in target block intervals.  Unconfirmed
// inputs have no age.
func inputAge(params *chaincfg.Params, bestHeight, coinHeight int32) time.Duration {
	if coinHeight == mining.UnminedHeight || bestHeight <= coinHeight {
		return 0
	}
	return time.Duration(bestHeight-coinHeight) * params.TargetTimePerBlock
}

// signalsReplacement returns whether any input of the transaction opts into
// replacement by carrying a sequence number below the final two values.
func signalsReplacement(msgTx *wire.MsgTx) bool {
	for _, txIn := range msgTx.TxIn {
		if txIn.Sequence < wire.MaxTxInSequenceNum-1 {
			return true
		}
	}
	return false
}

// clampPriority bounds priority to [-maxPriority, maxPriority].
func clampPriority(priority, maxPriority int64) int64 {
	if priority > maxPriority {
		return maxPriority
	}
	if priority < -maxPriority {
		return -maxPriority
	}
	return priority
}

// priorityInputs houses everything a priority score is derived from.
type priorityInputs struct {
	stakeWeight int64
	fee         int64
	age         time.Duration
	replaceable bool
	childBonus  bool
	congested   bool
}

// calcPriority combines the individual priority components into a single
// score bounded by maxPriority.
func calcPriority(in *priorityInputs, maxPriority int64) int64 {
	priority := calcStakePriority(in.stakeWeight, maxPriority)
	priority += calcFeePriority(in.fee)
	priority += calcDurationPriority(in.age)
	if in.replaceable {
		priority += RBFPenalty
	}
	if in.childBonus {
		priority += CPFPBonus
	}
	if in.congested {
		priority += CongestionPenalty
	}
	return clampPriority(priority, maxPriority)
}
