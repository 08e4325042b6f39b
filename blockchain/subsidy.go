// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/bitgoldsuite/bgd/chaincfg"
)

// maxHalvings is the number of halvings after which the subsidy is zero.
const maxHalvings = 64

// CalcBlockSubsidy returns the subsidy amount a block at the provided height
// should have.  The genesis block carries the genesis allocation instead and
// so has no subsidy.  From height one the base subsidy is halved every
// SubsidyHalvingInterval blocks, so the first interval ends inclusively at
// height SubsidyHalvingInterval.
func CalcBlockSubsidy(height int32, params *chaincfg.Params) int64 {
	if height <= 0 || params.SubsidyHalvingInterval <= 0 {
		return 0
	}

	halvings := uint((height - 1) / params.SubsidyHalvingInterval)
	if halvings >= maxHalvings {
		return 0
	}
	return params.BaseSubsidy >> halvings
}

// TotalEmission returns the sum of CalcBlockSubsidy over every height.  It
// does not include the genesis allocation.
func TotalEmission(params *chaincfg.Params) int64 {
	var total int64
	interval := int64(params.SubsidyHalvingInterval)
	for halvings := uint(0); halvings < maxHalvings; halvings++ {
		subsidy := params.BaseSubsidy >> halvings
		if subsidy == 0 {
			break
		}
		total += subsidy * interval
	}
	return total
}
