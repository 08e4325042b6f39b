// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2017 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

// SimNetParams defines the network parameters for the simulation test
// network.  This network is similar to the normal test network except it is
// intended for private use within a group of individuals doing simulation
// testing.
var SimNetParams = Params{
	Name:        "simnet",
	Net:         wire.BitcoinNet(0xb6d0b1d9),
	DefaultPort: "18796",

	// Chain parameters
	GenesisBlock:          &simNetGenesisBlock,
	GenesisHash:           &simNetGenesisHash,
	PowLimit:              regressionPowLimit,
	PowLimitBits:          0x207fffff,
	PosLimit:              regressionPowLimit,
	PosLimitBits:          0x207fffff,
	PoWNoRetargeting:      true,
	TargetTimePerBlock:    time.Second * 16,
	TargetTimespan:        time.Second * 16 * 10,
	MaxKernelSearchWindow: time.Minute,

	// Proof of stake parameters.
	PoSActivationHeight:   10,
	StakeTimestampMask:    0xf,
	MinStakeAge:           time.Minute * 10,
	MaxAgeWeight:          time.Hour * 24,
	StakeMinConfirmations: 2,
	CoinbaseMaturity:      2,
	ModifierV3Height:      0,
	ColdStaking:           true,

	// Subsidy parameters.
	BaseSubsidy:            50 * Coin,
	SubsidyHalvingInterval: 50000,
	GenesisAllocation:      3000000 * Coin,
	MaxSupply:              8000000 * Coin,

	// Dividend parameters.
	DividendPayouts:   true,
	QuarterBlocks:     20,
	DividendWeightCap: 1000 * Coin,
	BaseAprBP:         100,
	AprRangeBP:        900,
}
