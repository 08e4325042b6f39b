// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

// RegressionNetParams defines the network parameters for the regression test
// network.  Not to be confused with the test network, this network is
// sometimes simply called "testnet".
var RegressionNetParams = Params{
	Name:        "regtest",
	Net:         wire.BitcoinNet(0xb6d0b1d8),
	DefaultPort: "18794",

	// Chain parameters
	GenesisBlock:          &regTestGenesisBlock,
	GenesisHash:           &regTestGenesisHash,
	PowLimit:              regressionPowLimit,
	PowLimitBits:          0x207fffff,
	PosLimit:              regressionPowLimit,
	PosLimitBits:          0x207fffff,
	PoWNoRetargeting:      true,
	TargetTimePerBlock:    time.Minute,
	TargetTimespan:        time.Minute * 10,
	MaxKernelSearchWindow: time.Minute * 2,

	// Proof of stake parameters.
	PoSActivationHeight:   20,
	StakeTimestampMask:    0xf,
	MinStakeAge:           time.Hour,
	MaxAgeWeight:          time.Hour * 24 * 30,
	StakeMinConfirmations: 5,
	CoinbaseMaturity:      5,
	ModifierV3Height:      20,
	ColdStaking:           true,

	// Subsidy parameters.
	BaseSubsidy:            50 * Coin,
	SubsidyHalvingInterval: 150,
	GenesisAllocation:      3000000 * Coin,
	MaxSupply:              8000000 * Coin,

	// Dividend parameters.
	DividendPayouts:   true,
	QuarterBlocks:     40,
	DividendWeightCap: 1000 * Coin,
	BaseAprBP:         100,
	AprRangeBP:        900,
}
