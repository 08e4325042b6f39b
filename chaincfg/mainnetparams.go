// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         wire.BitcoinNet(0xb6d0b1d6),
	DefaultPort: "8788",

	// Chain parameters
	GenesisBlock:          &genesisBlock,
	GenesisHash:           &genesisHash,
	PowLimit:              mainPowLimit,
	PowLimitBits:          0x1d00ffff,
	PosLimit:              mainPosLimit,
	PosLimitBits:          0x1e0fffff,
	PoWNoRetargeting:      false,
	TargetTimePerBlock:    time.Minute,
	TargetTimespan:        time.Minute * 10,
	MaxKernelSearchWindow: time.Minute * 2,

	// Proof of stake parameters.
	PoSActivationHeight:   10000,
	StakeTimestampMask:    0xf,
	MinStakeAge:           time.Hour,
	MaxAgeWeight:          time.Hour * 24 * 30,
	StakeMinConfirmations: 50,
	CoinbaseMaturity:      100,
	ModifierV3Height:      10000,
	ColdStaking:           false,

	// Subsidy parameters.
	BaseSubsidy:            50 * Coin,
	SubsidyHalvingInterval: 50000,
	GenesisAllocation:      3000000 * Coin,
	MaxSupply:              8000000 * Coin,

	// Dividend parameters.
	DividendPayouts:   true,
	QuarterBlocks:     16200,
	DividendWeightCap: 1000 * Coin,
	BaseAprBP:         100,
	AprRangeBP:        900,
}
