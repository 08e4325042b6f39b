// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

// TestNetParams defines the network parameters for the test network.
var TestNetParams = Params{
	Name:        "testnet",
	Net:         wire.BitcoinNet(0xb6d0b1d7),
	DefaultPort: "18788",

	// Chain parameters
	GenesisBlock:          &testNetGenesisBlock,
	GenesisHash:           &testNetGenesisHash,
	PowLimit:              testNetPowLimit,
	PowLimitBits:          0x1d00ffff,
	PosLimit:              mainPosLimit,
	PosLimitBits:          0x1e0fffff,
	PoWNoRetargeting:      false,
	TargetTimePerBlock:    time.Minute,
	TargetTimespan:        time.Minute * 10,
	MaxKernelSearchWindow: time.Minute * 2,

	// Proof of stake parameters.
	PoSActivationHeight:   500,
	StakeTimestampMask:    0xf,
	MinStakeAge:           time.Hour,
	MaxAgeWeight:          time.Hour * 24 * 30,
	StakeMinConfirmations: 50,
	CoinbaseMaturity:      100,
	ModifierV3Height:      500,
	ColdStaking:           true,

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
