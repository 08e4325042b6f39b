// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"errors"
	"math/big"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// These variables are the chain proof-of-work and proof-of-stake limit
// parameters for each default network.
var (
	// bigOne is 1 represented as a big.Int.  It is defined here to avoid
	// the overhead of creating it multiple times.
	bigOne = big.NewInt(1)

	// mainPowLimit is the highest proof of work value a block can have for
	// the main network.  It is the value 2^224 - 1.
	mainPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	// mainPosLimit is the highest proof of stake target per coin for the
	// main network.  It is the value 2^236 - 1.
	mainPosLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 236), bigOne)

	// testNetPowLimit is the highest proof of work value a block can have
	// for the test network.  It is the value 2^232 - 1.
	testNetPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)

	// regressionPowLimit is the highest proof of work value a block can
	// have for the regression test and simulation networks.  It is the
	// value 2^255 - 1.
	regressionPowLimit = new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)
)

// Coin is the number of base units in one coin.
const Coin = btcutil.SatoshiPerBitcoin

// Params defines a network by its parameters.  These parameters may be used
// by applications to differentiate networks as well as addresses and keys for
// one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// Net defines the magic bytes used to identify the network.
	Net wire.BitcoinNet

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the starting block hash.
	GenesisHash *chainhash.Hash

	// PowLimit defines the highest allowed proof of work value for a block
	// as a uint256.
	PowLimit *big.Int

	// PowLimitBits defines the highest allowed proof of work value for a
	// block in compact form.
	PowLimitBits uint32

	// PosLimit defines the highest allowed proof of stake target per coin
	// as a uint256.
	PosLimit *big.Int

	// PosLimitBits defines the highest allowed proof of stake target per
	// coin in compact form.
	PosLimitBits uint32

	// PoWNoRetargeting defines whether the network keeps the difficulty
	// pinned to the limits instead of retargeting after every block.
	PoWNoRetargeting bool

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.  It is also the minimum spacing enforced between proof of
	// stake blocks.
	TargetTimePerBlock time.Duration

	// TargetTimespan is the window over which the per-block retarget
	// smooths the observed block spacing.
	TargetTimespan time.Duration

	// PoSActivationHeight is the first height at which blocks must be
	// proof of stake.  Proof of work blocks at or after this height are
	// rejected.
	PoSActivationHeight int32

	// StakeTimestampMask is the granularity mask applied to proof of stake
	// block and kernel timestamps.  Valid timestamps have every mask bit
	// cleared.
	StakeTimestampMask uint32

	// MinStakeAge is the minimum time an output must exist before it can
	// be used as a stake kernel.
	MinStakeAge time.Duration

	// MaxAgeWeight is the ceiling on the stake age used when computing the
	// stake reward multiplier.
	MaxAgeWeight time.Duration

	// StakeMinConfirmations is the number of confirmations an output needs
	// before it may be spent by a coinstake.
	StakeMinConfirmations int32

	// CoinbaseMaturity is the number of blocks required before newly mined
	// coins (coinbase and coinstake outputs) can be spent.
	CoinbaseMaturity uint16

	// ModifierV3Height is the height from which the stake modifier chains
	// the previous modifier into its preimage.  Blocks below this height
	// use the legacy unchained modifier.
	ModifierV3Height int32

	// MaxKernelSearchWindow bounds how far ahead of the current time a
	// staker may try candidate kernel timestamps.
	MaxKernelSearchWindow time.Duration

	// BaseSubsidy is the starting subsidy amount for blocks.
	BaseSubsidy int64

	// SubsidyHalvingInterval is the number of blocks between halvings of
	// the block subsidy.
	SubsidyHalvingInterval int32

	// GenesisAllocation is the amount created by the genesis block.  It is
	// not part of the per-height subsidy schedule.
	GenesisAllocation int64

	// MaxSupply is the hard cap on total emission including the genesis
	// allocation.
	MaxSupply int64

	// DividendPayouts enables the dividend output on every block and the
	// quarterly payout of the accumulated pool.
	DividendPayouts bool

	// QuarterBlocks is the number of blocks between dividend payouts.
	QuarterBlocks int32

	// DividendWeightCap is the registry weight at which the amount factor
	// of the dividend rate saturates.
	DividendWeightCap int64

	// BaseAprBP and AprRangeBP define the annual dividend rate in basis
	// points as BaseAprBP + AprRangeBP * factor.
	BaseAprBP  int64
	AprRangeBP int64

	// ColdStaking permits the validator output of a coinstake to pay an
	// owner script other than the staked output's script.
	ColdStaking bool
}

// YearBlocks returns the number of blocks in a dividend year.
func (p *Params) YearBlocks() int32 {
	return 4 * p.QuarterBlocks
}

// IsPoSHeight returns whether blocks at the given height must be proof of
// stake.
func (p *Params) IsPoSHeight(height int32) bool {
	return height >= p.PoSActivationHeight
}

// MaskTimestamp clears the stake timestamp mask bits from t.
func (p *Params) MaskTimestamp(t int64) int64 {
	return t &^ int64(p.StakeTimestampMask)
}

var (
	// ErrDuplicateNet describes an error where the parameters for a network
	// could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.New("duplicate network")

	// ErrUnknownNet describes an error where the parameters for a network
	// are requested but have not been registered.
	ErrUnknownNet = errors.New("unknown network")
)

var registeredNets = make(map[wire.BitcoinNet]*Params)

// Register registers the network parameters for a network.  This may error
// with ErrDuplicateNet if the network is already registered (either due to a
// previous Register call, or the network being one of the default networks).
//
// Network parameters should be registered into this package by a main package
// as early as possible.  Then, library packages may lookup networks or network
// parameters based on inputs and work regardless of the network being standard
// or not.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Net]; ok {
		return ErrDuplicateNet
	}
	registeredNets[params.Net] = params
	return nil
}

// ParamsForNet returns the registered parameters for the given network.
func ParamsForNet(net wire.BitcoinNet) (*Params, error) {
	params, ok := registeredNets[net]
	if !ok {
		return nil, ErrUnknownNet
	}
	return params, nil
}

// mustRegister performs the same function as Register except it panics if
// there is an error.  This should only be called from package init
// functions.
func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainNetParams)
	mustRegister(&TestNetParams)
	mustRegister(&RegressionNetParams)
	mustRegister(&SimNetParams)
}
