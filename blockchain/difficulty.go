// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math/big"
	"time"

	"github.com/bitgoldsuite/bgd/blockchain/internal/workmath"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HashToBig converts a chainhash.Hash into a big.Int that can be used to
// perform math comparisons.
func HashToBig(hash *chainhash.Hash) *big.Int {
	return workmath.HashToBig(hash)
}

// CompactToBig converts a compact representation of a whole number N to an
// unsigned 32-bit number.  The representation is similar to IEEE754 floating
// point numbers.
//
// Like IEEE754 floating point, there are three basic components: the sign,
// the exponent, and the mantissa.  They are broken out as follows:
//
// - the most significant 8 bits represent the unsigned base 256 exponent
// - bit 23 (the 24th bit) represents the sign bit
// - the least significant 23 bits represent the mantissa
//
//	-------------------------------------------------
//	|   Exponent     |    Sign    |    Mantissa     |
//	-------------------------------------------------
//	| 8 bits [31-24] | 1 bit [23] | 23 bits [22-00] |
//	-------------------------------------------------
//
// The formula to calculate N is:
//
//	N = (-1^sign) * mantissa * 256^(exponent-3)
//
// This compact form is only used in bitcoin to encode unsigned 256-bit numbers
// which represent difficulty targets, thus there really is not a need for a
// sign bit, but it is implemented here to stay consistent with bitcoind.
func CompactToBig(compact uint32) *big.Int {
	return workmath.CompactToBig(compact)
}

// BigToCompact converts a whole number N to a compact representation using
// an unsigned 32-bit number.  The compact representation only provides 23 bits
// of precision, so values larger than (2^23 - 1) only encode the most
// significant digits of the number.  See CompactToBig for details.
func BigToCompact(n *big.Int) uint32 {
	return workmath.BigToCompact(n)
}

// CalcWork calculates a work value from difficulty bits.  Bitcoin increases
// the difficulty for generating a block by decreasing the value which the
// generated hash must be less than.  This difficulty target is stored in each
// block header using a compact representation as described in the documentation
// for CompactToBig.  The main chain is selected by choosing the chain that has
// the most proof of work (highest difficulty).  Since a lower target difficulty
// value equates to higher actual difficulty, the work value which will be
// accumulated must be the inverse of the difficulty.  Also, in order to avoid
// potential division by zero and really small floating point numbers, the
// result adds 1 to the denominator and multiplies the numerator by 2^256.
func CalcWork(bits uint32) *big.Int {
	return workmath.CalcWork(bits)
}

// limitFor returns the target limit and its compact form for the given proof
// kind.
func limitFor(params *chaincfg.Params, proofOfStake bool) (*big.Int, uint32) {
	if proofOfStake {
		return params.PosLimit, params.PosLimitBits
	}
	return params.PowLimit, params.PowLimitBits
}

// calcNextRequiredDifficulty calculates the required difficulty for a block of
// the given proof kind after lastNode.  Proof of work and proof of stake
// blocks retarget independently: each kind is retargeted on every block from
// the spacing of the two most recent blocks of that kind as
//
//	new = old * ((interval-1)*spacing + 2*actual) / ((interval+1)*spacing)
//
// where interval is TargetTimespan / TargetTimePerBlock.  The result is
// limited to the limit of the kind.
func calcNextRequiredDifficulty(params *chaincfg.Params, lastNode *blockNode,
	proofOfStake bool) uint32 {

	limit, limitBits := limitFor(params, proofOfStake)

	// Emulate the same behavior as Bitcoin Core that for regtest there is
	// no difficulty retargeting.
	if params.PoWNoRetargeting {
		return limitBits
	}

	prev := lastNodeOfKind(lastNode, proofOfStake)
	if prev == nil || prev.parent == nil {
		return limitBits
	}
	prevPrev := lastNodeOfKind(prev.parent, proofOfStake)
	if prevPrev == nil || prevPrev.parent == nil {
		return limitBits
	}

	spacing := int64(params.TargetTimePerBlock / time.Second)
	interval := int64(params.TargetTimespan / params.TargetTimePerBlock)
	actual := prev.timestamp - prevPrev.timestamp
	if actual < 0 {
		actual = spacing
	}

	oldTarget := CompactToBig(prev.bits)
	newTarget := new(big.Int).Mul(oldTarget,
		big.NewInt((interval-1)*spacing+2*actual))
	newTarget.Div(newTarget, big.NewInt((interval+1)*spacing))
	if newTarget.Sign() <= 0 || newTarget.Cmp(limit) > 0 {
		newTarget.Set(limit)
	}

	newTargetBits := BigToCompact(newTarget)
	log.Tracef("Retarget at height %d (pos %v): old %08x new %08x, "+
		"actual spacing %v", lastNode.height+1, proofOfStake, prev.bits,
		newTargetBits, time.Duration(actual)*time.Second)

	return newTargetBits
}

// CalcNextRequiredDifficulty calculates the required difficulty for a block
// of the given proof kind after the end of the current best chain.
//
// This function is safe for concurrent access.
func (b *BlockChain) CalcNextRequiredDifficulty(proofOfStake bool) uint32 {
	b.chainLock.RLock()
	difficulty := calcNextRequiredDifficulty(b.chainParams,
		b.bestChain.Tip(), proofOfStake)
	b.chainLock.RUnlock()
	return difficulty
}
