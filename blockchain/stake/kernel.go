// Copyright (c) 2014-2014 PPCD developers.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"time"

	"github.com/bitgoldsuite/bgd/blockchain/internal/workmath"
	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// PrevBlock describes the block a kernel is evaluated on top of.  Only
// fields committed to by earlier blocks are used so that a staker cannot
// grind the modifier with the contents of the block being built.
type PrevBlock struct {
	Modifier chainhash.Hash
	Hash     chainhash.Hash
	Height   int32
	Time     int64
}

// KernelInput is an unspent output being considered as a stake kernel along
// with the block that created it.
type KernelInput struct {
	OutPoint   wire.OutPoint
	Amount     int64
	OriginHash chainhash.Hash
	OriginTime int64
}

// writeLE32 writes the low 32 bits of v in little endian order.
func writeLE32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// CalcStakeModifier returns the stake modifier used by kernels of the block at
// prev.Height+1.  From ModifierV3Height on the previous modifier is chained
// into the preimage; before it the legacy preimage omits it.
func CalcStakeModifier(params *chaincfg.Params, prev *PrevBlock) chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, 2*chainhash.HashSize+8))
	if prev.Height+1 >= params.ModifierV3Height {
		buf.Write(prev.Modifier[:])
	}
	buf.Write(prev.Hash[:])
	writeLE32(buf, uint32(prev.Height))
	writeLE32(buf, uint32(prev.Time))

	return chainhash.DoubleHashH(buf.Bytes())
}

// KernelProof returns the kernel proof hash for the given modifier, staked
// input and candidate timestamp.
func KernelProof(params *chaincfg.Params, modifier *chainhash.Hash,
	in *KernelInput, candidateTime int64) chainhash.Hash {

	buf := bytes.NewBuffer(make([]byte, 0, 3*chainhash.HashSize+12))
	buf.Write(modifier[:])
	buf.Write(in.OriginHash[:])
	writeLE32(buf, uint32(params.MaskTimestamp(in.OriginTime)))
	buf.Write(in.OutPoint.Hash[:])
	writeLE32(buf, in.OutPoint.Index)
	writeLE32(buf, uint32(params.MaskTimestamp(candidateTime)))

	return chainhash.DoubleHashH(buf.Bytes())
}

// KernelTarget returns the stake weighted target: the per-coin target encoded
// by bits multiplied by the number of whole coins staked.
func KernelTarget(bits uint32, amount int64) *big.Int {
	target := workmath.CompactToBig(bits)
	return target.Mul(target, big.NewInt(amount/chaincfg.Coin))
}

// hashMeetsTarget returns whether proof, read as a little endian number, is
// at most the stake weighted target.
func hashMeetsTarget(proof *chainhash.Hash, bits uint32, amount int64) bool {
	return workmath.HashToBig(proof).Cmp(KernelTarget(bits, amount)) <= 0
}

// checkKernelTime enforces the timestamp rules of a kernel: masked
// granularity, strictly after the origin and at least the minimum stake age.
func checkKernelTime(params *chaincfg.Params, originTime, candidateTime int64) error {
	if candidateTime&int64(params.StakeTimestampMask) != 0 {
		str := fmt.Sprintf("kernel timestamp %d does not satisfy stake "+
			"timestamp mask %#x", candidateTime, params.StakeTimestampMask)
		return stakeRuleError(ErrStakeTimeMask, str)
	}
	if candidateTime <= originTime {
		str := fmt.Sprintf("kernel timestamp %d is not after the stake "+
			"origin time %d", candidateTime, originTime)
		return stakeRuleError(ErrStakeTimeViolation, str)
	}
	age := time.Duration(candidateTime-originTime) * time.Second
	if age < params.MinStakeAge {
		str := fmt.Sprintf("stake age %v is below the minimum %v", age,
			params.MinStakeAge)
		return stakeRuleError(ErrStakeTooYoung, str)
	}
	return nil
}

// CheckKernel evaluates the stake kernel of in at candidateTime on top of
// prev.  It returns the modifier and proof hash when the proof meets the
// stake weighted target and a RuleError otherwise.
//
// The function is pure: identical arguments always yield identical results.
func CheckKernel(params *chaincfg.Params, prev *PrevBlock, bits uint32,
	in *KernelInput, candidateTime int64) (chainhash.Hash, chainhash.Hash, error) {

	if err := checkKernelTime(params, in.OriginTime, candidateTime); err != nil {
		return chainhash.Hash{}, chainhash.Hash{}, err
	}
	if in.Amount < chaincfg.Coin {
		str := fmt.Sprintf("staked amount %d is below one coin", in.Amount)
		return chainhash.Hash{}, chainhash.Hash{},
			stakeRuleError(ErrStakeZeroAmount, str)
	}

	modifier := CalcStakeModifier(params, prev)
	proof := KernelProof(params, &modifier, in, candidateTime)
	if !hashMeetsTarget(&proof, bits, in.Amount) {
		str := fmt.Sprintf("kernel proof %v for %v is above target %064x",
			proof, in.OutPoint, KernelTarget(bits, in.Amount))
		return modifier, proof, stakeRuleError(ErrKernelTargetNotMet, str)
	}

	return modifier, proof, nil
}
