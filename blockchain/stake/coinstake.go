// Copyright (c) 2014-2014 PPCD developers.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"math"
	"math/big"
	"time"

	"github.com/bitgoldsuite/bgd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

const (
	// CoinStakeMarkerIndex is the output index of the empty marker output.
	CoinStakeMarkerIndex = 0

	// CoinStakeValidatorIndex is the output index paying the staked amount
	// plus the validator reward.
	CoinStakeValidatorIndex = 1

	// CoinStakeDividendIndex is the output index paying the dividend share
	// of the reward to the dividend script.
	CoinStakeDividendIndex = 2

	// ValidatorShareNum and ValidatorShareDen define the 90/10 split of a
	// block reward between the validator and the dividend pool.
	ValidatorShareNum = 9
	ValidatorShareDen = 10
)

// dividendScript is the canonical script collecting the dividend share of
// every block reward.
var dividendScript = []byte{txscript.OP_TRUE}

// DividendScript returns a copy of the canonical dividend collection script.
func DividendScript() []byte {
	script := make([]byte, len(dividendScript))
	copy(script, dividendScript)
	return script
}

// IsDividendScript returns whether script is the canonical dividend script.
func IsDividendScript(script []byte) bool {
	return len(script) == 1 && script[0] == txscript.OP_TRUE
}

// isNullOutpoint determines whether or not a previous transaction output point
// is set.
func isNullOutpoint(outpoint *wire.OutPoint) bool {
	return outpoint.Index == math.MaxUint32 && outpoint.Hash == chainhash.Hash{}
}

// IsCoinStakeTx determines whether or not a transaction has the coinstake
// shape: at least one real input, at least two outputs and an empty marker as
// the first output.
func IsCoinStakeTx(msgTx *wire.MsgTx) bool {
	if len(msgTx.TxIn) == 0 || len(msgTx.TxOut) < 2 {
		return false
	}
	if isNullOutpoint(&msgTx.TxIn[0].PreviousOutPoint) {
		return false
	}
	marker := msgTx.TxOut[CoinStakeMarkerIndex]
	return marker.Value == 0 && len(marker.PkScript) == 0
}

// SplitReward splits a total reward into the validator and dividend shares.
// The dividend share is the floor of a tenth of the total and the validator
// receives the remainder, so the shares always sum to total.
func SplitReward(total int64) (validator, dividend int64) {
	dividend = total / ValidatorShareDen
	validator = total - dividend
	return validator, dividend
}

// StakeAgeWeight returns the age a stake is credited with: the age clipped to
// MaxAgeWeight.  Stakes younger than MinStakeAge are not eligible and weigh
// nothing.
func StakeAgeWeight(params *chaincfg.Params, age time.Duration) time.Duration {
	if age < params.MinStakeAge || params.MinStakeAge <= 0 {
		return 0
	}
	return min(age, params.MaxAgeWeight)
}

// CalcStakeReward returns the total reward a coinstake may claim: the
// subsidy scaled by the credited age over MinStakeAge plus the fees of the
// block.  The scaling is a single truncating division, so partial multiples
// of MinStakeAge earn their share.
func CalcStakeReward(params *chaincfg.Params, subsidy, fees int64, age time.Duration) int64 {
	weight := StakeAgeWeight(params, age)
	if weight == 0 {
		return fees
	}

	// subsidy * weight can exceed 64 bits with nanosecond durations.
	reward := new(big.Int).Mul(big.NewInt(subsidy), big.NewInt(int64(weight)))
	reward.Quo(reward, big.NewInt(int64(params.MinStakeAge)))
	return reward.Int64() + fees
}

// PayToPubKeyHashScript returns a standard pay-to-pubkey-hash script for the
// given 20-byte hash.
func PayToPubKeyHashScript(pubKeyHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// ExtractPubKeyHash returns the 20-byte hash of a pay-to-pubkey-hash script
// or nil when the script is of any other form.
func ExtractPubKeyHash(script []byte) []byte {
	if !txscript.IsPayToPubKeyHash(script) {
		return nil
	}
	return script[3:23]
}

// CoinStakeTemplate describes a coinstake to assemble.  Signature scripts are
// left empty for the signer to fill in.
type CoinStakeTemplate struct {
	// Inputs are the outpoints spent; the first one is the kernel.
	Inputs []wire.OutPoint

	// Staked is the total value of the spent outputs.
	Staked int64

	// Reward is the total reward claimed by the coinstake.
	Reward int64

	// PayScript receives the staked amount plus the validator share.
	PayScript []byte

	// DividendPayouts adds the dividend output when set.
	DividendPayouts bool

	// Payouts are the quarter boundary dividend outputs, already sorted.
	Payouts []*wire.TxOut

	// Time is the block time the coinstake commits to.
	Time int64
}

// NewCoinStakeTx assembles the canonical coinstake described by t:
// marker, validator payment, optional dividend output and payout outputs.
func NewCoinStakeTx(t *CoinStakeTemplate) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for i := range t.Inputs {
		tx.AddTxIn(wire.NewTxIn(&t.Inputs[i], nil, nil))
	}

	// Without payouts there is no pool to fund and the validator keeps
	// the whole reward.
	validator, dividend := t.Reward, int64(0)
	if t.DividendPayouts {
		validator, dividend = SplitReward(t.Reward)
	}
	tx.AddTxOut(&wire.TxOut{})
	tx.AddTxOut(wire.NewTxOut(t.Staked+validator, t.PayScript))
	if t.DividendPayouts {
		tx.AddTxOut(wire.NewTxOut(dividend, DividendScript()))
	}
	for _, payout := range t.Payouts {
		tx.AddTxOut(payout)
	}
	tx.LockTime = uint32(t.Time)

	return tx
}
