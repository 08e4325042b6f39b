// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"errors"
	"fmt"
)

// AssertError identifies an error that indicates an internal code consistency
// issue and should be treated as a critical and unrecoverable error.
type AssertError string

// Error returns the assertion error as a human-readable string and satisfies
// the error interface.
func (e AssertError) Error() string {
	return "assertion failed: " + string(e)
}

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrDuplicateBlock indicates a block with the same hash already
	// exists.
	ErrDuplicateBlock ErrorCode = iota

	// ErrMissingParent indicates that the parent of the block is not
	// known.
	ErrMissingParent

	// ErrInvalidAncestor indicates that an ancestor of the block failed
	// validation.
	ErrInvalidAncestor

	// ErrNoTransactions indicates the block does not have at least one
	// transaction.  A valid block must have at least the coinbase
	// transaction.
	ErrNoTransactions

	// ErrFirstTxNotCoinbase indicates the first transaction in a block
	// is not a coinbase transaction.
	ErrFirstTxNotCoinbase

	// ErrMultipleCoinbases indicates a block contains more than one
	// coinbase transaction.
	ErrMultipleCoinbases

	// ErrBadMerkleRoot indicates the calculated merkle root does not match
	// the expected value.
	ErrBadMerkleRoot

	// ErrDuplicateTx indicates a block contains an identical transaction
	// (or at least two transactions which hash to the same value).
	ErrDuplicateTx

	// ErrTimeTooOld indicates the time is either before the median time of
	// the last several blocks per the chain consensus rules or prior to the
	// previous block.
	ErrTimeTooOld

	// ErrTimeTooNew indicates the time is too far in the future as compared
	// the current time.
	ErrTimeTooNew

	// ErrUnexpectedDifficulty indicates specified bits do not align with
	// the expected value either because it doesn't match the calculated
	// value based on difficulty regarding the rules or it is out of the
	// valid range.
	ErrUnexpectedDifficulty

	// ErrHighHash indicates the block does not hash to a value which is
	// lower than the required target difficulty.
	ErrHighHash

	// ErrPoWAfterActivation indicates a proof of work block at or above
	// the proof of stake activation height.
	ErrPoWAfterActivation

	// ErrPoSBeforeActivation indicates a proof of stake block below the
	// proof of stake activation height.
	ErrPoSBeforeActivation

	// ErrBadTimeMask indicates a proof of stake block timestamp with any
	// of the stake timestamp mask bits set.
	ErrBadTimeMask

	// ErrBadTimeSpacing indicates a proof of stake block timestamp before
	// the previous block time plus the target spacing.
	ErrBadTimeSpacing

	// ErrBadKernel indicates the stake kernel does not meet the stake
	// weighted target or violates the stake age rules.
	ErrBadKernel

	// ErrBadKernelScript indicates the kernel output is not a
	// pay-to-pubkey-hash output and so cannot be tied to a block signer.
	ErrBadKernelScript

	// ErrCoinStakeDuplicateInput indicates a coinstake spending the same
	// outpoint more than once.
	ErrCoinStakeDuplicateInput

	// ErrCoinStakeMissingInput indicates a coinstake spending an output
	// that does not exist or is already spent.
	ErrCoinStakeMissingInput

	// ErrCoinStakeImmatureInput indicates a coinstake spending an output
	// that lacks the required confirmations.
	ErrCoinStakeImmatureInput

	// ErrCoinStakeMarker indicates a coinstake without the empty marker
	// output.
	ErrCoinStakeMarker

	// ErrCoinStakeMissing indicates a proof of stake block whose second
	// transaction is not a coinstake.
	ErrCoinStakeMissing

	// ErrMultipleCoinStakes indicates a coinstake anywhere other than the
	// second transaction of a block.
	ErrMultipleCoinStakes

	// ErrCoinStakePayee indicates the validator output pays a script
	// other than the kernel script while cold staking is disabled.
	ErrCoinStakePayee

	// ErrDividendMissing indicates the dividend output is absent while
	// dividend payouts are enabled.
	ErrDividendMissing

	// ErrDividendAmount indicates the dividend output does not pay a tenth
	// of the total reward.
	ErrDividendAmount

	// ErrDividendScript indicates the dividend output does not pay the
	// dividend script.
	ErrDividendScript

	// ErrValidatorAmount indicates the validator output does not pay the
	// staked amount plus the validator share of the reward.
	ErrValidatorAmount

	// ErrDividendExtra indicates outputs beyond the canonical set.
	ErrDividendExtra

	// ErrDividendPayout indicates quarter payout outputs that differ from
	// the payouts computed from the registry and pool.
	ErrDividendPayout

	// ErrBadBlockSignature indicates a proof of stake block signature that
	// is missing, malformed or not made by the kernel owner.
	ErrBadBlockSignature

	// ErrBadCoinbaseValue indicates the amount of a coinbase value does
	// not match the expected value of the subsidy plus the sum of all
	// fees.
	ErrBadCoinbaseValue

	// ErrNoTxInputs indicates a transaction does not have any inputs.  A
	// valid transaction must have at least one input.
	ErrNoTxInputs

	// ErrNoTxOutputs indicates a transaction does not have any outputs.  A
	// valid transaction must have at least one output.
	ErrNoTxOutputs

	// ErrBadTxOutValue indicates an output value for a transaction is
	// invalid in some way such as being out of range.
	ErrBadTxOutValue

	// ErrDuplicateTxInputs indicates a transaction references the same
	// input more than once.
	ErrDuplicateTxInputs

	// ErrBadTxInput indicates a transaction input is invalid in some way
	// such as referencing a previous transaction outpoint which is out of
	// range or not referencing one at all.
	ErrBadTxInput

	// ErrMissingTxOut indicates a transaction output referenced by an
	// input either does not exist or has already been spent.
	ErrMissingTxOut

	// ErrImmatureSpend indicates a transaction is attempting to spend a
	// coinbase or coinstake that has not yet reached the required
	// maturity.
	ErrImmatureSpend

	// ErrSpendTooHigh indicates a transaction is attempting to spend more
	// value than the sum of all of its inputs.
	ErrSpendTooHigh

	// numErrorCodes is the maximum error code number used in tests.
	numErrorCodes
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDuplicateBlock:          "ErrDuplicateBlock",
	ErrMissingParent:           "ErrMissingParent",
	ErrInvalidAncestor:         "ErrInvalidAncestor",
	ErrNoTransactions:          "ErrNoTransactions",
	ErrFirstTxNotCoinbase:      "ErrFirstTxNotCoinbase",
	ErrMultipleCoinbases:       "ErrMultipleCoinbases",
	ErrBadMerkleRoot:           "ErrBadMerkleRoot",
	ErrDuplicateTx:             "ErrDuplicateTx",
	ErrTimeTooOld:              "ErrTimeTooOld",
	ErrTimeTooNew:              "ErrTimeTooNew",
	ErrUnexpectedDifficulty:    "ErrUnexpectedDifficulty",
	ErrHighHash:                "ErrHighHash",
	ErrPoWAfterActivation:      "ErrPoWAfterActivation",
	ErrPoSBeforeActivation:     "ErrPoSBeforeActivation",
	ErrBadTimeMask:             "ErrBadTimeMask",
	ErrBadTimeSpacing:          "ErrBadTimeSpacing",
	ErrBadKernel:               "ErrBadKernel",
	ErrBadKernelScript:         "ErrBadKernelScript",
	ErrCoinStakeDuplicateInput: "ErrCoinStakeDuplicateInput",
	ErrCoinStakeMissingInput:   "ErrCoinStakeMissingInput",
	ErrCoinStakeImmatureInput:  "ErrCoinStakeImmatureInput",
	ErrCoinStakeMarker:         "ErrCoinStakeMarker",
	ErrCoinStakeMissing:        "ErrCoinStakeMissing",
	ErrMultipleCoinStakes:      "ErrMultipleCoinStakes",
	ErrCoinStakePayee:          "ErrCoinStakePayee",
	ErrDividendMissing:         "ErrDividendMissing",
	ErrDividendAmount:          "ErrDividendAmount",
	ErrDividendScript:          "ErrDividendScript",
	ErrValidatorAmount:         "ErrValidatorAmount",
	ErrDividendExtra:           "ErrDividendExtra",
	ErrDividendPayout:          "ErrDividendPayout",
	ErrBadBlockSignature:       "ErrBadBlockSignature",
	ErrBadCoinbaseValue:        "ErrBadCoinbaseValue",
	ErrNoTxInputs:              "ErrNoTxInputs",
	ErrNoTxOutputs:             "ErrNoTxOutputs",
	ErrBadTxOutValue:           "ErrBadTxOutValue",
	ErrDuplicateTxInputs:       "ErrDuplicateTxInputs",
	ErrBadTxInput:              "ErrBadTxInput",
	ErrMissingTxOut:            "ErrMissingTxOut",
	ErrImmatureSpend:           "ErrImmatureSpend",
	ErrSpendTooHigh:            "ErrSpendTooHigh",
}

// rejectReasons maps error codes to the short reason strings reported to
// whoever submitted a rejected block.
var rejectReasons = map[ErrorCode]string{
	ErrDuplicateBlock:          "duplicate",
	ErrMissingParent:           "prev-blk-not-found",
	ErrInvalidAncestor:         "bad-prevblk",
	ErrNoTransactions:          "bad-blk-length",
	ErrFirstTxNotCoinbase:      "bad-cb-missing",
	ErrMultipleCoinbases:       "bad-cb-multiple",
	ErrBadMerkleRoot:           "bad-txnmrklroot",
	ErrDuplicateTx:             "bad-txns-duplicate",
	ErrTimeTooOld:              "time-too-old",
	ErrTimeTooNew:              "time-too-new",
	ErrUnexpectedDifficulty:    "bad-diffbits",
	ErrHighHash:                "high-hash",
	ErrPoWAfterActivation:      "bad-pow",
	ErrPoSBeforeActivation:     "bad-pos-height",
	ErrBadTimeMask:             "bad-pos-time-mask",
	ErrBadTimeSpacing:          "bad-pos-time-spacing",
	ErrBadKernel:               "bad-pos-kernel",
	ErrBadKernelScript:         "bad-cs-kernel-script",
	ErrCoinStakeDuplicateInput: "bad-cs-duplicate-input",
	ErrCoinStakeMissingInput:   "bad-cs-missing-input",
	ErrCoinStakeImmatureInput:  "bad-cs-immature-input",
	ErrCoinStakeMarker:         "bad-cs-marker",
	ErrCoinStakeMissing:        "bad-cs-missing",
	ErrMultipleCoinStakes:      "bad-cs-multiple",
	ErrCoinStakePayee:          "bad-cs-payee",
	ErrDividendMissing:         "bad-dividend-missing",
	ErrDividendAmount:          "bad-dividend-amount",
	ErrDividendScript:          "bad-dividend-script",
	ErrValidatorAmount:         "bad-validator-amount",
	ErrDividendExtra:           "bad-dividend-extra",
	ErrDividendPayout:          "bad-dividend-payout",
	ErrBadBlockSignature:       "bad-blk-signature",
	ErrBadCoinbaseValue:        "bad-cb-amount",
	ErrNoTxInputs:              "bad-txns-vin-empty",
	ErrNoTxOutputs:             "bad-txns-vout-empty",
	ErrBadTxOutValue:           "bad-txns-vout-range",
	ErrDuplicateTxInputs:       "bad-txns-inputs-duplicate",
	ErrBadTxInput:              "bad-txns-prevout-null",
	ErrMissingTxOut:            "bad-txns-inputs-missingorspent",
	ErrImmatureSpend:           "bad-txns-premature-spend-of-coinbase",
	ErrSpendTooHigh:            "bad-txns-in-belowout",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RejectReason returns the short reject reason for the error code.
func (e ErrorCode) RejectReason() string {
	if s := rejectReasons[e]; s != "" {
		return s
	}
	return "invalid"
}

// RuleError identifies a rule violation.  It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules.  The caller can use type assertions to determine if a
// failure was specifically due to a rule violation and access the ErrorCode
// field to ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// RejectReason returns the short reason string reported for the rejected
// block.
func (e RuleError) RejectReason() string {
	return e.ErrorCode.RejectReason()
}

// ruleError creates an RuleError given a set of arguments.
func ruleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is a RuleError with the given code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == c
}

// RejectReason returns the reject reason of err when it is a RuleError and
// an empty string otherwise.
func RejectReason(err error) string {
	var rerr RuleError
	if errors.As(err, &rerr) {
		return rerr.RejectReason()
	}
	return ""
}
