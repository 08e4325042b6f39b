// Copyright (c) 2014 Conformal Systems LLC.
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stake

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific RuleError.
const (
	// ErrStakeTimeMask indicates a candidate kernel timestamp has bits set
	// that the stake timestamp mask requires to be clear.
	ErrStakeTimeMask ErrorCode = iota

	// ErrStakeTimeViolation indicates a candidate kernel timestamp is not
	// after the time the staked output was created.
	ErrStakeTimeViolation

	// ErrStakeTooYoung indicates the staked output has not yet reached the
	// minimum stake age at the candidate timestamp.
	ErrStakeTooYoung

	// ErrStakeZeroAmount indicates the staked amount is too small to yield
	// a nonzero kernel target.
	ErrStakeZeroAmount

	// ErrKernelTargetNotMet indicates the kernel proof hash is above the
	// stake weighted target.
	ErrKernelTargetNotMet

	// ErrNotCoinStake indicates a transaction expected to be a coinstake
	// does not have the coinstake shape.
	ErrNotCoinStake

	// ErrCoinStakeScript indicates the staked output script is not a
	// pay-to-pubkey-hash script and therefore cannot sign a block.
	ErrCoinStakeScript
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrStakeTimeMask:      "ErrStakeTimeMask",
	ErrStakeTimeViolation: "ErrStakeTimeViolation",
	ErrStakeTooYoung:      "ErrStakeTooYoung",
	ErrStakeZeroAmount:    "ErrStakeZeroAmount",
	ErrKernelTargetNotMet: "ErrKernelTargetNotMet",
	ErrNotCoinStake:       "ErrNotCoinStake",
	ErrCoinStakeScript:    "ErrCoinStakeScript",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError identifies a rule violation.  It is used to indicate that
// evaluation of a stake kernel or coinstake failed due to one of the stake
// rules.  The caller can use type assertions to determine if a failure was
// specifically due to a rule violation and access the ErrorCode field to
// ascertain the specific reason for the rule violation.
type RuleError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	return e.Description
}

// GetCode satisfies the error interface and prints human-readable errors.
func (e RuleError) GetCode() ErrorCode {
	return e.ErrorCode
}

// stakeRuleError creates an RuleError given a set of arguments.
func stakeRuleError(c ErrorCode, desc string) RuleError {
	return RuleError{ErrorCode: c, Description: desc}
}

// IsErrorCode returns whether err is a RuleError with the provided code.
func IsErrorCode(err error, c ErrorCode) bool {
	var rerr RuleError
	return errors.As(err, &rerr) && rerr.ErrorCode == c
}
