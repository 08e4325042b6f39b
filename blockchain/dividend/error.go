// Copyright (c) 2014 Conformal Systems LLC.
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package dividend

import (
	"fmt"
)

// ErrorCode identifies a kind of claim error.
type ErrorCode int

// These constants are used to identify a specific ClaimError.
const (
	// ErrClaimsDisabled indicates a claim was attempted while dividend
	// payouts are disabled.
	ErrClaimsDisabled ErrorCode = iota

	// ErrNegativeClaim indicates a claim for a negative amount.
	ErrNegativeClaim

	// ErrClaimExceedsAvailable indicates a claim for more than the settled
	// but unclaimed balance of the key.
	ErrClaimExceedsAvailable

	// ErrNothingToClaim indicates a claim of the full balance of a key
	// with no settled but unclaimed balance.
	ErrNothingToClaim

	// ErrClaimStore indicates the claim could not be persisted.
	ErrClaimStore
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrClaimsDisabled:        "ErrClaimsDisabled",
	ErrNegativeClaim:         "ErrNegativeClaim",
	ErrClaimExceedsAvailable: "ErrClaimExceedsAvailable",
	ErrNothingToClaim:        "ErrNothingToClaim",
	ErrClaimStore:            "ErrClaimStore",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// ClaimError identifies a rejected dividend claim.  Claim errors never mutate
// the ledger.
type ClaimError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error, if any
}

// Error satisfies the error interface and prints human-readable errors.
func (e ClaimError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error, if any.
func (e ClaimError) Unwrap() error {
	return e.Err
}

// claimError creates a ClaimError given a set of arguments.
func claimError(c ErrorCode, desc string) ClaimError {
	return ClaimError{ErrorCode: c, Description: desc}
}
