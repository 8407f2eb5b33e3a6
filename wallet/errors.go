// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import "fmt"

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific WalletError.
const (
	// ErrNotInitialized indicates an operation that requires a loaded
	// wallet was called before initialization finished.
	ErrNotInitialized ErrorCode = iota

	// ErrAlreadyInitialized indicates an initialization call on a wallet
	// that already holds an account.
	ErrAlreadyInitialized

	// ErrWrongState indicates the operation is not legal in the wallet's
	// current lifecycle state, for example saving while a save is
	// already running.
	ErrWrongState

	// ErrWrongPassword indicates the supplied password does not decrypt
	// the wallet stream.
	ErrWrongPassword

	// ErrInternal indicates an unexpected failure inside a background
	// load or save task.
	ErrInternal

	// ErrBadAddress indicates a destination address that does not parse
	// or belongs to a different network.
	ErrBadAddress

	// ErrZeroDestination indicates a send with no destinations or a
	// destination of zero value.
	ErrZeroDestination

	// ErrWrongAmount indicates a destination amount that is not a
	// positive value.
	ErrWrongAmount

	// ErrSumOverflow indicates the destination total plus fee overflows.
	ErrSumOverflow

	// ErrInsufficientFunds indicates the spendable balance does not
	// cover the destination total plus fee.
	ErrInsufficientFunds

	// ErrMixinOutOfRange indicates a nonzero requested mixin below the
	// currency minimum or above the maximum.
	ErrMixinOutOfRange

	// ErrNotEnoughMixins indicates the node returned fewer usable decoys
	// than the requested mixin for at least one denomination.
	ErrNotEnoughMixins

	// ErrFeeTooSmall indicates a fee below the currency minimum.
	ErrFeeTooSmall

	// ErrTTLConflictsFee indicates a transaction carrying both a TTL and
	// a fee; the two are mutually exclusive.
	ErrTTLConflictsFee

	// ErrTxTooLarge indicates a built transaction exceeding the relay
	// policy size limit.
	ErrTxTooLarge

	// ErrDepositTermWrong indicates a deposit term outside the currency
	// bounds.
	ErrDepositTermWrong

	// ErrDepositAmountTooSmall indicates a deposit below the currency's
	// minimum deposit amount.
	ErrDepositAmountTooSmall

	// ErrDepositLocked indicates a withdrawal referencing a deposit that
	// has not matured.
	ErrDepositLocked

	// ErrDepositAlreadySpent indicates a withdrawal referencing a
	// deposit already consumed by another transaction.
	ErrDepositAlreadySpent

	// ErrTxCancelImpossible indicates an attempt to cancel a transaction
	// that has already been handed to the node.
	ErrTxCancelImpossible

	// ErrTxSecretKeyNotFound indicates a proof request for a transaction
	// the wallet did not originate.
	ErrTxSecretKeyNotFound

	// ErrTrackingWallet indicates a spend operation on a view-only
	// wallet.
	ErrTrackingWallet

	// ErrBadProof indicates a proof or signature string that does not
	// decode.
	ErrBadProof

	// ErrRelayFailed indicates the node rejected a relayed transaction.
	ErrRelayFailed
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrNotInitialized:        "ErrNotInitialized",
	ErrAlreadyInitialized:    "ErrAlreadyInitialized",
	ErrWrongState:            "ErrWrongState",
	ErrWrongPassword:         "ErrWrongPassword",
	ErrInternal:              "ErrInternal",
	ErrBadAddress:            "ErrBadAddress",
	ErrZeroDestination:       "ErrZeroDestination",
	ErrWrongAmount:           "ErrWrongAmount",
	ErrSumOverflow:           "ErrSumOverflow",
	ErrInsufficientFunds:     "ErrInsufficientFunds",
	ErrMixinOutOfRange:       "ErrMixinOutOfRange",
	ErrNotEnoughMixins:       "ErrNotEnoughMixins",
	ErrFeeTooSmall:           "ErrFeeTooSmall",
	ErrTTLConflictsFee:       "ErrTTLConflictsFee",
	ErrTxTooLarge:            "ErrTxTooLarge",
	ErrDepositTermWrong:      "ErrDepositTermWrong",
	ErrDepositAmountTooSmall: "ErrDepositAmountTooSmall",
	ErrDepositLocked:         "ErrDepositLocked",
	ErrDepositAlreadySpent:   "ErrDepositAlreadySpent",
	ErrTxCancelImpossible:    "ErrTxCancelImpossible",
	ErrTxSecretKeyNotFound:   "ErrTxSecretKeyNotFound",
	ErrTrackingWallet:        "ErrTrackingWallet",
	ErrBadProof:              "ErrBadProof",
	ErrRelayFailed:           "ErrRelayFailed",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// WalletError provides a single type for errors that can happen during
// wallet operation.
type WalletError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e WalletError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// walletError creates a WalletError given a set of arguments.
func walletError(c ErrorCode, desc string, err error) WalletError {
	return WalletError{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is a WalletError with a matching error
// code.
func IsError(err error, code ErrorCode) bool {
	e, ok := err.(WalletError)
	return ok && e.ErrorCode == code
}
