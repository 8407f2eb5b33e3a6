// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import "fmt"

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific StoreError.
const (
	// ErrTransactionNotFound indicates that the requested transaction id
	// or hash is not known to the store.
	ErrTransactionNotFound ErrorCode = iota

	// ErrTransferNotFound indicates that the requested transfer id is not
	// known to the store.
	ErrTransferNotFound

	// ErrDepositNotFound indicates that the requested deposit id is not
	// known to the store.
	ErrDepositNotFound

	// ErrDuplicateUnconfirmed indicates an attempt to register an
	// unconfirmed transaction under a hash that is already tracked.
	ErrDuplicateUnconfirmed

	// ErrUnsupportedVersion indicates that a serialized store carries a
	// version this implementation does not understand.
	ErrUnsupportedVersion

	// ErrMalformedStore indicates that a serialized store is structurally
	// invalid, for example a transfer range pointing past the end of the
	// transfer list.
	ErrMalformedStore
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrTransactionNotFound:  "ErrTransactionNotFound",
	ErrTransferNotFound:     "ErrTransferNotFound",
	ErrDepositNotFound:      "ErrDepositNotFound",
	ErrDuplicateUnconfirmed: "ErrDuplicateUnconfirmed",
	ErrUnsupportedVersion:   "ErrUnsupportedVersion",
	ErrMalformedStore:       "ErrMalformedStore",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// StoreError provides a single type for errors that can happen during store
// operation.
type StoreError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e StoreError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// storeError creates a StoreError given a set of arguments.
func storeError(c ErrorCode, desc string, err error) StoreError {
	return StoreError{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is a StoreError with a matching error
// code.
func IsError(err error, code ErrorCode) bool {
	e, ok := err.(StoreError)
	return ok && e.ErrorCode == code
}
