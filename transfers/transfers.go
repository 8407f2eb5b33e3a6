// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package transfers defines the contract between the wallet and the
// blockchain synchronization subsystem: the per-account container of raw
// tracked outputs and the notifications it pushes as the chain view
// changes.  The wallet only reads the container; all mutations flow from
// the synchronizer.
package transfers

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// OutputType discriminates tracked outputs.
type OutputType uint8

// Output types.
const (
	OutputInvalid OutputType = iota
	OutputKey
	OutputDeposit
)

// Flags select which outputs a Container query includes, combining
// inclusion state and output type.
type Flags uint32

// Inclusion state and type flags.
const (
	// IncludeStateLocked selects outputs whose unlock time or deposit
	// term has not been reached.
	IncludeStateLocked Flags = 1 << iota

	// IncludeStateSoftLocked selects outputs confirmed more recently than
	// the spendable age.
	IncludeStateSoftLocked

	// IncludeStateUnlocked selects spendable outputs.
	IncludeStateUnlocked

	// IncludeTypeKey selects ordinary one-time key outputs.
	IncludeTypeKey

	// IncludeTypeDeposit selects term deposit outputs.
	IncludeTypeDeposit
)

// Composed flag sets used throughout the wallet.
const (
	IncludeStateAll = IncludeStateLocked | IncludeStateSoftLocked |
		IncludeStateUnlocked
	IncludeTypeAll = IncludeTypeKey | IncludeTypeDeposit

	IncludeAllLocked   = IncludeTypeAll | IncludeStateLocked
	IncludeAllUnlocked = IncludeTypeAll | IncludeStateUnlocked
	IncludeAll         = IncludeTypeAll | IncludeStateAll

	IncludeKeyUnlocked = IncludeTypeKey | IncludeStateUnlocked
	IncludeKeyNotUnlocked = IncludeTypeKey | IncludeStateLocked |
		IncludeStateSoftLocked
)

// OutputInfo describes one tracked output of the wallet's account.
type OutputInfo struct {
	Type OutputType

	Amount uint64

	// Term is nonzero only for deposit outputs.
	Term uint32

	// RequiredSignatures is nonzero only for deposit outputs.
	RequiredSignatures uint32

	// GlobalOutputIndex is the chain-wide index within the output's
	// denomination, used as a ring member reference.
	GlobalOutputIndex uint32

	// OutputInTransaction is the output's index inside its transaction.
	OutputInTransaction uint32

	TransactionPublicKey cncrypto.PublicKey
	OutputKey            cncrypto.PublicKey
	TransactionHash      chainhash.Hash
}

// TransactionInfo is the container's record of a transaction that touches
// tracked outputs.
type TransactionInfo struct {
	Hash chainhash.Hash

	// BlockHeight is chaincfg.UnconfirmedTransactionHeight while the
	// transaction sits in the pool.
	BlockHeight uint32

	Timestamp  uint64
	UnlockTime uint64

	TotalAmountIn  uint64
	TotalAmountOut uint64

	// Fee is the whole transaction's fee, zero for coinbase
	// transactions.
	Fee uint64

	Extra     []byte
	PaymentID chainhash.Hash
	Messages  []string
}
