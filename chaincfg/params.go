// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the currency parameters consumed by the wallet.
// The consensus rules themselves (difficulty, rewards, block validation)
// live in the node; the wallet only needs the policy constants and the
// deposit interest formula.
package chaincfg

import (
	"errors"
	"math/bits"
	"time"
)

// UnconfirmedTransactionHeight is the sentinel block height of a
// transaction that has not been included in a block.
const UnconfirmedTransactionHeight = ^uint32(0)

var (
	// ErrTermOutOfRange describes a deposit term outside
	// [DepositMinTerm, DepositMaxTerm].
	ErrTermOutOfRange = errors.New("deposit term out of range")

	// ErrInterestOverflow describes an interest computation whose result
	// does not fit in 64 bits.
	ErrInterestOverflow = errors.New("interest overflows uint64")
)

// Params holds the currency parameters the wallet consults.
type Params struct {
	// Name identifies the network.
	Name string

	// PublicAddressBase58Prefix is the uvarint tag leading every encoded
	// account address.
	PublicAddressBase58Prefix uint64

	// DisplayDecimalPoint is the number of decimal places shown when
	// formatting amounts; Coin is 10^DisplayDecimalPoint.
	DisplayDecimalPoint uint
	Coin                uint64

	// MinimumFee is the smallest fee accepted on an ordinary transaction.
	// DefaultDustThreshold is the change value below which an output is
	// considered uneconomical and split or absorbed.
	MinimumFee           uint64
	DefaultDustThreshold uint64

	// MinMixin and MaxMixin bound the requested ring size.  A mixin of
	// zero means no decoys were requested and is always allowed.
	MinMixin uint64
	MaxMixin uint64

	// MaxTransactionSize is the relay policy ceiling for a serialized
	// transaction.
	MaxTransactionSize uint64

	// TransactionSpendableAge is the confirmation depth before an output
	// leaves the soft-locked state.
	TransactionSpendableAge uint32

	// MinedMoneyUnlockWindow is the maturity window of coinbase outputs.
	MinedMoneyUnlockWindow uint32

	// DifficultyTarget is the block interval; BlocksPerDay derives from it.
	DifficultyTarget time.Duration
	BlocksPerDay     uint32

	// Deposit policy: amount floor, term bounds (in blocks) and the two
	// factors of the interest formula.
	DepositMinAmount          uint64
	DepositMinTerm            uint32
	DepositMaxTerm            uint32
	DepositMinTotalRateFactor uint64
	DepositMaxTotalRate       uint64

	// MempoolTxLiveTime and NumberOfPeriodsToForgetTx bound how long an
	// unconfirmed transaction is kept before the maintenance pass drops
	// it and releases its outputs.
	MempoolTxLiveTime         time.Duration
	NumberOfPeriodsToForgetTx uint64
}

// MainNetParams defines the main network parameters.
var MainNetParams = Params{
	Name:                      "mainnet",
	PublicAddressBase58Prefix: 0xf0ec6,
	DisplayDecimalPoint:       8,
	Coin:                      1e8,
	MinimumFee:                1e6,
	DefaultDustThreshold:      1e6,
	MinMixin:                  3,
	MaxMixin:                  12,
	MaxTransactionSize:        100000/4 - 600,
	TransactionSpendableAge:   6,
	MinedMoneyUnlockWindow:    10,
	DifficultyTarget:          120 * time.Second,
	BlocksPerDay:              720,
	DepositMinAmount:          5000 * 1e8,
	DepositMinTerm:            21600,
	DepositMaxTerm:            12 * 21600,
	DepositMinTotalRateFactor: 0,
	DepositMaxTotalRate:       3,
	MempoolTxLiveTime:         12 * time.Hour,
	NumberOfPeriodsToForgetTx: 7,
}

// SimNetParams is a loosened parameter set for tests: one-block deposit
// terms and a short mempool lifetime.
var SimNetParams = Params{
	Name:                      "simnet",
	PublicAddressBase58Prefix: 0xf0ec6,
	DisplayDecimalPoint:       8,
	Coin:                      1e8,
	MinimumFee:                1e6,
	DefaultDustThreshold:      1e6,
	MinMixin:                  3,
	MaxMixin:                  12,
	MaxTransactionSize:        100000/4 - 600,
	TransactionSpendableAge:   1,
	MinedMoneyUnlockWindow:    10,
	DifficultyTarget:          time.Second,
	BlocksPerDay:              720,
	DepositMinAmount:          5000 * 1e8,
	DepositMinTerm:            10,
	DepositMaxTerm:            120,
	DepositMinTotalRateFactor: 0,
	DepositMaxTotalRate:       3,
	MempoolTxLiveTime:         time.Minute,
	NumberOfPeriodsToForgetTx: 7,
}

// ValidDepositTerm reports whether term is within the deposit policy.
func (p *Params) ValidDepositTerm(term uint32) bool {
	return term >= p.DepositMinTerm && term <= p.DepositMaxTerm
}

// CalculateInterest returns the fixed interest earned by a deposit of the
// given amount and term:
//
//	interest = amount * (term*DepositMaxTotalRate - DepositMinTotalRateFactor)
//	         / (100 * DepositMaxTerm)
//
// The multiplication is carried out in 128 bits, matching the reference
// mul128/div128 computation.
func (p *Params) CalculateInterest(amount uint64, term uint32) (uint64, error) {
	if !p.ValidDepositTerm(term) {
		return 0, ErrTermOutOfRange
	}
	a := uint64(term)*p.DepositMaxTotalRate - p.DepositMinTotalRateFactor
	hi, lo := bits.Mul64(amount, a)
	d := 100 * uint64(p.DepositMaxTerm)
	if hi >= d {
		return 0, ErrInterestOverflow
	}
	interest, _ := bits.Div64(hi, lo, d)
	return interest, nil
}

// MempoolTxKeepalive is the total age after which an unconfirmed
// transaction is forgotten.
func (p *Params) MempoolTxKeepalive() time.Duration {
	return p.MempoolTxLiveTime * time.Duration(p.NumberOfPeriodsToForgetTx)
}
