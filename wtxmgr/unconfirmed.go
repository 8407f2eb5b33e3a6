// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// unconfirmedDetails tracks one relayed but not yet confirmed local
// transaction.  The amounts feed the pending balance formulas and the spent
// output keys keep the consumed outputs out of later input selection until
// the transaction confirms, fails or ages out.
type unconfirmedDetails struct {
	id TransactionID

	// amount is the sum of destination amounts plus the fee.
	amount uint64

	// outsAmount is the sum of the selected input outputs.  The
	// difference outsAmount-amount is the in-flight change.
	outsAmount uint64

	sentTime     time.Time
	spentOutputs []cncrypto.PublicKey
}

// spentDepositDetails tracks an unconfirmed withdrawal: the total deposit
// value it consumes and the fee it pays.
type spentDepositDetails struct {
	id          TransactionID
	depositsSum uint64
	fee         uint64
}

// AddUnconfirmedTransaction registers a relayed local transaction in the
// unconfirmed pool.  The spent output keys are excluded from input
// selection while the entry lives.
func (s *Store) AddUnconfirmedTransaction(id TransactionID, amount,
	outsAmount uint64, spentOutputs []cncrypto.PublicKey) error {

	if uint64(id) >= uint64(len(s.transactions)) {
		return storeError(ErrTransactionNotFound,
			"transaction id out of range", nil)
	}
	hash := s.transactions[id].Hash
	if _, ok := s.unconfirmed[hash]; ok {
		return storeError(ErrDuplicateUnconfirmed,
			"transaction "+hash.String()+" already unconfirmed", nil)
	}

	s.unconfirmed[hash] = &unconfirmedDetails{
		id:           id,
		amount:       amount,
		outsAmount:   outsAmount,
		sentTime:     s.transactions[id].SentTime,
		spentOutputs: spentOutputs,
	}
	return nil
}

// AddCreatedDeposits records the total value (principal plus interest) of
// the deposits an unconfirmed local transaction is creating.  The value
// counts toward the pending deposit balance until the deposit rows are
// created at confirmation.
func (s *Store) AddCreatedDeposits(id TransactionID, sum uint64) {
	s.createdDeposits[id] = sum
}

// AddDepositSpendingTransaction records an unconfirmed withdrawal: the
// handles of the consumed deposits are linked to the spending transaction
// and their total value and fee are tracked for the balance formulas.
func (s *Store) AddDepositSpendingTransaction(id TransactionID,
	depositIDs []DepositID, depositsSum, fee uint64) error {

	for _, depositID := range depositIDs {
		if uint64(depositID) >= uint64(len(s.deposits)) {
			return storeError(ErrDepositNotFound,
				"deposit id out of range", nil)
		}
	}
	for _, depositID := range depositIDs {
		s.deposits[depositID].SpendingTransactionID = id
	}
	s.spentDeposits[id] = spentDepositDetails{
		id:          id,
		depositsSum: depositsSum,
		fee:         fee,
	}
	return nil
}

// IsUnconfirmed reports whether the given transaction hash is in the
// unconfirmed pool.
func (s *Store) IsUnconfirmed(hash *chainhash.Hash) bool {
	_, ok := s.unconfirmed[*hash]
	return ok
}

// IsOutputInFlight reports whether the given output key is consumed by an
// unconfirmed local transaction and must not be selected again.
func (s *Store) IsOutputInFlight(key cncrypto.PublicKey) bool {
	for _, details := range s.unconfirmed {
		for _, spent := range details.spentOutputs {
			if spent == key {
				return true
			}
		}
	}
	return false
}

// UnconfirmedOutsAmount returns the total value of outputs consumed by
// unconfirmed local transactions.
func (s *Store) UnconfirmedOutsAmount() uint64 {
	var sum uint64
	for _, details := range s.unconfirmed {
		sum += details.outsAmount
	}
	return sum
}

// UnconfirmedTransactionsAmount returns the total value leaving the wallet
// through unconfirmed local transactions, fees included.
func (s *Store) UnconfirmedTransactionsAmount() uint64 {
	var sum uint64
	for _, details := range s.unconfirmed {
		sum += details.amount
	}
	return sum
}

// UnconfirmedCreatedDepositsSum returns the total value of deposits being
// created by unconfirmed local transactions.
func (s *Store) UnconfirmedCreatedDepositsSum() uint64 {
	var sum uint64
	for _, v := range s.createdDeposits {
		sum += v
	}
	return sum
}

// UnconfirmedSpentDepositsSum returns the total value of deposits being
// consumed by unconfirmed withdrawals.
func (s *Store) UnconfirmedSpentDepositsSum() uint64 {
	var sum uint64
	for _, details := range s.spentDeposits {
		sum += details.depositsSum
	}
	return sum
}

// UnconfirmedSpentDepositsProfit returns the value unconfirmed withdrawals
// return to the spendable balance, that is the consumed deposit value less
// the withdrawal fees.
func (s *Store) UnconfirmedSpentDepositsProfit() uint64 {
	var sum uint64
	for _, details := range s.spentDeposits {
		sum += details.depositsSum - details.fee
	}
	return sum
}

// DeleteOutdatedTransactions drops every unconfirmed pool entry whose
// transaction was sent longer ago than the currency's mempool keepalive
// window, marks the transactions deleted and releases their held outputs
// and deposits.  The handles of the deleted transactions are returned.
func (s *Store) DeleteOutdatedTransactions(now time.Time) []TransactionID {
	keepalive := s.params.MempoolTxKeepalive()

	var deleted []TransactionID
	for hash, details := range s.unconfirmed {
		if now.Sub(details.sentTime) < keepalive {
			continue
		}

		id := details.id
		s.transactions[id].State = TxDeleted
		delete(s.unconfirmed, hash)
		delete(s.createdDeposits, id)
		delete(s.spentDeposits, id)
		s.releaseSpentDeposits(id)
		deleted = append(deleted, id)
	}

	if len(deleted) > 0 {
		log.Infof("Deleted %d outdated unconfirmed transaction(s)",
			len(deleted))
	}
	return deleted
}
