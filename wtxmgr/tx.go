// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wtxmgr provides the wallet's authoritative in-memory ledger of
// transactions, transfers and deposits together with the pool of
// unconfirmed self-originated transactions.
//
// The store is not safe for concurrent access.  The wallet serializes all
// calls under its own mutex, which also guarantees that the event slices
// returned by the mutating operations are dispatched in generation order.
package wtxmgr

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wire"
)

// TransactionID is a stable handle of a transaction inside a Store.  Handles
// are assigned in insertion order and never reused, so a handle held by a
// caller stays valid for the lifetime of the store even after the referenced
// transaction is marked deleted.
type TransactionID uint64

// TransferID is a stable handle of a single destination row.
type TransferID uint64

// DepositID is a stable handle of a deposit row.
type DepositID uint64

// Sentinels returned when a lookup fails or a field is not applicable.
const (
	InvalidTransactionID = TransactionID(^uint64(0))
	InvalidTransferID    = TransferID(^uint64(0))
	InvalidDepositID     = DepositID(^uint64(0))
)

// TxState describes the lifecycle state of a stored transaction.
type TxState uint8

// Transaction lifecycle states.  A transaction starts as TxCreated and moves
// to exactly one of the other states; the terminal states are never left.
const (
	// TxCreated is a locally constructed transaction that has not been
	// relayed yet.
	TxCreated TxState = iota

	// TxSucceeded is a transaction that was accepted by the node or seen
	// on chain.
	TxSucceeded

	// TxCancelled is a local transaction whose relay was aborted before
	// the node accepted it.
	TxCancelled

	// TxFailed is a local transaction the node rejected.
	TxFailed

	// TxDeleted is a transaction that aged out of the pool or was
	// invalidated by a reorganization.  The record itself is kept so that
	// handles stay valid.
	TxDeleted
)

var txStateStrings = map[TxState]string{
	TxCreated:   "created",
	TxSucceeded: "succeeded",
	TxCancelled: "cancelled",
	TxFailed:    "failed",
	TxDeleted:   "deleted",
}

// String returns the state as a human-readable name.
func (s TxState) String() string {
	if str, ok := txStateStrings[s]; ok {
		return str
	}
	return "unknown"
}

// TxRecord is one logical wallet transaction, incoming or outgoing.
type TxRecord struct {
	Hash chainhash.Hash

	// SecretKey is only set for self-originated transactions and is what
	// backs transaction proofs.
	SecretKey *cncrypto.SecretKey

	// TotalAmount is the net value moved from the wallet's point of view:
	// positive for received funds, negative for sent funds including the
	// fee.
	TotalAmount int64
	Fee         uint64

	// Height is chaincfg.UnconfirmedTransactionHeight until the
	// transaction is seen in a block.
	Height    uint32
	Timestamp uint64

	// SentTime is the local creation time of a self-originated
	// transaction, used to age it out of the unconfirmed pool.  It is the
	// zero time for external transactions.
	SentTime time.Time

	// FirstTransfer and TransferCount delimit this transaction's
	// destination rows.  FirstDeposit and DepositCount delimit the
	// deposits it created.
	FirstTransfer TransferID
	TransferCount int
	FirstDeposit  DepositID
	DepositCount  int

	UnlockTime uint64
	Extra      []byte
	Messages   []string
	State      TxState
}

// Transfer is one destination of a transaction.  The amount is negative for
// rows describing funds leaving the wallet on externally observed
// transactions.
type Transfer struct {
	Address string
	Amount  int64
}

// Deposit is a term deposit tracked by the wallet.  Interest is fixed at
// creation time from the currency's interest schedule.
type Deposit struct {
	CreatingTransactionID TransactionID

	// SpendingTransactionID is InvalidTransactionID until a withdrawal
	// consumes the deposit.
	SpendingTransactionID TransactionID

	Term     uint32
	Amount   uint64
	Interest uint64

	// Locked reports whether the deposit's term has not yet matured at
	// the currently observed chain height.
	Locked bool

	// OutputInTransaction is the deposit output's index inside its
	// creating transaction, which together with the creating transaction
	// hash identifies the on-chain output.
	OutputInTransaction uint32
}

// EventType discriminates the events produced by mutating store operations.
type EventType uint8

// Store event types.
const (
	// EventTransactionCreated reports a transaction first observed on the
	// chain rather than originated locally.
	EventTransactionCreated EventType = iota

	// EventTransactionUpdated reports a state, height or timestamp change
	// of an already known transaction.
	EventTransactionUpdated

	// EventDepositsUpdated reports deposits created, spent, locked or
	// unlocked.
	EventDepositsUpdated
)

// Event describes one observable consequence of a store mutation.  Events
// are returned to the caller rather than dispatched directly so the wallet
// can deliver them after releasing its lock.
type Event struct {
	Type          EventType
	TransactionID TransactionID
	DepositIDs    []DepositID
}

type depositOutputKey struct {
	hash  chainhash.Hash
	index uint32
}

// Store is the append-only transaction ledger.
type Store struct {
	params *chaincfg.Params

	transactions []TxRecord
	transfers    []Transfer
	deposits     []Deposit

	byHash          map[chainhash.Hash]TransactionID
	payments        map[chainhash.Hash][]TransactionID
	outputToDeposit map[depositOutputKey]DepositID

	unconfirmed     map[chainhash.Hash]*unconfirmedDetails
	createdDeposits map[TransactionID]uint64
	spentDeposits   map[TransactionID]spentDepositDetails
}

// New returns an empty store using the passed currency parameters for its
// pruning and interest schedule.
func New(params *chaincfg.Params) *Store {
	s := &Store{params: params}
	s.Reset()
	return s
}

// Reset drops all ledger and pool state, returning the store to its freshly
// constructed form.
func (s *Store) Reset() {
	s.transactions = nil
	s.transfers = nil
	s.deposits = nil
	s.byHash = make(map[chainhash.Hash]TransactionID)
	s.payments = make(map[chainhash.Hash][]TransactionID)
	s.outputToDeposit = make(map[depositOutputKey]DepositID)
	s.unconfirmed = make(map[chainhash.Hash]*unconfirmedDetails)
	s.createdDeposits = make(map[TransactionID]uint64)
	s.spentDeposits = make(map[TransactionID]spentDepositDetails)
}

// TransactionCount returns the number of stored transactions, including
// deleted ones.
func (s *Store) TransactionCount() int { return len(s.transactions) }

// TransferCount returns the number of stored destination rows.
func (s *Store) TransferCount() int { return len(s.transfers) }

// DepositCount returns the number of stored deposits.
func (s *Store) DepositCount() int { return len(s.deposits) }

// Transaction returns a copy of the transaction with the given handle.
func (s *Store) Transaction(id TransactionID) (TxRecord, error) {
	if uint64(id) >= uint64(len(s.transactions)) {
		return TxRecord{}, storeError(ErrTransactionNotFound,
			"transaction id out of range", nil)
	}
	return s.transactions[id], nil
}

// Transfer returns a copy of the destination row with the given handle.
func (s *Store) Transfer(id TransferID) (Transfer, error) {
	if uint64(id) >= uint64(len(s.transfers)) {
		return Transfer{}, storeError(ErrTransferNotFound,
			"transfer id out of range", nil)
	}
	return s.transfers[id], nil
}

// Deposit returns a copy of the deposit with the given handle.
func (s *Store) Deposit(id DepositID) (Deposit, error) {
	if uint64(id) >= uint64(len(s.deposits)) {
		return Deposit{}, storeError(ErrDepositNotFound,
			"deposit id out of range", nil)
	}
	return s.deposits[id], nil
}

// TransactionByHash returns the handle of the transaction with the given
// hash, or InvalidTransactionID if the hash is unknown.
func (s *Store) TransactionByHash(hash *chainhash.Hash) TransactionID {
	if id, ok := s.byHash[*hash]; ok {
		return id
	}
	return InvalidTransactionID
}

// FindTransactionByTransferID returns the handle of the transaction owning
// the given destination row.
func (s *Store) FindTransactionByTransferID(id TransferID) TransactionID {
	for txID := range s.transactions {
		tx := &s.transactions[txID]
		if tx.TransferCount == 0 {
			continue
		}
		if id >= tx.FirstTransfer &&
			id < tx.FirstTransfer+TransferID(tx.TransferCount) {
			return TransactionID(txID)
		}
	}
	return InvalidTransactionID
}

// TransactionsByPaymentID returns the handles of all transactions carrying
// the given payment id, in insertion order.
func (s *Store) TransactionsByPaymentID(paymentID *chainhash.Hash) []TransactionID {
	ids := s.payments[*paymentID]
	out := make([]TransactionID, len(ids))
	copy(out, ids)
	return out
}

// AddTransaction appends a locally originated transaction in the TxCreated
// state together with its destination rows and returns its handle.  The
// total amount must already be negative and include the fee.
func (s *Store) AddTransaction(hash *chainhash.Hash, totalAmount int64,
	fee uint64, destinations []Transfer, unlockTime uint64, extra []byte,
	messages []string, secretKey *cncrypto.SecretKey,
	sentTime time.Time) TransactionID {

	id := TransactionID(len(s.transactions))

	firstTransfer := InvalidTransferID
	if len(destinations) > 0 {
		firstTransfer = TransferID(len(s.transfers))
		s.transfers = append(s.transfers, destinations...)
	}

	s.transactions = append(s.transactions, TxRecord{
		Hash:          *hash,
		SecretKey:     secretKey,
		TotalAmount:   totalAmount,
		Fee:           fee,
		Height:        chaincfg.UnconfirmedTransactionHeight,
		SentTime:      sentTime,
		FirstTransfer: firstTransfer,
		TransferCount: len(destinations),
		FirstDeposit:  InvalidDepositID,
		UnlockTime:    unlockTime,
		Extra:         extra,
		Messages:      messages,
		State:         TxCreated,
	})
	s.byHash[*hash] = id
	s.indexPaymentID(id, extra)

	return id
}

// SetTransactionHash rebinds a local transaction to its final hash.  A
// locally originated transaction is registered before its decoys are
// fetched, so its hash is only known once assembly finishes.
func (s *Store) SetTransactionHash(id TransactionID, hash *chainhash.Hash) error {
	if uint64(id) >= uint64(len(s.transactions)) {
		return storeError(ErrTransactionNotFound,
			"transaction id out of range", nil)
	}
	tx := &s.transactions[id]
	delete(s.byHash, tx.Hash)
	if details, ok := s.unconfirmed[tx.Hash]; ok {
		delete(s.unconfirmed, tx.Hash)
		s.unconfirmed[*hash] = details
	}
	tx.Hash = *hash
	s.byHash[*hash] = id
	return nil
}

// SetTransactionSecretKey records the transaction secret key backing later
// transaction proofs.
func (s *Store) SetTransactionSecretKey(id TransactionID, key *cncrypto.SecretKey) error {
	if uint64(id) >= uint64(len(s.transactions)) {
		return storeError(ErrTransactionNotFound,
			"transaction id out of range", nil)
	}
	s.transactions[id].SecretKey = key
	return nil
}

// CommitTransaction marks a local transaction as accepted by the node.  The
// transaction stays in the unconfirmed pool until chain synchronization
// reports it in a block.
func (s *Store) CommitTransaction(id TransactionID) error {
	if uint64(id) >= uint64(len(s.transactions)) {
		return storeError(ErrTransactionNotFound,
			"transaction id out of range", nil)
	}
	s.transactions[id].State = TxSucceeded
	return nil
}

// RollbackTransaction marks a local transaction as cancelled or failed,
// drops its unconfirmed pool entries and releases any deposits it was
// spending.  The selected outputs become selectable again.
func (s *Store) RollbackTransaction(id TransactionID, cancelled bool) error {
	if uint64(id) >= uint64(len(s.transactions)) {
		return storeError(ErrTransactionNotFound,
			"transaction id out of range", nil)
	}

	tx := &s.transactions[id]
	if cancelled {
		tx.State = TxCancelled
	} else {
		tx.State = TxFailed
	}

	delete(s.unconfirmed, tx.Hash)
	delete(s.createdDeposits, id)
	delete(s.spentDeposits, id)
	s.releaseSpentDeposits(id)

	return nil
}

// OnTransactionUpdated applies a chain synchronization report for the given
// transaction.  A transaction with an unknown hash is appended as an
// externally created one; a known hash is updated in place so that transfer
// and deposit rows are never duplicated by reconfirmation.  The fee is only
// recorded for outgoing transactions.
func (s *Store) OnTransactionUpdated(info *transfers.TransactionInfo,
	balanceDelta int64, fee uint64, newDepositOuts []transfers.OutputInfo,
	spentDepositInputs []transfers.OutputInfo) []Event {

	var events []Event

	id, known := s.byHash[info.Hash]
	if !known {
		if balanceDelta >= 0 {
			fee = 0
		}
		id = TransactionID(len(s.transactions))
		s.transactions = append(s.transactions, TxRecord{
			Hash:          info.Hash,
			TotalAmount:   balanceDelta,
			Fee:           fee,
			Height:        info.BlockHeight,
			Timestamp:     info.Timestamp,
			FirstTransfer: InvalidTransferID,
			FirstDeposit:  InvalidDepositID,
			UnlockTime:    info.UnlockTime,
			Extra:         info.Extra,
			Messages:      info.Messages,
			State:         TxSucceeded,
		})
		s.byHash[info.Hash] = id
		if info.PaymentID != (chainhash.Hash{}) {
			s.payments[info.PaymentID] = append(
				s.payments[info.PaymentID], id)
		}

		log.Debugf("New external transaction %v (id %d, height %d)",
			info.Hash, id, info.BlockHeight)
		events = append(events, Event{
			Type:          EventTransactionCreated,
			TransactionID: id,
		})
	} else {
		tx := &s.transactions[id]
		tx.Height = info.BlockHeight
		tx.Timestamp = info.Timestamp
		tx.State = TxSucceeded

		if info.BlockHeight != chaincfg.UnconfirmedTransactionHeight {
			delete(s.unconfirmed, tx.Hash)
			delete(s.createdDeposits, id)
			delete(s.spentDeposits, id)
		}

		events = append(events, Event{
			Type:          EventTransactionUpdated,
			TransactionID: id,
		})
	}

	var depositIDs []DepositID
	confirmed := info.BlockHeight != chaincfg.UnconfirmedTransactionHeight
	if confirmed && s.transactions[id].FirstDeposit == InvalidDepositID &&
		len(newDepositOuts) > 0 {
		depositIDs = append(depositIDs, s.createDeposits(id, newDepositOuts)...)
	}
	if len(spentDepositInputs) > 0 {
		depositIDs = append(depositIDs, s.spendDeposits(id, spentDepositInputs)...)
	}
	if len(depositIDs) > 0 {
		events = append(events, Event{
			Type:          EventDepositsUpdated,
			TransactionID: id,
			DepositIDs:    depositIDs,
		})
	}

	return events
}

// OnTransactionDeleted reacts to the synchronizer dropping a transaction
// from its view, marking the stored record deleted and releasing all pool
// state held for it.
func (s *Store) OnTransactionDeleted(hash *chainhash.Hash) []Event {
	id, ok := s.byHash[*hash]
	if !ok {
		return nil
	}

	s.transactions[id].State = TxDeleted
	delete(s.unconfirmed, *hash)
	delete(s.createdDeposits, id)
	delete(s.spentDeposits, id)
	released := s.releaseSpentDeposits(id)

	log.Debugf("Transaction %v (id %d) deleted by synchronizer", hash, id)

	events := []Event{{
		Type:          EventTransactionUpdated,
		TransactionID: id,
	}}
	if len(released) > 0 {
		events = append(events, Event{
			Type:          EventDepositsUpdated,
			TransactionID: id,
			DepositIDs:    released,
		})
	}
	return events
}

// UnlockDeposits clears the locked flag of the deposits backing the passed
// container outputs and returns the handles of the deposits whose flag
// actually changed.
func (s *Store) UnlockDeposits(outs []transfers.OutputInfo) []DepositID {
	return s.setDepositsLocked(outs, false)
}

// LockDeposits sets the locked flag of the deposits backing the passed
// container outputs.  This is the reorganization path: a previously
// matured deposit can fall back below its maturity height.
func (s *Store) LockDeposits(outs []transfers.OutputInfo) []DepositID {
	return s.setDepositsLocked(outs, true)
}

func (s *Store) setDepositsLocked(outs []transfers.OutputInfo, locked bool) []DepositID {
	var changed []DepositID
	for i := range outs {
		key := depositOutputKey{
			hash:  outs[i].TransactionHash,
			index: outs[i].OutputInTransaction,
		}
		id, ok := s.outputToDeposit[key]
		if !ok {
			continue
		}
		if s.deposits[id].Locked != locked {
			s.deposits[id].Locked = locked
			changed = append(changed, id)
		}
	}
	return changed
}

// createDeposits appends deposit rows for the deposit outputs of a freshly
// confirmed transaction and links them to the transaction as a contiguous
// handle range.
func (s *Store) createDeposits(id TransactionID, outs []transfers.OutputInfo) []DepositID {
	tx := &s.transactions[id]
	tx.FirstDeposit = DepositID(len(s.deposits))

	ids := make([]DepositID, 0, len(outs))
	for i := range outs {
		out := &outs[i]
		if out.Type != transfers.OutputDeposit {
			continue
		}

		interest, err := s.params.CalculateInterest(out.Amount, out.Term)
		if err != nil {
			// A deposit output with an out-of-schedule term can
			// only be produced by a misbehaving node.  Record it
			// without interest rather than dropping it.
			log.Warnf("Deposit output %v:%d has invalid term %d: %v",
				out.TransactionHash, out.OutputInTransaction,
				out.Term, err)
			interest = 0
		}

		depositID := DepositID(len(s.deposits))
		s.deposits = append(s.deposits, Deposit{
			CreatingTransactionID: id,
			SpendingTransactionID: InvalidTransactionID,
			Term:                  out.Term,
			Amount:                out.Amount,
			Interest:              interest,
			Locked:                true,
			OutputInTransaction:   out.OutputInTransaction,
		})
		s.outputToDeposit[depositOutputKey{
			hash:  out.TransactionHash,
			index: out.OutputInTransaction,
		}] = depositID
		ids = append(ids, depositID)
	}

	tx.DepositCount = len(ids)
	if len(ids) == 0 {
		tx.FirstDeposit = InvalidDepositID
	}
	return ids
}

// spendDeposits links the deposits consumed by a withdrawal transaction to
// that transaction.
func (s *Store) spendDeposits(id TransactionID, ins []transfers.OutputInfo) []DepositID {
	var ids []DepositID
	for i := range ins {
		key := depositOutputKey{
			hash:  ins[i].TransactionHash,
			index: ins[i].OutputInTransaction,
		}
		depositID, ok := s.outputToDeposit[key]
		if !ok {
			continue
		}
		if s.deposits[depositID].SpendingTransactionID != id {
			s.deposits[depositID].SpendingTransactionID = id
			ids = append(ids, depositID)
		}
	}
	return ids
}

// releaseSpentDeposits clears the spending link of every deposit the given
// transaction was consuming and returns the affected handles.
func (s *Store) releaseSpentDeposits(id TransactionID) []DepositID {
	var released []DepositID
	for depositID := range s.deposits {
		if s.deposits[depositID].SpendingTransactionID == id {
			s.deposits[depositID].SpendingTransactionID =
				InvalidTransactionID
			released = append(released, DepositID(depositID))
		}
	}
	return released
}

// indexPaymentID registers a local transaction under the payment id carried
// in its extra bytes, if any.
func (s *Store) indexPaymentID(id TransactionID, extra []byte) {
	paymentID, err := wire.PaymentIDFromExtra(extra)
	if err != nil || paymentID == (chainhash.Hash{}) {
		return
	}
	s.payments[paymentID] = append(s.payments[paymentID], id)
}
