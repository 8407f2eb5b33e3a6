// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/cnutil"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wire"
	"github.com/cnsuite/cnwallet/wtxmgr"
)

// Destination is one recipient of a send.
type Destination struct {
	Address string
	Amount  uint64
}

// SendRequest describes an ordinary transfer.  A nonzero TTL makes the
// transaction fee-free with an absolute expiry; TTL and fee are mutually
// exclusive.
type SendRequest struct {
	Destinations []Destination
	Fee          uint64

	// Mixin is the number of decoys per input.  Zero requests an
	// unmixed transaction.
	Mixin uint64

	UnlockTime uint64
	PaymentID  *chainhash.Hash
	Messages   []string
	TTL        time.Duration
}

// placeholderTxHash returns the provisional hash a local transaction is
// registered under until assembly fixes the real one.  Derived from the
// handle so concurrent sends never collide.
func placeholderTxHash(id wtxmgr.TransactionID) chainhash.Hash {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(id))
	return cncrypto.FastHash(buf[:])
}

// SendTransaction validates the request, reserves the inputs and returns
// the new transaction's handle.  Decoy fetching, signing and relay run in
// the background; the outcome arrives through SendTransactionCompleted.
func (w *Wallet) SendTransaction(req SendRequest) (wtxmgr.TransactionID, error) {
	w.mu.Lock()
	if err := w.checkInitializedLocked(); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if w.account.isTracking() {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrTrackingWallet,
			"tracking wallet cannot spend", nil)
	}

	specs, total, err := parseDestinations(w.params, req.Destinations)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	var ttlDeadline uint64
	if req.TTL != 0 {
		ttlDeadline = uint64(time.Now().Add(req.TTL).Unix())
	}
	if err := validateMixin(w.params, req.Mixin); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if err := validateFee(w.params, req.Fee, ttlDeadline); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	needed := total + req.Fee
	if needed < total {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrSumOverflow,
			"destination total plus fee overflows", nil)
	}

	selected, found, err := w.selectTransfersLocked(needed)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if change := found - needed; change > 0 {
		specs = append(specs, outputSpec{
			addr:   w.account.address(w.params),
			amount: change,
		})
	}
	outputs := splitOutputs(specs, w.params.DefaultDustThreshold)

	txPub, txSec, err := w.suite.GenerateKeys()
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"transaction key generation failed", err)
	}
	extra := buildExtra(txPub, req.PaymentID, req.Messages, ttlDeadline)

	inputs, err := prepareInputs(w.suite, &w.account.Keys, selected)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}

	placeholder := placeholderTxHash(wtxmgr.TransactionID(
		w.store.TransactionCount()))
	id := w.store.AddTransaction(&placeholder, -int64(needed), req.Fee,
		registerDestinations(req.Destinations),
		req.UnlockTime, extra, req.Messages, &txSec, time.Now())
	if err := w.store.AddUnconfirmedTransaction(id, needed, found,
		spentOutputKeys(selected)); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"unconfirmed registration failed", err)
	}
	events := w.balanceEventsLocked()
	executor := w.executor
	w.mu.Unlock()

	w.observers.dispatch(events)

	err = executor.run(func() {
		w.finishSend(id, inputs, outputs, txSec, req.UnlockTime, extra,
			req.Mixin)
	})
	if err != nil {
		w.abortSend(id)
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"send task rejected", err)
	}
	return id, nil
}

// CreateDeposit locks amount for term blocks.  The deposit output carries
// the full principal; interest is determined by the currency parameters at
// the moment the deposit confirms.
func (w *Wallet) CreateDeposit(term uint32, amount, fee, mixin uint64) (wtxmgr.TransactionID, error) {
	w.mu.Lock()
	if err := w.checkInitializedLocked(); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if w.account.isTracking() {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrTrackingWallet,
			"tracking wallet cannot spend", nil)
	}
	if !w.params.ValidDepositTerm(term) {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrDepositTermWrong,
			fmt.Sprintf("deposit term %d outside [%d, %d]", term,
				w.params.DepositMinTerm, w.params.DepositMaxTerm), nil)
	}
	if amount < w.params.DepositMinAmount {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID,
			walletError(ErrDepositAmountTooSmall,
				fmt.Sprintf("deposit of %d below minimum %d", amount,
					w.params.DepositMinAmount), nil)
	}
	if err := validateMixin(w.params, mixin); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if err := validateFee(w.params, fee, 0); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	needed := amount + fee
	if needed < amount {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrSumOverflow,
			"deposit amount plus fee overflows", nil)
	}

	selected, found, err := w.selectTransfersLocked(needed)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	self := w.account.address(w.params)
	specs := []outputSpec{{addr: self, amount: amount, term: term}}
	if change := found - needed; change > 0 {
		specs = append(specs, outputSpec{addr: self, amount: change})
	}
	outputs := splitOutputs(specs, w.params.DefaultDustThreshold)

	txPub, txSec, err := w.suite.GenerateKeys()
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"transaction key generation failed", err)
	}
	extra := buildExtra(txPub, nil, nil, 0)

	inputs, err := prepareInputs(w.suite, &w.account.Keys, selected)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}

	interest, err := w.params.CalculateInterest(amount, term)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"interest computation failed", err)
	}

	placeholder := placeholderTxHash(wtxmgr.TransactionID(
		w.store.TransactionCount()))
	id := w.store.AddTransaction(&placeholder, -int64(needed), fee, nil,
		0, extra, nil, &txSec, time.Now())
	if err := w.store.AddUnconfirmedTransaction(id, needed, found,
		spentOutputKeys(selected)); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"unconfirmed registration failed", err)
	}
	w.store.AddCreatedDeposits(id, amount+interest)
	events := w.balanceEventsLocked()
	executor := w.executor
	w.mu.Unlock()

	w.observers.dispatch(events)

	err = executor.run(func() {
		w.finishSend(id, inputs, outputs, txSec, 0, extra, mixin)
	})
	if err != nil {
		w.abortSend(id)
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"send task rejected", err)
	}
	return id, nil
}

// WithdrawDeposits spends the given matured deposits back into the
// spendable balance, paying fee out of the withdrawn total.
func (w *Wallet) WithdrawDeposits(depositIDs []wtxmgr.DepositID, fee uint64) (wtxmgr.TransactionID, error) {
	w.mu.Lock()
	if err := w.checkInitializedLocked(); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if w.account.isTracking() {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrTrackingWallet,
			"tracking wallet cannot spend", nil)
	}
	if len(depositIDs) == 0 {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrZeroDestination,
			"withdrawal names no deposits", nil)
	}
	if err := validateFee(w.params, fee, 0); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}

	depositOuts, total, err := w.collectDepositOutputsLocked(depositIDs)
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, err
	}
	if fee >= total {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrWrongAmount,
			fmt.Sprintf("fee %d consumes the whole withdrawal %d",
				fee, total), nil)
	}

	txPub, txSec, err := w.suite.GenerateKeys()
	if err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"transaction key generation failed", err)
	}
	extra := buildExtra(txPub, nil, nil, 0)
	self := w.account.address(w.params)

	placeholder := placeholderTxHash(wtxmgr.TransactionID(
		w.store.TransactionCount()))
	id := w.store.AddTransaction(&placeholder, int64(total-fee), fee, nil,
		0, extra, nil, &txSec, time.Now())
	if err := w.store.AddUnconfirmedTransaction(id, 0, 0, nil); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"unconfirmed registration failed", err)
	}
	if err := w.store.AddDepositSpendingTransaction(id, depositIDs, total,
		fee); err != nil {
		w.mu.Unlock()
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"deposit spend registration failed", err)
	}
	events := w.balanceEventsLocked()
	account := w.account
	executor := w.executor
	w.mu.Unlock()

	w.observers.dispatch(events)

	err = executor.run(func() {
		w.finishWithdraw(id, account, depositOuts, self, total-fee,
			txSec, extra)
	})
	if err != nil {
		w.abortSend(id)
		return wtxmgr.InvalidTransactionID, walletError(ErrInternal,
			"send task rejected", err)
	}
	return id, nil
}

// collectDepositOutputsLocked resolves deposit handles to their container
// outputs and totals principal plus interest.  Every deposit must be
// unlocked and unspent.
func (w *Wallet) collectDepositOutputsLocked(depositIDs []wtxmgr.DepositID) ([]transfers.OutputInfo, uint64, error) {
	outs := make([]transfers.OutputInfo, 0, len(depositIDs))
	var total uint64
	for _, depositID := range depositIDs {
		deposit, err := w.store.Deposit(depositID)
		if err != nil {
			return nil, 0, walletError(ErrInternal,
				"unknown deposit", err)
		}
		if deposit.SpendingTransactionID != wtxmgr.InvalidTransactionID {
			return nil, 0, walletError(ErrDepositAlreadySpent,
				fmt.Sprintf("deposit %d is already spent", depositID),
				nil)
		}
		if deposit.Locked {
			return nil, 0, walletError(ErrDepositLocked,
				fmt.Sprintf("deposit %d has not matured", depositID),
				nil)
		}

		tx, err := w.store.Transaction(deposit.CreatingTransactionID)
		if err != nil {
			return nil, 0, walletError(ErrInternal,
				"deposit references unknown transaction", err)
		}
		var out *transfers.OutputInfo
		for _, candidate := range w.container.TransactionOutputs(tx.Hash,
			transfers.IncludeTypeDeposit|transfers.IncludeStateUnlocked) {
			if candidate.OutputInTransaction == deposit.OutputInTransaction {
				out = &candidate
				break
			}
		}
		if out == nil {
			return nil, 0, walletError(ErrDepositLocked,
				fmt.Sprintf("deposit %d output is not spendable",
					depositID), nil)
		}
		outs = append(outs, *out)
		total += deposit.Amount + deposit.Interest
	}
	return outs, total, nil
}

// finishSend is the background half of SendTransaction and CreateDeposit:
// fetch decoys, assemble, sign and relay, then settle the ledger entry.
func (w *Wallet) finishSend(id wtxmgr.TransactionID, inputs []inputSpec,
	outputs []outputSpec, txSec cncrypto.SecretKey, unlockTime uint64,
	extra []byte, mixin uint64) {

	if mixin > 0 {
		amounts := make([]uint64, len(inputs))
		for i := range inputs {
			amounts[i] = inputs[i].output.Amount
		}
		// Ask for one extra candidate per denomination since the
		// reply may contain the wallet's own output.
		randomOuts, err := w.node.RandomOutputsForAmounts(
			context.Background(), amounts, mixin+1)
		if err != nil {
			w.settleSend(id, walletError(ErrNotEnoughMixins,
				"decoy fetch failed", err))
			return
		}
		if err := mixRings(inputs, randomOuts, mixin); err != nil {
			w.settleSend(id, err)
			return
		}
	}

	tx, err := constructTransaction(w.suite, inputs, outputs, txSec,
		unlockTime, extra)
	if err != nil {
		w.settleSend(id, err)
		return
	}
	w.relay(id, tx)
}

// finishWithdraw is the background half of WithdrawDeposits.
func (w *Wallet) finishWithdraw(id wtxmgr.TransactionID, account *Account,
	depositOuts []transfers.OutputInfo, self cnutil.Address,
	amount uint64, txSec cncrypto.SecretKey, extra []byte) {

	tx, err := constructWithdrawTransaction(w.suite, &account.Keys,
		depositOuts, self, amount, txSec, extra)
	if err != nil {
		w.settleSend(id, err)
		return
	}
	w.relay(id, tx)
}

// relay fixes the transaction's final hash, submits it to the node and
// commits or rolls back the ledger entry.
func (w *Wallet) relay(id wtxmgr.TransactionID, tx *wire.Transaction) {
	raw := tx.Serialize()
	if uint64(len(raw)) > w.params.MaxTransactionSize {
		w.settleSend(id, walletError(ErrTxTooLarge,
			fmt.Sprintf("transaction of %d bytes exceeds limit %d",
				len(raw), w.params.MaxTransactionSize), nil))
		return
	}
	hash := tx.TxHash()

	w.mu.Lock()
	if err := w.store.SetTransactionHash(id, &hash); err != nil {
		w.mu.Unlock()
		w.settleSend(id, walletError(ErrInternal,
			"hash rebinding failed", err))
		return
	}
	w.mu.Unlock()

	err := w.node.RelayTransaction(context.Background(), raw)
	if err != nil {
		w.settleSend(id, walletError(ErrRelayFailed,
			"node rejected transaction", err))
		return
	}

	log.Infof("Relayed transaction %v", hash)
	w.settleSend(id, nil)
}

// settleSend records the final outcome of a send and notifies observers.
func (w *Wallet) settleSend(id wtxmgr.TransactionID, sendErr error) {
	w.mu.Lock()
	var err error
	if sendErr == nil {
		err = w.store.CommitTransaction(id)
	} else {
		err = w.store.RollbackTransaction(id, false)
	}
	if err != nil {
		log.Errorf("Unable to settle transaction %d: %v", id, err)
	}
	events := []walletEvent{func(o Observer) {
		o.TransactionUpdated(id)
	}}
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
	w.observers.notify(func(o Observer) {
		o.SendTransactionCompleted(id, sendErr)
	})
}

// abortSend rolls an entry back after its background task could not be
// scheduled.
func (w *Wallet) abortSend(id wtxmgr.TransactionID) {
	w.mu.Lock()
	if err := w.store.RollbackTransaction(id, true); err != nil {
		log.Errorf("Unable to roll back transaction %d: %v", id, err)
	}
	events := w.balanceEventsLocked()
	w.mu.Unlock()

	w.observers.dispatch(events)
}
