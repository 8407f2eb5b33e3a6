// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"github.com/cnsuite/cnwallet/transfers"
)

// ActualBalance returns the spendable balance: mature key outputs minus the
// inputs selected by in-flight transactions.
func (w *Wallet) ActualBalance() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.actualBalanceLocked(), nil
}

// PendingBalance returns the balance in flight: immature key outputs plus
// expected change from unconfirmed sends plus profit from unconfirmed
// deposit withdrawals.
func (w *Wallet) PendingBalance() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.pendingBalanceLocked(), nil
}

// ActualDepositBalance returns the withdrawable deposit balance, principal
// plus interest of unlocked deposits not committed to an in-flight
// withdrawal.
func (w *Wallet) ActualDepositBalance() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.actualDepositBalanceLocked(), nil
}

// PendingDepositBalance returns the deposit balance still maturing,
// including deposits created by unconfirmed transactions.
func (w *Wallet) PendingDepositBalance() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.pendingDepositBalanceLocked(), nil
}

func (w *Wallet) actualBalanceLocked() uint64 {
	return w.container.Balance(transfers.IncludeKeyUnlocked) -
		w.store.UnconfirmedOutsAmount()
}

func (w *Wallet) pendingBalanceLocked() uint64 {
	change := w.store.UnconfirmedOutsAmount() -
		w.store.UnconfirmedTransactionsAmount()
	return w.container.Balance(transfers.IncludeKeyNotUnlocked) + change +
		w.store.UnconfirmedSpentDepositsProfit()
}

func (w *Wallet) actualDepositBalanceLocked() uint64 {
	unlocked := w.container.Outputs(
		transfers.IncludeTypeDeposit | transfers.IncludeStateUnlocked)
	return w.depositsAmountLocked(unlocked) -
		w.store.UnconfirmedSpentDepositsSum()
}

func (w *Wallet) pendingDepositBalanceLocked() uint64 {
	locked := w.container.Outputs(transfers.IncludeTypeDeposit |
		transfers.IncludeStateLocked | transfers.IncludeStateSoftLocked)
	return w.depositsAmountLocked(locked) +
		w.store.UnconfirmedCreatedDepositsSum()
}

// depositsAmountLocked sums principal plus accrued interest over deposit
// outputs.
func (w *Wallet) depositsAmountLocked(outs []transfers.OutputInfo) uint64 {
	var sum uint64
	for i := range outs {
		interest, err := w.params.CalculateInterest(outs[i].Amount,
			outs[i].Term)
		if err != nil {
			log.Warnf("Deposit output %v:%d has invalid term %d",
				outs[i].TransactionHash, outs[i].OutputInTransaction,
				outs[i].Term)
			interest = 0
		}
		sum += outs[i].Amount + interest
	}
	return sum
}

// balanceEventsLocked recomputes the four balances and queues a
// notification for each one that moved since it was last reported.
func (w *Wallet) balanceEventsLocked() []walletEvent {
	var events []walletEvent

	if actual := w.actualBalanceLocked(); actual != w.lastActual {
		w.lastActual = actual
		events = append(events, func(o Observer) {
			o.ActualBalanceUpdated(actual)
		})
	}
	if pending := w.pendingBalanceLocked(); pending != w.lastPending {
		w.lastPending = pending
		events = append(events, func(o Observer) {
			o.PendingBalanceUpdated(pending)
		})
	}
	if actual := w.actualDepositBalanceLocked(); actual != w.lastActualDeposit {
		w.lastActualDeposit = actual
		events = append(events, func(o Observer) {
			o.ActualDepositBalanceUpdated(actual)
		})
	}
	if pending := w.pendingDepositBalanceLocked(); pending != w.lastPendingDeposit {
		w.lastPendingDeposit = pending
		events = append(events, func(o Observer) {
			o.PendingDepositBalanceUpdated(pending)
		})
	}
	return events
}
