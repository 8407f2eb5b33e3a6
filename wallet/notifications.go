// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"sync"

	"github.com/cnsuite/cnwallet/wtxmgr"
)

// Observer is the wallet's outward notification surface.  Every callback
// fires outside the wallet's lock, in the order the underlying events were
// generated, so an observer may call back into the wallet.
type Observer interface {
	// InitCompleted reports the result of an asynchronous generate,
	// import or load.
	InitCompleted(err error)

	// SaveCompleted reports the result of an asynchronous save.
	SaveCompleted(err error)

	// SynchronizationProgressUpdated relays chain scan progress.
	SynchronizationProgressUpdated(current, total uint32)

	// SynchronizationCompleted relays the end of a chain scan pass.
	SynchronizationCompleted(err error)

	// Balance callbacks fire only when the respective value actually
	// changed since it was last reported.
	ActualBalanceUpdated(amount uint64)
	PendingBalanceUpdated(amount uint64)
	ActualDepositBalanceUpdated(amount uint64)
	PendingDepositBalanceUpdated(amount uint64)

	// ExternalTransactionCreated reports a transaction first observed on
	// the chain rather than sent by this wallet.
	ExternalTransactionCreated(id wtxmgr.TransactionID)

	// TransactionUpdated reports a state, height or timestamp change of
	// a known transaction.
	TransactionUpdated(id wtxmgr.TransactionID)

	// DepositsUpdated reports deposits created, spent, locked or
	// unlocked.
	DepositsUpdated(ids []wtxmgr.DepositID)

	// SendTransactionCompleted reports the relay result of a send,
	// deposit or withdrawal issued by this wallet.
	SendTransactionCompleted(id wtxmgr.TransactionID, err error)
}

// NopObserver implements Observer with empty callbacks.  Embed it to
// observe a subset of the wallet's events.
type NopObserver struct{}

// InitCompleted implements Observer.
func (NopObserver) InitCompleted(error) {}

// SaveCompleted implements Observer.
func (NopObserver) SaveCompleted(error) {}

// SynchronizationProgressUpdated implements Observer.
func (NopObserver) SynchronizationProgressUpdated(current, total uint32) {}

// SynchronizationCompleted implements Observer.
func (NopObserver) SynchronizationCompleted(error) {}

// ActualBalanceUpdated implements Observer.
func (NopObserver) ActualBalanceUpdated(uint64) {}

// PendingBalanceUpdated implements Observer.
func (NopObserver) PendingBalanceUpdated(uint64) {}

// ActualDepositBalanceUpdated implements Observer.
func (NopObserver) ActualDepositBalanceUpdated(uint64) {}

// PendingDepositBalanceUpdated implements Observer.
func (NopObserver) PendingDepositBalanceUpdated(uint64) {}

// ExternalTransactionCreated implements Observer.
func (NopObserver) ExternalTransactionCreated(wtxmgr.TransactionID) {}

// TransactionUpdated implements Observer.
func (NopObserver) TransactionUpdated(wtxmgr.TransactionID) {}

// DepositsUpdated implements Observer.
func (NopObserver) DepositsUpdated([]wtxmgr.DepositID) {}

// SendTransactionCompleted implements Observer.
func (NopObserver) SendTransactionCompleted(wtxmgr.TransactionID, error) {}

// walletEvent is one queued notification.  Events are collected while the
// wallet's lock is held and dispatched after it is released.
type walletEvent func(Observer)

// observerManager fans wallet events out to the registered observers.
// Registration returns a removal function so a subscription cannot outlive
// its owner.
type observerManager struct {
	mu        sync.Mutex
	nextID    int
	order     []int
	observers map[int]Observer
}

func newObserverManager() *observerManager {
	return &observerManager{observers: make(map[int]Observer)}
}

// add registers obs and returns its removal function.  Removing twice is
// harmless.
func (m *observerManager) add(obs Observer) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.order = append(m.order, id)
	m.observers[id] = obs

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.observers[id]; !ok {
			return
		}
		delete(m.observers, id)
		for i, v := range m.order {
			if v == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
}

// notify invokes one event on every observer in registration order.
func (m *observerManager) notify(event walletEvent) {
	m.mu.Lock()
	observers := make([]Observer, 0, len(m.order))
	for _, id := range m.order {
		observers = append(observers, m.observers[id])
	}
	m.mu.Unlock()

	for _, obs := range observers {
		event(obs)
	}
}

// dispatch delivers a queue of events in order.
func (m *observerManager) dispatch(events []walletEvent) {
	for _, event := range events {
		m.notify(event)
	}
}
