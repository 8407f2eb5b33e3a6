// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements the wallet state machine: account keys, the
// transaction ledger, balance bookkeeping, the send pipeline and encrypted
// persistence, driven by asynchronous chain synchronization events and
// observed through ordered callbacks.
package wallet

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/ticker"

	"github.com/cnsuite/cnwallet/chain"
	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/internal/zero"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/walletseed"
	"github.com/cnsuite/cnwallet/wtxmgr"
)

// walletState tracks the lifecycle of a Wallet.
type walletState uint8

const (
	stateNotInitialized walletState = iota
	stateLoading
	stateInitialized
	stateSaving
)

const (
	// defaultTaskLimit bounds the number of concurrently running
	// background tasks.
	defaultTaskLimit = 8

	// prunerInterval is how often the unconfirmed pool is swept in
	// addition to the sweep on every synchronization event.
	prunerInterval = time.Minute
)

// Wallet is the wallet engine.  A single mutex guards the account, the
// ledger and the lifecycle state; it is never held across a node call, and
// observer callbacks fire only after it is released.
type Wallet struct {
	params *chaincfg.Params
	suite  cncrypto.Suite
	node   chain.Node
	syncer transfers.Synchronizer

	mu       sync.Mutex
	state    walletState
	stopping bool
	account  *Account
	password []byte
	store    *wtxmgr.Store

	container          transfers.Container
	cancelContainerObs func()
	cancelSyncObs      func()

	// Last reported balance values backing edge-triggered notification.
	lastActual         uint64
	lastPending        uint64
	lastActualDeposit  uint64
	lastPendingDeposit uint64

	observers *observerManager
	executor  *executor
	pruner    ticker.Ticker
	quit      chan struct{}
	wg        sync.WaitGroup
}

// New returns an uninitialized wallet over the given collaborators.  The
// wallet does nothing until one of the initialization calls succeeds.
func New(params *chaincfg.Params, suite cncrypto.Suite, node chain.Node,
	syncer transfers.Synchronizer) *Wallet {

	return &Wallet{
		params:    params,
		suite:     suite,
		node:      node,
		syncer:    syncer,
		store:     wtxmgr.New(params),
		observers: newObserverManager(),
	}
}

// AddObserver registers an observer of the wallet's events and returns its
// removal function.
func (w *Wallet) AddObserver(obs Observer) (cancel func()) {
	return w.observers.add(obs)
}

// InitAndGenerate creates a fresh random account.  Chain synchronization
// starts from the current time; completion is reported through
// InitCompleted.
func (w *Wallet) InitAndGenerate(password []byte) error {
	w.mu.Lock()
	if w.state != stateNotInitialized {
		w.mu.Unlock()
		return walletError(ErrAlreadyInitialized,
			"wallet is already initialized", nil)
	}
	account, err := generateAccount(w.suite)
	if err != nil {
		w.mu.Unlock()
		return walletError(ErrInternal, "account generation failed", err)
	}
	err = w.initWithAccountLocked(account, password)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	w.observers.notify(func(o Observer) { o.InitCompleted(nil) })
	return nil
}

// InitAndGenerateDeterministic creates a fresh account whose view keypair
// derives from the spend secret, so the account is recoverable from its
// seed mnemonic.
func (w *Wallet) InitAndGenerateDeterministic(password []byte) error {
	w.mu.Lock()
	if w.state != stateNotInitialized {
		w.mu.Unlock()
		return walletError(ErrAlreadyInitialized,
			"wallet is already initialized", nil)
	}
	account, err := generateDeterministicAccount(w.suite)
	if err != nil {
		w.mu.Unlock()
		return walletError(ErrInternal, "account generation failed", err)
	}
	err = w.initWithAccountLocked(account, password)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	w.observers.notify(func(o Observer) { o.InitCompleted(nil) })
	return nil
}

// GenerateKey creates an account from recovery material and returns the
// seed backing its mnemonic.  With recover set, recovery is used as the
// seed; otherwise a fresh seed is drawn.  With twoRandom set the view
// keypair is independent of the seed.
func (w *Wallet) GenerateKey(password []byte, recovery cncrypto.SecretKey,
	recover, twoRandom bool) (cncrypto.SecretKey, error) {

	w.mu.Lock()
	if w.state != stateNotInitialized {
		w.mu.Unlock()
		return cncrypto.NullSecretKey, walletError(ErrAlreadyInitialized,
			"wallet is already initialized", nil)
	}
	account, seed, err := generateAccountKey(w.suite, recovery, recover,
		twoRandom)
	if err != nil {
		w.mu.Unlock()
		return cncrypto.NullSecretKey,
			walletError(ErrInternal, "account generation failed", err)
	}
	err = w.initWithAccountLocked(account, password)
	w.mu.Unlock()
	if err != nil {
		return cncrypto.NullSecretKey, err
	}

	w.observers.notify(func(o Observer) { o.InitCompleted(nil) })
	return seed, nil
}

// InitWithKeys imports existing key material.  A null spend secret key
// produces a tracking wallet.
func (w *Wallet) InitWithKeys(keys transfers.AccountKeys, password []byte) error {
	w.mu.Lock()
	if w.state != stateNotInitialized {
		w.mu.Unlock()
		return walletError(ErrAlreadyInitialized,
			"wallet is already initialized", nil)
	}
	err := w.initWithAccountLocked(accountFromKeys(keys), password)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	w.observers.notify(func(o Observer) { o.InitCompleted(nil) })
	return nil
}

// InitAndLoad decrypts and loads a previously saved wallet stream.  The
// call returns after moving to the loading state; the load itself runs in
// the background and reports through InitCompleted.
func (w *Wallet) InitAndLoad(r io.Reader, password []byte) error {
	w.mu.Lock()
	if w.state != stateNotInitialized {
		w.mu.Unlock()
		return walletError(ErrAlreadyInitialized,
			"wallet is already initialized", nil)
	}
	w.state = stateLoading
	w.executor = newExecutor(defaultTaskLimit)
	w.mu.Unlock()

	passwordCopy := append([]byte(nil), password...)
	err := w.executor.run(func() {
		err := w.load(r, passwordCopy)
		w.observers.notify(func(o Observer) { o.InitCompleted(err) })
	})
	if err != nil {
		w.mu.Lock()
		w.state = stateNotInitialized
		w.mu.Unlock()
		return walletError(ErrInternal, "load task rejected", err)
	}
	return nil
}

// load is the background half of InitAndLoad.  The stream is decoded
// straight into w.store, so the rebuild stays behind the wallet lock.
func (w *Wallet) load(r io.Reader, password []byte) error {
	w.mu.Lock()
	account, cache, err := deserializeWallet(r, password, w.store)
	if err != nil {
		w.store.Reset()
		w.state = stateNotInitialized
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	if len(cache) > 0 {
		if err := w.syncer.Load(bytes.NewReader(cache)); err != nil {
			// The scan cache is advisory; a failed load only costs
			// a rescan.
			log.Warnf("Unable to load synchronization cache: %v", err)
		}
	}

	w.mu.Lock()
	w.state = stateNotInitialized
	err = w.initWithAccountLocked(account, password)
	w.mu.Unlock()
	return err
}

// initWithAccountLocked installs the account, subscribes it to chain
// synchronization and brings the wallet to the initialized state.  The
// caller holds the wallet lock and has verified the state.
func (w *Wallet) initWithAccountLocked(account *Account, password []byte) error {
	sub, err := w.syncer.AddSubscription(transfers.AccountSubscription{
		Keys:                    account.Keys,
		SyncStartTime:           account.CreationTime,
		TransactionSpendableAge: w.params.TransactionSpendableAge,
	})
	if err != nil {
		return walletError(ErrInternal, "chain subscription failed", err)
	}

	w.account = account
	w.password = append([]byte(nil), password...)
	w.container = sub.Container()
	w.cancelContainerObs = sub.AddObserver(&containerNotifier{w: w})
	w.cancelSyncObs = w.syncer.AddObserver(&syncNotifier{w: w})
	if w.executor == nil {
		w.executor = newExecutor(defaultTaskLimit)
	}
	w.state = stateInitialized

	w.startBackgroundLocked()
	w.syncer.Start()

	log.Infof("Wallet initialized, address %v",
		account.address(w.params))
	return nil
}

// startBackgroundLocked starts the unconfirmed pool pruner.
func (w *Wallet) startBackgroundLocked() {
	w.quit = make(chan struct{})
	w.pruner = ticker.New(prunerInterval)
	w.pruner.Resume()

	w.wg.Add(1)
	go func(quit chan struct{}, t ticker.Ticker) {
		defer w.wg.Done()
		for {
			select {
			case <-t.Ticks():
				w.pruneOutdated()
			case <-quit:
				return
			}
		}
	}(w.quit, w.pruner)
}

// Shutdown stops the send pipeline, the chain synchronizer and every
// background task, waits for all of them and clears the key material.  The
// wallet returns to the uninitialized state and may be initialized again.
func (w *Wallet) Shutdown() {
	w.mu.Lock()
	if w.state == stateNotInitialized || w.stopping {
		w.mu.Unlock()
		return
	}
	w.stopping = true
	cancelContainer := w.cancelContainerObs
	cancelSync := w.cancelSyncObs
	executor := w.executor
	pruner := w.pruner
	quit := w.quit
	w.mu.Unlock()

	if cancelContainer != nil {
		cancelContainer()
	}
	if cancelSync != nil {
		cancelSync()
	}
	w.syncer.Stop()

	if quit != nil {
		close(quit)
	}
	if pruner != nil {
		pruner.Stop()
	}
	if executor != nil {
		executor.shutdown()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.account != nil {
		w.syncer.RemoveSubscription(w.account.Keys.SpendPublicKey)
		zero.Bytea32((*[32]byte)(&w.account.Keys.SpendSecretKey))
		zero.Bytea32((*[32]byte)(&w.account.Keys.ViewSecretKey))
	}
	zero.Bytes(w.password)
	w.password = nil
	w.account = nil
	w.container = nil
	w.cancelContainerObs = nil
	w.cancelSyncObs = nil
	w.executor = nil
	w.pruner = nil
	w.quit = nil
	w.store.Reset()
	w.lastActual = 0
	w.lastPending = 0
	w.lastActualDeposit = 0
	w.lastPendingDeposit = 0
	w.state = stateNotInitialized
	w.stopping = false
	w.mu.Unlock()

	log.Info("Wallet shut down")
}

// Save writes the encrypted wallet stream to dst.  With detailed set the
// transaction ledger is included; with cache set the synchronizer's scan
// cache is included.  The call returns after moving to the saving state;
// completion is reported through SaveCompleted.
func (w *Wallet) Save(dst io.Writer, detailed, cache bool) error {
	w.mu.Lock()
	switch w.state {
	case stateSaving:
		w.mu.Unlock()
		return walletError(ErrWrongState, "save already in progress", nil)
	case stateInitialized:
	default:
		w.mu.Unlock()
		return walletError(ErrNotInitialized,
			"wallet is not initialized", nil)
	}
	w.state = stateSaving
	executor := w.executor
	w.mu.Unlock()

	err := executor.run(func() {
		err := w.save(dst, detailed, cache)
		w.observers.notify(func(o Observer) { o.SaveCompleted(err) })
	})
	if err != nil {
		w.mu.Lock()
		w.state = stateInitialized
		w.mu.Unlock()
		return walletError(ErrInternal, "save task rejected", err)
	}
	return nil
}

// save is the background half of Save.
func (w *Wallet) save(dst io.Writer, detailed, cache bool) error {
	var cacheBlob []byte
	if cache {
		var buf bytes.Buffer
		if err := w.syncer.Save(&buf); err != nil {
			w.mu.Lock()
			w.state = stateInitialized
			w.mu.Unlock()
			return walletError(ErrInternal,
				"synchronization cache save failed", err)
		}
		cacheBlob = buf.Bytes()
	}

	w.mu.Lock()
	blob, err := serializeWallet(w.account, w.store, cacheBlob, w.password,
		detailed)
	w.state = stateInitialized
	w.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := dst.Write(blob); err != nil {
		return walletError(ErrInternal, "wallet stream write failed", err)
	}
	return nil
}

// Reset serializes the wallet without the scan cache, shuts it down and
// reloads it from the serialized form, restarting chain synchronization
// from scratch while preserving keys and transaction history.
func (w *Wallet) Reset() error {
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return walletError(ErrNotInitialized,
			"wallet is not initialized", nil)
	}
	blob, err := serializeWallet(w.account, w.store, nil, w.password, true)
	password := append([]byte(nil), w.password...)
	w.mu.Unlock()
	if err != nil {
		return err
	}

	w.Shutdown()

	defer zero.Bytes(password)
	w.mu.Lock()
	w.executor = newExecutor(defaultTaskLimit)
	w.mu.Unlock()
	return w.load(bytes.NewReader(blob), password)
}

// ChangePassword re-keys the wallet stream written by subsequent saves.
func (w *Wallet) ChangePassword(oldPassword, newPassword []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateInitialized {
		return walletError(ErrNotInitialized,
			"wallet is not initialized", nil)
	}
	if !bytes.Equal(w.password, oldPassword) {
		return walletError(ErrWrongPassword, "wrong password", nil)
	}
	zero.Bytes(w.password)
	w.password = append([]byte(nil), newPassword...)
	return nil
}

// Address returns the wallet's public address.
func (w *Wallet) Address() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return "", err
	}
	return w.account.address(w.params).String(), nil
}

// GetSeed returns the mnemonic of a deterministic wallet's spend secret.
func (w *Wallet) GetSeed() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return "", err
	}
	if !w.account.isDeterministic(w.suite) {
		return "", walletError(ErrTrackingWallet,
			"wallet is non-deterministic and has no seed", nil)
	}
	seed := [walletseed.SeedSize]byte(w.account.Keys.SpendSecretKey)
	return walletseed.EncodeMnemonic(&seed), nil
}

// GetAccountKeys copies out the account's key material.
func (w *Wallet) GetAccountKeys() (transfers.AccountKeys, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return transfers.AccountKeys{}, err
	}
	return w.account.Keys, nil
}

// IsTrackingWallet reports whether the wallet holds only the view secret
// key and therefore cannot spend.
func (w *Wallet) IsTrackingWallet() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return false, err
	}
	return w.account.isTracking(), nil
}

// CancelTransaction always fails: a transaction handed to the node cannot
// be recalled, and construction is never exposed half-done.
func (w *Wallet) CancelTransaction(wtxmgr.TransactionID) error {
	return walletError(ErrTxCancelImpossible,
		"transaction cancellation is impossible", nil)
}

// TransactionCount returns the number of stored transactions.
func (w *Wallet) TransactionCount() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.store.TransactionCount(), nil
}

// TransferCount returns the number of stored destination rows.
func (w *Wallet) TransferCount() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.store.TransferCount(), nil
}

// DepositCount returns the number of stored deposits.
func (w *Wallet) DepositCount() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return 0, err
	}
	return w.store.DepositCount(), nil
}

// GetTransaction returns a copy of the transaction with the given handle.
func (w *Wallet) GetTransaction(id wtxmgr.TransactionID) (wtxmgr.TxRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return wtxmgr.TxRecord{}, err
	}
	return w.store.Transaction(id)
}

// GetTransfer returns a copy of the destination row with the given handle.
func (w *Wallet) GetTransfer(id wtxmgr.TransferID) (wtxmgr.Transfer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return wtxmgr.Transfer{}, err
	}
	return w.store.Transfer(id)
}

// GetDeposit returns a copy of the deposit with the given handle.
func (w *Wallet) GetDeposit(id wtxmgr.DepositID) (wtxmgr.Deposit, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return wtxmgr.Deposit{}, err
	}
	return w.store.Deposit(id)
}

// FindTransactionByTransferID returns the handle of the transaction owning
// the given destination row.
func (w *Wallet) FindTransactionByTransferID(id wtxmgr.TransferID) (wtxmgr.TransactionID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return wtxmgr.InvalidTransactionID, err
	}
	return w.store.FindTransactionByTransferID(id), nil
}

// Payments groups the transactions carrying one payment id.
type Payments struct {
	PaymentID    chainhash.Hash
	Transactions []wtxmgr.TxRecord
}

// TransactionsByPaymentIDs returns, for every requested payment id, the
// transactions carrying it.
func (w *Wallet) TransactionsByPaymentIDs(paymentIDs []chainhash.Hash) ([]Payments, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return nil, err
	}

	payments := make([]Payments, len(paymentIDs))
	for i := range paymentIDs {
		payments[i].PaymentID = paymentIDs[i]
		for _, id := range w.store.TransactionsByPaymentID(&paymentIDs[i]) {
			tx, err := w.store.Transaction(id)
			if err != nil {
				return nil, err
			}
			payments[i].Transactions = append(
				payments[i].Transactions, tx)
		}
	}
	return payments, nil
}

// UnlockedOutputs returns the spendable key outputs.
func (w *Wallet) UnlockedOutputs() ([]transfers.OutputInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkInitializedLocked(); err != nil {
		return nil, err
	}
	return w.container.Outputs(transfers.IncludeKeyUnlocked), nil
}

// UnlockedOutputsCount returns the number of spendable key outputs.
func (w *Wallet) UnlockedOutputsCount() (int, error) {
	outs, err := w.UnlockedOutputs()
	if err != nil {
		return 0, err
	}
	return len(outs), nil
}

// checkInitializedLocked verifies the wallet is usable.
func (w *Wallet) checkInitializedLocked() error {
	switch w.state {
	case stateInitialized, stateSaving:
		return nil
	default:
		return walletError(ErrNotInitialized,
			"wallet is not initialized", nil)
	}
}

// pruneOutdated is the pruner tick: sweep the unconfirmed pool and report
// the consequences.
func (w *Wallet) pruneOutdated() {
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}
	events := w.pruneLocked(time.Now())
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}

// pruneLocked drops aged-out unconfirmed transactions and returns the
// matching events.
func (w *Wallet) pruneLocked(now time.Time) []walletEvent {
	deleted := w.store.DeleteOutdatedTransactions(now)
	if len(deleted) > 0 {
		log.Debugf("Pruned %d outdated unconfirmed %s", len(deleted),
			pickNoun(len(deleted), "transaction", "transactions"))
	}
	events := make([]walletEvent, 0, len(deleted))
	for _, id := range deleted {
		id := id
		events = append(events, func(o Observer) {
			o.TransactionUpdated(id)
		})
	}
	return events
}

// storeEventsLocked translates ledger events into observer notifications.
func storeEventsLocked(storeEvents []wtxmgr.Event) []walletEvent {
	events := make([]walletEvent, 0, len(storeEvents))
	for _, ev := range storeEvents {
		ev := ev
		switch ev.Type {
		case wtxmgr.EventTransactionCreated:
			events = append(events, func(o Observer) {
				o.ExternalTransactionCreated(ev.TransactionID)
			})
		case wtxmgr.EventTransactionUpdated:
			events = append(events, func(o Observer) {
				o.TransactionUpdated(ev.TransactionID)
			})
		case wtxmgr.EventDepositsUpdated:
			events = append(events, func(o Observer) {
				o.DepositsUpdated(ev.DepositIDs)
			})
		}
	}
	return events
}

// syncNotifier adapts the wallet to transfers.SyncObserver.
type syncNotifier struct {
	w *Wallet
}

// SynchronizationProgressUpdated implements transfers.SyncObserver.
func (n *syncNotifier) SynchronizationProgressUpdated(processed, total uint32) {
	w := n.w
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}
	events := []walletEvent{func(o Observer) {
		o.SynchronizationProgressUpdated(processed, total)
	}}
	events = append(events, w.pruneLocked(time.Now())...)
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}

// SynchronizationCompleted implements transfers.SyncObserver.
func (n *syncNotifier) SynchronizationCompleted(err error) {
	w := n.w
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}
	events := []walletEvent{func(o Observer) {
		o.SynchronizationCompleted(err)
	}}
	events = append(events, w.pruneLocked(time.Now())...)
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}

// containerNotifier adapts the wallet to transfers.ContainerObserver.
type containerNotifier struct {
	w *Wallet
}

// OnTransactionUpdated implements transfers.ContainerObserver.
func (n *containerNotifier) OnTransactionUpdated(hash chainhash.Hash) {
	w := n.w
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}

	info, ok := w.container.TransactionInfo(hash)
	if !ok {
		w.mu.Unlock()
		return
	}
	delta := int64(info.TotalAmountOut) - int64(info.TotalAmountIn)
	newDepositOuts := w.container.TransactionOutputs(hash,
		transfers.IncludeTypeDeposit|transfers.IncludeStateAll)
	spentDeposits := w.container.TransactionInputs(hash,
		transfers.IncludeTypeDeposit)

	events := storeEventsLocked(w.store.OnTransactionUpdated(&info, delta,
		info.Fee, newDepositOuts, spentDeposits))
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}

// OnTransactionDeleted implements transfers.ContainerObserver.
func (n *containerNotifier) OnTransactionDeleted(hash chainhash.Hash) {
	w := n.w
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}
	events := storeEventsLocked(w.store.OnTransactionDeleted(&hash))
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}

// OnTransfersUnlocked implements transfers.ContainerObserver.
func (n *containerNotifier) OnTransfersUnlocked(unlocked []transfers.OutputInfo) {
	w := n.w
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}
	var events []walletEvent
	if ids := w.store.UnlockDeposits(unlocked); len(ids) > 0 {
		events = append(events, func(o Observer) {
			o.DepositsUpdated(ids)
		})
	}
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}

// OnTransfersLocked implements transfers.ContainerObserver.
func (n *containerNotifier) OnTransfersLocked(locked []transfers.OutputInfo) {
	w := n.w
	w.mu.Lock()
	if w.state != stateInitialized {
		w.mu.Unlock()
		return
	}
	var events []walletEvent
	if ids := w.store.LockDeposits(locked); len(ids) > 0 {
		events = append(events, func(o Observer) {
			o.DepositsUpdated(ids)
		})
	}
	events = append(events, w.balanceEventsLocked()...)
	w.mu.Unlock()

	w.observers.dispatch(events)
}
