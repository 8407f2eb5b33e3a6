// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transfers

import (
	"io"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// AccountKeys is the key material a subscription scans with.  A tracking
// subscription carries a null spend secret key.
type AccountKeys struct {
	SpendPublicKey cncrypto.PublicKey
	ViewPublicKey  cncrypto.PublicKey
	SpendSecretKey cncrypto.SecretKey
	ViewSecretKey  cncrypto.SecretKey
}

// AccountSubscription describes one account to synchronize.
type AccountSubscription struct {
	Keys AccountKeys

	// SyncStartHeight and SyncStartTime bound the initial scan; blocks
	// older than both are skipped.
	SyncStartHeight uint32
	SyncStartTime   time.Time

	// TransactionSpendableAge is the confirmation depth before an output
	// leaves the soft-locked state.
	TransactionSpendableAge uint32
}

// Container is the read-only view of an account's tracked outputs.
type Container interface {
	// Outputs returns the tracked outputs selected by flags.
	Outputs(flags Flags) []OutputInfo

	// Balance sums the amounts of the outputs selected by flags.
	Balance(flags Flags) uint64

	// TransactionInfo looks up a transaction known to the container and
	// reports the tracked value flowing in and out of the account.
	TransactionInfo(hash chainhash.Hash) (TransactionInfo, bool)

	// TransactionOutputs returns the transaction's outputs paying the
	// account, filtered by flags.
	TransactionOutputs(hash chainhash.Hash, flags Flags) []OutputInfo

	// TransactionInputs returns the tracked outputs the transaction
	// spends, filtered by flags.
	TransactionInputs(hash chainhash.Hash, flags Flags) []OutputInfo
}

// ContainerObserver receives push notifications for one subscription.
// Callbacks are serialized by the synchronizer.
type ContainerObserver interface {
	// OnTransactionUpdated fires when a transaction touching tracked
	// outputs appears, confirms, or moves to a different height.
	OnTransactionUpdated(hash chainhash.Hash)

	// OnTransactionDeleted fires when a previously reported transaction
	// is evicted by a reorganization or pool expiry.
	OnTransactionDeleted(hash chainhash.Hash)

	// OnTransfersUnlocked fires when outputs cross their maturity height.
	OnTransfersUnlocked(unlocked []OutputInfo)

	// OnTransfersLocked fires when a reorganization pushes previously
	// unlocked outputs back below their maturity height.
	OnTransfersLocked(locked []OutputInfo)
}

// SyncObserver receives chain-level synchronization progress.
type SyncObserver interface {
	// SynchronizationProgressUpdated fires as blocks are processed;
	// total is the node's known block count.
	SynchronizationProgressUpdated(processed, total uint32)

	// SynchronizationCompleted fires when the processed height reaches
	// the known block count, or with the error that stopped the sync.
	SynchronizationCompleted(err error)
}

// Subscription is one account registered with the synchronizer.
type Subscription interface {
	// Container returns the account's output container.
	Container() Container

	// AddObserver registers obs and returns its removal function.
	AddObserver(obs ContainerObserver) (cancel func())
}

// Synchronizer drives the blockchain scan for all subscribed accounts.
type Synchronizer interface {
	Start()
	Stop()

	// AddObserver registers a chain-progress observer and returns its
	// removal function.
	AddObserver(obs SyncObserver) (cancel func())

	// AddSubscription registers an account for scanning.  Subscribing the
	// same spend public key twice returns the existing subscription.
	AddSubscription(sub AccountSubscription) (Subscription, error)

	// RemoveSubscription drops the account's subscription and container.
	RemoveSubscription(spendPublicKey cncrypto.PublicKey)

	// Save and Load serialize the synchronizer's scan cache so a restart
	// can avoid a full rescan.  The cache is advisory: a load failure
	// only costs a rescan.
	Save(w io.Writer) error
	Load(r io.Reader) error
}
