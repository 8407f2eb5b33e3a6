// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"

	"github.com/cnsuite/cnwallet/chain"
	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/transfers"
)

const (
	// WalletDBName specifies the database filename for the wallet.
	WalletDBName = "wallet.db"

	// DefaultDBTimeout is the default timeout value when opening the
	// wallet database.
	DefaultDBTimeout = 60 * time.Second
)

var (
	// ErrLoaded describes the error condition of attempting to load or
	// create a wallet when the loader has already done so.
	ErrLoaded = errors.New("wallet already loaded")

	// ErrNotLoaded describes the error condition of attempting to close a
	// loaded wallet when a wallet has not been loaded.
	ErrNotLoaded = errors.New("wallet is not loaded")

	// ErrExists describes the error condition of attempting to create a
	// new wallet when one exists already.
	ErrExists = errors.New("wallet already exists")
)

// The encrypted wallet stream lives under a single bucket key; the stream
// carries its own versioning and encryption.
var (
	walletBucketKey = []byte("wallet")
	walletStreamKey = []byte("stream")
)

// Loader implements the creating of new and opening of existing wallets,
// while providing a callback system for other subsystems to handle the
// loading of a wallet.
//
// Loader is safe for concurrent access.
type Loader struct {
	params    *chaincfg.Params
	suite     cncrypto.Suite
	node      chain.Node
	syncer    transfers.Synchronizer
	dbDirPath string
	timeout   time.Duration

	mu        sync.Mutex
	callbacks []func(*Wallet)
	db        walletdb.DB
	wallet    *Wallet
}

// NewLoader constructs a Loader over the wallet's collaborators.  The
// database is created under dbDirPath on first use.
func NewLoader(params *chaincfg.Params, suite cncrypto.Suite,
	node chain.Node, syncer transfers.Synchronizer, dbDirPath string,
	timeout time.Duration) *Loader {

	return &Loader{
		params:    params,
		suite:     suite,
		node:      node,
		syncer:    syncer,
		dbDirPath: dbDirPath,
		timeout:   timeout,
	}
}

// onLoaded executes each added callback and prevents loader from loading
// any additional wallets.  Requires mutex to be locked.
func (l *Loader) onLoaded(w *Wallet, db walletdb.DB) {
	for _, fn := range l.callbacks {
		fn(w)
	}

	l.wallet = w
	l.db = db
	l.callbacks = nil // not needed anymore
}

// RunAfterLoad adds a function to be executed when the loader creates or
// opens a wallet.  Functions are executed in a single goroutine in the
// order they are added.
func (l *Loader) RunAfterLoad(fn func(*Wallet)) {
	l.mu.Lock()
	if l.wallet != nil {
		w := l.wallet
		l.mu.Unlock()
		fn(w)
	} else {
		l.callbacks = append(l.callbacks, fn)
		l.mu.Unlock()
	}
}

// WalletExists returns whether a file exists at the loader's database path.
// This may return an error for unexpected I/O failures.
func (l *Loader) WalletExists() (bool, error) {
	dbPath := filepath.Join(l.dbDirPath, WalletDBName)
	return fileExists(dbPath)
}

// LoadedWallet returns the loaded wallet, if any, and a bool for whether
// the wallet has been loaded or not.  If true, the wallet pointer should
// be safe to dereference.
func (l *Loader) LoadedWallet() (*Wallet, bool) {
	l.mu.Lock()
	w := l.wallet
	l.mu.Unlock()
	return w, w != nil
}

// CreateNewWallet creates a new deterministic wallet protected by password
// and persists its encrypted stream in a fresh database.
func (l *Loader) CreateNewWallet(password []byte) (*Wallet, error) {
	return l.createWallet(func(w *Wallet) error {
		return w.InitAndGenerateDeterministic(password)
	})
}

// RecoverWallet recreates a deterministic wallet from its 32-byte seed and
// persists it like CreateNewWallet.  The chain scan starts from the
// beginning of time since the recovered account may be arbitrarily old.
func (l *Loader) RecoverWallet(password []byte, seed cncrypto.SecretKey) (*Wallet, error) {
	return l.createWallet(func(w *Wallet) error {
		_, err := w.GenerateKey(password, seed, true, false)
		return err
	})
}

func (l *Loader) createWallet(initWallet func(*Wallet) error) (*Wallet, error) {

	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet != nil {
		return nil, ErrLoaded
	}
	exists, err := l.WalletExists()
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrExists
	}

	if err := os.MkdirAll(l.dbDirPath, 0700); err != nil {
		return nil, err
	}
	dbPath := filepath.Join(l.dbDirPath, WalletDBName)
	db, err := walletdb.Create("bdb", dbPath, true, l.timeout)
	if err != nil {
		return nil, err
	}

	w := New(l.params, l.suite, l.node, l.syncer)
	if err := initWallet(w); err != nil {
		db.Close()
		return nil, err
	}
	if err := storeWalletStream(db, w); err != nil {
		w.Shutdown()
		db.Close()
		return nil, err
	}

	l.onLoaded(w, db)
	return w, nil
}

// OpenExistingWallet opens the wallet from the loader's database path,
// decrypting its stream with password.  The call blocks until the
// background load finishes.
func (l *Loader) OpenExistingWallet(password []byte) (*Wallet, error) {
	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet != nil {
		return nil, ErrLoaded
	}

	dbPath := filepath.Join(l.dbDirPath, WalletDBName)
	db, err := walletdb.Open("bdb", dbPath, true, l.timeout)
	if err != nil {
		return nil, err
	}

	var stream []byte
	err = walletdb.View(db, func(tx walletdb.ReadTx) error {
		bucket := tx.ReadBucket(walletBucketKey)
		if bucket == nil {
			return ErrNotLoaded
		}
		blob := bucket.Get(walletStreamKey)
		if blob == nil {
			return ErrNotLoaded
		}
		stream = append([]byte(nil), blob...)
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	w := New(l.params, l.suite, l.node, l.syncer)
	waiter := newInitWaiter()
	cancel := w.AddObserver(waiter)
	defer cancel()

	if err := w.InitAndLoad(bytes.NewReader(stream), password); err != nil {
		db.Close()
		return nil, err
	}
	if err := <-waiter.done; err != nil {
		db.Close()
		return nil, err
	}

	l.onLoaded(w, db)
	return w, nil
}

// SaveWallet serializes the loaded wallet, ledger and scan cache included,
// and replaces the stored stream.
func (l *Loader) SaveWallet() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.wallet == nil {
		return ErrNotLoaded
	}
	return storeWalletStream(l.db, l.wallet)
}

// UnloadWallet stops the loaded wallet, if any, and closes the wallet
// database.  Returns with errors until the wallet has been loaded with
// CreateNewWallet or OpenExistingWallet.  The Loader may be reused if
// this function returns without error.
func (l *Loader) UnloadWallet() error {
	defer l.mu.Unlock()
	l.mu.Lock()

	if l.wallet == nil {
		return ErrNotLoaded
	}

	if err := storeWalletStream(l.db, l.wallet); err != nil {
		log.Warnf("Unable to persist wallet before unload: %v", err)
	}
	l.wallet.Shutdown()
	if err := l.db.Close(); err != nil {
		return err
	}

	l.wallet = nil
	l.db = nil
	return nil
}

// storeWalletStream runs a full encrypted save of w into the database.
func storeWalletStream(db walletdb.DB, w *Wallet) error {
	var buf bytes.Buffer
	waiter := newSaveWaiter()
	cancel := w.AddObserver(waiter)
	defer cancel()

	if err := w.Save(&buf, true, true); err != nil {
		return err
	}
	if err := <-waiter.done; err != nil {
		return err
	}

	return walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		bucket, err := tx.CreateTopLevelBucket(walletBucketKey)
		if err != nil {
			return err
		}
		return bucket.Put(walletStreamKey, buf.Bytes())
	})
}

// initWaiter resolves once InitCompleted fires.
type initWaiter struct {
	NopObserver
	done chan error
}

func newInitWaiter() *initWaiter {
	return &initWaiter{done: make(chan error, 1)}
}

func (iw *initWaiter) InitCompleted(err error) {
	select {
	case iw.done <- err:
	default:
	}
}

// saveWaiter resolves once SaveCompleted fires.
type saveWaiter struct {
	NopObserver
	done chan error
}

func newSaveWaiter() *saveWaiter {
	return &saveWaiter{done: make(chan error, 1)}
}

func (sw *saveWaiter) SaveCompleted(err error) {
	select {
	case sw.done <- err:
	default:
	}
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) (bool, error) {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
