// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"time"

	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/cnutil"
	"github.com/cnsuite/cnwallet/transfers"
)

// Account is the wallet's key material.  It is created once per
// initialization and only replaced by an explicit reset or reload.
type Account struct {
	Keys transfers.AccountKeys

	// CreationTime bounds the initial chain scan; blocks older than it
	// cannot pay the account.
	CreationTime time.Time
}

// generateAccount creates an account from two independent random keypairs.
func generateAccount(suite cncrypto.Suite) (*Account, error) {
	spendPub, spendSec, err := suite.GenerateKeys()
	if err != nil {
		return nil, err
	}
	viewPub, viewSec, err := suite.GenerateKeys()
	if err != nil {
		return nil, err
	}
	return &Account{
		Keys: transfers.AccountKeys{
			SpendPublicKey: spendPub,
			ViewPublicKey:  viewPub,
			SpendSecretKey: spendSec,
			ViewSecretKey:  viewSec,
		},
		CreationTime: time.Now(),
	}, nil
}

// deriveViewKeys derives the deterministic view keypair of a spend secret:
// the view secret is the reduced keccak hash of the spend secret, which is
// what lets a mnemonic of the spend secret recover the whole account.
func deriveViewKeys(suite cncrypto.Suite, spendSec cncrypto.SecretKey) (cncrypto.PublicKey, cncrypto.SecretKey) {
	hash := cncrypto.FastHash(spendSec[:])
	return suite.GenerateDeterministicKeys(cncrypto.SecretKey(hash))
}

// generateDeterministicAccount creates an account whose view keypair is
// derived from the random spend secret.
func generateDeterministicAccount(suite cncrypto.Suite) (*Account, error) {
	spendPub, spendSec, err := suite.GenerateKeys()
	if err != nil {
		return nil, err
	}
	viewPub, viewSec := deriveViewKeys(suite, spendSec)
	return &Account{
		Keys: transfers.AccountKeys{
			SpendPublicKey: spendPub,
			ViewPublicKey:  viewPub,
			SpendSecretKey: spendSec,
			ViewSecretKey:  viewSec,
		},
		CreationTime: time.Now(),
	}, nil
}

// generateAccountKey creates an account from recovery material.  When
// recover is false a fresh random seed is drawn; the used seed is returned
// so the caller can derive its mnemonic.  When twoRandom is false the view
// keypair is derived from the spend secret, making the account recoverable
// from the seed alone.
func generateAccountKey(suite cncrypto.Suite, recovery cncrypto.SecretKey,
	recover, twoRandom bool) (*Account, cncrypto.SecretKey, error) {

	seed := recovery
	if !recover {
		var err error
		seed, err = suite.GenerateSeed()
		if err != nil {
			return nil, cncrypto.NullSecretKey, err
		}
	}
	spendPub, spendSec := suite.GenerateDeterministicKeys(seed)

	var viewPub cncrypto.PublicKey
	var viewSec cncrypto.SecretKey
	if twoRandom {
		var err error
		viewPub, viewSec, err = suite.GenerateKeys()
		if err != nil {
			return nil, cncrypto.NullSecretKey, err
		}
	} else {
		viewPub, viewSec = deriveViewKeys(suite, spendSec)
	}

	account := &Account{
		Keys: transfers.AccountKeys{
			SpendPublicKey: spendPub,
			ViewPublicKey:  viewPub,
			SpendSecretKey: spendSec,
			ViewSecretKey:  viewSec,
		},
		CreationTime: time.Now(),
	}
	if recover {
		// A recovered account may have received funds at any time.
		account.CreationTime = time.Unix(0, 0)
	}
	return account, seed, nil
}

// accountFromKeys imports existing key material.  A null spend secret key
// produces a tracking account that can observe incoming funds but not
// spend them.
func accountFromKeys(keys transfers.AccountKeys) *Account {
	return &Account{Keys: keys, CreationTime: time.Unix(0, 0)}
}

// isDeterministic reports whether the view keypair is derivable from the
// spend secret, which is the precondition for a seed mnemonic.
func (a *Account) isDeterministic(suite cncrypto.Suite) bool {
	if a.Keys.SpendSecretKey.IsNull() {
		return false
	}
	_, viewSec := deriveViewKeys(suite, a.Keys.SpendSecretKey)
	return viewSec == a.Keys.ViewSecretKey
}

// isTracking reports whether the account holds only the view secret.
func (a *Account) isTracking() bool {
	return a.Keys.SpendSecretKey.IsNull()
}

// address returns the account's public address on the given network.
func (a *Account) address(params *chaincfg.Params) cnutil.Address {
	return cnutil.NewAddress(params.PublicAddressBase58Prefix,
		a.Keys.SpendPublicKey, a.Keys.ViewPublicKey)
}
