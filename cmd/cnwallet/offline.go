// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/chain"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/transfers"
)

// errOffline is returned by every node request that would need a chain
// connection.  This tool only creates and inspects wallet files.
var errOffline = errors.New("wallet tool is not connected to a node")

// offlineNode implements chain.Node without a node connection.
type offlineNode struct{}

func (offlineNode) LastLocalBlockHeight() uint32 { return 0 }
func (offlineNode) KnownBlockCount() uint32      { return 0 }

func (offlineNode) RelayTransaction(context.Context, []byte) error {
	return errOffline
}

func (offlineNode) RandomOutputsForAmounts(context.Context, []uint64,
	uint64) ([]chain.RandomOuts, error) {

	return nil, errOffline
}

// offlineSynchronizer implements transfers.Synchronizer with empty
// containers and no chain scan, which is all the offline tool needs to
// drive the wallet state machine.
type offlineSynchronizer struct {
	mu            sync.Mutex
	subscriptions map[cncrypto.PublicKey]*offlineSubscription
}

func newOfflineSynchronizer() *offlineSynchronizer {
	return &offlineSynchronizer{
		subscriptions: make(map[cncrypto.PublicKey]*offlineSubscription),
	}
}

func (*offlineSynchronizer) Start() {}
func (*offlineSynchronizer) Stop()  {}

func (*offlineSynchronizer) AddObserver(transfers.SyncObserver) func() {
	return func() {}
}

func (s *offlineSynchronizer) AddSubscription(sub transfers.AccountSubscription) (transfers.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subscriptions[sub.Keys.SpendPublicKey]; ok {
		return existing, nil
	}
	subscription := &offlineSubscription{}
	s.subscriptions[sub.Keys.SpendPublicKey] = subscription
	return subscription, nil
}

func (s *offlineSynchronizer) RemoveSubscription(spendPublicKey cncrypto.PublicKey) {
	s.mu.Lock()
	delete(s.subscriptions, spendPublicKey)
	s.mu.Unlock()
}

// Save writes nothing: there is no scan state to cache.
func (*offlineSynchronizer) Save(io.Writer) error { return nil }

// Load discards any cached scan state; a node-connected synchronizer will
// rebuild it.
func (*offlineSynchronizer) Load(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

type offlineSubscription struct{}

func (*offlineSubscription) Container() transfers.Container { return emptyContainer{} }

func (*offlineSubscription) AddObserver(transfers.ContainerObserver) func() {
	return func() {}
}

// emptyContainer is a transfers.Container with no tracked outputs.
type emptyContainer struct{}

func (emptyContainer) Outputs(transfers.Flags) []transfers.OutputInfo { return nil }
func (emptyContainer) Balance(transfers.Flags) uint64                 { return 0 }

func (emptyContainer) TransactionInfo(chainhash.Hash) (transfers.TransactionInfo, bool) {
	return transfers.TransactionInfo{}, false
}

func (emptyContainer) TransactionOutputs(chainhash.Hash,
	transfers.Flags) []transfers.OutputInfo {

	return nil
}

func (emptyContainer) TransactionInputs(chainhash.Hash,
	transfers.Flags) []transfers.OutputInfo {

	return nil
}
