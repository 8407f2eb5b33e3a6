// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/chain"
	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wtxmgr"
)

// testParams loosens the fee floor so tests can exercise round amounts
// while keeping the mainnet dust threshold from the decomposition rules.
func testParams() *chaincfg.Params {
	params := chaincfg.SimNetParams
	params.MinimumFee = 1000
	return &params
}

// mockOutput pairs a tracked output with its mock lock state.
type mockOutput struct {
	info  transfers.OutputInfo
	state transfers.Flags
}

func (o *mockOutput) matches(flags transfers.Flags) bool {
	var typeFlag transfers.Flags
	switch o.info.Type {
	case transfers.OutputKey:
		typeFlag = transfers.IncludeTypeKey
	case transfers.OutputDeposit:
		typeFlag = transfers.IncludeTypeDeposit
	}
	return flags&typeFlag != 0 && flags&o.state != 0
}

// mockContainer is a hand-rolled transfers.Container the tests mutate
// directly and then drive the wallet's observer with.
type mockContainer struct {
	mu        sync.Mutex
	outputs   []*mockOutput
	txs       map[chainhash.Hash]transfers.TransactionInfo
	txOutputs map[chainhash.Hash][]*mockOutput
	txInputs  map[chainhash.Hash][]*mockOutput
}

func newMockContainer() *mockContainer {
	return &mockContainer{
		txs:       make(map[chainhash.Hash]transfers.TransactionInfo),
		txOutputs: make(map[chainhash.Hash][]*mockOutput),
		txInputs:  make(map[chainhash.Hash][]*mockOutput),
	}
}

func (c *mockContainer) Outputs(flags transfers.Flags) []transfers.OutputInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []transfers.OutputInfo
	for _, o := range c.outputs {
		if o.matches(flags) {
			out = append(out, o.info)
		}
	}
	return out
}

func (c *mockContainer) Balance(flags transfers.Flags) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum uint64
	for _, o := range c.outputs {
		if o.matches(flags) {
			sum += o.info.Amount
		}
	}
	return sum
}

func (c *mockContainer) TransactionInfo(hash chainhash.Hash) (transfers.TransactionInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.txs[hash]
	return info, ok
}

func (c *mockContainer) TransactionOutputs(hash chainhash.Hash,
	flags transfers.Flags) []transfers.OutputInfo {

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []transfers.OutputInfo
	for _, o := range c.txOutputs[hash] {
		if o.matches(flags) {
			out = append(out, o.info)
		}
	}
	return out
}

func (c *mockContainer) TransactionInputs(hash chainhash.Hash,
	flags transfers.Flags) []transfers.OutputInfo {

	c.mu.Lock()
	defer c.mu.Unlock()
	var out []transfers.OutputInfo
	for _, o := range c.txInputs[hash] {
		if o.matches(flags) {
			out = append(out, o.info)
		}
	}
	return out
}

// addUnlockedOutput registers a spendable key output paying amount.
func (c *mockContainer) addUnlockedOutput(amount uint64, key cncrypto.PublicKey,
	txPub cncrypto.PublicKey, index uint32) *mockOutput {

	c.mu.Lock()
	defer c.mu.Unlock()
	o := &mockOutput{
		info: transfers.OutputInfo{
			Type:                 transfers.OutputKey,
			Amount:               amount,
			GlobalOutputIndex:    uint32(len(c.outputs)),
			OutputInTransaction:  index,
			TransactionPublicKey: txPub,
			OutputKey:            key,
		},
		state: transfers.IncludeStateUnlocked,
	}
	c.outputs = append(c.outputs, o)
	return o
}

func (c *mockContainer) removeOutput(target *mockOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, o := range c.outputs {
		if o == target {
			c.outputs = append(c.outputs[:i], c.outputs[i+1:]...)
			return
		}
	}
}

func (c *mockContainer) setTransaction(info transfers.TransactionInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs[info.Hash] = info
}

// mockSubscription exposes the container observer the wallet registered so
// tests can push chain events through it.
type mockSubscription struct {
	container *mockContainer

	mu       sync.Mutex
	observer transfers.ContainerObserver
}

func (s *mockSubscription) Container() transfers.Container {
	return s.container
}

func (s *mockSubscription) AddObserver(obs transfers.ContainerObserver) func() {
	s.mu.Lock()
	s.observer = obs
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.observer = nil
		s.mu.Unlock()
	}
}

func (s *mockSubscription) notify(fn func(transfers.ContainerObserver)) {
	s.mu.Lock()
	obs := s.observer
	s.mu.Unlock()
	if obs != nil {
		fn(obs)
	}
}

// mockSynchronizer records subscriptions and lets tests fire sync events.
type mockSynchronizer struct {
	mu            sync.Mutex
	subscriptions map[cncrypto.PublicKey]*mockSubscription
	syncObserver  transfers.SyncObserver
	cache         []byte
	started       bool
}

func newMockSynchronizer() *mockSynchronizer {
	return &mockSynchronizer{
		subscriptions: make(map[cncrypto.PublicKey]*mockSubscription),
	}
}

func (m *mockSynchronizer) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
}

func (m *mockSynchronizer) Stop() {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
}

func (m *mockSynchronizer) AddObserver(obs transfers.SyncObserver) func() {
	m.mu.Lock()
	m.syncObserver = obs
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.syncObserver = nil
		m.mu.Unlock()
	}
}

func (m *mockSynchronizer) AddSubscription(sub transfers.AccountSubscription) (transfers.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.subscriptions[sub.Keys.SpendPublicKey]; ok {
		return existing, nil
	}
	s := &mockSubscription{container: newMockContainer()}
	m.subscriptions[sub.Keys.SpendPublicKey] = s
	return s, nil
}

func (m *mockSynchronizer) RemoveSubscription(spendPublicKey cncrypto.PublicKey) {
	m.mu.Lock()
	delete(m.subscriptions, spendPublicKey)
	m.mu.Unlock()
}

func (m *mockSynchronizer) Save(w io.Writer) error {
	_, err := w.Write([]byte("cache"))
	return err
}

func (m *mockSynchronizer) Load(r io.Reader) error {
	blob, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cache = blob
	m.mu.Unlock()
	return nil
}

func (m *mockSynchronizer) subscription(spendPublicKey cncrypto.PublicKey) *mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptions[spendPublicKey]
}

// mockNode answers decoy requests with synthetic outputs and records every
// relayed transaction.
type mockNode struct {
	mu              sync.Mutex
	height          uint32
	relayed         [][]byte
	relayErr        error
	decoysPerAmount uint64
}

func newMockNode() *mockNode {
	return &mockNode{height: 100, decoysPerAmount: 32}
}

func (n *mockNode) LastLocalBlockHeight() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.height
}

func (n *mockNode) KnownBlockCount() uint32 {
	return n.LastLocalBlockHeight()
}

func (n *mockNode) RelayTransaction(_ context.Context, rawTx []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.relayErr != nil {
		return n.relayErr
	}
	n.relayed = append(n.relayed, append([]byte(nil), rawTx...))
	return nil
}

func (n *mockNode) RandomOutputsForAmounts(_ context.Context,
	amounts []uint64, count uint64) ([]chain.RandomOuts, error) {

	n.mu.Lock()
	available := n.decoysPerAmount
	n.mu.Unlock()
	if count > available {
		count = available
	}

	suite := cncrypto.NewSuite()
	outs := make([]chain.RandomOuts, len(amounts))
	for i, amount := range amounts {
		outs[i].Amount = amount
		for j := uint64(0); j < count; j++ {
			pub, _, err := suite.GenerateKeys()
			if err != nil {
				return nil, err
			}
			outs[i].Outs = append(outs[i].Outs, chain.OutEntry{
				GlobalIndex: uint32(1000 + i*100 + int(j)),
				Key:         pub,
			})
		}
	}
	return outs, nil
}

// recordingObserver collects wallet events for assertions.
type recordingObserver struct {
	NopObserver

	initDone chan error
	saveDone chan error
	sendDone chan sendResult

	mu              sync.Mutex
	actualUpdates   []uint64
	pendingUpdates  []uint64
	actualDeposit   []uint64
	pendingDeposit  []uint64
	updatedTxs      []wtxmgr.TransactionID
	externalTxs     []wtxmgr.TransactionID
	updatedDeposits [][]wtxmgr.DepositID
}

type sendResult struct {
	id  wtxmgr.TransactionID
	err error
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		initDone: make(chan error, 4),
		saveDone: make(chan error, 4),
		sendDone: make(chan sendResult, 4),
	}
}

func (r *recordingObserver) InitCompleted(err error) { r.initDone <- err }
func (r *recordingObserver) SaveCompleted(err error) { r.saveDone <- err }

func (r *recordingObserver) SendTransactionCompleted(id wtxmgr.TransactionID, err error) {
	r.sendDone <- sendResult{id: id, err: err}
}

func (r *recordingObserver) ActualBalanceUpdated(amount uint64) {
	r.mu.Lock()
	r.actualUpdates = append(r.actualUpdates, amount)
	r.mu.Unlock()
}

func (r *recordingObserver) PendingBalanceUpdated(amount uint64) {
	r.mu.Lock()
	r.pendingUpdates = append(r.pendingUpdates, amount)
	r.mu.Unlock()
}

func (r *recordingObserver) ActualDepositBalanceUpdated(amount uint64) {
	r.mu.Lock()
	r.actualDeposit = append(r.actualDeposit, amount)
	r.mu.Unlock()
}

func (r *recordingObserver) PendingDepositBalanceUpdated(amount uint64) {
	r.mu.Lock()
	r.pendingDeposit = append(r.pendingDeposit, amount)
	r.mu.Unlock()
}

func (r *recordingObserver) TransactionUpdated(id wtxmgr.TransactionID) {
	r.mu.Lock()
	r.updatedTxs = append(r.updatedTxs, id)
	r.mu.Unlock()
}

func (r *recordingObserver) ExternalTransactionCreated(id wtxmgr.TransactionID) {
	r.mu.Lock()
	r.externalTxs = append(r.externalTxs, id)
	r.mu.Unlock()
}

func (r *recordingObserver) DepositsUpdated(ids []wtxmgr.DepositID) {
	r.mu.Lock()
	r.updatedDeposits = append(r.updatedDeposits, ids)
	r.mu.Unlock()
}

func (r *recordingObserver) waitSend(timeout time.Duration) (sendResult, error) {
	select {
	case res := <-r.sendDone:
		return res, nil
	case <-time.After(timeout):
		return sendResult{}, errors.New("timed out waiting for send")
	}
}

// testWallet wires a wallet to fresh mocks.
type testWallet struct {
	wallet *Wallet
	node   *mockNode
	syncer *mockSynchronizer
	obs    *recordingObserver
	params *chaincfg.Params
	suite  cncrypto.Suite
}

func newTestWallet() *testWallet {
	params := testParams()
	return &testWallet{
		node:   newMockNode(),
		syncer: newMockSynchronizer(),
		obs:    newRecordingObserver(),
		params: params,
		suite:  cncrypto.NewSuite(),
	}
}

// open initializes a fresh deterministic wallet and hooks up the recording
// observer.
func (tw *testWallet) open(password []byte) error {
	tw.wallet = New(tw.params, tw.suite, tw.node, tw.syncer)
	tw.wallet.AddObserver(tw.obs)
	return tw.wallet.InitAndGenerateDeterministic(password)
}

// subscription returns the wallet's registered mock subscription.
func (tw *testWallet) subscription() *mockSubscription {
	keys, err := tw.wallet.GetAccountKeys()
	if err != nil {
		return nil
	}
	return tw.syncer.subscription(keys.SpendPublicKey)
}

// fund adds an unlocked output paying the wallet and returns it.  The
// output carries a real one-time key so input preparation succeeds.
func (tw *testWallet) fund(amount uint64) (*mockOutput, error) {
	keys, err := tw.wallet.GetAccountKeys()
	if err != nil {
		return nil, err
	}

	txPub, txSec, err := tw.suite.GenerateKeys()
	if err != nil {
		return nil, err
	}
	derivation, err := tw.suite.GenerateKeyDerivation(keys.ViewPublicKey,
		txSec)
	if err != nil {
		return nil, err
	}
	outputKey, err := tw.suite.DerivePublicKey(derivation, 0,
		keys.SpendPublicKey)
	if err != nil {
		return nil, err
	}

	sub := tw.subscription()
	return sub.container.addUnlockedOutput(amount, outputKey, txPub, 0), nil
}
