// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/transfers"
)

func makeHash(b byte) chainhash.Hash {
	var h chainhash.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func makeKey(b byte) cncrypto.PublicKey {
	var k cncrypto.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func testStore() *Store {
	return New(&chaincfg.SimNetParams)
}

func TestAddTransactionAndAccessors(t *testing.T) {
	s := testStore()

	hash := makeHash(1)
	secretKey := cncrypto.SecretKey(makeKey(9))
	destinations := []Transfer{
		{Address: "addr1", Amount: 400000},
		{Address: "addr2", Amount: 100000},
	}
	id := s.AddTransaction(&hash, -501000, 1000, destinations, 0, nil,
		[]string{"note"}, &secretKey, time.Unix(1000, 0))

	require.Equal(t, TransactionID(0), id)
	require.Equal(t, 1, s.TransactionCount())
	require.Equal(t, 2, s.TransferCount())

	tx, err := s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, hash, tx.Hash)
	require.Equal(t, int64(-501000), tx.TotalAmount)
	require.Equal(t, uint64(1000), tx.Fee)
	require.Equal(t, chaincfg.UnconfirmedTransactionHeight, tx.Height)
	require.Equal(t, TxCreated, tx.State)
	require.NotNil(t, tx.SecretKey)

	require.Equal(t, id, s.TransactionByHash(&hash))
	unknown := makeHash(0xff)
	require.Equal(t, InvalidTransactionID, s.TransactionByHash(&unknown))

	transfer, err := s.Transfer(tx.FirstTransfer + 1)
	require.NoError(t, err)
	require.Equal(t, "addr2", transfer.Address)

	require.Equal(t, id, s.FindTransactionByTransferID(tx.FirstTransfer))
	require.Equal(t, InvalidTransactionID,
		s.FindTransactionByTransferID(TransferID(5)))

	_, err = s.Transaction(TransactionID(7))
	require.True(t, IsError(err, ErrTransactionNotFound))
}

func TestSendLifecycle(t *testing.T) {
	s := testStore()

	hash := makeHash(2)
	id := s.AddTransaction(&hash, -401000, 1000,
		[]Transfer{{Address: "addr", Amount: 400000}}, 0, nil, nil, nil,
		time.Unix(1000, 0))

	outKey := makeKey(3)
	err := s.AddUnconfirmedTransaction(id, 401000, 1000000,
		[]cncrypto.PublicKey{outKey})
	require.NoError(t, err)

	require.True(t, s.IsUnconfirmed(&hash))
	require.True(t, s.IsOutputInFlight(outKey))
	require.Equal(t, uint64(1000000), s.UnconfirmedOutsAmount())
	require.Equal(t, uint64(401000), s.UnconfirmedTransactionsAmount())

	// Registering the same hash twice must fail.
	err = s.AddUnconfirmedTransaction(id, 401000, 1000000, nil)
	require.True(t, IsError(err, ErrDuplicateUnconfirmed))

	require.NoError(t, s.CommitTransaction(id))
	tx, err := s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, TxSucceeded, tx.State)

	// The pool entry stays until the chain reports the transaction.
	require.True(t, s.IsUnconfirmed(&hash))

	events := s.OnTransactionUpdated(&transfers.TransactionInfo{
		Hash:        hash,
		BlockHeight: 100,
		Timestamp:   1234,
	}, -401000, 1000, nil, nil)
	require.Len(t, events, 1)
	require.Equal(t, EventTransactionUpdated, events[0].Type)
	require.Equal(t, id, events[0].TransactionID)

	require.False(t, s.IsUnconfirmed(&hash))
	require.False(t, s.IsOutputInFlight(outKey))
	require.Zero(t, s.UnconfirmedOutsAmount())

	tx, err = s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, uint32(100), tx.Height)
	require.Equal(t, uint64(1234), tx.Timestamp)
}

func TestRollbackTransaction(t *testing.T) {
	s := testStore()

	hash := makeHash(4)
	id := s.AddTransaction(&hash, -401000, 1000,
		[]Transfer{{Address: "addr", Amount: 400000}}, 0, nil, nil, nil,
		time.Unix(1000, 0))
	outKey := makeKey(5)
	require.NoError(t, s.AddUnconfirmedTransaction(id, 401000, 1000000,
		[]cncrypto.PublicKey{outKey}))

	require.NoError(t, s.RollbackTransaction(id, false))

	tx, err := s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, TxFailed, tx.State)
	require.False(t, s.IsUnconfirmed(&hash))
	require.False(t, s.IsOutputInFlight(outKey))

	hash2 := makeHash(5)
	id2 := s.AddTransaction(&hash2, -401000, 1000, nil, 0, nil, nil, nil,
		time.Unix(1000, 0))
	require.NoError(t, s.RollbackTransaction(id2, true))
	tx, err = s.Transaction(id2)
	require.NoError(t, err)
	require.Equal(t, TxCancelled, tx.State)
}

func TestExternalTransactionCreated(t *testing.T) {
	s := testStore()

	paymentID := makeHash(0xaa)
	info := &transfers.TransactionInfo{
		Hash:        makeHash(6),
		BlockHeight: 50,
		Timestamp:   777,
		PaymentID:   paymentID,
	}
	events := s.OnTransactionUpdated(info, 250000, 0, nil, nil)
	require.Len(t, events, 1)
	require.Equal(t, EventTransactionCreated, events[0].Type)

	id := events[0].TransactionID
	tx, err := s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, int64(250000), tx.TotalAmount)
	require.Zero(t, tx.Fee)
	require.Equal(t, uint32(50), tx.Height)
	require.Equal(t, TxSucceeded, tx.State)
	require.Equal(t, 0, tx.TransferCount)

	require.Equal(t, []TransactionID{id},
		s.TransactionsByPaymentID(&paymentID))

	// Reconfirmation at a different height updates in place.
	info.BlockHeight = 60
	events = s.OnTransactionUpdated(info, 250000, 0, nil, nil)
	require.Len(t, events, 1)
	require.Equal(t, EventTransactionUpdated, events[0].Type)
	require.Equal(t, 1, s.TransactionCount())

	tx, err = s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, uint32(60), tx.Height)
}

func depositOut(txHash chainhash.Hash, index uint32, amount uint64,
	term uint32) transfers.OutputInfo {

	return transfers.OutputInfo{
		Type:                transfers.OutputDeposit,
		Amount:              amount,
		Term:                term,
		OutputInTransaction: index,
		TransactionHash:     txHash,
	}
}

func TestDepositCreation(t *testing.T) {
	s := testStore()
	params := &chaincfg.SimNetParams

	hash := makeHash(7)
	info := &transfers.TransactionInfo{Hash: hash, BlockHeight: 10}
	out := depositOut(hash, 0, params.DepositMinAmount, params.DepositMinTerm)

	events := s.OnTransactionUpdated(info, -1000, 1000,
		[]transfers.OutputInfo{out}, nil)
	require.Len(t, events, 2)
	require.Equal(t, EventTransactionCreated, events[0].Type)
	require.Equal(t, EventDepositsUpdated, events[1].Type)
	require.Len(t, events[1].DepositIDs, 1)

	id := events[0].TransactionID
	depositID := events[1].DepositIDs[0]

	deposit, err := s.Deposit(depositID)
	require.NoError(t, err)
	require.Equal(t, id, deposit.CreatingTransactionID)
	require.Equal(t, InvalidTransactionID, deposit.SpendingTransactionID)
	require.True(t, deposit.Locked)
	require.Equal(t, params.DepositMinAmount, deposit.Amount)

	wantInterest, err := params.CalculateInterest(params.DepositMinAmount,
		params.DepositMinTerm)
	require.NoError(t, err)
	require.Equal(t, wantInterest, deposit.Interest)

	tx, err := s.Transaction(id)
	require.NoError(t, err)
	require.Equal(t, depositID, tx.FirstDeposit)
	require.Equal(t, 1, tx.DepositCount)

	// A reconfirmation must not create duplicate deposit rows.
	events = s.OnTransactionUpdated(info, -1000, 1000,
		[]transfers.OutputInfo{out}, nil)
	require.Len(t, events, 1)
	require.Equal(t, 1, s.DepositCount())
}

func TestDepositLockUnlock(t *testing.T) {
	s := testStore()
	params := &chaincfg.SimNetParams

	hash := makeHash(8)
	out := depositOut(hash, 0, params.DepositMinAmount, params.DepositMinTerm)
	events := s.OnTransactionUpdated(
		&transfers.TransactionInfo{Hash: hash, BlockHeight: 10},
		-1000, 1000, []transfers.OutputInfo{out}, nil)
	depositID := events[1].DepositIDs[0]

	unlocked := s.UnlockDeposits([]transfers.OutputInfo{out})
	require.Equal(t, []DepositID{depositID}, unlocked)
	deposit, err := s.Deposit(depositID)
	require.NoError(t, err)
	require.False(t, deposit.Locked)

	// Unlocking again reports no change.
	require.Empty(t, s.UnlockDeposits([]transfers.OutputInfo{out}))

	// A reorganization can push the deposit back below maturity.
	locked := s.LockDeposits([]transfers.OutputInfo{out})
	require.Equal(t, []DepositID{depositID}, locked)
	deposit, err = s.Deposit(depositID)
	require.NoError(t, err)
	require.True(t, deposit.Locked)
}

func TestWithdrawSpendingAndRelease(t *testing.T) {
	s := testStore()
	params := &chaincfg.SimNetParams

	// Create a confirmed deposit first.
	createHash := makeHash(9)
	out := depositOut(createHash, 0, params.DepositMinAmount,
		params.DepositMinTerm)
	events := s.OnTransactionUpdated(
		&transfers.TransactionInfo{Hash: createHash, BlockHeight: 10},
		-1000, 1000, []transfers.OutputInfo{out}, nil)
	depositID := events[1].DepositIDs[0]

	interest, err := params.CalculateInterest(params.DepositMinAmount,
		params.DepositMinTerm)
	require.NoError(t, err)
	depositsSum := params.DepositMinAmount + interest

	// Issue the withdrawal.
	withdrawHash := makeHash(10)
	withdrawID := s.AddTransaction(&withdrawHash,
		int64(depositsSum-params.MinimumFee), params.MinimumFee, nil, 0,
		nil, nil, nil, time.Unix(2000, 0))
	require.NoError(t, s.AddDepositSpendingTransaction(withdrawID,
		[]DepositID{depositID}, depositsSum, params.MinimumFee))

	deposit, err := s.Deposit(depositID)
	require.NoError(t, err)
	require.Equal(t, withdrawID, deposit.SpendingTransactionID)
	require.Equal(t, depositsSum, s.UnconfirmedSpentDepositsSum())
	require.Equal(t, depositsSum-params.MinimumFee,
		s.UnconfirmedSpentDepositsProfit())

	// The synchronizer dropping the withdrawal releases the deposit.
	events = s.OnTransactionDeleted(&withdrawHash)
	require.Len(t, events, 2)
	require.Equal(t, EventTransactionUpdated, events[0].Type)
	require.Equal(t, EventDepositsUpdated, events[1].Type)
	require.Equal(t, []DepositID{depositID}, events[1].DepositIDs)

	tx, err := s.Transaction(withdrawID)
	require.NoError(t, err)
	require.Equal(t, TxDeleted, tx.State)
	deposit, err = s.Deposit(depositID)
	require.NoError(t, err)
	require.Equal(t, InvalidTransactionID, deposit.SpendingTransactionID)
	require.Zero(t, s.UnconfirmedSpentDepositsSum())
}

func TestCreatedDepositsSum(t *testing.T) {
	s := testStore()

	hash := makeHash(11)
	id := s.AddTransaction(&hash, -1000, 1000, nil, 0, nil, nil, nil,
		time.Unix(1000, 0))
	require.NoError(t, s.AddUnconfirmedTransaction(id, 1000, 2000, nil))
	s.AddCreatedDeposits(id, 500000)
	require.Equal(t, uint64(500000), s.UnconfirmedCreatedDepositsSum())

	// Confirmation clears the pending created deposit value.
	s.OnTransactionUpdated(&transfers.TransactionInfo{
		Hash:        hash,
		BlockHeight: 20,
	}, -1000, 1000, nil, nil)
	require.Zero(t, s.UnconfirmedCreatedDepositsSum())
}

func TestDeleteOutdatedTransactions(t *testing.T) {
	s := testStore()
	params := &chaincfg.SimNetParams

	base := time.Unix(100000, 0)

	oldHash := makeHash(12)
	oldID := s.AddTransaction(&oldHash, -1000, 1000, nil, 0, nil, nil,
		nil, base)
	require.NoError(t, s.AddUnconfirmedTransaction(oldID, 1000, 2000, nil))

	freshHash := makeHash(13)
	freshID := s.AddTransaction(&freshHash, -1000, 1000, nil, 0, nil, nil,
		nil, base.Add(params.MempoolTxKeepalive()/2))
	require.NoError(t, s.AddUnconfirmedTransaction(freshID, 1000, 3000, nil))

	deleted := s.DeleteOutdatedTransactions(base.Add(params.MempoolTxKeepalive()))
	require.Equal(t, []TransactionID{oldID}, deleted)

	tx, err := s.Transaction(oldID)
	require.NoError(t, err)
	require.Equal(t, TxDeleted, tx.State)
	require.False(t, s.IsUnconfirmed(&oldHash))
	require.True(t, s.IsUnconfirmed(&freshHash))
	require.Equal(t, uint64(3000), s.UnconfirmedOutsAmount())
}
