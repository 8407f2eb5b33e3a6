// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cnsuite/cnwallet/chaincfg"
	"github.com/cnsuite/cnwallet/cncrypto"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wire"
)

func TestSerializeRoundTrip(t *testing.T) {
	s := testStore()
	params := &chaincfg.SimNetParams

	// Local send with secret key, payment id and messages.
	paymentID := makeHash(0xbb)
	extra := wire.AppendPaymentIDToExtra(nil, paymentID)
	secretKey := cncrypto.SecretKey(makeKey(1))
	sendHash := makeHash(20)
	sendID := s.AddTransaction(&sendHash, -401000, 1000,
		[]Transfer{{Address: "addr", Amount: 400000}}, 7, extra,
		[]string{"memo"}, &secretKey, time.Unix(5000, 0))
	require.NoError(t, s.CommitTransaction(sendID))

	// External deposit-creating transaction.
	depositHash := makeHash(21)
	out := depositOut(depositHash, 2, params.DepositMinAmount,
		params.DepositMinTerm)
	events := s.OnTransactionUpdated(
		&transfers.TransactionInfo{Hash: depositHash, BlockHeight: 30},
		-1000, 1000, []transfers.OutputInfo{out}, nil)
	depositID := events[1].DepositIDs[0]

	var buf bytes.Buffer
	require.NoError(t, s.Serialize(&buf))

	loaded := testStore()
	require.NoError(t, loaded.Deserialize(bytes.NewReader(buf.Bytes())))

	require.Equal(t, s.TransactionCount(), loaded.TransactionCount())
	require.Equal(t, s.TransferCount(), loaded.TransferCount())
	require.Equal(t, s.DepositCount(), loaded.DepositCount())

	for i := 0; i < s.TransactionCount(); i++ {
		want, err := s.Transaction(TransactionID(i))
		require.NoError(t, err)
		got, err := loaded.Transaction(TransactionID(i))
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	wantDeposit, err := s.Deposit(depositID)
	require.NoError(t, err)
	gotDeposit, err := loaded.Deposit(depositID)
	require.NoError(t, err)
	require.Equal(t, wantDeposit, gotDeposit)

	// Indexes must be rebuilt, not persisted.
	require.Equal(t, sendID, loaded.TransactionByHash(&sendHash))
	require.Equal(t, []TransactionID{sendID},
		loaded.TransactionsByPaymentID(&paymentID))
	require.Equal(t, []DepositID{depositID},
		loaded.UnlockDeposits([]transfers.OutputInfo{out}))

	// The unconfirmed pool never survives a round trip.
	require.Zero(t, loaded.UnconfirmedOutsAmount())
}

func TestDeserializeLegacyVersion(t *testing.T) {
	// A version 1 stream has no deposit fields and no deposit table.
	var buf bytes.Buffer
	require.NoError(t, writeUvarint(&buf, storeVersionLegacy))

	require.NoError(t, writeUvarint(&buf, 1)) // one transaction
	hash := makeHash(30)
	_, err := buf.Write(hash[:])
	require.NoError(t, err)
	require.NoError(t, buf.WriteByte(0)) // no secret key
	legacyChange := int64(-2000)
	require.NoError(t, writeUint64(&buf, uint64(legacyChange)))
	require.NoError(t, writeUint64(&buf, 1000))           // fee
	require.NoError(t, writeUint32(&buf, 40))             // height
	require.NoError(t, writeUint64(&buf, 999))            // timestamp
	require.NoError(t, writeUint64(&buf, 123))            // sent time
	require.NoError(t, writeUint64(&buf, 0))              // first transfer
	require.NoError(t, writeUvarint(&buf, 1))             // transfer count
	require.NoError(t, writeUint64(&buf, 0))              // unlock time
	require.NoError(t, writeVarBytes(&buf, nil))          // extra
	require.NoError(t, writeUvarint(&buf, 0))             // messages
	require.NoError(t, buf.WriteByte(byte(TxSucceeded)))  // state

	require.NoError(t, writeUvarint(&buf, 1)) // one transfer
	require.NoError(t, writeVarBytes(&buf, []byte("addr")))
	require.NoError(t, writeUint64(&buf, uint64(int64(1000))))

	s := testStore()
	require.NoError(t, s.Deserialize(bytes.NewReader(buf.Bytes())))

	require.Equal(t, 1, s.TransactionCount())
	require.Equal(t, 1, s.TransferCount())
	require.Zero(t, s.DepositCount())

	tx, err := s.Transaction(0)
	require.NoError(t, err)
	require.Equal(t, hash, tx.Hash)
	require.Equal(t, int64(-2000), tx.TotalAmount)
	require.Equal(t, InvalidDepositID, tx.FirstDeposit)
	require.Equal(t, TxSucceeded, tx.State)
}

func TestDeserializeErrors(t *testing.T) {
	s := testStore()

	err := s.Deserialize(bytes.NewReader(nil))
	require.True(t, IsError(err, ErrMalformedStore))

	var buf bytes.Buffer
	require.NoError(t, writeUvarint(&buf, 99))
	err = s.Deserialize(bytes.NewReader(buf.Bytes()))
	require.True(t, IsError(err, ErrUnsupportedVersion))

	// A transfer range pointing past the transfer table must be caught.
	full := testStore()
	hash := makeHash(31)
	full.AddTransaction(&hash, -1000, 1000,
		[]Transfer{{Address: "addr", Amount: 500}}, 0, nil, nil, nil,
		time.Time{})
	var good bytes.Buffer
	require.NoError(t, full.Serialize(&good))

	truncated := good.Bytes()[:good.Len()-10]
	err = s.Deserialize(bytes.NewReader(truncated))
	require.True(t, IsError(err, ErrMalformedStore))
}
