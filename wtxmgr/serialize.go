// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wtxmgr

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// Serialized store versions.  Version 1 is the layout written before term
// deposits existed and is still readable; new stores are always written as
// the current version.
const (
	storeVersionLegacy  = 1
	storeVersionCurrent = 2
)

// maxStoreRecords caps the record counts read from a serialized store so a
// corrupted length prefix cannot trigger a huge allocation.
const maxStoreRecords = 1 << 24

const txRecordHasSecretKey = 1 << 0

// Serialize writes the ledger in the current version layout.  The
// unconfirmed pool is intentionally not persisted; it is rebuilt from chain
// synchronization after a load.
func (s *Store) Serialize(w io.Writer) error {
	if err := writeUvarint(w, storeVersionCurrent); err != nil {
		return err
	}

	if err := writeUvarint(w, uint64(len(s.transactions))); err != nil {
		return err
	}
	for i := range s.transactions {
		if err := writeTxRecord(w, &s.transactions[i]); err != nil {
			return err
		}
	}

	if err := writeUvarint(w, uint64(len(s.transfers))); err != nil {
		return err
	}
	for i := range s.transfers {
		if err := writeTransfer(w, &s.transfers[i]); err != nil {
			return err
		}
	}

	if err := writeUvarint(w, uint64(len(s.deposits))); err != nil {
		return err
	}
	for i := range s.deposits {
		if err := writeDeposit(w, &s.deposits[i]); err != nil {
			return err
		}
	}

	return nil
}

// Deserialize replaces the store's contents with a previously serialized
// ledger, accepting both the current and the legacy version 1 layout.
func (s *Store) Deserialize(r io.Reader) error {
	version, err := readUvarint(r)
	if err != nil {
		return storeError(ErrMalformedStore, "short store header", err)
	}
	switch version {
	case storeVersionLegacy, storeVersionCurrent:
	default:
		return storeError(ErrUnsupportedVersion,
			"unknown store version", nil)
	}
	legacy := version == storeVersionLegacy

	s.Reset()

	txCount, err := readCount(r)
	if err != nil {
		return err
	}
	s.transactions = make([]TxRecord, txCount)
	for i := range s.transactions {
		err := readTxRecord(r, &s.transactions[i], legacy)
		if err != nil {
			return err
		}
	}

	transferCount, err := readCount(r)
	if err != nil {
		return err
	}
	s.transfers = make([]Transfer, transferCount)
	for i := range s.transfers {
		if err := readTransfer(r, &s.transfers[i]); err != nil {
			return err
		}
	}

	if !legacy {
		depositCount, err := readCount(r)
		if err != nil {
			return err
		}
		s.deposits = make([]Deposit, depositCount)
		for i := range s.deposits {
			if err := readDeposit(r, &s.deposits[i]); err != nil {
				return err
			}
		}
	}

	return s.rebuildIndexes()
}

// rebuildIndexes reconstructs the hash, payment id and deposit output maps
// from the loaded rows and validates every cross-record reference.
func (s *Store) rebuildIndexes() error {
	for i := range s.transactions {
		tx := &s.transactions[i]
		id := TransactionID(i)

		if tx.TransferCount > 0 {
			end := uint64(tx.FirstTransfer) + uint64(tx.TransferCount)
			if end > uint64(len(s.transfers)) {
				return storeError(ErrMalformedStore,
					"transfer range out of bounds", nil)
			}
		}
		if tx.DepositCount > 0 {
			end := uint64(tx.FirstDeposit) + uint64(tx.DepositCount)
			if end > uint64(len(s.deposits)) {
				return storeError(ErrMalformedStore,
					"deposit range out of bounds", nil)
			}
		}

		s.byHash[tx.Hash] = id
		s.indexPaymentID(id, tx.Extra)
	}

	for i := range s.deposits {
		deposit := &s.deposits[i]
		creating := deposit.CreatingTransactionID
		if uint64(creating) >= uint64(len(s.transactions)) {
			return storeError(ErrMalformedStore,
				"deposit creating transaction out of bounds", nil)
		}
		spending := deposit.SpendingTransactionID
		if spending != InvalidTransactionID &&
			uint64(spending) >= uint64(len(s.transactions)) {
			return storeError(ErrMalformedStore,
				"deposit spending transaction out of bounds", nil)
		}

		s.outputToDeposit[depositOutputKey{
			hash:  s.transactions[creating].Hash,
			index: deposit.OutputInTransaction,
		}] = DepositID(i)
	}

	return nil
}

func writeTxRecord(w io.Writer, tx *TxRecord) error {
	if _, err := w.Write(tx.Hash[:]); err != nil {
		return err
	}

	var flags byte
	if tx.SecretKey != nil {
		flags |= txRecordHasSecretKey
	}
	if _, err := w.Write([]byte{flags}); err != nil {
		return err
	}
	if tx.SecretKey != nil {
		if _, err := w.Write(tx.SecretKey[:]); err != nil {
			return err
		}
	}

	if err := writeUint64(w, uint64(tx.TotalAmount)); err != nil {
		return err
	}
	if err := writeUint64(w, tx.Fee); err != nil {
		return err
	}
	if err := writeUint32(w, tx.Height); err != nil {
		return err
	}
	if err := writeUint64(w, tx.Timestamp); err != nil {
		return err
	}
	var sentTime int64
	if !tx.SentTime.IsZero() {
		sentTime = tx.SentTime.Unix()
	}
	if err := writeUint64(w, uint64(sentTime)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(tx.FirstTransfer)); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(tx.TransferCount)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(tx.FirstDeposit)); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(tx.DepositCount)); err != nil {
		return err
	}
	if err := writeUint64(w, tx.UnlockTime); err != nil {
		return err
	}
	if err := writeVarBytes(w, tx.Extra); err != nil {
		return err
	}
	if err := writeUvarint(w, uint64(len(tx.Messages))); err != nil {
		return err
	}
	for _, msg := range tx.Messages {
		if err := writeVarBytes(w, []byte(msg)); err != nil {
			return err
		}
	}
	_, err := w.Write([]byte{byte(tx.State)})
	return err
}

func readTxRecord(r io.Reader, tx *TxRecord, legacy bool) error {
	if _, err := io.ReadFull(r, tx.Hash[:]); err != nil {
		return storeError(ErrMalformedStore, "short transaction hash", err)
	}

	flags, err := readByte(r)
	if err != nil {
		return err
	}
	if flags&txRecordHasSecretKey != 0 {
		var key cncrypto.SecretKey
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return storeError(ErrMalformedStore,
				"short transaction secret key", err)
		}
		tx.SecretKey = &key
	}

	totalAmount, err := readUint64(r)
	if err != nil {
		return err
	}
	tx.TotalAmount = int64(totalAmount)
	if tx.Fee, err = readUint64(r); err != nil {
		return err
	}
	if tx.Height, err = readUint32(r); err != nil {
		return err
	}
	if tx.Timestamp, err = readUint64(r); err != nil {
		return err
	}
	sentTime, err := readUint64(r)
	if err != nil {
		return err
	}
	if sentTime != 0 {
		tx.SentTime = time.Unix(int64(sentTime), 0)
	}
	firstTransfer, err := readUint64(r)
	if err != nil {
		return err
	}
	tx.FirstTransfer = TransferID(firstTransfer)
	transferCount, err := readCount(r)
	if err != nil {
		return err
	}
	tx.TransferCount = transferCount
	if legacy {
		tx.FirstDeposit = InvalidDepositID
	} else {
		firstDeposit, err := readUint64(r)
		if err != nil {
			return err
		}
		tx.FirstDeposit = DepositID(firstDeposit)
		depositCount, err := readCount(r)
		if err != nil {
			return err
		}
		tx.DepositCount = depositCount
	}
	if tx.UnlockTime, err = readUint64(r); err != nil {
		return err
	}
	if tx.Extra, err = readVarBytes(r); err != nil {
		return err
	}
	msgCount, err := readCount(r)
	if err != nil {
		return err
	}
	if msgCount > 0 {
		tx.Messages = make([]string, msgCount)
		for i := range tx.Messages {
			msg, err := readVarBytes(r)
			if err != nil {
				return err
			}
			tx.Messages[i] = string(msg)
		}
	}
	state, err := readByte(r)
	if err != nil {
		return err
	}
	tx.State = TxState(state)

	return nil
}

func writeTransfer(w io.Writer, transfer *Transfer) error {
	if err := writeVarBytes(w, []byte(transfer.Address)); err != nil {
		return err
	}
	return writeUint64(w, uint64(transfer.Amount))
}

func readTransfer(r io.Reader, transfer *Transfer) error {
	address, err := readVarBytes(r)
	if err != nil {
		return err
	}
	transfer.Address = string(address)
	amount, err := readUint64(r)
	if err != nil {
		return err
	}
	transfer.Amount = int64(amount)
	return nil
}

func writeDeposit(w io.Writer, deposit *Deposit) error {
	if err := writeUint64(w, uint64(deposit.CreatingTransactionID)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(deposit.SpendingTransactionID)); err != nil {
		return err
	}
	if err := writeUint32(w, deposit.Term); err != nil {
		return err
	}
	if err := writeUint64(w, deposit.Amount); err != nil {
		return err
	}
	if err := writeUint64(w, deposit.Interest); err != nil {
		return err
	}
	locked := byte(0)
	if deposit.Locked {
		locked = 1
	}
	if _, err := w.Write([]byte{locked}); err != nil {
		return err
	}
	return writeUint32(w, deposit.OutputInTransaction)
}

func readDeposit(r io.Reader, deposit *Deposit) error {
	creating, err := readUint64(r)
	if err != nil {
		return err
	}
	deposit.CreatingTransactionID = TransactionID(creating)
	spending, err := readUint64(r)
	if err != nil {
		return err
	}
	deposit.SpendingTransactionID = TransactionID(spending)
	if deposit.Term, err = readUint32(r); err != nil {
		return err
	}
	if deposit.Amount, err = readUint64(r); err != nil {
		return err
	}
	if deposit.Interest, err = readUint64(r); err != nil {
		return err
	}
	locked, err := readByte(r)
	if err != nil {
		return err
	}
	deposit.Locked = locked != 0
	deposit.OutputInTransaction, err = readUint32(r)
	return err
}

func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeVarBytes(w io.Writer, b []byte) error {
	if err := writeUvarint(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, storeError(ErrMalformedStore, "short read", err)
	}
	return buf[0], nil
}

func readUvarint(r io.Reader) (uint64, error) {
	return binary.ReadUvarint(byteReaderFunc{r})
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, storeError(ErrMalformedStore, "short read", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, storeError(ErrMalformedStore, "short read", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readCount(r io.Reader) (int, error) {
	v, err := readUvarint(r)
	if err != nil {
		return 0, storeError(ErrMalformedStore, "short count", err)
	}
	if v > maxStoreRecords {
		return 0, storeError(ErrMalformedStore,
			"record count exceeds limit", nil)
	}
	return int(v), nil
}

func readVarBytes(r io.Reader) ([]byte, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, storeError(ErrMalformedStore, "short var bytes", err)
	}
	return b, nil
}

// byteReaderFunc adapts an io.Reader to io.ByteReader for varint decoding.
type byteReaderFunc struct {
	r io.Reader
}

func (b byteReaderFunc) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}
