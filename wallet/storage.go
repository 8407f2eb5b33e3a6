// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cnsuite/cnwallet/snacl"
	"github.com/cnsuite/cnwallet/transfers"
	"github.com/cnsuite/cnwallet/wtxmgr"
)

// walletFileVersion tags the outer wallet stream.  The transaction ledger
// carries its own version inside the sealed payload.
const walletFileVersion = 1

// Payload section flags.
const (
	payloadHasDetails byte = 1 << iota
	payloadHasCache
)

// maxSealedPayload bounds the sealed payload length read from the stream.
const maxSealedPayload = 1 << 30

// serializeWallet produces the encrypted wallet stream: version, key
// derivation parameters and a sealed payload holding the account, the
// ledger (when detailed) and the scan cache (when provided).
func serializeWallet(account *Account, store *wtxmgr.Store, cacheBlob,
	password []byte, detailed bool) ([]byte, error) {

	var payload bytes.Buffer

	var flags byte
	if detailed {
		flags |= payloadHasDetails
	}
	if len(cacheBlob) > 0 {
		flags |= payloadHasCache
	}
	payload.WriteByte(flags)

	payload.Write(account.Keys.SpendPublicKey[:])
	payload.Write(account.Keys.ViewPublicKey[:])
	payload.Write(account.Keys.SpendSecretKey[:])
	payload.Write(account.Keys.ViewSecretKey[:])
	writeStorageUint64(&payload, uint64(account.CreationTime.Unix()))

	if detailed {
		var ledger bytes.Buffer
		if err := store.Serialize(&ledger); err != nil {
			return nil, walletError(ErrInternal,
				"ledger serialization failed", err)
		}
		writeStorageBytes(&payload, ledger.Bytes())
	}
	if len(cacheBlob) > 0 {
		writeStorageBytes(&payload, cacheBlob)
	}

	key, err := snacl.NewSecretKey(&password, snacl.DefaultN,
		snacl.DefaultR, snacl.DefaultP)
	if err != nil {
		return nil, walletError(ErrInternal, "key derivation failed", err)
	}
	defer key.Zero()

	sealed, err := key.Encrypt(payload.Bytes())
	if err != nil {
		return nil, walletError(ErrInternal, "payload sealing failed", err)
	}

	var out bytes.Buffer
	writeStorageUvarint(&out, walletFileVersion)
	out.Write(key.Marshal())
	writeStorageBytes(&out, sealed)
	return out.Bytes(), nil
}

// deserializeWallet decrypts a wallet stream and loads the ledger into
// store.  It returns the account and the scan cache blob, if any.
func deserializeWallet(r io.Reader, password []byte,
	store *wtxmgr.Store) (*Account, []byte, error) {

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, walletError(ErrInternal,
			"wallet stream read failed", err)
	}
	stream := bytes.NewReader(raw)

	version, err := binary.ReadUvarint(stream)
	if err != nil {
		return nil, nil, walletError(ErrInternal,
			"malformed wallet stream", err)
	}
	if version != walletFileVersion {
		return nil, nil, walletError(ErrInternal,
			"unsupported wallet stream version", nil)
	}

	marshalled := make([]byte, snacl.MarshalledParamsSize)
	if _, err := io.ReadFull(stream, marshalled); err != nil {
		return nil, nil, walletError(ErrInternal,
			"malformed wallet stream", err)
	}
	var key snacl.SecretKey
	if err := key.Unmarshal(marshalled); err != nil {
		return nil, nil, walletError(ErrInternal,
			"malformed key parameters", err)
	}
	defer key.Zero()

	sealed, err := readStorageBytes(stream)
	if err != nil {
		return nil, nil, err
	}
	if err := key.DeriveKey(&password); err != nil {
		if err == snacl.ErrInvalidPassword {
			return nil, nil, walletError(ErrWrongPassword,
				"wrong wallet password", nil)
		}
		return nil, nil, walletError(ErrInternal,
			"key derivation failed", err)
	}
	payload, err := key.Decrypt(sealed)
	if err != nil {
		return nil, nil, walletError(ErrWrongPassword,
			"wallet payload does not decrypt", err)
	}

	return parsePayload(payload, store)
}

// parsePayload decodes the decrypted payload sections.
func parsePayload(payload []byte, store *wtxmgr.Store) (*Account, []byte, error) {
	r := bytes.NewReader(payload)

	flags, err := r.ReadByte()
	if err != nil {
		return nil, nil, walletError(ErrInternal,
			"malformed wallet payload", err)
	}

	var keys transfers.AccountKeys
	for _, field := range [][]byte{
		keys.SpendPublicKey[:], keys.ViewPublicKey[:],
		keys.SpendSecretKey[:], keys.ViewSecretKey[:],
	} {
		if _, err := io.ReadFull(r, field); err != nil {
			return nil, nil, walletError(ErrInternal,
				"malformed wallet payload", err)
		}
	}
	creation, err := readStorageUint64(r)
	if err != nil {
		return nil, nil, err
	}
	account := &Account{
		Keys:         keys,
		CreationTime: time.Unix(int64(creation), 0),
	}

	store.Reset()
	if flags&payloadHasDetails != 0 {
		ledger, err := readStorageBytes(r)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Deserialize(bytes.NewReader(ledger)); err != nil {
			return nil, nil, walletError(ErrInternal,
				"ledger deserialization failed", err)
		}
	}

	var cacheBlob []byte
	if flags&payloadHasCache != 0 {
		if cacheBlob, err = readStorageBytes(r); err != nil {
			return nil, nil, err
		}
	}
	return account, cacheBlob, nil
}

func writeStorageUvarint(w *bytes.Buffer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	w.Write(buf[:n])
}

func writeStorageUint64(w *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func writeStorageBytes(w *bytes.Buffer, b []byte) {
	writeStorageUvarint(w, uint64(len(b)))
	w.Write(b)
}

func readStorageUint64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, walletError(ErrInternal, "malformed wallet payload", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readStorageBytes(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil || n > maxSealedPayload {
		return nil, walletError(ErrInternal,
			"malformed wallet payload", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, walletError(ErrInternal,
			"malformed wallet payload", err)
	}
	return b, nil
}
