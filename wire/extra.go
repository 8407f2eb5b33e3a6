// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// Tags of the tx extra field.
const (
	extraTagPadding   = 0x00
	extraTagPublicKey = 0x01
	extraTagNonce     = 0x02
	extraTagMessage   = 0x04
	extraTagTTL       = 0x05

	// extraNoncePaymentID introduces a 32-byte payment id inside a nonce
	// field.
	extraNoncePaymentID = 0x00

	// maxExtraNonceSize bounds a single nonce field.
	maxExtraNonceSize = 255
)

// ErrExtraFieldNotFound is returned when a requested tag is absent from a
// transaction's extra bytes.
var ErrExtraFieldNotFound = errors.New("extra field not found")

// AppendTransactionPublicKeyToExtra appends the tx public key field.
func AppendTransactionPublicKeyToExtra(extra []byte, key cncrypto.PublicKey) []byte {
	extra = append(extra, extraTagPublicKey)
	return append(extra, key[:]...)
}

// AppendPaymentIDToExtra appends a nonce field carrying a payment id.
func AppendPaymentIDToExtra(extra []byte, paymentID chainhash.Hash) []byte {
	extra = append(extra, extraTagNonce, byte(1+chainhash.HashSize), extraNoncePaymentID)
	return append(extra, paymentID[:]...)
}

// AppendTTLToExtra appends the absolute expiry timestamp of a fee-free
// transaction.
func AppendTTLToExtra(extra []byte, deadline uint64) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], deadline)
	extra = append(extra, extraTagTTL, byte(n))
	return append(extra, buf[:n]...)
}

// TTLFromExtra extracts the expiry timestamp of a fee-free transaction.
func TTLFromExtra(extra []byte) (uint64, error) {
	var deadline uint64
	err := ErrExtraFieldNotFound
	parseExtra(extra, func(tag byte, data []byte) bool {
		if tag != extraTagTTL {
			return true
		}
		v, n := binary.Uvarint(data)
		if n <= 0 {
			return true
		}
		deadline = v
		err = nil
		return false
	})
	return deadline, err
}

// AppendMessageToExtra appends a plaintext message field.
func AppendMessageToExtra(extra []byte, message []byte) []byte {
	if len(message) > maxExtraNonceSize {
		message = message[:maxExtraNonceSize]
	}
	extra = append(extra, extraTagMessage, byte(len(message)))
	return append(extra, message...)
}

// parseExtra walks the extra bytes and invokes visit for every field.
// Unknown tags terminate the walk; padding is skipped.
func parseExtra(extra []byte, visit func(tag byte, data []byte) bool) {
	r := bytes.NewReader(extra)
	for {
		tag, err := r.ReadByte()
		if err != nil {
			return
		}
		switch tag {
		case extraTagPadding:
			continue
		case extraTagPublicKey:
			data := make([]byte, cncrypto.PublicKeySize)
			if _, err := r.Read(data); err != nil {
				return
			}
			if !visit(tag, data) {
				return
			}
		case extraTagNonce, extraTagMessage, extraTagTTL:
			size, err := r.ReadByte()
			if err != nil {
				return
			}
			data := make([]byte, size)
			if n, _ := r.Read(data); n != int(size) {
				return
			}
			if !visit(tag, data) {
				return
			}
		default:
			return
		}
	}
}

// TransactionPublicKeyFromExtra extracts the tx public key field.
func TransactionPublicKeyFromExtra(extra []byte) (cncrypto.PublicKey, error) {
	var key cncrypto.PublicKey
	err := ErrExtraFieldNotFound
	parseExtra(extra, func(tag byte, data []byte) bool {
		if tag != extraTagPublicKey {
			return true
		}
		copy(key[:], data)
		err = nil
		return false
	})
	return key, err
}

// PaymentIDFromExtra extracts a payment id nonce field.
func PaymentIDFromExtra(extra []byte) (chainhash.Hash, error) {
	var id chainhash.Hash
	err := ErrExtraFieldNotFound
	parseExtra(extra, func(tag byte, data []byte) bool {
		if tag != extraTagNonce {
			return true
		}
		if len(data) != 1+chainhash.HashSize || data[0] != extraNoncePaymentID {
			return true
		}
		copy(id[:], data[1:])
		err = nil
		return false
	})
	return id, err
}

// MessagesFromExtra extracts every plaintext message field, in order.
func MessagesFromExtra(extra []byte) []string {
	var messages []string
	parseExtra(extra, func(tag byte, data []byte) bool {
		if tag == extraTagMessage {
			messages = append(messages, string(data))
		}
		return true
	})
	return messages
}
