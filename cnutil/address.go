// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cnutil

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/cnsuite/cnwallet/cncrypto"
)

// addressChecksumSize is the number of Keccak-256 digest bytes appended to
// an encoded address.
const addressChecksumSize = 4

var (
	// ErrMalformedAddress describes an address string that does not
	// decode to prefix || spend key || view key || checksum.
	ErrMalformedAddress = errors.New("malformed address")

	// ErrChecksumMismatch describes an address whose embedded checksum
	// does not match the decoded payload.
	ErrChecksumMismatch = errors.New("address checksum mismatch")

	// ErrWrongAddressPrefix describes an address encoded for a different
	// network.
	ErrWrongAddressPrefix = errors.New("wrong address prefix")
)

// Address is a public account address: the pair of spend and view public
// keys under a network prefix.
type Address struct {
	Prefix   uint64
	SpendKey cncrypto.PublicKey
	ViewKey  cncrypto.PublicKey
}

// NewAddress returns the address of the given public keys under prefix.
func NewAddress(prefix uint64, spendKey, viewKey cncrypto.PublicKey) Address {
	return Address{Prefix: prefix, SpendKey: spendKey, ViewKey: viewKey}
}

// String encodes the address as base58 over
// uvarint(prefix) || spendKey || viewKey || keccak4 checksum.
func (a Address) String() string {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], a.Prefix)

	payload := make([]byte, 0, n+2*cncrypto.PublicKeySize+addressChecksumSize)
	payload = append(payload, prefix[:n]...)
	payload = append(payload, a.SpendKey[:]...)
	payload = append(payload, a.ViewKey[:]...)
	payload = append(payload, cncrypto.Checksum(payload, addressChecksumSize)...)
	return base58.Encode(payload)
}

// DecodeAddress parses an encoded account address and verifies its
// checksum and network prefix.
func DecodeAddress(addr string, expectPrefix uint64) (Address, error) {
	var a Address

	payload := base58.Decode(addr)
	if len(payload) <= addressChecksumSize {
		return a, ErrMalformedAddress
	}

	body := payload[:len(payload)-addressChecksumSize]
	checksum := payload[len(payload)-addressChecksumSize:]
	if !bytes.Equal(checksum, cncrypto.Checksum(body, addressChecksumSize)) {
		return a, ErrChecksumMismatch
	}

	r := bytes.NewReader(body)
	prefix, err := binary.ReadUvarint(r)
	if err != nil {
		return a, ErrMalformedAddress
	}
	if r.Len() != 2*cncrypto.PublicKeySize {
		return a, ErrMalformedAddress
	}
	a.Prefix = prefix
	r.Read(a.SpendKey[:])
	r.Read(a.ViewKey[:])

	if prefix != expectPrefix {
		return a, ErrWrongAddressPrefix
	}
	return a, nil
}
