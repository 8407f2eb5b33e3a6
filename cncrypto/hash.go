// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cncrypto

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/sha3"
)

// FastHash computes the legacy Keccak-256 digest of data.  This is the
// "cn_fast_hash" used for transaction hashing, signature prefix hashes and
// address checksums.
func FastHash(data ...[]byte) chainhash.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out chainhash.Hash
	h.Sum(out[:0])
	return out
}

// Checksum returns the first n bytes of the Keccak-256 digest of data.
// Address encoding uses a 4-byte checksum.
func Checksum(data []byte, n int) []byte {
	h := FastHash(data)
	return h[:n]
}
