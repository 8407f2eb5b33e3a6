// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cncrypto

import (
	"encoding/hex"
	"fmt"
)

// Sizes of the fixed-length types handled by this package.
const (
	PublicKeySize     = 32
	SecretKeySize     = 32
	KeyImageSize      = 32
	KeyDerivationSize = 32
	SignatureSize     = 64
)

// PublicKey is a compressed ed25519 group element used as a wallet or
// one-time output key.
type PublicKey [PublicKeySize]byte

// SecretKey is an ed25519 scalar.  Secret keys handled by the wallet are
// always reduced mod the group order.
type SecretKey [SecretKeySize]byte

// KeyImage is the group element published when an output is spent.  Two
// transactions spending the same output produce the same key image.
type KeyImage [KeyImageSize]byte

// KeyDerivation is the shared-secret group element computed from a
// transaction public key and a view secret key.
type KeyDerivation [KeyDerivationSize]byte

// Signature is a Schnorr-style signature: the challenge scalar followed by
// the response scalar, 32 bytes each.
type Signature [SignatureSize]byte

// Null sentinels.  A tracking wallet stores NullSecretKey as its spend
// secret, and transactions without a recorded secret key expose
// NullSecretKey from the cache.
var (
	NullPublicKey PublicKey
	NullSecretKey SecretKey
)

// String returns the hexadecimal encoding of the public key.
func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }

// String returns the hexadecimal encoding of the key image.
func (k KeyImage) String() string { return hex.EncodeToString(k[:]) }

// IsNull reports whether the secret key is the all-zero sentinel.
func (k SecretKey) IsNull() bool { return k == NullSecretKey }

// ParsePublicKey decodes a hexadecimal public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, err
	}
	if len(b) != PublicKeySize {
		return k, fmt.Errorf("malformed public key: want %d bytes, got %d",
			PublicKeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// All four 32-byte types share the same layout, a little-endian compressed
// group element or scalar, and the protocol occasionally treats one as
// another.  The conversions below make each such aliasing an explicit,
// named operation.

// PublicKeyAsKeyImage reinterprets a public key as a key image.
func PublicKeyAsKeyImage(k PublicKey) KeyImage { return KeyImage(k) }

// KeyImageAsPublicKey reinterprets a key image as a public key.
func KeyImageAsPublicKey(k KeyImage) PublicKey { return PublicKey(k) }

// SecretKeyAsKeyImage reinterprets a secret scalar as a key image operand
// for ScalarmultKey.
func SecretKeyAsKeyImage(k SecretKey) KeyImage { return KeyImage(k) }

// DerivationAsPublicKey reinterprets a key derivation as a public key.
func DerivationAsPublicKey(d KeyDerivation) PublicKey { return PublicKey(d) }
