// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cncrypto

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// Suite is the set of elliptic-curve operations the wallet consumes.  All
// operations are deterministic for fixed inputs except where noted, and
// every secret scalar accepted or returned is reduced mod the group order.
//
// The wallet never inspects the internals of these operations; it relies
// only on the contracts documented here, which lets tests substitute a
// deterministic fake.
type Suite interface {
	// GenerateSeed returns 32 bytes of cryptographically random seed
	// material.  The seed is not reduced; it is the value backing the
	// recovery words of a deterministic wallet.
	GenerateSeed() (SecretKey, error)

	// GenerateKeys returns a fresh random keypair.
	GenerateKeys() (PublicKey, SecretKey, error)

	// GenerateDeterministicKeys derives a keypair from seed: the secret is
	// the seed reduced mod the group order, the public key is its base
	// point multiple.
	GenerateDeterministicKeys(seed SecretKey) (PublicKey, SecretKey)

	// SecretKeyToPublicKey returns the base point multiple of sec.  It
	// fails if sec is not a canonical scalar.
	SecretKeyToPublicKey(sec SecretKey) (PublicKey, error)

	// ScReduce32 reduces 32 bytes mod the group order.
	ScReduce32(b SecretKey) SecretKey

	// GenerateKeyDerivation computes the shared secret 8*sec*pub used to
	// derive one-time output keys.  GenerateKeyDerivation(R, a) equals
	// GenerateKeyDerivation(A, r) when R = r*G and A = a*G.
	GenerateKeyDerivation(pub PublicKey, sec SecretKey) (KeyDerivation, error)

	// DerivePublicKey computes Hs(derivation, outputIndex)*G + base.
	DerivePublicKey(derivation KeyDerivation, outputIndex uint32, base PublicKey) (PublicKey, error)

	// DeriveSecretKey computes Hs(derivation, outputIndex) + base.  The
	// result is the one-time secret matching DerivePublicKey applied to
	// the base secret's public key.
	DeriveSecretKey(derivation KeyDerivation, outputIndex uint32, base SecretKey) SecretKey

	// GenerateKeyImage computes the key image sec*Hp(pub).  pub must be
	// the public key of sec.
	GenerateKeyImage(pub PublicKey, sec SecretKey) (KeyImage, error)

	// ScalarmultKey multiplies the group element p by the scalar s, both
	// given in their 32-byte key-image layout.
	ScalarmultKey(p KeyImage, s KeyImage) (KeyImage, error)

	// GenerateSignature produces a Schnorr signature over prefixHash by
	// sec.  Randomized: two calls over identical inputs produce distinct,
	// both valid, signatures.
	GenerateSignature(prefixHash chainhash.Hash, pub PublicKey, sec SecretKey) (Signature, error)

	// CheckSignature reports whether sig is a valid signature of
	// prefixHash by the holder of pub.
	CheckSignature(prefixHash chainhash.Hash, pub PublicKey, sig Signature) bool

	// GenerateTxProof proves that D = r*A given R = r*G, without
	// revealing r.  Used for both transaction proofs and reserve proofs.
	GenerateTxProof(prefixHash chainhash.Hash, r SecretKey, R, A, D PublicKey) (Signature, error)

	// CheckTxProof verifies a GenerateTxProof signature.
	CheckTxProof(prefixHash chainhash.Hash, R, A, D PublicKey, sig Signature) bool

	// GenerateRingSignature signs prefixHash with the secret key of
	// pubs[secIndex], hiding it among the other ring members.  image must
	// be the key image of that key.
	GenerateRingSignature(prefixHash chainhash.Hash, image KeyImage,
		pubs []PublicKey, sec SecretKey, secIndex int) ([]Signature, error)

	// CheckRingSignature verifies a ring signature over pubs.
	CheckRingSignature(prefixHash chainhash.Hash, image KeyImage,
		pubs []PublicKey, sigs []Signature) bool
}
