// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cncrypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministicKeys(t *testing.T) {
	suite := NewSuite()

	seed, err := suite.GenerateSeed()
	require.NoError(t, err)

	pub1, sec1 := suite.GenerateDeterministicKeys(seed)
	pub2, sec2 := suite.GenerateDeterministicKeys(seed)
	require.Equal(t, pub1, pub2)
	require.Equal(t, sec1, sec2)

	back, err := suite.SecretKeyToPublicKey(sec1)
	require.NoError(t, err)
	require.Equal(t, pub1, back)
}

func TestDerivationSymmetry(t *testing.T) {
	suite := NewSuite()

	// Sender side: tx keypair (R, r).  Receiver side: view keypair (A, a).
	txPub, txSec, err := suite.GenerateKeys()
	require.NoError(t, err)
	viewPub, viewSec, err := suite.GenerateKeys()
	require.NoError(t, err)

	sender, err := suite.GenerateKeyDerivation(viewPub, txSec)
	require.NoError(t, err)
	receiver, err := suite.GenerateKeyDerivation(txPub, viewSec)
	require.NoError(t, err)
	require.Equal(t, sender, receiver)
}

func TestOneTimeKeys(t *testing.T) {
	suite := NewSuite()

	txPub, txSec, err := suite.GenerateKeys()
	require.NoError(t, err)
	spendPub, spendSec, err := suite.GenerateKeys()
	require.NoError(t, err)

	derivation, err := suite.GenerateKeyDerivation(txPub, spendSec)
	require.NoError(t, err)
	_ = txSec

	const outputIndex = 3
	oneTimePub, err := suite.DerivePublicKey(derivation, outputIndex, spendPub)
	require.NoError(t, err)
	oneTimeSec := suite.DeriveSecretKey(derivation, outputIndex, spendSec)

	back, err := suite.SecretKeyToPublicKey(oneTimeSec)
	require.NoError(t, err)
	require.Equal(t, oneTimePub, back)

	// A different output index yields a different one-time key.
	otherPub, err := suite.DerivePublicKey(derivation, outputIndex+1, spendPub)
	require.NoError(t, err)
	require.NotEqual(t, oneTimePub, otherPub)
}

func TestSignature(t *testing.T) {
	suite := NewSuite()

	pub, sec, err := suite.GenerateKeys()
	require.NoError(t, err)
	prefix := FastHash([]byte("spend proof prefix"))

	sig, err := suite.GenerateSignature(prefix, pub, sec)
	require.NoError(t, err)
	require.True(t, suite.CheckSignature(prefix, pub, sig))

	// Tampered message and tampered signature must both fail.
	require.False(t, suite.CheckSignature(FastHash([]byte("other")), pub, sig))
	sig[40] ^= 0x01
	require.False(t, suite.CheckSignature(prefix, pub, sig))
}

func TestTxProof(t *testing.T) {
	suite := NewSuite()

	txPub, txSec, err := suite.GenerateKeys()
	require.NoError(t, err)
	viewPub, _, err := suite.GenerateKeys()
	require.NoError(t, err)

	derivation, err := suite.GenerateKeyDerivation(viewPub, txSec)
	require.NoError(t, err)
	shared := DerivationAsPublicKey(derivation)

	prefix := FastHash([]byte("tx proof prefix"))
	sig, err := suite.GenerateTxProof(prefix, txSec, txPub, viewPub, shared)
	require.NoError(t, err)
	require.True(t, suite.CheckTxProof(prefix, txPub, viewPub, shared, sig))

	// Proof must not verify against an unrelated recipient.
	otherPub, _, err := suite.GenerateKeys()
	require.NoError(t, err)
	require.False(t, suite.CheckTxProof(prefix, txPub, otherPub, shared, sig))
}

func TestRingSignature(t *testing.T) {
	suite := NewSuite()

	const ringSize = 4
	const secIndex = 2

	pubs := make([]PublicKey, ringSize)
	var sec SecretKey
	for i := range pubs {
		p, s, err := suite.GenerateKeys()
		require.NoError(t, err)
		pubs[i] = p
		if i == secIndex {
			sec = s
		}
	}

	image, err := suite.GenerateKeyImage(pubs[secIndex], sec)
	require.NoError(t, err)

	prefix := FastHash([]byte("ring prefix"))
	sigs, err := suite.GenerateRingSignature(prefix, image, pubs, sec, secIndex)
	require.NoError(t, err)
	require.True(t, suite.CheckRingSignature(prefix, image, pubs, sigs))

	// A wrong key image invalidates the ring.
	otherImage, err := suite.GenerateKeyImage(pubs[0], sec)
	require.NoError(t, err)
	require.False(t, suite.CheckRingSignature(prefix, otherImage, pubs, sigs))
}

func TestKeyImageDeterminism(t *testing.T) {
	suite := NewSuite()

	pub, sec, err := suite.GenerateKeys()
	require.NoError(t, err)

	i1, err := suite.GenerateKeyImage(pub, sec)
	require.NoError(t, err)
	i2, err := suite.GenerateKeyImage(pub, sec)
	require.NoError(t, err)
	require.Equal(t, i1, i2)
}

func TestPodConversions(t *testing.T) {
	suite := NewSuite()

	pub, sec, err := suite.GenerateKeys()
	require.NoError(t, err)

	// The named conversions are byte-layout preserving.
	pubImage := PublicKeyAsKeyImage(pub)
	require.Equal(t, pub[:], pubImage[:])
	secImage := SecretKeyAsKeyImage(sec)
	require.Equal(t, sec[:], secImage[:])
	require.Equal(t, pub, KeyImageAsPublicKey(PublicKeyAsKeyImage(pub)))

	// ScalarmultKey over the aliased layouts matches SecretKeyToPublicKey
	// composed with the shared-secret use in the original proof code.
	base, _, err := suite.GenerateKeys()
	require.NoError(t, err)
	out, err := suite.ScalarmultKey(PublicKeyAsKeyImage(base), SecretKeyAsKeyImage(sec))
	require.NoError(t, err)
	require.NotEqual(t, KeyImage{}, out)
}
