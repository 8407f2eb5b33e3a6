// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/cnsuite/cnwallet/cncrypto"
)

func testTransaction() *Transaction {
	var image cncrypto.KeyImage
	image[0] = 0xaa
	var outKey cncrypto.PublicKey
	outKey[0] = 0xbb
	var depositKey cncrypto.PublicKey
	depositKey[0] = 0xcc
	var sig cncrypto.Signature
	sig[0] = 0xdd

	extra := AppendTransactionPublicKeyToExtra(nil, outKey)
	var paymentID chainhash.Hash
	paymentID[31] = 0x01
	extra = AppendPaymentIDToExtra(extra, paymentID)
	extra = AppendMessageToExtra(extra, []byte("invoice 42"))

	return &Transaction{
		Version:    TxVersion,
		UnlockTime: 77,
		Inputs: []TxInput{
			KeyInput{
				Amount:        400000,
				OutputOffsets: []uint32{5, 2, 9},
				KeyImage:      image,
			},
			DepositInput{
				Amount:      600000,
				Term:        21600,
				OutputIndex: 3,
			},
		},
		Outputs: []TxOutput{
			{Amount: 400000, Target: KeyOutput{Key: outKey}},
			{
				Amount: 500000,
				Target: DepositOutput{
					Keys:               []cncrypto.PublicKey{depositKey},
					RequiredSignatures: 1,
					Term:               21600,
				},
			},
		},
		Extra: extra,
		Signatures: [][]cncrypto.Signature{
			{sig, sig, sig},
			{sig},
		},
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	tx := testTransaction()

	decoded, err := DeserializeTransaction(tx.Serialize())
	require.NoError(t, err)
	require.Equal(t, tx, decoded)
	require.Equal(t, tx.TxHash(), decoded.TxHash())
}

func TestTransactionHashStability(t *testing.T) {
	tx := testTransaction()
	h1 := tx.TxHash()
	h2 := tx.TxHash()
	require.Equal(t, h1, h2)

	// Prefix hash excludes signatures.
	prefix := tx.PrefixHash()
	tx.Signatures[0][0][5] ^= 0xff
	require.Equal(t, prefix, tx.PrefixHash())
	require.NotEqual(t, h1, tx.TxHash())
}

func TestDeserializeGarbage(t *testing.T) {
	_, err := DeserializeTransaction(nil)
	require.ErrorIs(t, err, ErrMalformedTransaction)

	tx := testTransaction()
	raw := tx.Serialize()
	_, err = DeserializeTransaction(raw[:len(raw)-7])
	require.ErrorIs(t, err, ErrMalformedTransaction)

	_, err = DeserializeTransaction(append(raw, 0x00))
	require.ErrorIs(t, err, ErrMalformedTransaction)
}

func TestExtraFields(t *testing.T) {
	tx := testTransaction()

	key, err := TransactionPublicKeyFromExtra(tx.Extra)
	require.NoError(t, err)
	require.Equal(t, byte(0xbb), key[0])

	id, err := PaymentIDFromExtra(tx.Extra)
	require.NoError(t, err)
	require.Equal(t, byte(0x01), id[31])

	require.Equal(t, []string{"invoice 42"}, MessagesFromExtra(tx.Extra))

	_, err = TransactionPublicKeyFromExtra(nil)
	require.ErrorIs(t, err, ErrExtraFieldNotFound)
}
