// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletseed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMnemonicRoundTrip(t *testing.T) {
	var seed [SeedSize]byte
	for i := range seed {
		seed[i] = byte(i * 7)
	}

	mnemonic := EncodeMnemonic(&seed)
	require.Len(t, strings.Fields(mnemonic), mnemonicWords)

	decoded, err := DecodeMnemonic(mnemonic)
	require.NoError(t, err)
	require.Equal(t, seed, *decoded)

	// Case must not matter.
	decoded, err = DecodeMnemonic(strings.ToUpper(mnemonic))
	require.NoError(t, err)
	require.Equal(t, seed, *decoded)
}

func TestDecodeMnemonicErrors(t *testing.T) {
	var seed [SeedSize]byte
	mnemonic := EncodeMnemonic(&seed)
	words := strings.Fields(mnemonic)

	_, err := DecodeMnemonic(strings.Join(words[:SeedSize], " "))
	require.ErrorIs(t, err, ErrMalformedMnemonic)

	bad := append([]string(nil), words...)
	bad[0] = "notaword"
	_, err = DecodeMnemonic(strings.Join(bad, " "))
	require.ErrorIs(t, err, ErrMalformedMnemonic)

	// Swapping two adjacent words moves both to the wrong sublist.
	swapped := append([]string(nil), words...)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = DecodeMnemonic(strings.Join(swapped, " "))
	require.ErrorIs(t, err, ErrMalformedMnemonic)

	// Corrupting a seed word breaks the checksum.
	corrupt := append([]string(nil), words...)
	corrupt[2] = wordList[wordIndexes[corrupt[2]]+2]
	_, err = DecodeMnemonic(strings.Join(corrupt, " "))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}
