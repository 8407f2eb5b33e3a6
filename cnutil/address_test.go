// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cnutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cnsuite/cnwallet/cncrypto"
)

const testPrefix = 0xf0ec6

func testAddress(t *testing.T) Address {
	t.Helper()
	suite := cncrypto.NewSuite()
	spendPub, _, err := suite.GenerateKeys()
	require.NoError(t, err)
	viewPub, _, err := suite.GenerateKeys()
	require.NoError(t, err)
	return NewAddress(testPrefix, spendPub, viewPub)
}

func TestAddressRoundTrip(t *testing.T) {
	addr := testAddress(t)

	decoded, err := DecodeAddress(addr.String(), testPrefix)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)
}

func TestAddressWrongPrefix(t *testing.T) {
	addr := testAddress(t)

	_, err := DecodeAddress(addr.String(), testPrefix+1)
	require.ErrorIs(t, err, ErrWrongAddressPrefix)
}

func TestAddressCorruption(t *testing.T) {
	addr := testAddress(t)
	encoded := addr.String()

	// Flip one character somewhere in the key material.
	corrupt := []byte(encoded)
	mid := len(corrupt) / 2
	if corrupt[mid] == '2' {
		corrupt[mid] = '3'
	} else {
		corrupt[mid] = '2'
	}

	_, err := DecodeAddress(string(corrupt), testPrefix)
	require.Error(t, err)
}

func TestDecodeAddressGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "0OIl"} {
		_, err := DecodeAddress(in, testPrefix)
		require.Error(t, err, "input %q", in)
	}
}
