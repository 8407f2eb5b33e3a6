// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculateInterest(t *testing.T) {
	p := &MainNetParams

	tests := []struct {
		name   string
		amount uint64
		term   uint32
		want   uint64
	}{
		// amount * term * 3 / (100 * maxTerm)
		{
			name:   "minimum term",
			amount: 5000 * 1e8,
			term:   p.DepositMinTerm,
			want:   5000 * 1e8 * 3 / (100 * 12),
		},
		{
			name:   "maximum term returns 3%",
			amount: 5000 * 1e8,
			term:   p.DepositMaxTerm,
			want:   5000 * 1e8 * 3 / 100,
		},
		{
			name:   "large principal exercises the 128-bit path",
			amount: 18446744000000000, // close to the money supply
			term:   p.DepositMaxTerm,
			want:   553402320000000,
		},
		{
			name:   "tiny principal truncates toward zero",
			amount: 1,
			term:   p.DepositMinTerm,
			want:   0,
		},
	}

	for _, test := range tests {
		got, err := p.CalculateInterest(test.amount, test.term)
		require.NoError(t, err, test.name)
		require.Equal(t, test.want, got, test.name)
	}
}

func TestCalculateInterestTermBounds(t *testing.T) {
	p := &MainNetParams

	_, err := p.CalculateInterest(p.DepositMinAmount, p.DepositMinTerm-1)
	require.ErrorIs(t, err, ErrTermOutOfRange)

	_, err = p.CalculateInterest(p.DepositMinAmount, p.DepositMaxTerm+1)
	require.ErrorIs(t, err, ErrTermOutOfRange)
}
