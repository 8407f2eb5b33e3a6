// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cnutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount uint64
		want   string
	}{
		{0, "0.00000000"},
		{1, "0.00000001"},
		{100000000, "1.00000000"},
		{123456789012, "1234.56789012"},
		{599000, "0.00599000"},
	}
	for _, test := range tests {
		require.Equal(t, test.want, FormatAmount(test.amount))
	}

	require.Equal(t, "-1.00000000", FormatSignedAmount(-100000000))
	require.Equal(t, "0.00000000", FormatSignedAmount(0))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "1", want: 100000000},
		{in: "1.0", want: 100000000},
		{in: " 12.34500000 ", want: 1234500000},
		{in: "0.00000001", want: 1},
		{in: "0.000000010", want: 1},          // trailing zero past precision
		{in: "0.000000011", wantErr: true},    // excess precision, not rounded
		{in: ".5", want: 50000000},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "12a.4", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "999999999999999999999", wantErr: true}, // overflows uint64
	}

	for _, test := range tests {
		got, err := ParseAmount(test.in)
		if test.wantErr {
			require.Error(t, err, "input %q", test.in)
			continue
		}
		require.NoError(t, err, "input %q", test.in)
		require.Equal(t, test.want, got, "input %q", test.in)
	}
}

func TestAmountRoundTrip(t *testing.T) {
	for _, amount := range []uint64{0, 1, 999, 100000000, 18446744000000000} {
		back, err := ParseAmount(FormatAmount(amount))
		require.NoError(t, err)
		require.Equal(t, amount, back)
	}
}
