// Copyright (c) 2015-2016 The cnsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package cnutil provides convenience types shared by the wallet and its
// tools: fixed-point amount formatting and account address encoding.
package cnutil

import (
	"errors"
	"strconv"
	"strings"
)

// AmountDecimalPoint is the number of decimal places in a displayed
// amount.  One coin is 10^AmountDecimalPoint base units.
const AmountDecimalPoint = 8

// ErrInvalidAmount describes a string that cannot be parsed as a
// fixed-point amount.
var ErrInvalidAmount = errors.New("invalid amount")

// FormatAmount renders a base-unit amount with a fixed number of decimal
// places, e.g. 1250000 -> "0.01250000".
func FormatAmount(amount uint64) string {
	s := strconv.FormatUint(amount, 10)
	if len(s) < AmountDecimalPoint+1 {
		s = strings.Repeat("0", AmountDecimalPoint+1-len(s)) + s
	}
	return s[:len(s)-AmountDecimalPoint] + "." + s[len(s)-AmountDecimalPoint:]
}

// FormatSignedAmount renders a signed base-unit amount.  Transfer amounts
// are negative when leaving the wallet.
func FormatSignedAmount(amount int64) string {
	if amount < 0 {
		return "-" + FormatAmount(uint64(-amount))
	}
	return FormatAmount(uint64(amount))
}

// ParseAmount parses a decimal coin amount into base units.  Trailing
// zeros beyond the display precision are tolerated; any other excess
// fraction digits are rejected rather than rounded.
func ParseAmount(str string) (uint64, error) {
	s := strings.TrimSpace(str)

	fraction := 0
	if point := strings.IndexByte(s, '.'); point != -1 {
		fraction = len(s) - point - 1
		for fraction > AmountDecimalPoint && strings.HasSuffix(s, "0") {
			s = s[:len(s)-1]
			fraction--
		}
		if fraction > AmountDecimalPoint {
			return 0, ErrInvalidAmount
		}
		s = s[:point] + s[point+1:]
	}

	if s == "" {
		return 0, ErrInvalidAmount
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidAmount
		}
	}

	s += strings.Repeat("0", AmountDecimalPoint-fraction)
	amount, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
