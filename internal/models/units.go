package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// WeiDecimals is the fixed-point scale of every amount crossing a ledger boundary.
const WeiDecimals = 18

// ToWei converts whole currency units (possibly fractional, e.g. "12.5") to integer wei.
func ToWei(units decimal.Decimal) decimal.Decimal {
	return units.Shift(WeiDecimals).Truncate(0)
}

// FromWei converts integer wei to currency units.
func FromWei(wei decimal.Decimal) decimal.Decimal {
	return wei.Shift(-WeiDecimals)
}

// ParseUnits parses a human amount such as "250" or "0.75" into wei.
func ParseUnits(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return ToWei(d), nil
}

// FormatUnits renders wei as currency units with the given number of places.
func FormatUnits(wei decimal.Decimal, places int32) string {
	return FromWei(wei).StringFixed(places)
}

// MulBps returns floor(amount * bps / 10000) on integer wei.
func MulBps(amount decimal.Decimal, bps int64) decimal.Decimal {
	q, _ := amount.Mul(decimal.NewFromInt(bps)).QuoRem(decimal.NewFromInt(10000), 0)
	return q
}
