// Package money converts between decimal major-unit amounts used at the API boundary
// and the integer minor units stored in the ledger.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of minor-unit digits for supported currencies (EGP piastres).
const MinorDigits = 2

// ErrNotRepresentable is returned when an amount has more precision than a minor unit.
var ErrNotRepresentable = errors.New("amount is not representable in minor units")

var minorFactor = decimal.New(1, MinorDigits)

// ToMinor converts a major-unit decimal such as 100.50 into minor units (10050).
func ToMinor(major decimal.Decimal) (int64, error) {
	minor := major.Mul(minorFactor)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%s: %w", major.String(), ErrNotRepresentable)
	}
	if !minor.BigInt().IsInt64() {
		return 0, fmt.Errorf("%s: amount out of range", major.String())
	}
	return minor.IntPart(), nil
}

// ParseMinor parses a decimal string in major units into minor units.
func ParseMinor(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return ToMinor(d)
}

// ToMajor converts minor units back into a major-unit decimal.
func ToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorDigits)
}

// Format renders minor units as a fixed-point major amount followed by the currency code.
func Format(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", ToMajor(minor).StringFixed(MinorDigits), currency)
}
