// Package core holds the ledger domain types and amount handling.
//
// Amounts enter the system as arbitrary-precision decimals and are
// normalized to signed minor units (cents) before they reach a store.
package core

import (
	"github.com/shopspring/decimal"
)

// maxSafeCents bounds decimal-to-cents conversion so the int64 extraction
// below cannot silently wrap.
var maxSafeCents = decimal.New(1<<62, 0)

// CentsFromDecimal converts a decimal amount to cents, rounding half away
// from zero on the third decimal place. Zero and out-of-range amounts are
// rejected, never coerced.
//
// Examples:
//
//	CentsFromDecimal(12.34)  -> 1234
//	CentsFromDecimal(12.345) -> 1235
//	CentsFromDecimal(-0.5)   -> -50
func CentsFromDecimal(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(decimal.New(100, 0)).Round(0)
	if scaled.IsZero() {
		return 0, &ValidationError{Field: "amount", Reason: "must be non-zero"}
	}
	if scaled.Abs().GreaterThanOrEqual(maxSafeCents) {
		return 0, &ValidationError{Field: "amount", Reason: "out of range"}
	}
	return scaled.IntPart(), nil
}

// DecimalFromCents is the inverse conversion, used when rows leave the
// engine over the wire or into a sheet.
func DecimalFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ParseAmount parses a decimal string into cents. Anything the decimal
// parser rejects (including NaN and infinities) surfaces as a
// ValidationError.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Reason: "not a decimal number"}
	}
	return CentsFromDecimal(d)
}
