package model

import (
	"github.com/shopspring/decimal"
)

// DefaultCurrency and DefaultDeliveryFee match the storefront's display defaults.
const (
	DefaultCurrency    = "$"
	DefaultDeliveryFee = 10
)

// ToCents converts a major-unit amount (e.g. 99.50) to minor units (9950).
// Rounds half away from zero at the cent.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents converts minor units back to a major-unit decimal.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount for display with the currency symbol prefixed.
// Examples: ("$", 99.5) → "$99.50", ("€", 0) → "€0.00"
func FormatAmount(currency string, d decimal.Decimal) string {
	return currency + d.StringFixed(2)
}
