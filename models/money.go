package models

import "github.com/shopspring/decimal"

// FormatCents renders an amount in cents as a dollar string, e.g. "$19.99".
func FormatCents(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

// DollarsToCents converts a whole-dollar amount to cents.
func DollarsToCents(dollars int64) int64 {
	return decimal.NewFromInt(dollars).Shift(2).IntPart()
}
