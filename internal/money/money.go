// Package money converts between pgtype.Numeric columns and decimal values.
// All amounts are kept at two decimal places.
package money

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const places = 2

// FromNumeric returns zero for NULL or unreadable values.
func FromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(places))
	return n
}

// Round rounds half away from zero to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(places)
}

// IsCents reports whether d has no precision beyond two decimal places.
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(places))
}

func String(n pgtype.Numeric) string {
	return FromNumeric(n).StringFixed(places)
}

// Parse accepts a decimal string such as "12.99".
func Parse(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
