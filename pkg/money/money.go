// Package money holds the currency arithmetic shared by pricing and reporting.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half-up to two decimal places. Amounts are never negative, so
// decimal's half-away-from-zero rounding is half-up here.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// IsCents reports whether amount has no precision beyond two decimal places.
func IsCents(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}

// Percent returns round2(amount * pct / 100).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(hundred))
}

// LineSubtotal returns quantity * unitPrice.
func LineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Sum adds up the given amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}
