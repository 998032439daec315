package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits stored for every amount.
const MoneyScale = 2

// RoundMoney rounds half away from zero to MoneyScale digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ParseAmount parses a currency amount and rejects values with more
// precision than MoneyScale.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if !d.Equal(RoundMoney(d)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d decimal places", s, MoneyScale)
	}
	return d, nil
}

// FormatMoney renders an amount with exactly MoneyScale digits ("70.00").
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}
