package service

import "github.com/shopspring/decimal"

// TierDiscounts is a config-backed ports.DiscountProvider.
type TierDiscounts map[string]decimal.Decimal

// DiscountFor returns the tier's discount fraction; unknown tiers get none.
func (t TierDiscounts) DiscountFor(tier string) decimal.Decimal {
	if d, ok := t[tier]; ok {
		return d
	}
	return decimal.Zero
}
