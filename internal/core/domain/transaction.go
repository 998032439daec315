package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType classifies a balance change in the audit trail.
type ChangeType string

const (
	ChangeCredit              ChangeType = "CREDIT"
	ChangeDebit               ChangeType = "DEBIT"
	ChangeAdminGrant          ChangeType = "ADMIN_GRANT"
	ChangeAdminRevoke         ChangeType = "ADMIN_REVOKE"
	ChangeAdminSet            ChangeType = "ADMIN_SET"
	ChangeMarketplaceSale     ChangeType = "MARKETPLACE_SALE"
	ChangeMarketplacePurchase ChangeType = "MARKETPLACE_PURCHASE"
	ChangePeerTransferOut     ChangeType = "PEER_TRANSFER_OUT"
	ChangePeerTransferIn      ChangeType = "PEER_TRANSFER_IN"
	ChangeSystemReward        ChangeType = "SYSTEM_REWARD"
	ChangeSystemPenalty       ChangeType = "SYSTEM_PENALTY"
	ChangeOther               ChangeType = "OTHER"
)

var changeTypes = map[ChangeType]struct{}{
	ChangeCredit: {}, ChangeDebit: {}, ChangeAdminGrant: {}, ChangeAdminRevoke: {},
	ChangeAdminSet: {}, ChangeMarketplaceSale: {}, ChangeMarketplacePurchase: {},
	ChangePeerTransferOut: {}, ChangePeerTransferIn: {}, ChangeSystemReward: {},
	ChangeSystemPenalty: {}, ChangeOther: {},
}

// Valid reports whether c is one of the enumerated change types.
func (c ChangeType) Valid() bool {
	_, ok := changeTypes[c]
	return ok
}

// Applicable reports whether the type may be written as a single change.
// ADMIN_SET comes only from an absolute set and the peer legs only from a
// transfer.
func (c ChangeType) Applicable() bool {
	switch c {
	case ChangeAdminSet, ChangePeerTransferIn, ChangePeerTransferOut:
		return false
	}
	return c.Valid()
}

// Sign is the sign an amount of this type must carry: 1 for money in, -1 for
// money out, 0 when either is allowed.
func (c ChangeType) Sign() int {
	switch c {
	case ChangeCredit, ChangeAdminGrant, ChangeSystemReward, ChangeMarketplaceSale, ChangePeerTransferIn:
		return 1
	case ChangeDebit, ChangeAdminRevoke, ChangeSystemPenalty, ChangeMarketplacePurchase, ChangePeerTransferOut:
		return -1
	}
	return 0
}

// CountsTowardDailyLimit is false only for administrative absolute sets.
func (c ChangeType) CountsTowardDailyLimit() bool {
	return c != ChangeAdminSet
}

// Transaction is an immutable audit record of one applied balance change.
type Transaction struct {
	ID               int64           `json:"id"`
	AccountID        AccountID       `json:"account_id"`
	Type             ChangeType      `json:"change_type"`
	Amount           decimal.Decimal `json:"amount"` // signed
	BalanceBefore    decimal.Decimal `json:"balance_before"`
	BalanceAfter     decimal.Decimal `json:"balance_after"`
	Reason           string          `json:"reason"`
	RelatedAccountID *AccountID      `json:"related_account_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Consistent reports whether balance_after = balance_before + amount.
func (t *Transaction) Consistent() bool {
	return t.BalanceBefore.Add(t.Amount).Equal(t.BalanceAfter)
}
