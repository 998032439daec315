package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// AccountID is the stable numeric identity of a ledger account. Display names
// and session tokens are resolved to it by an AccountResolver.
type AccountID int64

func (id AccountID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseAccountID parses a positive decimal account id.
func ParseAccountID(s string) (AccountID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing account id %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("account id must be positive, got %d", n)
	}
	return AccountID(n), nil
}

// Account is the unit of balance ownership. Balance is never negative.
type Account struct {
	ID        AccountID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
