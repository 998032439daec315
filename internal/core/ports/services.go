package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"game-economy-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

// --- Collaborator Ports ---

// AccountResolver maps a caller-supplied identity (player name, session token)
// to a stable account id. Unknown identities yield apperror.ErrAccountNotFound.
type AccountResolver interface {
	Resolve(ctx context.Context, identity string) (domain.AccountID, error)
}

// DiscountProvider returns the discount fraction in [0,1] for a pricing tier.
type DiscountProvider interface {
	DiscountFor(tier string) decimal.Decimal
}

// --- Infrastructure Ports ---

// DailyCounter tracks accepted transactions per account per calendar day.
// day is a wall-clock date ("2006-01-02") in the configured timezone.
type DailyCounter interface {
	Count(ctx context.Context, id domain.AccountID, day string) (int64, error)
	Increment(ctx context.Context, id domain.AccountID, day string) (int64, error)
	// Prune drops counters for every day other than currentDay.
	Prune(ctx context.Context, currentDay string) (int, error)
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// TokenService handles JWT bearer tokens for service-to-service calls.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// --- Service Ports (Business Logic) ---

// Ledger is the economy ledger surface offered to collaborators.
type Ledger interface {
	GetBalance(ctx context.Context, id domain.AccountID) (decimal.Decimal, error)
	HasBalance(ctx context.Context, id domain.AccountID, amount decimal.Decimal) (bool, error)
	OpenAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	Apply(ctx context.Context, req domain.Request) (*domain.Result, error)
	Credit(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) (*domain.Result, error)
	Debit(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) (*domain.Result, error)
	SetBalance(ctx context.Context, id domain.AccountID, amount decimal.Decimal, reason string) (*domain.Result, error)
	Transfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResult, error)
	ApplyDiscountedPurchase(ctx context.Context, id domain.AccountID, listPrice decimal.Decimal, tier, reason string) (*domain.PurchaseResult, error)
	CreditMarketplaceSale(ctx context.Context, sellerID domain.AccountID, gross decimal.Decimal, reason string) (*domain.SaleResult, error)
	History(ctx context.Context, id domain.AccountID, limit int) ([]domain.Transaction, error)
}
