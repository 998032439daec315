package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"game-economy-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository is the durable BalanceStore.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	// Get returns nil, nil when the account does not exist.
	Get(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id domain.AccountID) (*domain.Account, error)
	// Create inserts the account if absent and reports whether a row was inserted.
	Create(ctx context.Context, tx pgx.Tx, account *domain.Account) (bool, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id domain.AccountID, balance decimal.Decimal) error
}

// TransactionRepository is the append-only AuditLog.
type TransactionRepository interface {
	// Append stores the record and fills in its ID and CreatedAt.
	Append(ctx context.Context, tx pgx.Tx, record *domain.Transaction) error
	// ListByAccount returns up to limit records, newest first.
	ListByAccount(ctx context.Context, id domain.AccountID, limit int) ([]domain.Transaction, error)
}

// IdempotencyRepository defines persistence for idempotency records (DB authority).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, record *domain.IdempotencyRecord) error
	Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
