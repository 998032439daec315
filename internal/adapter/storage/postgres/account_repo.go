package postgres

import (
	"context"
	"errors"
	"fmt"

	"game-economy-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Balances cross the driver as text and are parsed with decimal, so NUMERIC
// values keep their exact scale.
const accountColumns = `account_id, balance::text, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Get fetches an account by id (without locking).
func (r *AccountRepo) Get(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// GetForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id domain.AccountID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// Create inserts the account unless a row already exists.
func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) (bool, error) {
	query := `INSERT INTO accounts (account_id, balance, created_at, updated_at)
		VALUES ($1, $2::numeric, $3, $4)
		ON CONFLICT (account_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, int64(a.ID), domain.FormatMoney(a.Balance), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("insert account: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateBalance writes a new balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id domain.AccountID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1::numeric, updated_at = NOW() WHERE account_id = $2`

	tag, err := tx.Exec(ctx, query, domain.FormatMoney(balance), int64(id))
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		id      int64
		balance string
		a       domain.Account
	)
	if err := row.Scan(&id, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	b, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	a.ID = domain.AccountID(id)
	a.Balance = b
	return &a, nil
}
