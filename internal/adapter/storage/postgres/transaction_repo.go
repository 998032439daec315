package postgres

import (
	"context"
	"fmt"
	"time"

	"game-economy-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository over the append-only
// transactions table. It never issues UPDATE or DELETE.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Append inserts an audit record within a database transaction.
func (r *TransactionRepo) Append(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO transactions (account_id, change_type, amount, balance_before, balance_after,
		reason, related_account_id, created_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8)
		RETURNING id`

	err := tx.QueryRow(ctx, query,
		int64(t.AccountID), string(t.Type),
		domain.FormatMoney(t.Amount), domain.FormatMoney(t.BalanceBefore), domain.FormatMoney(t.BalanceAfter),
		t.Reason, relatedArg(t.RelatedAccountID), t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ListByAccount returns the newest audit records for an account.
func (r *TransactionRepo) ListByAccount(ctx context.Context, id domain.AccountID, limit int) ([]domain.Transaction, error) {
	query := `SELECT id, account_id, change_type, amount::text, balance_before::text, balance_after::text,
		reason, related_account_id, created_at
		FROM transactions WHERE account_id = $1
		ORDER BY id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, int64(id), limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t                     domain.Transaction
		accountID             int64
		changeType            string
		amount, before, after string
		related               pgtype.Int8
	)
	if err := row.Scan(&t.ID, &accountID, &changeType, &amount, &before, &after,
		&t.Reason, &related, &t.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return nil, fmt.Errorf("parse balance_before: %w", err)
	}
	if t.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return nil, fmt.Errorf("parse balance_after: %w", err)
	}
	t.AccountID = domain.AccountID(accountID)
	t.Type = domain.ChangeType(changeType)
	if related.Valid {
		rel := domain.AccountID(related.Int64)
		t.RelatedAccountID = &rel
	}
	return &t, nil
}

func relatedArg(id *domain.AccountID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
