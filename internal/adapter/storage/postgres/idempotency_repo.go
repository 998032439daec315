package postgres

import (
	"context"
	"errors"
	"fmt"

	"game-economy-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct {
	pool Pool
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(pool Pool) *IdempotencyRepo {
	return &IdempotencyRepo{pool: pool}
}

// Create inserts an idempotency record in the same transaction as the
// balance change it describes.
func (r *IdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	query := `INSERT INTO idempotency_keys (key, account_id, response, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, rec.Key, int64(rec.AccountID), rec.ResponseJSON, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}
	return nil
}

// Get fetches an idempotency record by key.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	query := `SELECT key, account_id, response, created_at FROM idempotency_keys WHERE key = $1`

	var (
		rec       domain.IdempotencyRecord
		accountID int64
	)
	err := r.pool.QueryRow(ctx, query, key).Scan(&rec.Key, &accountID, &rec.ResponseJSON, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	rec.AccountID = domain.AccountID(accountID)
	return &rec, nil
}
