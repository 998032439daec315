package service

import (
	"context"
	"fmt"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// AuditLog is the append-only record of accepted balance changes.
// Entries are written in the same durable transaction as the balance update.
type AuditLog struct {
	repo ports.TransactionRepository
	now  func() time.Time
}

// NewAuditLog wraps a transaction repository.
func NewAuditLog(repo ports.TransactionRepository) *AuditLog {
	return &AuditLog{repo: repo, now: time.Now}
}

// Record appends one entry within tx.
func (a *AuditLog) Record(ctx context.Context, tx pgx.Tx, rec *domain.Transaction) error {
	if !rec.Type.Valid() {
		return fmt.Errorf("audit record: unknown change type %q", rec.Type)
	}
	if !rec.Consistent() {
		return fmt.Errorf("audit record: balance_after %s != balance_before %s + amount %s",
			rec.BalanceAfter, rec.BalanceBefore, rec.Amount)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = a.now().UTC()
	}
	if err := a.repo.Append(ctx, tx, rec); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// History returns the newest entries for an account. limit <= 0 selects the
// default page size; larger requests are capped.
func (a *AuditLog) History(ctx context.Context, id domain.AccountID, limit int) ([]domain.Transaction, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	return a.repo.ListByAccount(ctx, id, limit)
}
