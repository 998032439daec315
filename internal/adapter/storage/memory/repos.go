package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// --- Accounts ---

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct{ s *Store }

// Accounts returns the store's account repository.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s: s} }

func (r *AccountRepo) Get(_ context.Context, id domain.AccountID) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *AccountRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id domain.AccountID) (*domain.Account, error) {
	t, err := asMemTx(tx)
	if err != nil {
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	if a, ok := t.accounts[id]; ok {
		return &a, nil
	}
	return r.Get(ctx, id)
}

func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) (bool, error) {
	t, err := asMemTx(tx)
	if err != nil {
		return false, fmt.Errorf("insert account: %w", err)
	}
	if _, ok := t.accounts[a.ID]; ok {
		return false, nil
	}
	existing, _ := r.Get(ctx, a.ID)
	if existing != nil {
		return false, nil
	}
	t.accounts[a.ID] = *a
	return true, nil
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id domain.AccountID, balance decimal.Decimal) error {
	a, err := r.GetForUpdate(ctx, tx, id)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if a == nil {
		return fmt.Errorf("account not found: %s", id)
	}
	t, _ := asMemTx(tx)
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	t.accounts[id] = *a
	return nil
}

// --- Audit trail ---

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ s *Store }

// Transactions returns the store's audit repository.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

func (r *TransactionRepo) Append(_ context.Context, tx pgx.Tx, rec *domain.Transaction) error {
	t, err := asMemTx(tx)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	if !rec.Consistent() {
		return fmt.Errorf("insert transaction: balance_after != balance_before + amount")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.ID = r.s.nextRecordID()
	t.records = append(t.records, *rec)
	return nil
}

func (r *TransactionRepo) ListByAccount(_ context.Context, id domain.AccountID, limit int) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Transaction
	for i := len(r.s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.records[i].AccountID == id {
			out = append(out, r.s.records[i])
		}
	}
	return out, nil
}

// --- Idempotency ---

// IdempotencyRepo implements ports.IdempotencyRepository.
type IdempotencyRepo struct{ s *Store }

// Idempotency returns the store's idempotency repository.
func (s *Store) Idempotency() *IdempotencyRepo { return &IdempotencyRepo{s: s} }

func (r *IdempotencyRepo) Create(_ context.Context, tx pgx.Tx, rec *domain.IdempotencyRecord) error {
	t, err := asMemTx(tx)
	if err != nil {
		return fmt.Errorf("insert idempotency key: %w", err)
	}
	t.idem = append(t.idem, *rec)
	return nil
}

func (r *IdempotencyRepo) Get(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.idem[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// --- Players ---

// PlayerResolver implements ports.AccountResolver over registered players.
type PlayerResolver struct{ s *Store }

// Resolver returns the store's account resolver.
func (s *Store) Resolver() *PlayerResolver { return &PlayerResolver{s: s} }

func (r *PlayerResolver) Resolve(_ context.Context, identity string) (domain.AccountID, error) {
	identity = strings.TrimSpace(identity)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if id, ok := r.s.players["name:"+strings.ToLower(identity)]; ok {
		return id, nil
	}
	if id, ok := r.s.players["token:"+identity]; ok {
		return id, nil
	}
	return 0, apperror.ErrAccountNotFound()
}
