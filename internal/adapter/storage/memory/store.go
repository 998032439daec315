// Package memory is an in-process stand-in for the PostgreSQL ledger store.
// It backs the "memory" database driver and the concurrency tests. Writes made
// through a transaction are staged and become visible atomically on Commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"game-economy-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrForeignTx is returned when a repository receives a pgx.Tx that was not
// opened by the same Store.
var ErrForeignTx = errors.New("memory: transaction not opened by this store")

// Store holds committed ledger state.
type Store struct {
	mu         sync.RWMutex
	accounts   map[domain.AccountID]domain.Account
	records    []domain.Transaction
	idem       map[string]domain.IdempotencyRecord
	players    map[string]domain.AccountID
	nextID     int64
	commitHook func(ctx context.Context) error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[domain.AccountID]domain.Account),
		idem:     make(map[string]domain.IdempotencyRecord),
		players:  make(map[string]domain.AccountID),
	}
}

// SetCommitHook installs a function consulted before every commit; a non-nil
// error aborts the commit. Used to inject persistence failures.
func (s *Store) SetCommitHook(hook func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitHook = hook
}

// Begin implements ports.DBTransactor.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin memory transaction: %w", err)
	}
	return &memTx{
		store:    s,
		accounts: make(map[domain.AccountID]domain.Account),
	}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Balance returns the committed balance of an account.
func (s *Store) Balance(id domain.AccountID) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	return a.Balance, ok
}

// Records returns the committed audit records of an account, oldest first.
func (s *Store) Records(id domain.AccountID) []domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, r := range s.records {
		if r.AccountID == id {
			out = append(out, r)
		}
	}
	return out
}

// RegisterPlayer records a player identity for the resolver.
func (s *Store) RegisterPlayer(name, sessionToken string, id domain.AccountID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players["name:"+strings.ToLower(name)] = id
	if sessionToken != "" {
		s.players["token:"+sessionToken] = id
	}
}

func (s *Store) nextRecordID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *Store) commit(ctx context.Context, t *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit memory transaction: %w", err)
	}
	if s.commitHook != nil {
		if err := s.commitHook(ctx); err != nil {
			return fmt.Errorf("commit memory transaction: %w", err)
		}
	}
	for id, a := range t.accounts {
		if a.Balance.IsNegative() {
			return fmt.Errorf("commit memory transaction: account %s balance would be negative", id)
		}
	}
	for _, rec := range t.idem {
		if _, exists := s.idem[rec.Key]; exists {
			return fmt.Errorf("commit memory transaction: duplicate idempotency key %q", rec.Key)
		}
	}

	for id, a := range t.accounts {
		s.accounts[id] = a
	}
	s.records = append(s.records, t.records...)
	sort.SliceStable(s.records, func(i, j int) bool { return s.records[i].ID < s.records[j].ID })
	for _, rec := range t.idem {
		s.idem[rec.Key] = rec
	}
	return nil
}

// memTx stages writes until Commit. Embedding pgx.Tx satisfies the interface;
// only Commit and Rollback are called on it by the ledger.
type memTx struct {
	pgx.Tx
	store    *Store
	accounts map[domain.AccountID]domain.Account
	records  []domain.Transaction
	idem     []domain.IdempotencyRecord
	closed   bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	return t.store.commit(ctx, t)
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	return nil
}

func asMemTx(tx pgx.Tx) (*memTx, error) {
	t, ok := tx.(*memTx)
	if !ok {
		return nil, ErrForeignTx
	}
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t, nil
}
