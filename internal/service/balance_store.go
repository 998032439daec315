package service

import (
	"context"
	"fmt"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// BalanceStore reads balances through the cache and keeps the cache in step
// with committed writes. The durable account table stays the authority.
type BalanceStore struct {
	accounts ports.AccountRepository
	cache    *BalanceCache
	locks    *LockRegistry
	initial  decimal.Decimal
	log      zerolog.Logger
}

// NewBalanceStore creates a BalanceStore. initial is what an account that
// has no row yet reads as.
func NewBalanceStore(accounts ports.AccountRepository, cache *BalanceCache, locks *LockRegistry, initial decimal.Decimal, log zerolog.Logger) *BalanceStore {
	return &BalanceStore{
		accounts: accounts,
		cache:    cache,
		locks:    locks,
		initial:  initial,
		log:      log,
	}
}

// Get returns the balance of an account. A cache miss takes the account
// lock before loading, so a concurrent writer can never have its fresh value
// overwritten by a stale load. Missing accounts read as the initial balance;
// no row is created and nothing is cached.
func (s *BalanceStore) Get(ctx context.Context, id domain.AccountID) (decimal.Decimal, error) {
	if b, ok := s.cache.Get(id); ok {
		return b, nil
	}

	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return decimal.Zero, fmt.Errorf("acquire account lock: %w", err)
	}
	defer release()

	b, _, err := s.getLocked(ctx, id)
	return b, err
}

// Cached returns the balance only if it is cache-resident.
func (s *BalanceStore) Cached(id domain.AccountID) (decimal.Decimal, bool) {
	return s.cache.Get(id)
}

// getLocked is the cache-through read used by lock holders. exists is false
// when the account has no durable row.
func (s *BalanceStore) getLocked(ctx context.Context, id domain.AccountID) (decimal.Decimal, bool, error) {
	c, ok := s.cache.Get(id)
	if ok {
		return c, true, nil
	}

	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Int64("account_id", int64(id)).Str("op", "get_balance").Msg("balance load failed")
		return decimal.Zero, false, fmt.Errorf("load balance: %w", err)
	}
	if a == nil {
		return s.initial, false, nil
	}
	s.cache.Put(id, a.Balance)
	return a.Balance, true, nil
}

// committed records a balance confirmed by a durable commit. Caller holds the lock.
func (s *BalanceStore) committed(id domain.AccountID, balance decimal.Decimal) {
	s.cache.Put(id, balance)
}

// discard forgets a cached balance after a failed write. Caller holds the lock.
func (s *BalanceStore) discard(id domain.AccountID) {
	s.cache.Invalidate(id)
}
