package service

import (
	"strconv"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/monitoring"

	"github.com/karlseguin/ccache/v2"
	"github.com/shopspring/decimal"
)

const (
	defaultCacheEntries = 100_000
	defaultCacheTTL     = 10 * time.Minute
)

// BalanceCache is the in-memory write-through projection of the balance
// store. Only the holder of an account's lock may Put or Invalidate that
// account; reads take no account lock.
//
// Entries are bounded in number and age. An evicted or expired entry is a
// plain miss and the next read reloads it from the store.
type BalanceCache struct {
	lru     *ccache.Cache
	ttl     time.Duration
	metrics *monitoring.Metrics
}

// NewBalanceCache creates an empty cache holding at most maxEntries balances
// for ttl each. Zero values select the defaults.
func NewBalanceCache(maxEntries int64, ttl time.Duration, metrics *monitoring.Metrics) *BalanceCache {
	if maxEntries <= 0 {
		maxEntries = defaultCacheEntries
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	prune := uint32(maxEntries / 100)
	if prune == 0 {
		prune = 1
	}
	return &BalanceCache{
		lru:     ccache.New(ccache.Configure().MaxSize(maxEntries).ItemsToPrune(prune)),
		ttl:     ttl,
		metrics: metrics,
	}
}

func cacheKey(id domain.AccountID) string {
	return strconv.FormatInt(int64(id), 10)
}

// Get returns the cached balance and records a hit or miss.
func (c *BalanceCache) Get(id domain.AccountID) (decimal.Decimal, bool) {
	item := c.lru.Get(cacheKey(id))
	if item == nil || item.Expired() {
		c.metrics.RecordCacheLookup(false)
		return decimal.Zero, false
	}
	c.metrics.RecordCacheLookup(true)
	return item.Value().(decimal.Decimal), true
}

// Put stores a balance confirmed by the durable store.
func (c *BalanceCache) Put(id domain.AccountID, balance decimal.Decimal) {
	c.lru.Set(cacheKey(id), balance, c.ttl)
}

// Invalidate drops one account so the next read goes to the store.
func (c *BalanceCache) Invalidate(id domain.AccountID) {
	c.lru.Delete(cacheKey(id))
}

// Clear drops every cached balance. Account locks are unaffected.
func (c *BalanceCache) Clear() {
	c.lru.Clear()
}

// Len returns the number of cached accounts, expired ones included until
// they are evicted.
func (c *BalanceCache) Len() int {
	return c.lru.ItemCount()
}

// Stop ends the cache's background eviction worker.
func (c *BalanceCache) Stop() {
	c.lru.Stop()
}
