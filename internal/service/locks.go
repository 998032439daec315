package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/monitoring"
)

// Release gives back locks obtained from a LockRegistry. It is safe to call
// more than once.
type Release func()

// LockRegistry hands out one mutual-exclusion lock per account id. Entries are
// reference counted: an entry exists while someone holds or waits for it and
// is dropped when the last reference goes, so an in-use lock is never replaced
// and idle accounts cost nothing.
type LockRegistry struct {
	mu      sync.Mutex
	entries map[domain.AccountID]*lockEntry
	metrics *monitoring.Metrics
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry(metrics *monitoring.Metrics) *LockRegistry {
	return &LockRegistry{
		entries: make(map[domain.AccountID]*lockEntry),
		metrics: metrics,
	}
}

// Acquire blocks until the account lock is held or ctx is done.
func (r *LockRegistry) Acquire(ctx context.Context, id domain.AccountID) (Release, error) {
	e := r.ref(id)
	start := time.Now()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		r.unref(id, e)
		return nil, ctx.Err()
	}
	r.metrics.ObserveLockWait(time.Since(start))

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			r.unref(id, e)
		})
	}, nil
}

// AcquireOrdered locks every distinct id in ascending order. The returned
// Release unlocks them in descending order. A shared total order is what keeps
// concurrent multi-account operations free of circular waits.
func (r *LockRegistry) AcquireOrdered(ctx context.Context, ids ...domain.AccountID) (Release, error) {
	sorted := uniqueSorted(ids)
	held := make([]Release, 0, len(sorted))

	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}

	for _, id := range sorted {
		rel, err := r.Acquire(ctx, id)
		if err != nil {
			releaseAll()
			return nil, err
		}
		held = append(held, rel)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}

// Len reports how many accounts currently have a live lock entry.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *LockRegistry) ref(id domain.AccountID) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		r.entries[id] = e
	}
	e.refs++
	return e
}

func (r *LockRegistry) unref(id domain.AccountID, e *lockEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.entries, id)
	}
}

func uniqueSorted(ids []domain.AccountID) []domain.AccountID {
	out := make([]domain.AccountID, 0, len(ids))
	seen := make(map[domain.AccountID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
