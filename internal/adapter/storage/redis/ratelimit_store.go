package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RateLimitStore counts collaborator API calls in fixed windows that every
// ledger instance shares.
type RateLimitStore struct {
	rdb goredis.UniversalClient
	ns  string
	now func() time.Time
}

// NewRateLimitStore keeps its windows under ledger:ratelimit:.
func NewRateLimitStore(rdb goredis.UniversalClient) *RateLimitStore {
	return &RateLimitStore{rdb: rdb, ns: keyPrefix + "ratelimit:", now: time.Now}
}

// RateLimitResult is the state of a caller's window after one hit.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // unix seconds
}

// Allow records one hit for caller (already scoped to an endpoint group) and
// reports whether it fits in limit for the current window.
func (s *RateLimitStore) Allow(ctx context.Context, caller string, limit int64, window time.Duration) (*RateLimitResult, error) {
	span := max(int64(window/time.Second), 1)
	slot := s.now().Unix() / span
	key := s.ns + caller + ":" + strconv.FormatInt(slot, 10)

	var hits *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		hits = p.Incr(ctx, key)
		p.Expire(ctx, key, time.Duration(span+1)*time.Second)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit hit %s: %w", caller, err)
	}

	n := hits.Val()
	return &RateLimitResult{
		Allowed:   n <= limit,
		Limit:     limit,
		Remaining: max(limit-n, 0),
		ResetAt:   (slot + 1) * span,
	}, nil
}
