package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyCache keeps recently applied ledger results by idempotency key
// so a replay can skip the database. The idempotency_keys table stays
// authoritative; a miss here only means the slower path is taken.
type IdempotencyCache struct {
	rdb goredis.UniversalClient
	ns  string
}

// NewIdempotencyCache returns a cache storing results under ledger:idempotency:.
func NewIdempotencyCache(rdb goredis.UniversalClient) *IdempotencyCache {
	return &IdempotencyCache{rdb: rdb, ns: keyPrefix + "idempotency:"}
}

// Get returns the stored result for key, or nil when none is cached.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.rdb.Get(ctx, c.ns+key).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("idempotency cache get %s: %w", key, err)
	}
	return raw, nil
}

// Set records the result of the first application of key. A result already
// cached for the key is kept: the first committed outcome is the one every
// replay must see.
func (c *IdempotencyCache) Set(ctx context.Context, key string, result []byte, ttl time.Duration) error {
	if err := c.rdb.SetArgs(ctx, c.ns+key, result, goredis.SetArgs{Mode: "NX", TTL: ttl}).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("idempotency cache set %s: %w", key, err)
	}
	return nil
}
