package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"game-economy-ledger/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// dailyKeyTTL outlives a calendar day in any timezone, so a key always
// survives until its day is over and never lingers much longer.
const dailyKeyTTL = 48 * time.Hour

// DailyCounter implements ports.DailyCounter with one Redis key per account
// per day, shared by every ledger instance.
type DailyCounter struct {
	client *goredis.Client
	prefix string
}

// NewDailyCounter creates a Redis-backed daily transaction counter.
func NewDailyCounter(client *goredis.Client) *DailyCounter {
	return &DailyCounter{
		client: client,
		prefix: keyPrefix + "daily:",
	}
}

func (c *DailyCounter) key(id domain.AccountID, day string) string {
	return c.prefix + day + ":" + id.String()
}

// Count returns today's accepted transaction count for an account.
func (c *DailyCounter) Count(ctx context.Context, id domain.AccountID, day string) (int64, error) {
	n, err := c.client.Get(ctx, c.key(id, day)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis daily count get: %w", err)
	}
	return n, nil
}

// Increment atomically bumps the counter and (re)arms its expiry.
func (c *DailyCounter) Increment(ctx context.Context, id domain.AccountID, day string) (int64, error) {
	key := c.key(id, day)
	var incr *goredis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, dailyKeyTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis daily count incr: %w", err)
	}
	return incr.Val(), nil
}

// Prune deletes counters of every day other than currentDay. Expiry already
// bounds their lifetime; pruning frees them at the day boundary.
func (c *DailyCounter) Prune(ctx context.Context, currentDay string) (int, error) {
	keep := c.prefix + currentDay + ":"
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("redis daily count scan: %w", err)
		}
		var stale []string
		for _, k := range keys {
			if !strings.HasPrefix(k, keep) {
				stale = append(stale, k)
			}
		}
		if len(stale) > 0 {
			n, err := c.client.Del(ctx, stale...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis daily count del: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
