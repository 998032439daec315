package redis

import (
	"context"
	"fmt"

	"game-economy-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces every ledger key so the instance can share a Redis DB.
const keyPrefix = "ledger:"

// NewClient connects to Redis and pings it once. A non-zero cfg.Timeout is
// applied to dialing, reads and writes alike.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*goredis.Client, error) {
	opts := &goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Dur("timeout", cfg.Timeout).
		Msg("Redis ready for idempotency, daily counters and rate limits")
	return client, nil
}

// Health reports whether the Redis layer is reachable. The ledger keeps
// working without it, so an outage degrades rather than fails the service.
type Health struct {
	client *goredis.Client
}

func NewHealth(client *goredis.Client) *Health { return &Health{client: client} }

func (h *Health) Ping(ctx context.Context) error { return h.client.Ping(ctx).Err() }

func (h *Health) Name() string { return "redis" }
