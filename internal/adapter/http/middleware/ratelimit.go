package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	redisStore "game-economy-ledger/internal/adapter/storage/redis"
	"game-economy-ledger/pkg/apperror"
	"game-economy-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultRateLimitRules returns the per-caller limits of each endpoint group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"ledger_read":  {Limit: 600, Window: time.Minute},
		"ledger_write": {Limit: 300, Window: time.Minute},
		"transfers":    {Limit: 120, Window: time.Minute},
		"admin":        {Limit: 30, Window: time.Minute},
	}
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store failures let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier keys limits by authenticated caller, else by client IP.
func extractIdentifier(c *gin.Context) string {
	if caller := c.GetString(CtxCaller); caller != "" {
		return caller
	}
	return c.ClientIP()
}

// LocalRateLimiter enforces rule per caller inside this process. It stands in
// for RateLimiter when no Redis is configured; limits are then per instance.
func LocalRateLimiter(group string, rule RateLimitRule) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	interval := rule.Window / time.Duration(rule.Limit)
	retryAfter := strconv.Itoa(int(interval/time.Second) + 1)

	limiterFor := func(id string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[id]
		if !ok {
			l = rate.NewLimiter(rate.Every(interval), int(rule.Limit))
			limiters[id] = l
		}
		return l
	}

	return func(c *gin.Context) {
		l := limiterFor(extractIdentifier(c) + ":" + group)
		c.Header("X-RateLimit-Limit", strconv.FormatInt(rule.Limit, 10))
		if !l.Allow() {
			c.Header("Retry-After", retryAfter)
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}
		c.Next()
	}
}
