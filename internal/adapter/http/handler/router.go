package handler

import (
	"game-economy-ledger/internal/adapter/http/middleware"
	redisStore "game-economy-ledger/internal/adapter/storage/redis"
	"game-economy-ledger/internal/core/ports"
	"game-economy-ledger/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         ports.Ledger
	Resolver       ports.AccountResolver // nil = player lookups disabled
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = per-process limits
	HealthCheckers []ports.HealthChecker
	Metrics        *monitoring.Metrics
	Gatherer       prometheus.Gatherer // nil = no /metrics endpoint
	OpenAPISpec    []byte
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(middleware.MaxBodySize(64 << 10))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	docs := NewAPIDocs(deps.OpenAPISpec)
	swagger := r.Group("/swagger")
	{
		swagger.GET("", docs.UI)
		swagger.GET("/spec", docs.Spec)
	}

	rules := middleware.DefaultRateLimitRules()
	limiters := make(map[string]gin.HandlerFunc, len(rules))
	rl := func(group string) gin.HandlerFunc {
		if l, ok := limiters[group]; ok {
			return l
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		l := middleware.LocalRateLimiter(group, rule)
		if deps.RateLimitStore != nil {
			l = middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
		}
		limiters[group] = l
		return l
	}

	// Every ledger route requires a service token.
	v1 := r.Group("/api/v1", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	h := NewLedgerHandler(deps.Ledger, deps.Resolver)

	accounts := v1.Group("/accounts/:id")
	{
		accounts.GET("/balance", rl("ledger_read"), h.GetBalance)
		accounts.GET("/has-balance", rl("ledger_read"), h.HasBalance)
		accounts.GET("/transactions", rl("ledger_read"), h.History)

		accounts.POST("/open", rl("ledger_write"), h.OpenAccount)
		accounts.POST("/credit", rl("ledger_write"), h.Credit)
		accounts.POST("/debit", rl("ledger_write"), h.Debit)
		accounts.POST("/transactions", rl("ledger_write"), h.Apply)
		accounts.POST("/purchase", rl("ledger_write"), h.Purchase)
		accounts.POST("/sales", rl("ledger_write"), h.Sale)

		accounts.POST("/set-balance", rl("admin"), h.SetBalance)
	}

	v1.POST("/transfers", rl("transfers"), h.Transfer)
	v1.GET("/players/:identity/balance", rl("ledger_read"), h.GetPlayerBalance)

	return r
}
