// Package app assembles the ledger from configuration: storage driver,
// optional Redis layer, metrics, limits sweeper and HTTP router.
package app

import (
	"context"
	"errors"
	"fmt"

	"game-economy-ledger/config"
	httpHandler "game-economy-ledger/internal/adapter/http/handler"
	"game-economy-ledger/internal/adapter/storage/memory"
	pgStorage "game-economy-ledger/internal/adapter/storage/postgres"
	redisStorage "game-economy-ledger/internal/adapter/storage/redis"
	"game-economy-ledger/internal/core/ports"
	"game-economy-ledger/internal/monitoring"
	"game-economy-ledger/internal/service"
	"game-economy-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// App is a fully wired ledger instance.
type App struct {
	Ledger   *service.LedgerService
	Async    *service.AsyncLedger
	Tokens   *service.JWTTokenService
	Resolver ports.AccountResolver
	Registry *prometheus.Registry
	Metrics  *monitoring.Metrics

	// Memory is set when the memory driver is selected.
	Memory *memory.Store

	bridge         *service.Bridge
	sweeper        *service.DailyCounterSweeper
	rateLimitStore *redisStorage.RateLimitStore
	health         []ports.HealthChecker
	closers        []func()
	log            zerolog.Logger
}

// New connects the configured backends and builds the ledger service.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *App, err error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret must be set")
	}
	loc, err := cfg.Economy.Location()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.New(reg)

	a := &App{
		Tokens:   service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer),
		Registry: reg,
		Metrics:  metrics,
		bridge:   service.NewBridge(cfg.Economy.AsyncWorkers, metrics),
		log:      log,
	}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	deps := service.LedgerDeps{
		Discounts: service.TierDiscounts(cfg.Economy.DiscountTiers),
		Metrics:   metrics,
		Location:  loc,
	}

	switch cfg.Database.Driver {
	case "postgres", "":
		pool, err := pgStorage.NewPool(ctx, cfg.Database, logger.Component(log, "postgres"))
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pgStorage.Migrate(ctx, pool, log); err != nil {
			return nil, err
		}
		deps.Accounts = pgStorage.NewAccountRepo(pool)
		deps.Transactions = pgStorage.NewTransactionRepo(pool)
		deps.Idempotency = pgStorage.NewIdempotencyRepo(pool)
		deps.Transactor = pgStorage.NewTransactor(pool, cfg.Database.LockTimeout)
		a.Resolver = pgStorage.NewPlayerResolver(pool)
		a.health = append(a.health, pgStorage.NewHealth(pool))
	case "memory":
		store := memory.NewStore()
		deps.Accounts = store.Accounts()
		deps.Transactions = store.Transactions()
		deps.Idempotency = store.Idempotency()
		deps.Transactor = store
		a.Resolver = store.Resolver()
		a.Memory = store
		a.health = append(a.health, store)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, logger.Component(log, "redis"))
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		deps.IdempotencyCache = redisStorage.NewIdempotencyCache(rdb)
		deps.DailyCounter = redisStorage.NewDailyCounter(rdb)
		a.rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		a.health = append(a.health, redisStorage.NewHealth(rdb))
	} else {
		deps.DailyCounter = memory.NewDailyCounter()
	}

	a.Ledger = service.NewLedgerService(deps, cfg.Economy, logger.Component(log, "ledger"))
	a.closers = append(a.closers, a.Ledger.Close)
	a.Async = service.NewAsyncLedger(a.Ledger, a.bridge)

	a.sweeper, err = service.NewDailyCounterSweeper(deps.DailyCounter, a.Ledger.Guard(),
		cfg.Economy.DailyResetCron, loc, logger.Component(log, "sweeper"), metrics)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Start runs the scheduled daily counter sweep.
func (a *App) Start() {
	a.sweeper.Start()
}

// Router builds the HTTP surface. openAPISpec may be nil.
func (a *App) Router(openAPISpec []byte) *gin.Engine {
	return httpHandler.SetupRouter(httpHandler.RouterDeps{
		Ledger:         a.Ledger,
		Resolver:       a.Resolver,
		TokenSvc:       a.Tokens,
		RateLimitStore: a.rateLimitStore,
		HealthCheckers: a.health,
		Metrics:        a.Metrics,
		Gatherer:       a.Registry,
		OpenAPISpec:    openAPISpec,
		Logger:         logger.Component(a.log, "http"),
	})
}

// Close stops the sweeper, waits for in-flight async operations and
// releases the backends.
func (a *App) Close(ctx context.Context) error {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	err := a.bridge.Wait(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("async ledger operations still running at shutdown")
	}
	a.closeAll()
	return err
}

func (a *App) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
