package service

import (
	"context"
	"time"

	"game-economy-ledger/config"
	"game-economy-ledger/internal/core/domain"
	"game-economy-ledger/internal/core/ports"
	"game-economy-ledger/internal/monitoring"
	"game-economy-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// LimitsGuard enforces per-transaction amount bounds and the per-account
// daily transaction ceiling, and flags suspicious amounts.
type LimitsGuard struct {
	min        decimal.Decimal
	max        decimal.Decimal
	suspicious decimal.Decimal
	maxDaily   int64
	counter    ports.DailyCounter
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger
	metrics    *monitoring.Metrics
}

// NewLimitsGuard builds a guard from the economy settings. A nil loc means UTC.
func NewLimitsGuard(cfg config.EconomyConfig, counter ports.DailyCounter, loc *time.Location, log zerolog.Logger, metrics *monitoring.Metrics) *LimitsGuard {
	if loc == nil {
		loc = time.UTC
	}
	return &LimitsGuard{
		min:        cfg.MinTransactionAmount,
		max:        cfg.MaxTransactionAmount,
		suspicious: cfg.SuspiciousAmountThreshold,
		maxDaily:   cfg.MaxDailyTransactions,
		counter:    counter,
		loc:        loc,
		now:        time.Now,
		log:        log,
		metrics:    metrics,
	}
}

// CheckAmount rejects zero amounts and magnitudes outside [min, max].
func (g *LimitsGuard) CheckAmount(amount decimal.Decimal) error {
	abs := amount.Abs()
	if abs.IsZero() || abs.LessThan(g.min) || abs.GreaterThan(g.max) {
		return apperror.ErrInvalidAmount()
	}
	return nil
}

// IsSuspicious reports whether the magnitude exceeds the review threshold.
// A zero threshold disables flagging.
func (g *LimitsGuard) IsSuspicious(amount decimal.Decimal) bool {
	if g.suspicious.IsZero() {
		return false
	}
	return amount.Abs().GreaterThan(g.suspicious)
}

// Today is the current day key in the configured timezone.
func (g *LimitsGuard) Today() string {
	return g.now().In(g.loc).Format(dayLayout)
}

// CheckDaily rejects the account once it has reached today's ceiling.
// Counter outages fail open and are logged at error.
func (g *LimitsGuard) CheckDaily(ctx context.Context, id domain.AccountID) error {
	if g.maxDaily == 0 {
		return nil
	}
	n, err := g.counter.Count(ctx, id, g.Today())
	if err != nil {
		g.log.Error().Err(err).Int64("account_id", int64(id)).Msg("daily counter unavailable, allowing transaction")
		return nil
	}
	if n >= g.maxDaily {
		return apperror.ErrDailyLimitExceeded()
	}
	return nil
}

// RecordAccepted counts one accepted transaction against today.
func (g *LimitsGuard) RecordAccepted(ctx context.Context, id domain.AccountID) {
	if _, err := g.counter.Increment(ctx, id, g.Today()); err != nil {
		g.log.Error().Err(err).Int64("account_id", int64(id)).Msg("failed to increment daily counter")
	}
}

// Flag logs and counts a suspicious amount.
func (g *LimitsGuard) Flag(id domain.AccountID, changeType domain.ChangeType, amount decimal.Decimal) {
	g.metrics.IncSuspicious()
	g.log.Warn().
		Int64("account_id", int64(id)).
		Str("type", string(changeType)).
		Str("amount", domain.FormatMoney(amount)).
		Msg("suspicious transaction amount")
}
