package service

import (
	"context"
	"fmt"
	"time"

	"game-economy-ledger/internal/core/ports"
	"game-economy-ledger/internal/monitoring"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DailyCounterSweeper prunes stale daily counters at each day boundary of the
// configured timezone.
type DailyCounterSweeper struct {
	counter ports.DailyCounter
	guard   *LimitsGuard
	cron    *cron.Cron
	log     zerolog.Logger
	metrics *monitoring.Metrics
}

// NewDailyCounterSweeper schedules Sweep on spec (standard five-field cron).
func NewDailyCounterSweeper(counter ports.DailyCounter, guard *LimitsGuard, spec string, loc *time.Location, log zerolog.Logger, metrics *monitoring.Metrics) (*DailyCounterSweeper, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &DailyCounterSweeper{
		counter: counter,
		guard:   guard,
		cron:    cron.New(cron.WithLocation(loc)),
		log:     log,
		metrics: metrics,
	}
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule daily counter sweep %q: %w", spec, err)
	}
	return s, nil
}

// Sweep drops counters of every day but today.
func (s *DailyCounterSweeper) Sweep(ctx context.Context) int {
	today := s.guard.Today()
	n, err := s.counter.Prune(ctx, today)
	if err != nil {
		s.log.Error().Err(err).Str("day", today).Msg("daily counter sweep failed")
	}
	s.metrics.AddDailyPruned(n)
	if n > 0 {
		s.log.Info().Int("removed", n).Str("day", today).Msg("pruned stale daily counters")
	}
	return n
}

// Start begins the schedule in its own goroutine.
func (s *DailyCounterSweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *DailyCounterSweeper) Stop() {
	<-s.cron.Stop().Done()
}
