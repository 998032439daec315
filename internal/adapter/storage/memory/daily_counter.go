package memory

import (
	"context"
	"sync"

	"game-economy-ledger/internal/core/domain"
)

// DailyCounter is a process-local ports.DailyCounter used when Redis is
// disabled. Counts are lost on restart.
type DailyCounter struct {
	mu   sync.Mutex
	days map[string]map[domain.AccountID]int64
}

// NewDailyCounter creates an empty counter.
func NewDailyCounter() *DailyCounter {
	return &DailyCounter{days: make(map[string]map[domain.AccountID]int64)}
}

func (c *DailyCounter) Count(_ context.Context, id domain.AccountID, day string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.days[day][id], nil
}

func (c *DailyCounter) Increment(_ context.Context, id domain.AccountID, day string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts, ok := c.days[day]
	if !ok {
		counts = make(map[domain.AccountID]int64)
		c.days[day] = counts
	}
	counts[id]++
	return counts[id], nil
}

// Prune drops every day except currentDay and returns the number of
// per-account counters removed.
func (c *DailyCounter) Prune(_ context.Context, currentDay string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for day, counts := range c.days {
		if day == currentDay {
			continue
		}
		removed += len(counts)
		delete(c.days, day)
	}
	return removed, nil
}
