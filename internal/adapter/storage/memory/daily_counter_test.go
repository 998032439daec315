package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCounter_IncrementAndPrune(t *testing.T) {
	ctx := context.Background()
	c := NewDailyCounter()

	n, err := c.Count(ctx, 1, "2026-01-01")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err := c.Increment(ctx, 1, "2026-01-01")
		require.NoError(t, err)
	}
	_, _ = c.Increment(ctx, 2, "2026-01-01")
	n, _ = c.Increment(ctx, 1, "2026-01-02")
	assert.Equal(t, int64(1), n)

	n, _ = c.Count(ctx, 1, "2026-01-01")
	assert.Equal(t, int64(3), n)

	removed, err := c.Prune(ctx, "2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	n, _ = c.Count(ctx, 1, "2026-01-01")
	assert.Zero(t, n)
	n, _ = c.Count(ctx, 1, "2026-01-02")
	assert.Equal(t, int64(1), n)
}
