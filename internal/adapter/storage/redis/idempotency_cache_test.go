package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "apply:7:ORDER-001"
	value := []byte(`{"account_id":7,"new_balance":"70"}`)

	// Get before set => nil
	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, s.Exists("ledger:idempotency:"+key))
}

func TestIdempotencyCache_FirstResultWins(t *testing.T) {
	s := miniredis.RunT(t)
	cache := NewIdempotencyCache(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))
	ctx := context.Background()

	first := []byte(`{"new_balance":"90.00"}`)
	require.NoError(t, cache.Set(ctx, "apply:3:quest-9", first, time.Hour))
	require.NoError(t, cache.Set(ctx, "apply:3:quest-9", []byte(`{"new_balance":"80.00"}`), time.Hour))

	got, err := cache.Get(ctx, "apply:3:quest-9")
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestIdempotencyCache_Expiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "transfer:1:k", []byte(`{}`), time.Minute))
	s.FastForward(2 * time.Minute)

	result, err := cache.Get(ctx, "transfer:1:k")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestIdempotencyCache_ConnectionError(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewIdempotencyCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, cache.Set(context.Background(), "k", []byte("v"), time.Minute))
}
