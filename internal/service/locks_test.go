package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"game-economy-ledger/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockRegistry_SerializesSameAccount(t *testing.T) {
	locks := NewLockRegistry(nil)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locks.Acquire(ctx, 7)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locks.Len())
}

func TestLockRegistry_DistinctAccountsDoNotBlock(t *testing.T) {
	locks := NewLockRegistry(nil)
	ctx := context.Background()

	r1, err := locks.Acquire(ctx, 1)
	require.NoError(t, err)
	defer r1()

	tctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	r2, err := locks.Acquire(tctx, 2)
	require.NoError(t, err)
	r2()
}

func TestLockRegistry_AcquireHonoursContext(t *testing.T) {
	locks := NewLockRegistry(nil)
	ctx := context.Background()

	release, err := locks.Acquire(ctx, 1)
	require.NoError(t, err)

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locks.Acquire(tctx, 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	assert.Equal(t, 0, locks.Len())
}

func TestLockRegistry_ReleaseIsIdempotent(t *testing.T) {
	locks := NewLockRegistry(nil)
	release, err := locks.Acquire(context.Background(), 3)
	require.NoError(t, err)

	release()
	release()

	again, err := locks.Acquire(context.Background(), 3)
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, locks.Len())
}

func TestLockRegistry_AcquireOrderedDedupes(t *testing.T) {
	locks := NewLockRegistry(nil)
	release, err := locks.AcquireOrdered(context.Background(), 5, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, locks.Len())
	release()
	assert.Equal(t, 0, locks.Len())
}

func TestLockRegistry_AcquireOrderedReleasesOnFailure(t *testing.T) {
	locks := NewLockRegistry(nil)
	ctx := context.Background()

	held, err := locks.Acquire(ctx, 9)
	require.NoError(t, err)

	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = locks.AcquireOrdered(tctx, 9, 4)
	require.Error(t, err)

	// 4 was taken first and must have been given back.
	r4, err := locks.Acquire(ctx, 4)
	require.NoError(t, err)
	r4()
	held()
	assert.Equal(t, 0, locks.Len())
}

func TestLockRegistry_OppositeOrderNoDeadlock(t *testing.T) {
	locks := NewLockRegistry(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r, err := locks.AcquireOrdered(ctx, 1, 2)
			if assert.NoError(t, err) {
				r()
			}
		}()
		go func() {
			defer wg.Done()
			r, err := locks.AcquireOrdered(ctx, 2, 1)
			if assert.NoError(t, err) {
				r()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, locks.Len())
}

func TestUniqueSorted(t *testing.T) {
	got := uniqueSorted([]domain.AccountID{4, 1, 4, 3, 1})
	assert.Equal(t, []domain.AccountID{1, 3, 4}, got)
}
