package service

import (
	"context"
	"fmt"
	"sync"

	"game-economy-ledger/internal/monitoring"
	"game-economy-ledger/pkg/apperror"
)

// Future is the pending result of a ledger operation running off the
// caller's loop.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future that is already resolved.
func Completed[T any](val T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(val, err)
	return f
}

func (f *Future[T]) resolve(val T, err error) {
	f.val, f.err = val, err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Poll returns the result without blocking. ok is false while pending.
func (f *Future[T]) Poll() (val T, ok bool, err error) {
	select {
	case <-f.done:
		return f.val, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}

// Await blocks until the result is ready or ctx ends. It must not be called
// from the primary loop.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete arranges for cb to run through schedule once the result is
// ready. Pass MainThread.Schedule to get the callback on the primary loop.
func (f *Future[T]) OnComplete(schedule func(func()), cb func(T, error)) {
	go func() {
		<-f.done
		schedule(func() { cb(f.val, f.err) })
	}()
}

// Bridge runs ledger work on background goroutines, bounded by a worker
// limit. A zero limit means unbounded.
type Bridge struct {
	slots   chan struct{}
	wg      sync.WaitGroup
	metrics *monitoring.Metrics
}

// NewBridge creates a bridge allowing at most workers concurrent operations.
func NewBridge(workers int, metrics *monitoring.Metrics) *Bridge {
	b := &Bridge{metrics: metrics}
	if workers > 0 {
		b.slots = make(chan struct{}, workers)
	}
	return b
}

// Submit runs fn on a worker and returns its future. Panics inside fn resolve
// the future with an internal error.
func Submit[T any](ctx context.Context, b *Bridge, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		if b.slots != nil {
			select {
			case b.slots <- struct{}{}:
				defer func() { <-b.slots }()
			case <-ctx.Done():
				var zero T
				f.resolve(zero, apperror.ErrPersistenceFailure(fmt.Errorf("waiting for ledger worker: %w", ctx.Err())))
				return
			}
		}

		b.metrics.AsyncStarted()
		defer b.metrics.AsyncFinished()

		var (
			val T
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = apperror.InternalError(fmt.Errorf("ledger worker panic: %v", r))
				}
			}()
			val, err = fn(ctx)
		}()
		f.resolve(val, err)
	}()
	return f
}

// Wait blocks until every submitted operation has finished or ctx ends.
func (b *Bridge) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MainThread is a queue of callbacks drained by the caller's primary loop on
// its own schedule.
type MainThread struct {
	mu      sync.Mutex
	pending []func()
}

// Schedule queues fn for the next RunPending. Safe from any goroutine.
func (m *MainThread) Schedule(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// RunPending runs queued callbacks on the calling goroutine and returns how
// many ran. Callbacks scheduled while draining wait for the next call.
func (m *MainThread) RunPending() int {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}
