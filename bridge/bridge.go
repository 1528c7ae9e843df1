// Package bridge hosts the worker pool that drives a Handle's suspending
// handler code from synchronous FFI entry points (spec.md §4.C). The ABI
// never exposes goroutines, channels, or contexts to the host: it exposes
// exactly one operation, CallSync, which parks the calling goroutine until
// the submitted work completes or the bridge is shut down.
package bridge

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jrobhoward/rustbridge/errcode"
)

// Bridge owns one Handle's worker pool: a weighted semaphore bounding how
// many handler bodies run at once, an errgroup tracking them for drain on
// shutdown, and a shutdown signal every in-flight and future call observes.
// Mirrors the teacher's activeHandlers sync.WaitGroup + goroutine-per-call
// pattern, generalized into a sized pool instead of an unbounded one.
type Bridge struct {
	sem *semaphore.Weighted

	mu       sync.Mutex
	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New creates a Bridge whose worker pool admits up to workerThreads
// concurrent tasks. A workerThreads of 0 derives a default from the host's
// available cores, matching PluginConfig's "0 = auto" convention.
func New(workerThreads uint32) *Bridge {
	n := int(workerThreads)
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
		if n < 1 {
			n = 1
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	return &Bridge{
		sem:        semaphore.NewWeighted(int64(n)),
		group:      g,
		groupCtx:   gctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
	}
}

// ShuttingDown reports whether InitiateShutdown has been called.
func (b *Bridge) ShuttingDown() bool {
	select {
	case <-b.shutdownCh:
		return true
	default:
		return false
	}
}

// InitiateShutdown flips the shutdown signal, waking any task parked on it.
// Idempotent: a second call is a no-op.
func (b *Bridge) InitiateShutdown() {
	b.shutdownOnce.Do(func() { close(b.shutdownCh) })
}

// CallSync parks the calling goroutine until fn completes on the pool,
// returning its result. If the bridge has already been shut down, or ctx
// is cancelled before a worker slot is acquired, CallSync fails fast with
// a RuntimeError/Cancelled errcode.Error rather than running fn at all.
func CallSync[T any](b *Bridge, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if b.ShuttingDown() {
		return zero, errcode.New(errcode.RuntimeError, "bridge is shut down")
	}

	acquireCtx, cancelAcquire := withShutdown(ctx, b.shutdownCh)
	defer cancelAcquire()

	if err := b.sem.Acquire(acquireCtx, 1); err != nil {
		if b.ShuttingDown() {
			return zero, errcode.New(errcode.RuntimeError, "bridge is shut down")
		}
		return zero, errcode.Wrap(errcode.Cancelled, err, "acquire worker slot")
	}
	defer b.sem.Release(1)

	resultCh := make(chan result[T], 1)
	b.mu.Lock()
	b.group.Go(func() error {
		v, err := fn(b.groupCtx)
		resultCh <- result[T]{v, err}
		return nil // handler errors are returned to the caller, not the pool
	})
	b.mu.Unlock()

	select {
	case r := <-resultCh:
		return r.value, r.err
	case <-b.shutdownCh:
		// The task keeps running to completion (cooperative cancellation
		// only); the caller unparks immediately so shutdown isn't blocked
		// on a handler that ignores the signal.
		select {
		case r := <-resultCh:
			return r.value, r.err
		default:
			return zero, errcode.New(errcode.Cancelled, "bridge shutdown observed mid-call")
		}
	}
}

type result[T any] struct {
	value T
	err   error
}

// RunStop drives on_stop under CallSync with a deadline of timeout,
// reporting whether it completed in time. Callers transition the owning
// Handle to Failed when ok is false, per spec.md §4.C.
func RunStop(b *Bridge, parent context.Context, timeout time.Duration, stop func(context.Context) error) (ok bool, err error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, e := CallSync(b, ctx, func(context.Context) (struct{}, error) {
			// stop gets the deadline context itself, so a cooperative
			// on_stop can observe the timeout.
			return struct{}{}, stop(ctx)
		})
		done <- e
	}()

	select {
	case e := <-done:
		return true, e
	case <-ctx.Done():
		return false, errcode.Wrap(errcode.ShutdownFailed, ctx.Err(), "on_stop exceeded shutdown_timeout_ms")
	}
}

// Wait blocks until every task submitted via CallSync has returned. Call
// after InitiateShutdown to guarantee no task races with handle teardown.
func (b *Bridge) Wait() error {
	b.mu.Lock()
	g := b.group
	b.mu.Unlock()
	err := g.Wait()
	b.cancel()
	return err
}

func withShutdown(parent context.Context, shutdown <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := make(chan struct{})
	go func() {
		select {
		case <-shutdown:
			cancel()
		case <-stop:
		}
	}()
	return ctx, func() {
		close(stop)
		cancel()
	}
}
