package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrobhoward/rustbridge/errcode"
)

func TestCallSyncReturnsResult(t *testing.T) {
	b := New(2)
	got, err := CallSync(b, context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCallSyncPropagatesHandlerError(t *testing.T) {
	b := New(1)
	want := errors.New("handler boom")
	_, err := CallSync(b, context.Background(), func(ctx context.Context) (int, error) {
		return 0, want
	})
	assert.ErrorIs(t, err, want)
}

func TestCallSyncAfterShutdownFailsFast(t *testing.T) {
	b := New(1)
	b.InitiateShutdown()

	_, err := CallSync(b, context.Background(), func(ctx context.Context) (int, error) {
		t.Fatal("handler must not run after shutdown")
		return 0, nil
	})
	require.Error(t, err)
	assert.Equal(t, uint32(errcode.RuntimeError), errcode.CodeOf(err))
}

func TestCallSyncBoundsConcurrency(t *testing.T) {
	b := New(1)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = CallSync(b, context.Background(), func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()

	<-started

	secondDone := make(chan struct{})
	go func() {
		_, _ = CallSync(b, context.Background(), func(ctx context.Context) (int, error) {
			return 1, nil
		})
		close(secondDone)
	}()

	select {
	case <-secondDone:
		t.Fatal("second call ran while the single worker slot was held")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-secondDone
}

func TestRunStopSucceedsWithinDeadline(t *testing.T) {
	b := New(1)
	ok, err := RunStop(b, context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunStopTimesOut(t *testing.T) {
	b := New(1)
	ok, err := RunStop(b, context.Background(), 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.False(t, ok)
	require.Error(t, err)
	assert.Equal(t, uint32(errcode.ShutdownFailed), errcode.CodeOf(err))
}

// TestRunStopSucceedsWhenCalledBeforeShutdownSignal pins down the call
// order a real shutdown must use: RunStop's own CallSync bails out with
// RuntimeError the instant InitiateShutdown has already been observed, so
// on_stop must be driven to completion first and InitiateShutdown only
// comes after.
func TestRunStopSucceedsWhenCalledBeforeShutdownSignal(t *testing.T) {
	b := New(1)
	ok, err := RunStop(b, context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ok)

	b.InitiateShutdown()
	require.NoError(t, b.Wait())
}

func TestRunStopFailsFastIfShutdownAlreadyInitiated(t *testing.T) {
	b := New(1)
	b.InitiateShutdown()

	ok, err := RunStop(b, context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	assert.True(t, ok, "RunStop's own goroutine completes, just with an error result")
	require.Error(t, err)
	assert.Equal(t, uint32(errcode.RuntimeError), errcode.CodeOf(err), "calling InitiateShutdown before RunStop must never be done in production code")
}
