package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExecutesFirstCycleAfterDelay(t *testing.T) {
	var runs int32
	s := New("test", time.Hour, 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestRunSkipsWhenDataIsFresh(t *testing.T) {
	var runs int32
	s := New("test", time.Hour, 0, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}).WithFreshness(func(ctx context.Context) (time.Time, error) {
		return time.Now().Add(-time.Minute), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int32(0), atomic.LoadInt32(&runs))
}

func TestRunExecutesWhenDataIsStale(t *testing.T) {
	var runs int32
	s := New("test", time.Minute, 0, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}).WithFreshness(func(ctx context.Context) (time.Time, error) {
		return time.Now().Add(-2 * time.Hour), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	s := New("test", time.Hour, time.Hour, func(ctx context.Context) error { return nil })
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "scheduler did not stop on cancellation")
	}
}
