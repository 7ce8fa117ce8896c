package concurrency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("MODELCHAIN_WORKERS", "6")
	t.Setenv("MODELCHAIN_STORE_CONCURRENCY", "3")

	cfg := LoadConfig()
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, 3, cfg.StoreConcurrency)
	assert.Equal(t, ConfigSourceEnvVar, cfg.Source)
	assert.Contains(t, cfg.String(), "Workers: 6")
}

func TestLoadConfigAutoDetect(t *testing.T) {
	t.Setenv("MODELCHAIN_WORKERS", "")
	t.Setenv("MODELCHAIN_CONCURRENCY_MULTIPLIER", "")
	t.Setenv("MODELCHAIN_STORE_CONCURRENCY", "")

	cfg := LoadConfig()
	assert.Equal(t, ConfigSourceAutoDetect, cfg.Source)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, cfg.Workers, cfg.StoreConcurrency)
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	l := NewLimiter(2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(ctx, func(context.Context) error {
				assert.LessOrEqual(t, l.CurrentActive(), int64(2))
				time.Sleep(time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m := l.GetMetrics()
	assert.Equal(t, int64(10), m.TotalAcquired)
	assert.Equal(t, int64(10), m.TotalReleased)
	assert.LessOrEqual(t, m.PeakConcurrent, int64(2))
	assert.Equal(t, int64(0), l.CurrentActive())
	assert.Equal(t, 2, l.Capacity())
}

func TestLimiterAcquireHonoursContext(t *testing.T) {
	l := NewLimiter(1)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiterFailsFastWhenCircuitOpen(t *testing.T) {
	l := NewLimiterWithCircuitBreaker(1, NewCircuitBreaker(2, time.Hour))
	boom := errors.New("boom")
	ctx := context.Background()

	assert.ErrorIs(t, l.Do(ctx, func(context.Context) error { return boom }), boom)
	assert.ErrorIs(t, l.Do(ctx, func(context.Context) error { return boom }), boom)
	assert.Equal(t, StateOpen, l.GetCircuitBreakerState())

	err := l.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreakerHalfOpenCycle(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Millisecond)
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	time.Sleep(10 * time.Millisecond)
	assert.False(t, cb.IsOpen())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	for i := 0; i < halfOpenSuccesses; i++ {
		cb.RecordSuccess()
	}
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, "closed", cb.GetState().String())
}

func TestCircuitBreakerFailureInHalfOpenReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 5*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	require.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Zero(t, cb.GetConsecutiveFailures())
}
