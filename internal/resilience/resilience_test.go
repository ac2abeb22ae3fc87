package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 5
	cfg.Cooldown = 50 * time.Millisecond
	b := NewBreaker("scm", cfg, nil)

	failing := errors.New("boom")
	for i := 0; i < 5; i++ {
		err := b.Execute(context.Background(), func() error { return failing })
		require.Error(t, err)
	}

	require.Equal(t, StateOpen, b.State())

	start := time.Now()
	err := b.Execute(context.Background(), func() error {
		t.Fatal("fn must not run while circuit is open")
		return nil
	})
	require.True(t, errors.Is(err, ErrCircuitOpen))
	require.Less(t, time.Since(start), 5*time.Millisecond)
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.FailureThreshold = 2
	cfg.Cooldown = 20 * time.Millisecond
	cfg.HalfOpenMax = 1
	b := NewBreaker("tracker", cfg, nil)

	failing := errors.New("boom")
	_ = b.Execute(context.Background(), func() error { return failing })
	_ = b.Execute(context.Background(), func() error { return failing })
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)

	err := b.Execute(context.Background(), func() error { return nil })
	require.NoError(t, err)
	require.Equal(t, StateClosed, b.State())
}

func TestLimiterAcquireWithinBurst(t *testing.T) {
	l := NewLimiter(LimiterConfig{PerMinute: 600, Burst: 5, MaxWait: time.Second})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Acquire(ctx, "tracker:default", 1))
	}
}

func TestLimiterTimesOutWhenExhausted(t *testing.T) {
	l := NewLimiter(LimiterConfig{PerMinute: 60, Burst: 1, MaxWait: 30 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "scm:default", 1))
	err := l.Acquire(ctx, "scm:default", 1)
	require.Error(t, err)
}

func TestLimiterPauseDelaysAcquire(t *testing.T) {
	l := NewLimiter(LimiterConfig{PerMinute: 6000, Burst: 10, MaxWait: time.Second})
	pauseUntil := time.Now().Add(80 * time.Millisecond)
	l.Pause("tracker:default", pauseUntil)

	start := time.Now()
	require.NoError(t, l.Acquire(context.Background(), "tracker:default", 1))
	require.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestRetrySucceedsAfterRetriableFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}, func() error {
		attempts++
		if attempts < 3 {
			return MarkRetriable(errors.New("transient"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetriable(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), DefaultRetryConfig(), func() error {
		attempts++
		return errors.New("400 bad request")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestRetryExhaustsMaxAttempts(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}, func() error {
		attempts++
		return MarkRetriable(errors.New("still failing"))
	})
	require.Error(t, err)
	require.Equal(t, 3, attempts)
}
