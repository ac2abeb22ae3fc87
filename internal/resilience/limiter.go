package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig configures one (provider, credential) token bucket,
// grounded on the teacher's infrastructure/ratelimit.RateLimitConfig.
type LimiterConfig struct {
	PerMinute int
	Burst     int
	// MaxWait bounds how long Acquire will park waiting for tokens before
	// failing with context.DeadlineExceeded (mapped by callers to
	// svcerrors.KindRateLimit).
	MaxWait time.Duration
}

// DefaultLimiterConfig mirrors the §4.B defaults (100 req/min, burst 20).
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{PerMinute: 100, Burst: 20, MaxWait: 30 * time.Second}
}

// bucket is one provider+credential token bucket with adaptive pausing.
type bucket struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	cfg       LimiterConfig
	pausedTil time.Time
}

// Limiter manages per-(provider, credential) token buckets. The zero value
// is not usable; build one with NewLimiter. Buckets are created lazily on
// first Acquire.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	cfg     LimiterConfig
}

// NewLimiter constructs a Limiter with the given default bucket config,
// used for any (provider, credential) pair not explicitly configured.
func NewLimiter(cfg LimiterConfig) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 30 * time.Second
	}
	return &Limiter{buckets: make(map[string]*bucket), cfg: cfg}
}

func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			limiter: rate.NewLimiter(rate.Limit(float64(l.cfg.PerMinute)/60.0), l.cfg.Burst),
			cfg:     l.cfg,
		}
		l.buckets[key] = b
	}
	return b
}

// ErrRateLimitTimeout is returned when Acquire's MaxWait elapses before a
// token becomes available.
var ErrRateLimitTimeout = context.DeadlineExceeded

// Acquire blocks (up to the bucket's MaxWait) until n tokens are available
// for the given (provider, credential) key, honoring any adaptive pause
// set by Pause. It returns ErrRateLimitTimeout if the wait bound elapses.
func (l *Limiter) Acquire(ctx context.Context, key string, n int) error {
	b := l.bucketFor(key)

	b.mu.Lock()
	pausedTil := b.pausedTil
	b.mu.Unlock()
	if wait := time.Until(pausedTil); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxWait)
	defer cancel()
	if err := b.limiter.WaitN(waitCtx, n); err != nil {
		return ErrRateLimitTimeout
	}
	return nil
}

// Pause implements the adaptive behaviour of §4.B: when an upstream
// returns 429 or a Retry-After-equivalent header, the bucket is paused
// until the advised instant.
func (l *Limiter) Pause(key string, until time.Time) {
	b := l.bucketFor(key)
	b.mu.Lock()
	if until.After(b.pausedTil) {
		b.pausedTil = until
	}
	b.mu.Unlock()
}
