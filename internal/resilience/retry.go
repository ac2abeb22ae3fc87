package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures the exponential-backoff retry policy of §4.C
// step 5 (base 1000ms, multiplier 2, max delay 30s, max attempts 3).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

// DefaultRetryConfig mirrors the spec.md §6/§4.C defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1000 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// Retriable wraps an error to mark it as eligible for retry/breaker
// counting. Upstream clients classify transport errors, 5xx, and timeouts
// as Retriable; 4xx (other than 429) is returned unwrapped so it is
// neither retried nor counted toward the circuit breaker, per §4.B/§4.C.
type Retriable struct{ Err error }

func (r *Retriable) Error() string { return r.Err.Error() }
func (r *Retriable) Unwrap() error { return r.Err }

// MarkRetriable wraps err as Retriable, or returns nil if err is nil.
func MarkRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &Retriable{Err: err}
}

// IsRetriable reports whether err was marked via MarkRetriable.
func IsRetriable(err error) bool {
	_, ok := err.(*Retriable)
	return ok
}

// Retry runs fn using an exponential backoff-with-jitter policy, backed by
// github.com/cenkalti/backoff/v4 (grounded on the teacher's own
// infrastructure/resilience.Retry, which wraps the identical library).
// Retry stops early, without further attempts, on any error not marked
// Retriable.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if cfg.BaseDelay > 0 {
		bo.InitialInterval = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		bo.MaxInterval = cfg.MaxDelay
	}
	if cfg.Multiplier > 0 {
		bo.Multiplier = cfg.Multiplier
	}
	if cfg.Jitter > 0 {
		bo.RandomizationFactor = cfg.Jitter
	} else {
		bo.RandomizationFactor = 0
	}
	bo.MaxElapsedTime = 0 // bounded by MaxAttempts instead of elapsed time

	maxRetries := uint64(cfg.MaxAttempts - 1)
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetriable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
