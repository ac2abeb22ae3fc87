// Package resilience provides the rate limiting and circuit breaking of
// spec.md §4.B. The breaker is a thin adapter over
// github.com/sony/gobreaker/v2 that preserves the Closed/Open/HalfOpen
// vocabulary and Execute(ctx, fn) call shape the rest of the engine
// expects, mirroring the teacher's own infrastructure/resilience package
// (which wraps the identical library the same way).
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/logging"
)

// State mirrors gobreaker's three-state machine under the names used in
// spec.md §4.B.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Sentinel errors surfaced to callers; svcerrors maps these to KindCircuitOpen.
var (
	ErrCircuitOpen     = errors.New("resilience: circuit breaker is open")
	ErrTooManyRequests = errors.New("resilience: too many requests in half-open state")
)

// BreakerConfig configures one provider's circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           // consecutive or windowed failures before opening
	FailureRatio     float64       // e.g. 0.5 for ">50%"
	MinSamples       uint32        // minimum samples before the ratio trigger applies
	Cooldown         time.Duration // time spent in Open before probing
	HalfOpenMax      uint32        // max probe requests allowed in HalfOpen
	OnStateChange    func(provider string, from, to State)
}

// DefaultBreakerConfig mirrors the spec.md §4.B defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		FailureRatio:     0.5,
		MinSamples:       10,
		Cooldown:         60 * time.Second,
		HalfOpenMax:      3,
	}
}

// Breaker wraps a gobreaker.CircuitBreaker[any] for one upstream provider.
type Breaker struct {
	provider string
	gb       *gobreaker.CircuitBreaker[any]
}

// NewBreaker constructs a Breaker for the named provider.
func NewBreaker(provider string, cfg BreakerConfig, log *logging.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.HalfOpenMax == 0 {
		cfg.HalfOpenMax = 3
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.5
	}
	if cfg.MinSamples == 0 {
		cfg.MinSamples = 10
	}

	threshold := uint32(cfg.FailureThreshold)

	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    5 * time.Minute, // rolling window for the Closed-state failure count
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= threshold {
				return true
			}
			if counts.Requests >= cfg.MinSamples {
				ratio := float64(counts.TotalFailures) / float64(counts.Requests)
				return ratio > cfg.FailureRatio
			}
			return false
		},
	}
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		if log != nil {
			log.Component("resilience").WithField("provider", name).
				WithField("from", mapState(from).String()).
				WithField("to", mapState(to).String()).
				Warn("circuit breaker state changed")
		}
		if cfg.OnStateChange != nil {
			cfg.OnStateChange(name, mapState(from), mapState(to))
		}
	}

	return &Breaker{provider: provider, gb: gobreaker.NewCircuitBreaker[any](settings)}
}

func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	return mapState(b.gb.State())
}

// Execute runs fn under circuit-breaker protection. Only errors for which
// IsRetriable returns true (5xx, connection errors, timeouts — classified
// by the caller) should be passed through from fn; 4xx responses must be
// turned into a nil-wrapped sentinel by the caller before reaching here so
// they never count toward the breaker, per §4.B.
func (b *Breaker) Execute(_ context.Context, fn func() error) error {
	_, err := b.gb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil {
		return translateGobreakerErr(err)
	}
	return nil
}

func translateGobreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrCircuitOpen
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrTooManyRequests
	}
	return err
}
