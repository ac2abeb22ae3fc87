package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/logging"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/svcerrors"
)

// Pipeline bundles the cache/limiter/breaker/retry dependencies shared by
// every upstream client request, implementing the six-step sequence of
// §4.C: cache lookup, rate-limit acquire, circuit-breaker gate, HTTP
// attempt, retry-with-backoff, cache store.
type Pipeline struct {
	Provider string
	Cache    *cache.Engine
	Limiter  *resilience.Limiter
	Breaker  *resilience.Breaker
	Retry    resilience.RetryConfig
	Log      *logging.Logger
}

// Options parameterizes one Do call.
type Options struct {
	// CacheKey, when non-empty and TTL>0, enables request-level caching.
	CacheKey string
	TTL      int64 // seconds; 0 disables caching for this call
	// Credential distinguishes rate-limit buckets for the same provider
	// (e.g. distinct API tokens); "" selects a single shared bucket.
	Credential string
	// Tokens is the number of rate-limit tokens this call consumes
	// (>1 for known-expensive endpoints such as search).
	Tokens int
}

func (o Options) credentialKey(provider string) string {
	if o.Credential == "" {
		return provider + ":default"
	}
	return provider + ":" + o.Credential
}

// Do runs fetch under the full pipeline and returns its decoded result.
// fetch must wrap its returned error with resilience.MarkRetriable when
// the failure is a 5xx/timeout/connection error (see ClassifyHTTPError);
// non-retriable errors short-circuit the retry loop and are reported to
// the caller, but are not counted toward the circuit breaker's failure
// budget.
func Do[T any](ctx context.Context, p *Pipeline, opts Options, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if opts.TTL > 0 && opts.CacheKey != "" {
		if raw, ok := p.Cache.Get(ctx, opts.CacheKey); ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	tokens := opts.Tokens
	if tokens <= 0 {
		tokens = 1
	}
	if err := p.Limiter.Acquire(ctx, opts.credentialKey(p.Provider), tokens); err != nil {
		return zero, svcerrors.New(svcerrors.KindRateLimit, err).
			WithMessage(fmt.Sprintf("%s rate limit wait exceeded", p.Provider))
	}

	var result T
	var nonRetriable error
	execErr := p.Breaker.Execute(ctx, func() error {
		err := resilience.Retry(ctx, p.Retry, func() error {
			v, err := fetch(ctx)
			if err != nil {
				return err
			}
			result = v
			return nil
		})
		if err != nil && !resilience.IsRetriable(err) {
			// Reported to the caller below, but hidden from the breaker.
			nonRetriable = err
			return nil
		}
		return err
	})
	if execErr == nil && nonRetriable != nil {
		execErr = nonRetriable
	}

	if execErr != nil {
		return zero, translateErr(p.Provider, execErr)
	}

	if opts.TTL > 0 && opts.CacheKey != "" {
		if raw, err := json.Marshal(result); err == nil {
			_ = p.Cache.Set(ctx, opts.CacheKey, raw, time.Duration(opts.TTL)*time.Second)
		}
	}
	return result, nil
}

func translateErr(provider string, err error) error {
	if err == resilience.ErrCircuitOpen {
		return svcerrors.New(svcerrors.KindCircuitOpen, err).
			WithMessage(fmt.Sprintf("%s circuit breaker is open", provider))
	}
	if err == resilience.ErrTooManyRequests {
		return svcerrors.New(svcerrors.KindCircuitOpen, err).
			WithMessage(fmt.Sprintf("%s circuit breaker is probing (half-open)", provider))
	}
	if se, ok := svcerrors.As(err); ok {
		return se
	}
	if svcerrors.KindOf(err) == svcerrors.KindInternal {
		return svcerrors.New(svcerrors.KindUpstream, err)
	}
	return err
}
