// Package cache implements the two-tier (L1 in-process + L2 distributed)
// key-value store described in spec.md §4.A: pipelined batch operations,
// pattern invalidation, and graceful degradation to L1-only when the
// distributed tier is unreachable. It is grounded on the teacher's
// infrastructure/cache package (the CacheEntry{Value, Expiration} shape),
// generalized to two tiers and sharded locking; no background cleanup
// runs, so an expired L1 entry is skipped on read and stays in its shard
// until it is overwritten or evicted. The L2 tier is backed by github.com/redis/go-redis/v9 (the
// library evalgo-org-eve and jordigilh-kubernaut both pair with
// alicebob/miniredis/v2 for tests).
package cache

import (
	"context"
	"errors"
	"path"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/logging"
)

// ErrNegativeTTL is returned when Set/SetMany is called with a negative TTL.
var ErrNegativeTTL = errors.New("cache: ttl must be >= 0")

// Config controls the L1 quota and L2 deadline.
type Config struct {
	MaxEntries        int
	DistributedDeadline time.Duration
}

// DefaultConfig mirrors the §6 configuration contract defaults.
func DefaultConfig() Config {
	return Config{MaxEntries: 50000, DistributedDeadline: 2 * time.Second}
}

// SetInput is one key/value/ttl triple for SetMany.
type SetInput struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// Stats is the counters returned by Engine.Stats().
type Stats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Evictions int64
	Errors    int64
}

// HitRate returns Hits/(Hits+Misses), or 0 when there have been no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Engine is the two-tier cache. The zero value is not usable; build one
// with New.
type Engine struct {
	cfg    Config
	shards [shardCount]*shard
	l2     *redis.Client
	log    *logging.Logger

	hits, misses, sets, evictions, errs int64
}

// New constructs an Engine. l2 may be nil, in which case the engine runs
// L1-only and every L2-dependent operation degrades silently.
func New(cfg Config, l2 *redis.Client, log *logging.Logger) *Engine {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 50000
	}
	if cfg.DistributedDeadline <= 0 {
		cfg.DistributedDeadline = 2 * time.Second
	}
	e := &Engine{cfg: cfg, l2: l2, log: log}
	for i := range e.shards {
		e.shards[i] = newShard()
	}
	return e
}

func (e *Engine) shardFor(key string) *shard {
	return e.shards[shardIndex(key)]
}

func (e *Engine) perShardQuota() int {
	return e.cfg.MaxEntries / shardCount
}

func (e *Engine) l2Ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.DistributedDeadline)
}

// Get looks up key, checking L1 first and falling through to L2 on an L1
// miss. L2 errors are logged and treated as a miss; they are never
// returned to the caller (§4.A, §7).
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool) {
	now := time.Now()
	if v, ok := e.shardFor(key).get(key, now); ok {
		atomic.AddInt64(&e.hits, 1)
		return v, true
	}

	if e.l2 != nil {
		l2ctx, cancel := e.l2Ctx(ctx)
		v, err := e.l2.Get(l2ctx, key).Bytes()
		cancel()
		if err == nil {
			atomic.AddInt64(&e.hits, 1)
			// Backfill L1 with a short TTL; the original TTL is not
			// recoverable from a bare GET, so callers that need exact
			// expiry should rely on L1 for that and treat this as a
			// warm-cache convenience.
			e.shardFor(key).set(key, v, 60*time.Second, now, e.perShardQuota())
			return v, true
		}
		if !errors.Is(err, redis.Nil) {
			atomic.AddInt64(&e.errs, 1)
			if e.log != nil {
				e.log.Component("cache").WithError(err).Warn("l2 get failed, falling through to miss")
			}
		}
	}

	atomic.AddInt64(&e.misses, 1)
	return nil, false
}

// Set stores value under key with the given ttl. ttl == 0 means "do not
// cache" (a no-op); ttl < 0 is rejected with ErrNegativeTTL. L2 failures
// degrade gracefully: the L1 write still happens and no error propagates
// past this function for L2 problems.
func (e *Engine) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return ErrNegativeTTL
	}
	if ttl == 0 {
		return nil
	}

	now := time.Now()
	sh := e.shardFor(key)
	before := sh.size()
	sh.set(key, value, ttl, now, e.perShardQuota())
	after := sh.size()
	if after < before {
		atomic.AddInt64(&e.evictions, int64(before-after))
	}
	atomic.AddInt64(&e.sets, 1)

	if e.l2 != nil {
		l2ctx, cancel := e.l2Ctx(ctx)
		err := e.l2.Set(l2ctx, key, value, ttl).Err()
		cancel()
		if err != nil {
			atomic.AddInt64(&e.errs, 1)
			if e.log != nil {
				e.log.Component("cache").WithError(err).Warn("l2 set failed, degrading to l1-only")
			}
		}
	}
	return nil
}

// GetMany looks up all keys, returning a map with a nil value for misses.
// L1 is checked per-key first; remaining misses are grouped into a single
// L2 pipeline (MGET) and hits backfill L1.
func (e *Engine) GetMany(ctx context.Context, keys []string) map[string][]byte {
	result := make(map[string][]byte, len(keys))
	var l2Misses []string
	now := time.Now()

	for _, k := range keys {
		if v, ok := e.shardFor(k).get(k, now); ok {
			atomic.AddInt64(&e.hits, 1)
			result[k] = v
		} else {
			l2Misses = append(l2Misses, k)
		}
	}

	if len(l2Misses) == 0 || e.l2 == nil {
		for _, k := range l2Misses {
			atomic.AddInt64(&e.misses, 1)
			result[k] = nil
		}
		return result
	}

	l2ctx, cancel := e.l2Ctx(ctx)
	vals, err := e.l2.MGet(l2ctx, l2Misses...).Result()
	cancel()
	if err != nil {
		atomic.AddInt64(&e.errs, 1)
		if e.log != nil {
			e.log.Component("cache").WithError(err).Warn("l2 pipeline mget failed")
		}
		for _, k := range l2Misses {
			atomic.AddInt64(&e.misses, 1)
			result[k] = nil
		}
		return result
	}

	for i, k := range l2Misses {
		if i >= len(vals) || vals[i] == nil {
			atomic.AddInt64(&e.misses, 1)
			result[k] = nil
			continue
		}
		s, ok := vals[i].(string)
		if !ok {
			atomic.AddInt64(&e.misses, 1)
			result[k] = nil
			continue
		}
		v := []byte(s)
		atomic.AddInt64(&e.hits, 1)
		result[k] = v
		e.shardFor(k).set(k, v, 60*time.Second, now, e.perShardQuota())
	}
	return result
}

// SetMany stores every entry via a single L2 pipeline, then writes each to
// L1. If at least 30% of the pipeline's per-item writes fail, 20% of each
// L1 shard is evicted and a warning is logged (§4.A).
func (e *Engine) SetMany(ctx context.Context, entries []SetInput) error {
	now := time.Now()

	if e.l2 != nil {
		l2ctx, cancel := e.l2Ctx(ctx)
		pipe := e.l2.Pipeline()
		cmds := make([]*redis.StatusCmd, 0, len(entries))
		for _, it := range entries {
			if it.TTL < 0 {
				cancel()
				return ErrNegativeTTL
			}
			if it.TTL == 0 {
				cmds = append(cmds, nil)
				continue
			}
			cmds = append(cmds, pipe.Set(l2ctx, it.Key, it.Value, it.TTL))
		}
		_, _ = pipe.Exec(l2ctx)
		cancel()

		failures := 0
		for _, c := range cmds {
			if c != nil && c.Err() != nil {
				failures++
			}
		}
		if len(entries) > 0 && float64(failures)/float64(len(entries)) >= 0.3 {
			atomic.AddInt64(&e.errs, int64(failures))
			if e.log != nil {
				e.log.Component("cache").Warn("l2 setMany exceeded 30% per-item failure rate, evicting l1")
			}
			for _, sh := range e.shards {
				sh.mu.Lock()
				sh.evictOldestLocked(maxInt(1, len(sh.entries)/5))
				sh.mu.Unlock()
			}
		}
	}

	for _, it := range entries {
		if it.TTL < 0 {
			return ErrNegativeTTL
		}
		if it.TTL == 0 {
			continue
		}
		sh := e.shardFor(it.Key)
		before := sh.size()
		sh.set(it.Key, it.Value, it.TTL, now, e.perShardQuota())
		after := sh.size()
		if after < before {
			atomic.AddInt64(&e.evictions, int64(before-after))
		}
		atomic.AddInt64(&e.sets, 1)
	}
	return nil
}

// DeletePattern deletes every key matching glob from both tiers and
// returns the number of distinct keys removed (a key held in both tiers
// counts once). L2 iteration uses SCAN (non-blocking, cursor-based) in
// batches of up to 1000 keys per pipeline.
func (e *Engine) DeletePattern(ctx context.Context, glob string) int {
	removed := make(map[string]struct{})
	for _, sh := range e.shards {
		sh.mu.Lock()
		for k := range sh.entries {
			if matched, _ := path.Match(glob, k); matched {
				delete(sh.entries, k)
				removed[k] = struct{}{}
			}
		}
		sh.mu.Unlock()
	}

	if e.l2 == nil {
		return len(removed)
	}

	l2ctx, cancel := e.l2Ctx(ctx)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := e.l2.Scan(l2ctx, cursor, glob, 1000).Result()
		if err != nil {
			atomic.AddInt64(&e.errs, 1)
			if e.log != nil {
				e.log.Component("cache").WithError(err).Warn("l2 scan failed during deletePattern")
			}
			break
		}
		if len(keys) > 0 {
			if err := e.l2.Del(l2ctx, keys...).Err(); err == nil {
				for _, k := range keys {
					removed[k] = struct{}{}
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return len(removed)
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Hits:      atomic.LoadInt64(&e.hits),
		Misses:    atomic.LoadInt64(&e.misses),
		Sets:      atomic.LoadInt64(&e.sets),
		Evictions: atomic.LoadInt64(&e.evictions),
		Errors:    atomic.LoadInt64(&e.errs),
	}
}

// Ping reports whether the L2 tier (if configured) is reachable, used by
// the health_check tool.
func (e *Engine) Ping(ctx context.Context) error {
	if e.l2 == nil {
		return nil
	}
	l2ctx, cancel := e.l2Ctx(ctx)
	defer cancel()
	return e.l2.Ping(l2ctx).Err()
}
