// Command sprintreportd wires the cache, resilience, tracker/scm clients,
// aggregation service, and tool registry together and invokes a single
// named tool, printing its envelope as JSON. It is a thin adapter only —
// no HTTP/MCP transport is provided (see DESIGN.md's Non-goals).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/snehaldangroshiya/sprint-report-sub001/internal/aggregator"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/cache"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/config"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/httpx"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/logging"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/resilience"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/scm"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/toolregistry"
	"github.com/snehaldangroshiya/sprint-report-sub001/internal/tracker"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML/JSON config file (overlays defaults and SPRINTREPORT_ env vars)")
	redisAddr := flag.String("redis-addr", "", "L2 cache endpoint (empty runs L1-only)")
	trackerURL := flag.String("tracker-url", "", "issue-tracker base URL")
	trackerToken := flag.String("tracker-token", os.Getenv("SPRINTREPORT_TRACKER_TOKEN"), "issue-tracker API token")
	scmURL := flag.String("scm-url", "", "source-control REST base URL (empty selects api.github.com)")
	scmToken := flag.String("scm-token", os.Getenv("SPRINTREPORT_SCM_TOKEN"), "source-control API token")
	tool := flag.String("tool", "health_check", "tool name to invoke, per the registered tool set")
	input := flag.String("input", "{}", "tool input, as a JSON object")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New("sprintreportd", logging.DefaultConfig())

	var l2 *redis.Client
	if *redisAddr != "" {
		l2 = redis.NewClient(&redis.Options{Addr: *redisAddr})
	}
	cacheEngine := cache.New(cache.Config{
		MaxEntries:          cfg.Cache.MemoryMaxEntries,
		DistributedDeadline: cfg.Cache.DistributedDeadline,
	}, l2, logger)

	trackerPipe := buildPipeline("tracker", cfg, cacheEngine, logger)
	scmPipe := buildPipeline("scm", cfg, cacheEngine, logger)

	trk := tracker.New(tracker.Config{BaseURL: *trackerURL, Token: *trackerToken}, trackerPipe)

	scmClient, err := scm.New(scm.Config{BaseURL: *scmURL, Token: *scmToken}, scmPipe)
	if err != nil {
		log.Fatalf("construct scm client: %v", err)
	}

	aggSvc := aggregator.NewService(trk, scmClient, cacheEngine, logger, cfg.Aggregator)

	breakers := map[string]*resilience.Breaker{
		"tracker": trackerPipe.Breaker,
		"scm":     scmPipe.Breaker,
	}
	registry := toolregistry.New(&toolregistry.RegistryContext{
		Tracker:    trk,
		SCM:        scmClient,
		Aggregator: aggSvc,
		Cache:      cacheEngine,
		Breakers:   breakers,
		Log:        logger,
	}, cfg.ToolQuotaPerMin)

	ctx := logging.WithTraceID(context.Background(), uuid.NewString())
	env, err := registry.Invoke(ctx, *tool, json.RawMessage(strings.TrimSpace(*input)))
	if err != nil {
		log.Fatalf("invoke %s: %v", *tool, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		log.Fatalf("encode envelope: %v", err)
	}
	if !env.Success {
		os.Exit(1)
	}
}

// buildPipeline constructs the per-provider httpx.Pipeline from cfg,
// falling back to the resilience package's own defaults for any provider
// absent from cfg.RateLimit/cfg.Circuit.
func buildPipeline(provider string, cfg *config.Config, cacheEngine *cache.Engine, logger *logging.Logger) *httpx.Pipeline {
	rl := cfg.RateLimit[provider]
	limiterCfg := resilience.LimiterConfig{PerMinute: rl.PerMinute, Burst: rl.Burst, MaxWait: 30 * time.Second}

	cb := cfg.Circuit[provider]
	breakerCfg := resilience.BreakerConfig{
		FailureThreshold: cb.FailureThreshold,
		Cooldown:         cb.Cooldown,
		HalfOpenMax:      uint32(cb.HalfOpenMax),
	}

	return &httpx.Pipeline{
		Provider: provider,
		Cache:    cacheEngine,
		Limiter:  resilience.NewLimiter(limiterCfg),
		Breaker:  resilience.NewBreaker(provider, breakerCfg, logger),
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Multiplier:  2.0,
			Jitter:      0.2,
		},
		Log: logger,
	}
}
