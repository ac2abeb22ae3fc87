// Package config exposes the §6 configuration contract as typed Go
// structs with sane defaults, and an optional file/environment loader
// backed by github.com/spf13/viper (grounded on evalgo-org-eve's
// cli.root, the only pack repo wiring viper for layered config). Business
// logic elsewhere never reads os.Getenv directly; it only ever sees a
// *Config built here.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CacheConfig configures the two-tier cache engine (§4.A).
type CacheConfig struct {
	MemoryMaxEntries       int           `mapstructure:"memory_max_entries"`
	MemoryDefaultTTL       time.Duration `mapstructure:"memory_default_ttl"`
	DistributedEndpoint    string        `mapstructure:"distributed_endpoint"`
	DistributedDeadline    time.Duration `mapstructure:"distributed_deadline"`
}

// ProviderRateLimit configures the token bucket for one upstream provider.
type ProviderRateLimit struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

// ProviderCircuit configures the breaker for one upstream provider.
type ProviderCircuit struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
	HalfOpenMax      int           `mapstructure:"half_open_max"`
}

// RetryConfig configures the shared upstream-client retry policy (§4.C).
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// AggregatorConfig configures the sprint aggregation service (§4.D).
type AggregatorConfig struct {
	PREnhancementCap       int `mapstructure:"pr_enhancement_cap"`
	PREnhancementBatchSize int `mapstructure:"pr_enhancement_batch_size"`
}

// Config is the root configuration object for the core.
type Config struct {
	Cache          CacheConfig                  `mapstructure:"cache"`
	RateLimit      map[string]ProviderRateLimit `mapstructure:"rate_limit"`
	Circuit        map[string]ProviderCircuit   `mapstructure:"circuit"`
	Retry          RetryConfig                  `mapstructure:"retry"`
	Aggregator     AggregatorConfig             `mapstructure:"aggregator"`
	ToolQuotaPerMin map[string]int              `mapstructure:"tool_quota_per_minute"`
}

// Default returns the configuration defaults enumerated in spec.md §6.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MemoryMaxEntries:    50000,
			MemoryDefaultTTL:    300 * time.Second,
			DistributedDeadline: 2 * time.Second,
		},
		RateLimit: map[string]ProviderRateLimit{
			"tracker": {PerMinute: 100, Burst: 20},
			"scm":     {PerMinute: 100, Burst: 20},
		},
		Circuit: map[string]ProviderCircuit{
			"tracker": {FailureThreshold: 5, Cooldown: 60 * time.Second, HalfOpenMax: 3},
			"scm":     {FailureThreshold: 5, Cooldown: 60 * time.Second, HalfOpenMax: 3},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1000 * time.Millisecond,
			MaxDelay:    30 * time.Second,
		},
		Aggregator: AggregatorConfig{
			PREnhancementCap:       15,
			PREnhancementBatchSize: 5,
		},
		ToolQuotaPerMin: map[string]int{},
	}
}

// Load reads a YAML/JSON/TOML config file (if path is non-empty) and
// overlays SPRINTREPORT_-prefixed environment variables on top of the
// defaults, following evalgo-org-eve's viper-based layering (file, then
// env, then defaults as fallback).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SPRINTREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setViperDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	out := Default()
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return out, nil
}

func setViperDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("cache.memory_max_entries", cfg.Cache.MemoryMaxEntries)
	v.SetDefault("cache.memory_default_ttl", cfg.Cache.MemoryDefaultTTL)
	v.SetDefault("cache.distributed_deadline", cfg.Cache.DistributedDeadline)
	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay", cfg.Retry.BaseDelay)
	v.SetDefault("retry.max_delay", cfg.Retry.MaxDelay)
	v.SetDefault("aggregator.pr_enhancement_cap", cfg.Aggregator.PREnhancementCap)
	v.SetDefault("aggregator.pr_enhancement_batch_size", cfg.Aggregator.PREnhancementBatchSize)
}

// TTLForSprintState implements the "smart TTL" conventions of §3/§4.D: the
// Aggregation Service — not the cache engine — is responsible for picking
// a TTL per sprint lifecycle state.
func TTLForSprintState(state string) time.Duration {
	switch state {
	case "active":
		return 300 * time.Second
	case "closed":
		return 1800 * time.Second
	case "future":
		return 900 * time.Second
	default:
		return 300 * time.Second
	}
}
