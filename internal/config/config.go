// Package config loads the YAML-driven configuration surface: per-source
// provider parameters, cache/circuit/budget/sink knobs, and scheduler
// tier overrides, following the teacher's ProvidersConfig shape.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig is one entry under `providers:` in the YAML file.
type ProviderConfig struct {
	Name           string  `yaml:"name"`
	BaseURL        string  `yaml:"base_url"`
	Priority       string  `yaml:"priority"` // PRIMARY | SECONDARY | FALLBACK
	Enabled        bool    `yaml:"enabled"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	Burst          float64 `yaml:"burst"`
	DailyLimit     int64   `yaml:"daily_limit"`
	Backoff        BackoffConfig `yaml:"backoff"`
	Circuit        CircuitConfig `yaml:"circuit"`
	Budget         BudgetConfig  `yaml:"budget"`
}

type BackoffConfig struct {
	BaseMS     int `yaml:"base_ms"`
	MaxRetries int `yaml:"max_retries"`
}

type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	RecoveryTimeSec  int `yaml:"recovery_time_sec"`
	SuccessThreshold int `yaml:"success_threshold"`
	TimeoutSec       int `yaml:"timeout_sec"`
}

type BudgetConfig struct {
	DefaultBudget   float64 `yaml:"default_budget"`
	BudgetPeriodSec int     `yaml:"budget_period_sec"`
	SoftThreshold   float64 `yaml:"soft_threshold"`
	HardLimit       float64 `yaml:"hard_limit"`
}

// CacheConfig configures the L1/L2 tiered cache.
type CacheConfig struct {
	L1MaxSize           int    `yaml:"l1_max_size"`
	L1TTLSec            int    `yaml:"l1_ttl_sec"`
	L2TTLSec            int    `yaml:"l2_ttl_sec"`
	StaleWindowSec      int    `yaml:"stale_window_sec"`
	EnableSWR           bool   `yaml:"enable_swr"`
	EnableStaleIfError  bool   `yaml:"enable_stale_if_error"`
}

// SinkConfig configures the durable columnar store.
type SinkConfig struct {
	BufferSizeMB     int    `yaml:"buffer_size_mb"`
	MaxBufferItems   int    `yaml:"max_buffer_items"`
	FlushIntervalSec int    `yaml:"flush_interval_sec"`
	Compression      string `yaml:"compression"`
	RowGroupSize     int    `yaml:"row_group_size"`
	DataRoot         string `yaml:"data_root"`
}

// SchedulerConfig overrides the four fixed tier cadences (seconds).
type SchedulerConfig struct {
	HighSec   int `yaml:"high_sec"`
	MediumSec int `yaml:"medium_sec"`
	LowSec    int `yaml:"low_sec"`
	DailySec  int `yaml:"daily_sec"`
}

// GlobalConfig is the whole YAML document root.
type GlobalConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
	Cache     CacheConfig      `yaml:"cache"`
	Sink      SinkConfig       `yaml:"sink"`
	Scheduler SchedulerConfig  `yaml:"scheduler"`
	RedisAddr string           `yaml:"redis_addr"`
}

// Load reads and validates a GlobalConfig from path.
func Load(path string) (*GlobalConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg GlobalConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate applies the real constraint checks a misconfigured provider
// would otherwise fail on at runtime instead of at startup.
func (c *GlobalConfig) Validate() error {
	seen := make(map[string]bool)
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("config: provider entry missing name")
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true

		switch p.Priority {
		case "PRIMARY", "SECONDARY", "FALLBACK":
		default:
			return fmt.Errorf("config: provider %q has invalid priority %q", p.Name, p.Priority)
		}
		if p.RateLimitRPS < 0 || p.Burst < 0 {
			return fmt.Errorf("config: provider %q has negative rate limit parameters", p.Name)
		}
		if p.Circuit.FailureThreshold < 0 || p.Circuit.SuccessThreshold < 0 {
			return fmt.Errorf("config: provider %q has invalid circuit thresholds", p.Name)
		}
		if p.Budget.SoftThreshold < 0 || p.Budget.SoftThreshold > 1 {
			return fmt.Errorf("config: provider %q soft_threshold must be in [0,1]", p.Name)
		}
	}
	if c.Sink.Compression != "" && c.Sink.Compression != "LZ4" && c.Sink.Compression != "SNAPPY" {
		return fmt.Errorf("config: sink.compression must be LZ4 or SNAPPY")
	}
	return nil
}

func (c BackoffConfig) BaseDelay() time.Duration { return time.Duration(c.BaseMS) * time.Millisecond }
func (c CircuitConfig) RecoveryTime() time.Duration { return time.Duration(c.RecoveryTimeSec) * time.Second }
func (c SinkConfig) FlushInterval() time.Duration { return time.Duration(c.FlushIntervalSec) * time.Second }
