package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marketcore/ingestcore/internal/adapter"
	"github.com/marketcore/ingestcore/internal/budget"
	"github.com/marketcore/ingestcore/internal/cache"
	"github.com/marketcore/ingestcore/internal/circuit"
	ingestconfig "github.com/marketcore/ingestcore/internal/config"
	"github.com/marketcore/ingestcore/internal/kv"
	"github.com/marketcore/ingestcore/internal/observability/metrics"
	"github.com/marketcore/ingestcore/internal/orchestrator"
	"github.com/marketcore/ingestcore/internal/providers"

	_ "github.com/marketcore/ingestcore/internal/providers/equity"
	_ "github.com/marketcore/ingestcore/internal/providers/macro"
	_ "github.com/marketcore/ingestcore/internal/providers/news"
	_ "github.com/marketcore/ingestcore/internal/providers/wsfeed"

	"github.com/marketcore/ingestcore/internal/ratelimit"
	"github.com/marketcore/ingestcore/internal/retry"
	"github.com/marketcore/ingestcore/internal/scheduler"
	"github.com/marketcore/ingestcore/internal/secrets"
	"github.com/marketcore/ingestcore/internal/sink"
)

// App bundles every wired subsystem, constructed once at startup and
// passed explicitly to whichever subcommand needs it — no module-level
// singletons.
type App struct {
	Config       *ingestconfig.GlobalConfig
	Secrets      *secrets.Manager
	KV           kv.Store
	Metrics      *metrics.Registry
	Registry     *providers.Registry
	Buckets      *ratelimit.Manager
	Guards       map[string]*providers.Guard
	Cache        *cache.Cache
	Sink         *sink.Sink
	Orchestrator *orchestrator.Orchestrator
}

// buildApp loads configuration, resolves secrets (hard-failing if
// BRAIN_KEY is absent), and wires every subsystem together.
func buildApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := ingestconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	secretsMgr := secrets.NewManager(secrets.NewEnvProvider("INGESTCORE_"), secrets.NewEnvProvider(""))
	if _, err := secretsMgr.MustEncryptionKey(ctx); err != nil {
		return nil, fmt.Errorf("app: %w (BRAIN_KEY is required; refusing to start)", err)
	}

	// Non-zero scheduler.*_sec values replace the default tier cadences.
	for tier, sec := range map[scheduler.Tier]int{
		scheduler.TierHigh:   cfg.Scheduler.HighSec,
		scheduler.TierMedium: cfg.Scheduler.MediumSec,
		scheduler.TierLow:    cfg.Scheduler.LowSec,
		scheduler.TierDaily:  cfg.Scheduler.DailySec,
	} {
		if sec > 0 {
			scheduler.TierIntervals[tier] = time.Duration(sec) * time.Second
		}
	}

	var store kv.Store
	if cfg.RedisAddr != "" {
		redisStore, err := kv.NewRedisStore(ctx, cfg.RedisAddr, "", 0)
		if err != nil {
			return nil, fmt.Errorf("app: connect redis: %w", err)
		}
		store = redisStore
	} else {
		store = kv.NewMemoryStore()
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	registry := providers.DefaultRegistry
	runner := adapter.NewRunner(reg)
	buckets := ratelimit.NewManager()

	guards := make(map[string]*providers.Guard)
	for _, p := range cfg.Providers {
		if !p.Enabled {
			continue
		}
		capacity, refill, daily := ratelimitParams(p)
		bucket := buckets.GetOrCreate(p.Name, capacity, refill, daily)
		breaker := circuit.New(p.Name, circuitConfig(p), store)
		firewall := budget.New(store, budgetConfig(p), budget.Weights{})
		guards[p.Name] = &providers.Guard{
			Bucket:   bucket,
			Breaker:  breaker,
			Firewall: firewall,
			Retry:    retry.Policy{MaxAttempts: maxOr(p.Backoff.MaxRetries, 3), BaseDelay: baseDelayOr(p.Backoff.BaseDelay())},
			Runner:   runner,
		}
	}

	c := buildCache(cfg, store)

	sinkCfg := sinkConfig(cfg)
	writer := sink.NewFileWriter()
	durableSink := sink.New(sinkCfg, writer, reg)

	orch := orchestrator.New(registry, guards, c, durableSink)

	return &App{
		Config:       cfg,
		Secrets:      secretsMgr,
		KV:           store,
		Metrics:      reg,
		Registry:     registry,
		Buckets:      buckets,
		Guards:       guards,
		Cache:        c,
		Sink:         durableSink,
		Orchestrator: orch,
	}, nil
}

func ratelimitParams(p ingestconfig.ProviderConfig) (capacity, refill float64, daily int64) {
	capacity = p.Burst
	if capacity <= 0 {
		capacity = 10
	}
	refill = p.RateLimitRPS
	if refill <= 0 {
		refill = 1
	}
	daily = p.DailyLimit
	if daily <= 0 {
		daily = 100_000
	}
	return
}

func maxOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func baseDelayOr(d time.Duration) time.Duration {
	if d <= 0 {
		return 200 * time.Millisecond
	}
	return d
}

func circuitConfig(p ingestconfig.ProviderConfig) circuit.Config {
	cfg := circuit.DefaultConfig()
	if p.Circuit.FailureThreshold > 0 {
		cfg.FailureThreshold = p.Circuit.FailureThreshold
	}
	if p.Circuit.RecoveryTimeSec > 0 {
		cfg.RecoveryTime = p.Circuit.RecoveryTime()
	}
	if p.Circuit.SuccessThreshold > 0 {
		cfg.SuccessThreshold = p.Circuit.SuccessThreshold
	}
	return cfg
}

func budgetConfig(p ingestconfig.ProviderConfig) budget.Config {
	cfg := budget.DefaultConfig()
	if p.Budget.HardLimit > 0 {
		cfg.HardLimit = p.Budget.HardLimit
	}
	if p.Budget.SoftThreshold > 0 {
		cfg.SoftThreshold = p.Budget.SoftThreshold
	}
	return cfg
}

func sinkConfig(cfg *ingestconfig.GlobalConfig) sink.Config {
	out := sink.DefaultConfig()
	if cfg.Sink.BufferSizeMB > 0 {
		out.BufferSizeBytes = int64(cfg.Sink.BufferSizeMB) * 1024 * 1024
	}
	if cfg.Sink.MaxBufferItems > 0 {
		out.MaxBufferItems = cfg.Sink.MaxBufferItems
	}
	if cfg.Sink.FlushIntervalSec > 0 {
		out.FlushInterval = cfg.Sink.FlushInterval()
	}
	if cfg.Sink.RowGroupSize > 0 {
		out.RowGroupSize = cfg.Sink.RowGroupSize
	}
	if cfg.Sink.DataRoot != "" {
		out.DataRoot = cfg.Sink.DataRoot
	}
	if cfg.Sink.Compression == string(sink.CompressionSnappy) {
		out.Compression = sink.CompressionSnappy
	}
	return out
}

func buildCache(cfg *ingestconfig.GlobalConfig, store kv.Store) *cache.Cache {
	maxSize := cfg.Cache.L1MaxSize
	if maxSize <= 0 {
		maxSize = 10_000
	}
	l1 := cache.NewL1(maxSize, time.Minute)
	cacheCfg := cache.DefaultConfig()
	if cfg.Cache.EnableSWR {
		cacheCfg.EnableSWR = true
	}
	if cfg.Cache.EnableStaleIfError {
		cacheCfg.EnableStaleIfError = true
	}
	return cache.New(l1, store, cacheCfg)
}
