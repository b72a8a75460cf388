// Package budget implements the per-user/per-provider cost firewall:
// accumulated spend tracked in the distributed KV, with a hard deny limit
// and a soft warning threshold.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marketcore/ingestcore/internal/kv"
)

// ErrExceeded is returned when a request would exceed the hard limit.
var ErrExceeded = errors.New("budget exceeded")

// Weights maps (provider, operation) to a cost, used to price a request.
type Weights map[string]map[string]float64

// CostOf returns the weight configured for (provider, operation).
// Unweighted operations default to cost 1. requestSize and responseSize
// are not used: the cost does not depend on request or response size.
func (w Weights) CostOf(provider, operation string, requestSize, responseSize int64) float64 {
	perOp, ok := w[provider]
	if !ok {
		return 1
	}
	cost, ok := perOp[operation]
	if !ok {
		return 1
	}
	return cost
}

// Config holds the per-scope limits from §4.2.4 / §6.
type Config struct {
	HardLimit     float64
	SoftThreshold float64 // fraction of HardLimit, default 0.8
	Period        time.Duration
}

func DefaultConfig() Config {
	return Config{HardLimit: 10, SoftThreshold: 0.8, Period: 24 * time.Hour}
}

// Warning is emitted on the subscriber-facing event path when a scope
// crosses the soft threshold, per the governance event carried over from
// the original system's budget warnings.
type Warning struct {
	Scope string
	Spent float64
	Limit float64
}

// Firewall checks and accumulates spend per (user_id, provider, period).
type Firewall struct {
	store    kv.Store
	cfg      Config
	weights  Weights
	warnings chan Warning
}

func New(store kv.Store, cfg Config, weights Weights) *Firewall {
	return &Firewall{store: store, cfg: cfg, weights: weights, warnings: make(chan Warning, 64)}
}

// Warnings returns the channel budget warnings are published on. Readers
// must drain it; it is bounded and does not block CheckRequest on a full
// channel (warnings are dropped, matching the lossy-backpressure policy
// used for subscriber streams).
func (f *Firewall) Warnings() <-chan Warning { return f.warnings }

func scopeKey(userID, provider string) string {
	return kv.NamespaceBudget + userID + ":" + provider
}

// CheckRequest prices and accumulates a request's cost against the
// scope's budget, denying if it would exceed HardLimit.
func (f *Firewall) CheckRequest(ctx context.Context, userID, provider, operation string, requestSize, responseSize int64) error {
	cost := f.weights.CostOf(provider, operation, requestSize, responseSize)
	key := scopeKey(userID, provider)

	spentBefore, _, err := f.store.Get(ctx, key)
	if err != nil {
		return err
	}
	spent := parseFloat(spentBefore)

	if spent+cost > f.cfg.HardLimit {
		return fmt.Errorf("%w: scope %s would reach %.2f of %.2f", ErrExceeded, key, spent+cost, f.cfg.HardLimit)
	}

	newSpent := spent + cost
	if err := f.store.Set(ctx, key, formatFloat(newSpent), f.cfg.Period); err != nil {
		return err
	}

	if newSpent >= f.cfg.HardLimit*f.cfg.SoftThreshold {
		select {
		case f.warnings <- Warning{Scope: key, Spent: newSpent, Limit: f.cfg.HardLimit}:
		default:
		}
	}
	return nil
}

func parseFloat(s string) float64 {
	var f float64
	_, _ = fmt.Sscanf(s, "%g", &f)
	return f
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
