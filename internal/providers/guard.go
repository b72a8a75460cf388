package providers

import (
	"context"
	"time"

	"github.com/marketcore/ingestcore/internal/adapter"
	"github.com/marketcore/ingestcore/internal/budget"
	"github.com/marketcore/ingestcore/internal/circuit"
	"github.com/marketcore/ingestcore/internal/errs"
	"github.com/marketcore/ingestcore/internal/ratelimit"
	"github.com/marketcore/ingestcore/internal/retry"
	"github.com/marketcore/ingestcore/internal/schema"
)

// Guard composes the resilience engine around one adapter invocation:
// rate limiter -> circuit breaker -> budget firewall -> retry/jitter,
// guaranteeing the provider is never called while throttled, tripped, or
// over budget.
type Guard struct {
	Bucket   *ratelimit.Bucket
	Breaker  *circuit.Breaker
	Firewall *budget.Firewall
	Retry    retry.Policy
	Runner   *adapter.Runner
}

// Execute runs the guarded pipeline invocation for one adapter call.
func (g *Guard) Execute(ctx context.Context, a adapter.Adapter, userID string, params map[string]any) ([]schema.UnifiedRecord, error) {
	if g.Bucket != nil {
		ok, err := g.Bucket.TryConsume(ctx, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			deadline := time.Now().Add(5 * time.Second)
			ok, err = g.Bucket.WaitFor(ctx, 1, deadline)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errs.New(a.Name(), errs.StageFetch, errs.KindRateLimit, "rate limit exhausted", nil)
			}
		}
	}

	if g.Breaker != nil {
		// A KV error here is left to Breaker.Execute, which falls back to
		// its local breaker.
		if admitted, err := g.Breaker.CanExecute(ctx); err == nil && !admitted {
			return nil, errs.New(a.Name(), errs.StageFetch, errs.KindCircuitOpen, "circuit open", circuit.ErrOpen{Provider: a.Name()})
		}
	}

	if g.Firewall != nil {
		if err := g.Firewall.CheckRequest(ctx, userID, a.Name(), "fetch", 0, 0); err != nil {
			return nil, errs.New(a.Name(), errs.StageFetch, errs.KindBudgetExceeded, err.Error(), err)
		}
	}

	var records []schema.UnifiedRecord
	runErr := g.Retry.Do(ctx, g.Breaker, func(attempt int) error {
		var err error
		if g.Breaker != nil {
			var result any
			result, err = g.Breaker.Execute(ctx, func() (any, error) {
				return g.Runner.Run(ctx, a, params)
			})
			if err == nil {
				records = result.([]schema.UnifiedRecord)
			}
			return err
		}
		records, err = g.Runner.Run(ctx, a, params)
		return err
	})
	if runErr != nil {
		if _, isOpen := runErr.(circuit.ErrOpen); isOpen {
			return nil, errs.New(a.Name(), errs.StageFetch, errs.KindCircuitOpen, "circuit open", runErr)
		}
		return nil, runErr
	}
	return records, nil
}
