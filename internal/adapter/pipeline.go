package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/marketcore/ingestcore/internal/errs"
	"github.com/marketcore/ingestcore/internal/observability/metrics"
	"github.com/marketcore/ingestcore/internal/schema"
)

// Runner executes the four pipeline stages in order, converting any
// returned error (or recovered panic) from a provider implementation
// into the uniform envelope before it leaves this call.
type Runner struct {
	metrics *metrics.Registry
}

func NewRunner(reg *metrics.Registry) *Runner {
	return &Runner{metrics: reg}
}

// Run executes fetch -> parse -> validate -> normalize for one adapter
// invocation. It never returns a raw provider error: failures are always
// *errs.Envelope.
func (r *Runner) Run(ctx context.Context, a Adapter, params map[string]any) (records []schema.UnifiedRecord, err error) {
	name := a.Name()

	raw, err := r.stage(ctx, name, errs.StageFetch, func() (any, error) {
		return a.Fetch(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := r.stage(ctx, name, errs.StageParse, func() (any, error) {
		return a.Parse(ctx, raw.([]byte))
	})
	if err != nil {
		return nil, err
	}

	validated, err := r.stage(ctx, name, errs.StageValidate, func() (any, error) {
		return a.Validate(ctx, parsed)
	})
	if err != nil {
		return nil, err
	}

	normalized, err := r.stage(ctx, name, errs.StageNormalize, func() (any, error) {
		return a.Normalize(ctx, validated, params)
	})
	if err != nil {
		return nil, err
	}

	return normalized.([]schema.UnifiedRecord), nil
}

// stage runs fn, recovering any panic, timing the call, and wrapping any
// failure (returned error or recovered panic) into an *errs.Envelope.
func (r *Runner) stage(ctx context.Context, source string, stage errs.Stage, fn func() (any, error)) (result any, err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = errs.New(source, stage, errs.KindUnknown, fmt.Sprintf("panic: %v", rec), nil)
		}
		if r.metrics != nil {
			r.metrics.PipelineStepDuration.WithLabelValues(source, string(stage)).Observe(time.Since(start).Seconds())
			if err != nil {
				kind := errs.KindUnknown
				if env, ok := errs.As(err); ok {
					kind = env.ErrorType
				}
				r.metrics.PipelineErrors.WithLabelValues(source, string(stage), string(kind)).Inc()
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil, errs.New(source, stage, errs.KindTimeout, "context canceled before stage ran", ctx.Err())
	default:
	}

	result, callErr := fn()
	if callErr == nil {
		return result, nil
	}

	if env, ok := errs.As(callErr); ok {
		return nil, env
	}
	if ctx.Err() != nil {
		return nil, errs.New(source, stage, errs.KindTimeout, callErr.Error(), callErr)
	}
	return nil, errs.New(source, stage, errs.KindUnknown, callErr.Error(), callErr)
}
