// Package retry implements the retry-with-jitter engine: bounded attempts
// on retryable errors only, exponential backoff with jitter, honoring a
// provider's Retry-After hint.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/marketcore/ingestcore/internal/circuit"
	"github.com/marketcore/ingestcore/internal/errs"
)

// Policy configures the retry engine.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}
}

// Do invokes fn up to MaxAttempts times. It only retries when fn's error
// satisfies errs.Retryable and the breaker currently admits the call; a
// circuit.ErrOpen is returned immediately without consuming an attempt.
func (p Policy) Do(ctx context.Context, breaker *circuit.Breaker, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if breaker != nil {
			admitted, err := breaker.CanExecute(ctx)
			if err != nil {
				return err
			}
			if !admitted {
				return circuit.ErrOpen{}
			}
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var open circuit.ErrOpen
		if errors.As(lastErr, &open) {
			return lastErr
		}
		if !errs.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.delayFor(attempt, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (p Policy) delayFor(attempt int, err error) time.Duration {
	if env, ok := errs.As(err); ok && env.RetryAfter > 0 {
		return env.RetryAfter
	}
	base := p.BaseDelay * time.Duration(1<<uint(attempt))
	jitter := time.Duration(rand.Int63n(int64(p.BaseDelay) + 1))
	return base + jitter
}
