package circuit

import (
	"time"

	gobreaker "github.com/sony/gobreaker"
)

// newLocal builds the per-process gobreaker.CircuitBreaker that backs the
// fast admission check between distributed-state syncs. Its ReadyToTrip
// mirrors the distributed breaker's own failure_threshold so a single
// process degrades gracefully even if the KV is briefly unreachable.
func newLocal(provider string, cfg Config) *gobreaker.CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        provider,
		Interval:    60 * time.Second,
		Timeout:     cfg.RecoveryTime,
		ReadyToTrip: readyToTrip(cfg.FailureThreshold),
	}
	return gobreaker.NewCircuitBreaker(settings)
}

func readyToTrip(threshold int) func(counts gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= uint32(threshold)
	}
}
