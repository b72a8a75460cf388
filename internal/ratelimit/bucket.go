// Package ratelimit implements the per-provider token-bucket rate limiter
// with a daily quota reset at UTC midnight.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marketcore/ingestcore/internal/kv"
)

// Bucket holds token-bucket state for one provider. The sub-second
// burst/refill half is delegated to rate.Limiter; the daily quota is a
// parallel counter rate.Limiter has no notion of.
type Bucket struct {
	Provider        string
	Capacity        float64
	RefillPerSecond float64
	DailyLimit      int64

	limiter *rate.Limiter

	mu             sync.Mutex
	dailyRemaining int64
	dailyResetAt   time.Time

	distributed kv.Store // nil means process-local only
}

// NewBucket constructs a full bucket, ready for immediate use.
func NewBucket(provider string, capacity, refillPerSecond float64, dailyLimit int64) *Bucket {
	return &Bucket{
		Provider:        provider,
		Capacity:        capacity,
		RefillPerSecond: refillPerSecond,
		DailyLimit:      dailyLimit,
		limiter:         rate.NewLimiter(rate.Limit(refillPerSecond), int(capacity)),
		dailyRemaining:  dailyLimit,
		dailyResetAt:    nextUTCMidnight(time.Now().UTC()),
	}
}

// WithDistributedStore makes the daily counter draw atomically through a
// shared KV store, per §5 "Shared resources" — tokens may be drawn
// through a KV atomic path with the same semantics as process-local.
func (b *Bucket) WithDistributedStore(store kv.Store) *Bucket {
	b.distributed = store
	return b
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func (b *Bucket) resetDailyLocked(now time.Time) {
	if now.After(b.dailyResetAt) {
		b.dailyRemaining = b.DailyLimit
		b.dailyResetAt = nextUTCMidnight(now.UTC())
	}
}

// TryConsume attempts to withdraw n tokens from the rate.Limiter and, if
// that succeeds, from the daily quota. The reservation is cancelled (and
// the token handed back) if the daily quota denies the request, so a
// daily-exhausted provider never bleeds burst capacity it never used.
func (b *Bucket) TryConsume(ctx context.Context, n float64) (bool, error) {
	now := time.Now()

	b.mu.Lock()
	b.resetDailyLocked(now)
	if b.dailyRemaining < int64(n) {
		b.mu.Unlock()
		return false, nil
	}
	b.mu.Unlock()

	r := b.limiter.ReserveN(now, int(n))
	if !r.OK() || r.Delay() > 0 {
		r.Cancel()
		return false, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.distributed != nil {
		key := kv.NamespaceBucket + b.Provider + ":daily"
		remaining, err := b.remoteDailyRemaining(ctx, key, now, int64(n))
		if err != nil {
			r.Cancel()
			return false, err
		}
		if remaining < int64(n) {
			_, _ = b.distributed.Incr(ctx, key, -int64(n))
			r.Cancel()
			return false, nil
		}
	}

	b.dailyRemaining -= int64(n)
	return true, nil
}

// remoteDailyRemaining draws n from the daily counter kept in the KV store
// so multiple processes share one quota, and returns what was left of the
// quota before this draw. It draws optimistically and the caller hands n
// back when it denies the request; callers already hold b.mu so there is
// no local race, only a shared one across processes which the KV's atomic
// INCR resolves.
func (b *Bucket) remoteDailyRemaining(ctx context.Context, key string, now time.Time, n int64) (int64, error) {
	used, err := b.distributed.Incr(ctx, key, n)
	if err != nil {
		return 0, err
	}
	if used == n {
		_ = b.distributed.Expire(ctx, key, time.Until(nextUTCMidnight(now.UTC())))
	}
	return b.DailyLimit - (used - n), nil
}

// nextAvailableDelay peeks at how long the limiter would make the caller
// wait for n tokens, without actually consuming any.
func (b *Bucket) nextAvailableDelay(now time.Time, n float64) time.Duration {
	r := b.limiter.ReserveN(now, int(n))
	defer r.Cancel()
	if d := r.Delay(); d > 0 {
		return d
	}
	return 10 * time.Millisecond
}

// WaitFor blocks until n tokens are available or deadline elapses,
// returning false on deadline exhaustion.
func (b *Bucket) WaitFor(ctx context.Context, n float64, deadline time.Time) (bool, error) {
	for {
		ok, err := b.TryConsume(ctx, n)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		now := time.Now()
		wait := b.nextAvailableDelay(now, n)
		if now.Add(wait).After(deadline) {
			wait = deadline.Sub(now)
			if wait <= 0 {
				return false, nil
			}
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Snapshot returns the bucket's current state for observability.
func (b *Bucket) Snapshot() (tokens float64, dailyRemaining int64, dailyResetAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetDailyLocked(time.Now())
	return b.limiter.Tokens(), b.dailyRemaining, b.dailyResetAt
}

// Manager owns one Bucket per provider.
type Manager struct {
	mu      sync.RWMutex
	buckets map[string]*Bucket
}

func NewManager() *Manager {
	return &Manager{buckets: make(map[string]*Bucket)}
}

// GetOrCreate returns the provider's bucket, creating it from the given
// parameters on first use (double-checked locking to avoid a write lock
// on the common path).
func (m *Manager) GetOrCreate(provider string, capacity, refillPerSecond float64, dailyLimit int64) *Bucket {
	m.mu.RLock()
	b, ok := m.buckets[provider]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.buckets[provider]; ok {
		return b
	}
	b = NewBucket(provider, capacity, refillPerSecond, dailyLimit)
	m.buckets[provider] = b
	return b
}
