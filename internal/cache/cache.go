package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marketcore/ingestcore/internal/kv"
)

// Refresher produces a fresh payload plus how long it should stay fresh
// and how long it may continue to be served stale after that.
type Refresher func(ctx context.Context) (payload []byte, freshFor, staleFor time.Duration, err error)

// Config tunes SWR/stale-if-error behavior.
type Config struct {
	EnableSWR           bool
	EnableStaleIfError  bool
	StaleIfErrorGrace   time.Duration
}

func DefaultConfig() Config {
	return Config{EnableSWR: true, EnableStaleIfError: true, StaleIfErrorGrace: 5 * time.Minute}
}

// Cache is the L1 (in-process) + L2 (distributed KV) tiered cache with
// single-flight refresh.
type Cache struct {
	l1    *L1
	l2    kv.Store
	cfg   Config
	group singleflight.Group // in-process single-flight
}

func New(l1 *L1, l2 kv.Store, cfg Config) *Cache {
	return &Cache{l1: l1, l2: l2, cfg: cfg}
}

// Get implements the five-step SWR read path of §4.3.
func (c *Cache) Get(ctx context.Context, key string, refresh Refresher) ([]byte, HitKind, error) {
	now := time.Now()

	if entry, ok := c.l1.Get(key); ok {
		if entry.isFresh(now) {
			return entry.Payload, HitFresh, nil
		}
		if c.cfg.EnableSWR && entry.isStale(now) {
			go c.backgroundRefresh(key, entry, refresh)
			return entry.Payload, HitStale, nil
		}
	}

	if raw, ok, err := c.l2.Get(ctx, l2Key(key)); err == nil && ok {
		entry := decodeEntry(raw)
		c.l1.Set(key, entry)
		if entry.isFresh(now) {
			return entry.Payload, HitFresh, nil
		}
		if c.cfg.EnableSWR && entry.isStale(now) {
			go c.backgroundRefresh(key, entry, refresh)
			return entry.Payload, HitStale, nil
		}
	}

	return c.refreshSingleFlight(ctx, key, refresh)
}

// refreshSingleFlight runs refresh at most once per key across concurrent
// callers in this process; cross-process exclusion is via the KV lock
// acquired inside the shared function.
func (c *Cache) refreshSingleFlight(ctx context.Context, key string, refresh Refresher) ([]byte, HitKind, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.doRefresh(ctx, key, refresh, true)
	})
	if err != nil {
		return nil, Miss, err
	}
	entry := v.(Entry)
	return entry.Payload, HitFresh, nil
}

func (c *Cache) backgroundRefresh(key string, old Entry, refresh Refresher) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_, _ = c.group.Do(key+":bg", func() (any, error) {
		return c.doRefresh(ctx, key, refresh, false)
	})
	_ = old
}

// doRefresh acquires the distributed single-flight lock, invokes refresh,
// and applies hyper-SWR diffing or stale-if-error as appropriate.
func (c *Cache) doRefresh(ctx context.Context, key string, refresh Refresher, blocking bool) (Entry, error) {
	lockKey := kv.NamespaceLock + key
	got, err := c.l2.SetNX(ctx, lockKey, "1", 30*time.Second)
	if err != nil {
		return c.staleOrError(key, err)
	}
	if !got {
		// Another process holds the refresh lock. A blocking caller with
		// a cold cache has nothing else to serve; a background refresher
		// simply yields to the lock holder.
		if blocking {
			return c.waitForPeerRefresh(ctx, key)
		}
		return Entry{}, nil
	}
	defer c.l2.Delete(ctx, lockKey)

	payload, freshFor, staleFor, err := refresh(ctx)
	if err != nil {
		return c.staleOrError(key, err)
	}

	now := time.Now()
	newChecksum := Checksum(payload)
	entry := Entry{Payload: payload, Checksum: newChecksum, FreshUntil: now.Add(freshFor), StaleUntil: now.Add(freshFor + staleFor)}

	if old, ok := c.l1.Get(key); ok && old.Checksum == newChecksum {
		// Hyper-SWR diffing: identical payload, only extend the TTL.
		entry.Payload = old.Payload
	}

	c.l1.Set(key, entry)
	_ = c.l2.Set(ctx, l2Key(key), encodeEntry(entry), staleFor)
	return entry, nil
}

func (c *Cache) staleOrError(key string, refreshErr error) (Entry, error) {
	if !c.cfg.EnableStaleIfError {
		return Entry{}, refreshErr
	}
	entry, ok := c.l1.Get(key)
	if !ok {
		return Entry{}, refreshErr
	}
	entry.StaleUntil = time.Now().Add(c.cfg.StaleIfErrorGrace)
	c.l1.Set(key, entry)
	return entry, nil
}

func (c *Cache) waitForPeerRefresh(ctx context.Context, key string) (Entry, error) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if entry, ok := c.l1.Get(key); ok && entry.isFresh(time.Now()) {
			return entry, nil
		}
		if raw, ok, err := c.l2.Get(ctx, l2Key(key)); err == nil && ok {
			entry := decodeEntry(raw)
			if entry.isFresh(time.Now()) {
				c.l1.Set(key, entry)
				return entry, nil
			}
		}
		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return Entry{}, ErrRefreshTimeout
}

func l2Key(key string) string { return kv.NamespaceCache + key }
