// Package kv defines the Distributed KV contract consumed by the L2
// cache, circuit breaker, budget firewall, and single-flight lock, plus a
// Redis-backed implementation and an in-memory fake for tests.
package kv

import (
	"context"
	"time"
)

// Store is the distributed KV contract: GET/SET with NX+EX, atomic INCR,
// EXPIRE, and key deletion.
type Store interface {
	// Get returns the value and true if key exists and has not expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value with ttl. If ttl <= 0 the key never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only if key does not already exist, returning
	// whether the set took effect. Used for single-flight locks and
	// half-open circuit-breaker admission.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Incr atomically increments key by delta, creating it at delta if
	// absent, and returns the new value.
	Incr(ctx context.Context, key string, delta int64) (int64, error)
	// Expire sets or refreshes a key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key namespaces, per the persisted state layout.
const (
	NamespaceCircuit = "cb:"
	NamespaceCache   = "cache:"
	NamespaceLock    = "lock:"
	NamespaceBudget  = "budget:"
	NamespaceBucket  = "bucket:"
)
