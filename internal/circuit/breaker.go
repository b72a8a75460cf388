package circuit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker"

	"github.com/marketcore/ingestcore/internal/kv"
)

// Breaker is the distributed circuit breaker for one provider: canonical
// state lives in the KV store; a local gobreaker instance provides the
// fast in-process path and absorbs brief KV unavailability.
type Breaker struct {
	provider string
	cfg      Config
	store    kv.Store
	local    *gobreaker.CircuitBreaker

	mu sync.Mutex
}

func New(provider string, cfg Config, store kv.Store) *Breaker {
	return &Breaker{
		provider: provider,
		cfg:      cfg,
		store:    store,
		local:    newLocal(provider, cfg),
	}
}

func (b *Breaker) key() string       { return kv.NamespaceCircuit + b.provider }
func (b *Breaker) lockKey() string   { return kv.NamespaceLock + kv.NamespaceCircuit + b.provider + ":halfopen" }

func (b *Breaker) load(ctx context.Context) (CircuitState, error) {
	raw, ok, err := b.store.Get(ctx, b.key())
	if err != nil {
		return CircuitState{}, err
	}
	if !ok {
		return CircuitState{Provider: b.provider, State: StateClosed}, nil
	}
	var cs CircuitState
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return CircuitState{Provider: b.provider, State: StateClosed}, nil
	}
	return cs, nil
}

func (b *Breaker) save(ctx context.Context, cs CircuitState) error {
	raw, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, b.key(), string(raw), 0)
}

// CanExecute reports whether a call is currently admitted: true in
// CLOSED and HALF_OPEN, false in OPEN.
func (b *Breaker) CanExecute(ctx context.Context) (bool, error) {
	cs, err := b.load(ctx)
	if err != nil {
		return false, err
	}
	switch cs.State {
	case StateOpen:
		if time.Since(cs.OpenedAt) >= b.cfg.RecoveryTime {
			return true, nil // the next caller may attempt the HALF_OPEN probe
		}
		return false, nil
	default:
		return true, nil
	}
}

// Execute runs fn under the breaker's admission policy, recording the
// outcome against both the distributed and local state.
func (b *Breaker) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	cs, err := b.load(ctx)
	if err != nil {
		// KV unreachable: admission falls back to the local breaker alone.
		return b.local.Execute(fn)
	}

	switch cs.State {
	case StateOpen:
		if time.Since(cs.OpenedAt) < b.cfg.RecoveryTime {
			return nil, ErrOpen{Provider: b.provider}
		}
		// Recovery window elapsed: only one caller may probe, guarded by
		// a short-lived distributed lock.
		gotLock, err := b.store.SetNX(ctx, b.lockKey(), "1", b.cfg.Timeout)
		if err != nil {
			return nil, err
		}
		if !gotLock {
			return nil, ErrOpen{Provider: b.provider}
		}
		cs.State = StateHalfOpen
		cs.SuccessesInHalfOpen = 0
		if err := b.save(ctx, cs); err != nil {
			return nil, err
		}
	case StateHalfOpen, StateClosed:
		// admitted
	}

	// The local gobreaker absorbs brief KV unavailability: it tracks the
	// same consecutive-failure count in-process and will itself fast-fail
	// if this process has seen failures the KV round trip hasn't yet
	// reflected.
	result, callErr := b.local.Execute(fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	cs, err = b.load(ctx)
	if err != nil {
		return result, callErr
	}

	if callErr != nil {
		b.onFailure(ctx, &cs)
		return result, callErr
	}
	b.onSuccess(ctx, &cs)
	return result, nil
}

func (b *Breaker) onFailure(ctx context.Context, cs *CircuitState) {
	switch cs.State {
	case StateHalfOpen:
		cs.State = StateOpen
		cs.OpenedAt = time.Now()
		cs.ConsecutiveFailures++
	default:
		cs.ConsecutiveFailures++
		if cs.ConsecutiveFailures >= b.cfg.FailureThreshold {
			cs.State = StateOpen
			cs.OpenedAt = time.Now()
		}
	}
	_ = b.save(ctx, *cs)
}

func (b *Breaker) onSuccess(ctx context.Context, cs *CircuitState) {
	switch cs.State {
	case StateHalfOpen:
		cs.SuccessesInHalfOpen++
		if cs.SuccessesInHalfOpen >= b.cfg.SuccessThreshold {
			cs.State = StateClosed
			cs.ConsecutiveFailures = 0
			cs.SuccessesInHalfOpen = 0
			_ = b.store.Delete(ctx, b.lockKey())
		}
	default:
		cs.ConsecutiveFailures = 0
	}
	_ = b.save(ctx, *cs)
}

// Snapshot returns the current canonical state for observability.
func (b *Breaker) Snapshot(ctx context.Context) (CircuitState, error) {
	return b.load(ctx)
}

// Manager owns one Breaker per provider.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	store    kv.Store
	cfg      Config
}

func NewManager(store kv.Store, cfg Config) *Manager {
	return &Manager{breakers: make(map[string]*Breaker), store: store, cfg: cfg}
}

func (m *Manager) GetOrCreate(provider string) *Breaker {
	m.mu.RLock()
	b, ok := m.breakers[provider]
	m.mu.RUnlock()
	if ok {
		return b
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[provider]; ok {
		return b
	}
	b = New(provider, m.cfg, m.store)
	m.breakers[provider] = b
	return b
}
