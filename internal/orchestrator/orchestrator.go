// Package orchestrator fans out scheduled task firings across adapters
// guarded by the resilience engine, consults the Provider Registry for
// fallback ordering, and publishes normalized records to the durable
// sink and to subscribers.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketcore/ingestcore/internal/cache"
	"github.com/marketcore/ingestcore/internal/providers"
	"github.com/marketcore/ingestcore/internal/schema"
)

// Publisher is the durable sink's write path, consumed here so the
// orchestrator never depends on the sink's internal buffering details.
type Publisher interface {
	Publish(ctx context.Context, records []schema.UnifiedRecord) error
}

// SourceStatus reports one provider's outcome within a fan-out/fallback
// call, exposed to callers of query/subscribe per §7 "best-effort union
// plus a per-source status map".
type SourceStatus string

const (
	StatusOK     SourceStatus = "ok"
	StatusEmpty  SourceStatus = "empty"
	StatusError  SourceStatus = "error"
)

// Orchestrator is constructed once at process start and passed explicitly
// to the scheduler and CLI, avoiding hidden module-level singletons.
type Orchestrator struct {
	registry *providers.Registry
	guards   map[string]*providers.Guard
	cache    *cache.Cache
	sink     Publisher

	subMu       sync.RWMutex
	subscribers map[string][]chan schema.UnifiedRecord
}

func New(registry *providers.Registry, guards map[string]*providers.Guard, c *cache.Cache, sink Publisher) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		guards:      guards,
		cache:       c,
		sink:        sink,
		subscribers: make(map[string][]chan schema.UnifiedRecord),
	}
}

const subscriberQueueSize = 256

// Subscribe returns a bounded channel of records matching dataType,
// applying lossy backpressure: when the subscriber falls behind, the
// oldest queued record is dropped to make room (drop-from-head).
func (o *Orchestrator) Subscribe(dataType schema.DataType) <-chan schema.UnifiedRecord {
	ch := make(chan schema.UnifiedRecord, subscriberQueueSize)
	o.subMu.Lock()
	defer o.subMu.Unlock()
	key := string(dataType)
	o.subscribers[key] = append(o.subscribers[key], ch)
	return ch
}

func (o *Orchestrator) publishToSubscribers(records []schema.UnifiedRecord) {
	o.subMu.RLock()
	defer o.subMu.RUnlock()
	for _, rec := range records {
		for _, ch := range o.subscribers[string(rec.DataType)] {
			select {
			case ch <- rec:
			default:
				select {
				case <-ch: // drop the oldest to make room
				default:
				}
				select {
				case ch <- rec:
				default:
				}
			}
		}
	}
}

// RunTask invokes the guarded pipeline for one scheduled task, trying the
// task's named adapter first and falling through the registry's priority
// order for the same data type if the named adapter returns no records or
// fails.
func (o *Orchestrator) RunTask(ctx context.Context, adapterName string, dataType schema.DataType, params map[string]any) ([]schema.UnifiedRecord, map[string]SourceStatus, error) {
	statuses := make(map[string]SourceStatus)

	candidates := o.fallbackOrder(adapterName, dataType)
	var lastErr error

	for i, name := range candidates {
		guard, ok := o.guards[name]
		if !ok {
			continue
		}
		a, err := o.registry.Create(name, nil)
		if err != nil {
			statuses[name] = StatusError
			lastErr = err
			continue
		}

		records, err := guard.Execute(ctx, a, "system", params)
		if err != nil {
			statuses[name] = StatusError
			lastErr = err
			continue
		}
		if len(records) == 0 {
			statuses[name] = StatusEmpty
			continue
		}

		statuses[name] = StatusOK
		if i > 0 {
			log.Info().Str("primary", adapterName).Str("fallback_used", name).Msg("fallback used")
		}
		o.deliver(ctx, records)
		return records, statuses, nil
	}

	return nil, statuses, lastErr
}

func (o *Orchestrator) fallbackOrder(primary string, dataType schema.DataType) []string {
	order := []string{primary}
	for _, desc := range o.registry.ByDataType(dataType) {
		if desc.Name == primary {
			continue
		}
		order = append(order, desc.Name)
	}
	return order
}

func (o *Orchestrator) deliver(ctx context.Context, records []schema.UnifiedRecord) {
	if o.sink != nil {
		if err := o.sink.Publish(ctx, records); err != nil {
			log.Error().Err(err).Msg("sink publish failed")
		}
	}
	o.publishToSubscribers(records)
}

// FanOut queries every enabled adapter for dataType concurrently, each
// bounded by perAdapterTimeout; slow adapters never delay fast ones.
// Results are unioned without cross-source deduplication.
func (o *Orchestrator) FanOut(ctx context.Context, dataType schema.DataType, params map[string]any, perAdapterTimeout time.Duration) ([]schema.UnifiedRecord, map[string]SourceStatus) {
	descs := o.registry.ByDataType(dataType)

	type result struct {
		name    string
		records []schema.UnifiedRecord
		err     error
	}
	results := make(chan result, len(descs))
	var wg sync.WaitGroup

	for _, desc := range descs {
		desc := desc
		guard, ok := o.guards[desc.Name]
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, perAdapterTimeout)
			defer cancel()

			a, err := o.registry.Create(desc.Name, nil)
			if err != nil {
				results <- result{name: desc.Name, err: err}
				return
			}
			records, err := guard.Execute(callCtx, a, "system", params)
			results <- result{name: desc.Name, records: records, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var union []schema.UnifiedRecord
	statuses := make(map[string]SourceStatus)
	for r := range results {
		switch {
		case r.err != nil:
			statuses[r.name] = StatusError
		case len(r.records) == 0:
			statuses[r.name] = StatusEmpty
		default:
			statuses[r.name] = StatusOK
			union = append(union, r.records...)
		}
	}

	o.deliver(ctx, union)
	return union, statuses
}
