// Package providers implements the Provider Registry (§4.6): discovery,
// priority tiers, adapter creation by name, and adapter health checks.
package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/marketcore/ingestcore/internal/adapter"
	"github.com/marketcore/ingestcore/internal/schema"
)

// Priority is the registry's fixed fallback ordering.
type Priority int

const (
	PriorityPrimary Priority = iota
	PrioritySecondary
	PriorityFallback
)

func (p Priority) String() string {
	switch p {
	case PriorityPrimary:
		return "PRIMARY"
	case PrioritySecondary:
		return "SECONDARY"
	default:
		return "FALLBACK"
	}
}

// Factory constructs an adapter instance from provider configuration.
type Factory func(config map[string]any) (adapter.Adapter, error)

// SourceDescriptor is the registry row for one provider.
type SourceDescriptor struct {
	Name              string
	Priority          Priority
	Factory           Factory
	DataTypes         []schema.DataType
	RateLimitPerHour  int
	ReliabilityScore  float64
	Enabled           bool
}

// Registry indexes SourceDescriptors by name and exposes lookups by data
// type and priority, plus health-driven disablement.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*SourceDescriptor
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*SourceDescriptor)}
}

// DefaultRegistry is the process-wide registry concrete adapter packages
// register themselves into at package initialization.
var DefaultRegistry = NewRegistry()

// Register adds a SourceDescriptor. Called at package initialization by
// each adapter package, mirroring the convention-based registration the
// original dynamic-discovery system used.
func (r *Registry) Register(desc SourceDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	desc.Enabled = true
	r.byName[desc.Name] = &desc
}

func (r *Registry) List() []*SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*SourceDescriptor, 0, len(r.byName))
	for _, d := range r.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByDataType returns enabled descriptors serving dt, ordered by
// (priority, -reliability) per the orchestrator's fallback order.
func (r *Registry) ByDataType(dt schema.DataType) []*SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*SourceDescriptor
	for _, d := range r.byName {
		if !d.Enabled {
			continue
		}
		for _, t := range d.DataTypes {
			if t == dt {
				out = append(out, d)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ReliabilityScore > out[j].ReliabilityScore
	})
	return out
}

func (r *Registry) ByPriority(p Priority) []*SourceDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*SourceDescriptor
	for _, d := range r.byName {
		if d.Priority == p {
			out = append(out, d)
		}
	}
	return out
}

// Create constructs an adapter instance by name.
func (r *Registry) Create(name string, config map[string]any) (adapter.Adapter, error) {
	r.mu.RLock()
	desc, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("providers: no source registered as %q", name)
	}
	return desc.Factory(config)
}

// Validate runs the adapter's health check and returns its error. It does
// not change the descriptor's Enabled flag and keeps no failure count;
// disabling a provider is left to the caller through SetEnabled.
func (r *Registry) Validate(ctx context.Context, name string, a adapter.Adapter) error {
	return a.HealthCheck(ctx)
}

// SetEnabled flips a descriptor's availability; the registry validate
// command uses it to disable a provider whose health check fails.
func (r *Registry) SetEnabled(name string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byName[name]; ok {
		d.Enabled = enabled
	}
}
