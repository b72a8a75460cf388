package config

import (
	"time"

	"github.com/marketcore/ingestcore/internal/schema"
)

// CacheTTLPolicy assigns per-data-type fresh/stale windows instead of a
// single global TTL — NEWS and TICK stay fresh briefly, MACRO/INDEX stay
// fresh far longer, mirroring the original system's per-entity TTL
// tuning.
type CacheTTLPolicy struct {
	defaults map[schema.DataType]ttlWindow
}

type ttlWindow struct {
	freshFor time.Duration
	staleFor time.Duration
}

func NewCacheTTLPolicy() CacheTTLPolicy {
	return CacheTTLPolicy{defaults: map[schema.DataType]ttlWindow{
		schema.DataTypeTick:      {freshFor: 5 * time.Second, staleFor: 30 * time.Second},
		schema.DataTypeNews:      {freshFor: 2 * time.Minute, staleFor: 10 * time.Minute},
		schema.DataTypeEquity:    {freshFor: time.Minute, staleFor: 5 * time.Minute},
		schema.DataTypeForex:     {freshFor: time.Minute, staleFor: 5 * time.Minute},
		schema.DataTypeCommodity: {freshFor: 15 * time.Minute, staleFor: time.Hour},
		schema.DataTypeIndex:     {freshFor: 15 * time.Minute, staleFor: time.Hour},
		schema.DataTypeMacro:     {freshFor: 6 * time.Hour, staleFor: 24 * time.Hour},
	}}
}

// Window returns the fresh/stale durations for dt, defaulting to the
// equity window for any data type not explicitly tuned.
func (p CacheTTLPolicy) Window(dt schema.DataType) (freshFor, staleFor time.Duration) {
	w, ok := p.defaults[dt]
	if !ok {
		w = p.defaults[schema.DataTypeEquity]
	}
	return w.freshFor, w.staleFor
}
