// Package adapter defines the source adapter contract — fetch, parse,
// validate, normalize — and the pipeline runner that wraps every stage in
// the uniform error envelope, guaranteeing no provider-raised panic or
// error ever escapes the adapter boundary.
package adapter

import (
	"context"

	"github.com/marketcore/ingestcore/internal/schema"
)

// Adapter is implemented once per provider. Implementations MUST NOT
// share mutable state between calls and MUST be re-entrant.
type Adapter interface {
	Name() string
	DataTypes() []schema.DataType

	Fetch(ctx context.Context, params map[string]any) ([]byte, error)
	Parse(ctx context.Context, raw []byte) (any, error)
	Validate(ctx context.Context, parsed any) (any, error)
	Normalize(ctx context.Context, parsed any, params map[string]any) ([]schema.UnifiedRecord, error)

	HealthCheck(ctx context.Context) error
}
