// Package equity implements the EQUITY-data-type REST adapter family,
// registered with the Provider Registry at package initialization.
package equity

import (
	"context"
	"strings"
	"time"

	"github.com/marketcore/ingestcore/internal/adapter"
	"github.com/marketcore/ingestcore/internal/errs"
	"github.com/marketcore/ingestcore/internal/providers"
	"github.com/marketcore/ingestcore/internal/providers/httpadapter"
	"github.com/marketcore/ingestcore/internal/schema"
)

// Adapter fetches a quote endpoint shaped as:
//   {"symbol": "AAPL", "price": 191.23, "volume": 123456, "open": ..., ...}
type Adapter struct {
	httpadapter.Base
}

func New(baseURL, apiKey string) *Adapter {
	return &Adapter{Base: httpadapter.Base{
		Source:    "generic_equity",
		BaseURL:   baseURL,
		APIKey:    apiKey,
		UserAgent: "ingestcore/1.0",
		Client:    httpadapter.NewClient(10 * time.Second),
	}}
}

func (a *Adapter) Name() string                    { return a.Source }
func (a *Adapter) DataTypes() []schema.DataType     { return []schema.DataType{schema.DataTypeEquity} }

func (a *Adapter) Validate(ctx context.Context, parsed any) (any, error) {
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "expected a JSON object", nil)
	}
	symbol, _ := m["symbol"].(string)
	if strings.TrimSpace(symbol) == "" {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "missing required field: symbol", nil)
	}
	if _, ok := m["price"]; !ok {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "missing required field: price", nil)
	}
	return m, nil
}

func (a *Adapter) Normalize(ctx context.Context, parsed any, params map[string]any) ([]schema.UnifiedRecord, error) {
	m := parsed.(map[string]any)
	symbol := strings.ToUpper(m["symbol"].(string))
	price := toScaledInt(m["price"])

	rec := schema.UnifiedRecord{
		DataType:   schema.DataTypeEquity,
		Source:     a.Name(),
		SourceType: schema.SourceTypeREST,
		Symbol:     symbol,
		Timestamp:  time.Now().UTC(),
		Price: &schema.PricePayload{
			Price:  price,
			Scale:  100,
			Volume: toScaledInt(m["volume"]),
			Open:   toScaledInt(m["open"]),
			High:   toScaledInt(m["high"]),
			Low:    toScaledInt(m["low"]),
			Close:  toScaledInt(m["close"]),
		},
	}
	if err := rec.Validate(); err != nil {
		return nil, errs.New(a.Name(), errs.StageNormalize, errs.KindValidation, err.Error(), err)
	}
	return []schema.UnifiedRecord{rec}, nil
}

// toScaledInt converts a float-ish JSON number into a fixed-precision
// integer scaled by 100 (cents), never binary floating point downstream.
func toScaledInt(v any) int64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int64(f*100 + 0.5)
}

func init() {
	providers.DefaultRegistry.Register(providers.SourceDescriptor{
		Name:             "generic_equity",
		Priority:         providers.PrioritySecondary,
		DataTypes:        []schema.DataType{schema.DataTypeEquity},
		ReliabilityScore: 0.9,
		Factory: func(config map[string]any) (adapter.Adapter, error) {
			baseURL, _ := config["base_url"].(string)
			apiKey, _ := config["api_key"].(string)
			return New(baseURL, apiKey), nil
		},
	})
}
