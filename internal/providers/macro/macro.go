// Package macro implements the MACRO/COMMODITY/INDEX data-type REST
// adapter family — FRED-shaped series and commodity/dollar-index
// providers, per the cross-asset providers the distillation dropped.
package macro

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

// Adapter fetches a series endpoint shaped as:
//   {"series": "GDP", "value": 27.36, "unit": "trillions_usd",
//    "period": "2026-Q2", "previous_value": 27.10}
type Adapter struct {
	httpadapter.Base
	dataType schema.DataType
}

func New(name, baseURL, apiKey string, dataType schema.DataType) *Adapter {
	return &Adapter{
		Base: httpadapter.Base{
			Source:    name,
			BaseURL:   baseURL,
			APIKey:    apiKey,
			UserAgent: "ingestcore/1.0",
			Client:    httpadapter.NewClient(10 * time.Second),
		},
		dataType: dataType,
	}
}

func (a *Adapter) Name() string                { return a.Source }
func (a *Adapter) DataTypes() []schema.DataType { return []schema.DataType{a.dataType} }

func (a *Adapter) Validate(ctx context.Context, parsed any) (any, error) {
	m, ok := parsed.(map[string]any)
	if !ok {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "expected a JSON object", nil)
	}
	if s, _ := m["series"].(string); strings.TrimSpace(s) == "" {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "missing required field: series", nil)
	}
	if _, ok := m["value"]; !ok {
		return nil, errs.New(a.Name(), errs.StageValidate, errs.KindValidation, "missing required field: value", nil)
	}
	return m, nil
}

func (a *Adapter) Normalize(ctx context.Context, parsed any, params map[string]any) ([]schema.UnifiedRecord, error) {
	m := parsed.(map[string]any)
	value, _ := m["value"].(float64)
	prev, _ := m["previous_value"].(float64)
	unit, _ := m["unit"].(string)
	period, _ := m["period"].(string)

	rec := schema.UnifiedRecord{
		DataType:   a.dataType,
		Source:     a.Name(),
		SourceType: schema.SourceTypeREST,
		Symbol:     strings.ToUpper(m["series"].(string)),
		Timestamp:  time.Now().UTC(),
		Macro: &schema.MacroPayload{
			Value:         int64(value*10000 + 0.5),
			Scale:         10000,
			Unit:          unit,
			Period:        period,
			PreviousValue: int64(prev*10000 + 0.5),
		},
	}
	if err := rec.Validate(); err != nil {
		return nil, errs.New(a.Name(), errs.StageNormalize, errs.KindValidation, err.Error(), err)
	}
	return []schema.UnifiedRecord{rec}, nil
}

func init() {
	register := func(name string, dt schema.DataType, reliability float64) {
		providers.DefaultRegistry.Register(providers.SourceDescriptor{
			Name:             name,
			Priority:         providers.PriorityPrimary,
			DataTypes:        []schema.DataType{dt},
			ReliabilityScore: reliability,
			Factory: func(config map[string]any) (adapter.Adapter, error) {
				baseURL, _ := config["base_url"].(string)
				apiKey, _ := config["api_key"].(string)
				return New(name, baseURL, apiKey, dt), nil
			},
		})
	}
	register("fred_macro", schema.DataTypeMacro, 0.95)
	register("gold_dollar_index", schema.DataTypeCommodity, 0.85)
}
