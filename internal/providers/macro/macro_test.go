package macro

import (
	"context"
	"testing"

	"github.com/marketcore/ingestcore/internal/providers"
	"github.com/marketcore/ingestcore/internal/schema"
)

func TestAdapter_Validate_RejectsMissingSeries(t *testing.T) {
	a := New("test", "http://example.invalid", "", schema.DataTypeMacro)
	if _, err := a.Validate(context.Background(), map[string]any{"value": 1.0}); err == nil {
		t.Error("expected an error for a series payload missing the series field")
	}
}

func TestAdapter_Validate_RejectsMissingValue(t *testing.T) {
	a := New("test", "http://example.invalid", "", schema.DataTypeMacro)
	if _, err := a.Validate(context.Background(), map[string]any{"series": "GDP"}); err == nil {
		t.Error("expected an error for a series payload missing the value field")
	}
}

func TestAdapter_Normalize_ScalesValueAndUsesConfiguredDataType(t *testing.T) {
	a := New("fred_macro", "http://example.invalid", "", schema.DataTypeMacro)
	parsed := map[string]any{"series": "gdp", "value": 27.36, "unit": "trillions_usd", "period": "2026-Q2", "previous_value": 27.10}

	recs, err := a.Normalize(context.Background(), parsed, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := recs[0]
	if rec.Symbol != "GDP" {
		t.Errorf("expected the series name upper-cased into Symbol, got %q", rec.Symbol)
	}
	if rec.DataType != schema.DataTypeMacro {
		t.Errorf("expected DataTypeMacro, got %v", rec.DataType)
	}
	if rec.Macro == nil || rec.Macro.Value != 273600 {
		t.Errorf("expected value scaled by 10000, got %+v", rec.Macro)
	}
	if rec.Macro.Unit != "trillions_usd" || rec.Macro.Period != "2026-Q2" {
		t.Errorf("unexpected macro payload metadata: %+v", rec.Macro)
	}
}

func TestAdapter_Normalize_UsesCommodityDataTypeWhenConfigured(t *testing.T) {
	a := New("gold_dollar_index", "http://example.invalid", "", schema.DataTypeCommodity)
	recs, err := a.Normalize(context.Background(), map[string]any{"series": "dxy", "value": 104.5}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recs[0].DataType != schema.DataTypeCommodity {
		t.Errorf("expected the adapter's configured data type to flow through, got %v", recs[0].DataType)
	}
}

func TestInit_RegistersBothSeriesAdaptersSeparately(t *testing.T) {
	macroDescs := providers.DefaultRegistry.ByDataType(schema.DataTypeMacro)
	foundFred := false
	for _, d := range macroDescs {
		if d.Name == "fred_macro" {
			foundFred = true
		}
	}
	if !foundFred {
		t.Error("expected fred_macro to self-register under DataTypeMacro")
	}

	commodityDescs := providers.DefaultRegistry.ByDataType(schema.DataTypeCommodity)
	foundGold := false
	for _, d := range commodityDescs {
		if d.Name == "gold_dollar_index" {
			foundGold = true
		}
	}
	if !foundGold {
		t.Error("expected gold_dollar_index to self-register under DataTypeCommodity")
	}
}
