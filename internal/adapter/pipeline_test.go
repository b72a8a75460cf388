package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketcore/ingestcore/internal/errs"
	"github.com/marketcore/ingestcore/internal/schema"
)

type fakeAdapter struct {
	name        string
	fetchErr    error
	parseErr    error
	validateErr error
	normalizeErr error
	panicStage  string
	records     []schema.UnifiedRecord
}

func (f *fakeAdapter) Name() string                     { return f.name }
func (f *fakeAdapter) DataTypes() []schema.DataType      { return []schema.DataType{schema.DataTypeEquity} }
func (f *fakeAdapter) HealthCheck(ctx context.Context) error { return nil }

func (f *fakeAdapter) Fetch(ctx context.Context, params map[string]any) ([]byte, error) {
	if f.panicStage == "fetch" {
		panic("boom")
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return []byte("raw"), nil
}

func (f *fakeAdapter) Parse(ctx context.Context, raw []byte) (any, error) {
	if f.panicStage == "parse" {
		panic("boom")
	}
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return raw, nil
}

func (f *fakeAdapter) Validate(ctx context.Context, parsed any) (any, error) {
	if f.validateErr != nil {
		return nil, f.validateErr
	}
	return parsed, nil
}

func (f *fakeAdapter) Normalize(ctx context.Context, parsed any, params map[string]any) ([]schema.UnifiedRecord, error) {
	if f.normalizeErr != nil {
		return nil, f.normalizeErr
	}
	return f.records, nil
}

func TestRunner_Run_Success(t *testing.T) {
	r := NewRunner(nil)
	want := []schema.UnifiedRecord{{DataType: schema.DataTypeEquity, Symbol: "AAPL", Timestamp: time.Now().UTC()}}
	a := &fakeAdapter{name: "test", records: want}

	got, err := r.Run(context.Background(), a, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "AAPL" {
		t.Errorf("unexpected records: %+v", got)
	}
}

func TestRunner_Run_WrapsRawErrorAsEnvelope(t *testing.T) {
	r := NewRunner(nil)
	a := &fakeAdapter{name: "test", fetchErr: errors.New("connection refused")}

	_, err := r.Run(context.Background(), a, nil)
	env, ok := errs.As(err)
	if !ok {
		t.Fatalf("expected a raw fetch error to be wrapped as an envelope, got %v", err)
	}
	if env.Stage != errs.StageFetch || env.Source != "test" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestRunner_Run_PreservesExistingEnvelope(t *testing.T) {
	r := NewRunner(nil)
	original := errs.New("test", errs.StageParse, errs.KindBadResponse, "malformed", nil)
	a := &fakeAdapter{name: "test", parseErr: original}

	_, err := r.Run(context.Background(), a, nil)
	env, ok := errs.As(err)
	if !ok || env != original {
		t.Errorf("expected the original envelope to pass through unchanged, got %v", err)
	}
}

func TestRunner_Run_RecoversPanicAsEnvelope(t *testing.T) {
	r := NewRunner(nil)
	a := &fakeAdapter{name: "test", panicStage: "fetch"}

	_, err := r.Run(context.Background(), a, nil)
	env, ok := errs.As(err)
	if !ok {
		t.Fatalf("expected a panic to be converted into an envelope, got %v", err)
	}
	if env.Stage != errs.StageFetch {
		t.Errorf("expected the panic to be attributed to the fetch stage, got %s", env.Stage)
	}
}

func TestRunner_Run_StopsAtFirstFailingStage(t *testing.T) {
	r := NewRunner(nil)
	a := &fakeAdapter{name: "test", validateErr: errors.New("bad data"), normalizeErr: errors.New("should never run")}

	_, err := r.Run(context.Background(), a, nil)
	env, ok := errs.As(err)
	if !ok || env.Stage != errs.StageValidate {
		t.Errorf("expected the pipeline to stop at validate, got %v", err)
	}
}
