package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marketcore/ingestcore/internal/kv"
)

func TestBreaker_OpensAfterFailureThreshold(t *testing.T) {
	store := kv.NewMemoryStore()
	cfg := Config{FailureThreshold: 2, RecoveryTime: time.Hour, SuccessThreshold: 1, Timeout: time.Second}
	b := New("equity", cfg, store)
	ctx := context.Background()

	fail := func() (any, error) { return nil, errors.New("boom") }

	_, _ = b.Execute(ctx, fail)
	_, _ = b.Execute(ctx, fail)

	cs, err := b.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.State != StateOpen {
		t.Errorf("expected breaker to be OPEN after %d failures, got %s", cfg.FailureThreshold, cs.State)
	}

	_, err = b.Execute(ctx, fail)
	var openErr ErrOpen
	if !errors.As(err, &openErr) {
		t.Errorf("expected ErrOpen while circuit is open, got %v", err)
	}
}

func TestBreaker_HalfOpenRecoversOnSuccess(t *testing.T) {
	store := kv.NewMemoryStore()
	cfg := Config{FailureThreshold: 1, RecoveryTime: 10 * time.Millisecond, SuccessThreshold: 1, Timeout: time.Second}
	b := New("equity", cfg, store)
	ctx := context.Background()

	_, _ = b.Execute(ctx, func() (any, error) { return nil, errors.New("boom") })
	cs, _ := b.Snapshot(ctx)
	if cs.State != StateOpen {
		t.Fatalf("expected OPEN after first failure, got %s", cs.State)
	}

	time.Sleep(20 * time.Millisecond)

	_, err := b.Execute(ctx, func() (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("expected the half-open probe to succeed, got %v", err)
	}

	cs, _ = b.Snapshot(ctx)
	if cs.State != StateClosed {
		t.Errorf("expected breaker to close after a successful half-open probe, got %s", cs.State)
	}
}

func TestBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	store := kv.NewMemoryStore()
	cfg := Config{FailureThreshold: 1, RecoveryTime: 10 * time.Millisecond, SuccessThreshold: 1, Timeout: time.Second}
	b := New("equity", cfg, store)
	ctx := context.Background()

	_, _ = b.Execute(ctx, func() (any, error) { return nil, errors.New("boom") })
	time.Sleep(20 * time.Millisecond)

	_, err := b.Execute(ctx, func() (any, error) { return nil, errors.New("boom again") })
	if err == nil {
		t.Fatal("expected the half-open probe failure to propagate")
	}

	cs, _ := b.Snapshot(ctx)
	if cs.State != StateOpen {
		t.Errorf("expected breaker to reopen after a failed half-open probe, got %s", cs.State)
	}
}

func TestBreaker_ClosedStaysClosedOnSuccess(t *testing.T) {
	store := kv.NewMemoryStore()
	b := New("equity", DefaultConfig(), store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := b.Execute(ctx, func() (any, error) { return "ok", nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	cs, _ := b.Snapshot(ctx)
	if cs.State != StateClosed {
		t.Errorf("expected breaker to remain CLOSED, got %s", cs.State)
	}
}
