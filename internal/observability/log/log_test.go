package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_FallsBackToInfoOnInvalidLevel(t *testing.T) {
	Init("not-a-real-level")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected an invalid level string to fall back to info, got %v", zerolog.GlobalLevel())
	}
}

func TestInit_AppliesRequestedLevel(t *testing.T) {
	Init("debug")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level to be applied, got %v", zerolog.GlobalLevel())
	}
}

func TestNewCorrelationID_ProducesDistinctValues(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty correlation IDs")
	}
	if a == b {
		t.Error("expected distinct correlation IDs across calls")
	}
}

func TestWith_AttachesEnvelopeVocabularyFields(t *testing.T) {
	logger := With("corr-1", "generic_equity", "fetch")
	if logger.GetLevel() < zerolog.TraceLevel {
		t.Error("expected a usable sub-logger")
	}
}
