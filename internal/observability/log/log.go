// Package log configures the process-wide structured logger and attaches
// the envelope vocabulary (correlation_id, source, stage) used across
// every subsystem.
package log

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// Init configures the global zerolog logger: a console writer when stderr
// is a terminal, structured JSON otherwise.
func Init(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// NewCorrelationID generates a correlation ID for a single task/request
// trace, attached to every log line and ScheduledTask invocation.
func NewCorrelationID() string {
	return uuid.NewString()
}

// With returns a sub-logger pre-populated with the envelope vocabulary.
func With(correlationID, source, stage string) zerolog.Logger {
	return log.With().
		Str("correlation_id", correlationID).
		Str("source", source).
		Str("stage", stage).
		Logger()
}
