// Package logger builds the service's zerolog loggers and redacts personal
// data before it reaches log output.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger for the given application environment. Development
// gets a human-readable console writer at debug level; every other
// environment gets JSON lines at the configured level (info by default).
func New(env, level string) zerolog.Logger {
	return newWithWriter(env, level, os.Stderr)
}

func newWithWriter(env, level string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(env, "development") {
		if level == "" {
			lvl = zerolog.DebugLevel
		}
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "newsletter").Logger()
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
