// Package logger provides a configured zerolog logger for the mediatheque
// services. All long-running components (scheduler, indexer, API) log
// structured events through loggers derived from New.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger tagged with the component name.
// Output defaults to stderr so JSON logs do not interleave with
// command output on stdout.
func New(component string) zerolog.Logger {
	return NewWithOutput(component, os.Stderr)
}

// NewWithOutput returns a component logger writing to w. Useful for tests.
func NewWithOutput(component string, w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().
		Str("component", component).
		Timestamp().
		Logger()
}

// Nop returns a disabled logger for wiring paths that should stay silent.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
