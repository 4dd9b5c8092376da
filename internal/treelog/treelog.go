// Package treelog is a thin wrapper around zerolog giving the crdt
// package a structured, silent-by-default logger, the way
// cuemby-warren's long-lived components hold a configured
// zerolog.Logger field rather than calling the global logger.
package treelog

import (
	"io"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger writing JSON lines to w, tagged with
// the replica's actor id. Pass io.Discard (the default when no
// WithLogger DocumentOption is supplied) to keep the library silent.
func New(w io.Writer, actor int) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Int("actor", actor).Logger()
}

// Disabled returns a logger that drops everything, used as the
// Document default so embedding the engine in an application never
// produces unsolicited output.
func Disabled() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
