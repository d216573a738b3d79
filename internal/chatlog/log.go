// Package chatlog wraps zerolog behind a *log.Logger-shaped call surface
// (Printf-style formatting at each call site), so callers read like
// plain stdlib logging while the output underneath is structured.
package chatlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger mimics the subset of *log.Logger the consensus and chat-state
// packages call (Printf), backed by a zerolog.Logger with fixed fields.
type Logger struct {
	zl zerolog.Logger
}

// New constructs a console-writer Logger with nodeID/component fields
// attached once, a structured-fields analogue of a per-node "[%s] ..."
// prefix idiom.
func New(w io.Writer, nodeID, component string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	zl := zerolog.New(cw).With().Timestamp().
		Str("node_id", nodeID).
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// NewJSON constructs a Logger that emits newline-delimited JSON, used by
// cmd/chatnode when the config's log_format (CHAT_LOG_FORMAT) is "json".
func NewJSON(w io.Writer, nodeID, component string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).With().Timestamp().
		Str("node_id", nodeID).
		Str("component", component).
		Logger()
	return &Logger{zl: zl}
}

// Printf matches the call shape of *log.Logger.Printf used throughout the
// consensus module.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

// Errorf logs at error level with the same formatting call shape.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// With returns a child Logger with an additional field attached, e.g. to
// tag log lines with a term or role without threading it through every
// call site. No caller in this module uses it yet.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}
