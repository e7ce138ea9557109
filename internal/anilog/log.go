// Package anilog provides the package-level logger used across the client.
//
// Following the teacher's texture (plain stdlib log, no structured logging
// framework), every package accepts or falls back to a *log.Logger and
// self-prefixes its lines (e.g. "wire: ", "session: ").
package anilog

import (
	"log"
	"os"
)

// Default is used by any package that isn't given an explicit logger.
var Default = log.New(os.Stderr, "", log.LstdFlags)

// Debug controls whether Debugf prints on every Logger. Set via config
// loglevel/debug (spec.md §6.4).
var Debug = false

// Logger wraps *log.Logger with a fixed prefix and a Debugf that is a no-op
// unless Debug is enabled, mirroring the teacher's debug vs info split in
// internal/httpclient (LogHeaders) and internal/config (loglevel/debug).
type Logger struct {
	*log.Logger
}

// New returns a Logger that prefixes every line with "<prefix>: ".
func New(base *log.Logger, prefix string) *Logger {
	if base == nil {
		base = Default
	}
	return &Logger{Logger: log.New(base.Writer(), prefix+": ", base.Flags())}
}

// Debugf logs only when Debug is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if !Debug {
		return
	}
	l.Printf(format, args...)
}
