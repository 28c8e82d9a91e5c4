// Package klog wires capsule's structured logging. It mirrors the teacher
// application's practice of redirecting diagnostic logs to a file under the
// user's cache directory so they never interleave with the rendered terminal
// view, but upgrades the sink from stdlib log lines to structured zerolog
// events so every field (tick, task id, component id, capability kind) is
// queryable instead of grep-only.
//
// klog is strictly a diagnostic aid. It is never consulted for correctness:
// the audit trail (internal/audit) is the source of truth for "what
// happened", and tests assert against the audit trail, not log output.
package klog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. Defaults to a disabled
// logger so tests that never call Init still run silently.
var Logger = zerolog.New(io.Discard).With().Timestamp().Logger()

// Init redirects Logger to <cacheDir>/debug.log, creating cacheDir if
// necessary. It returns the opened file so the caller can close it on
// shutdown; a nil file and a console-discarding logger are returned if the
// file could not be opened.
func Init(cacheDir string) (*os.File, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(cacheDir, "debug.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

// Component returns a child logger scoped to a named subsystem, e.g.
// klog.Component("scheduler").
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}
