package logging

import (
	"log/slog"
	"sync/atomic"
)

var traceOn atomic.Bool

// SetTrace switches placement trace logging. Off by default.
func SetTrace(on bool) { traceOn.Store(on) }

// TraceEnabled reports whether trace logging is on.
func TraceEnabled() bool { return traceOn.Load() }

// TraceDefault logs at DEBUG to the default logger when trace is on.
func TraceDefault(msg string, args ...any) {
	if traceOn.Load() {
		slog.Debug(msg, args...)
	}
}
