package core

import (
	"log/slog"
	"sync/atomic"
)

// logger is the package-level logger. Named "logger" instead of "log" to
// avoid shadowing the stdlib "log" package. Nil means SetLogger has not been
// called and Logger falls back to a cached default.
var logger atomic.Pointer[slog.Logger]

// defaultLogger caches slog.Default() with the component attribute so it is
// not re-created on every Logger() call. SetLogger(nil) clears it, which lets
// callers pick up a later slog.SetDefault.
var defaultLogger atomic.Pointer[slog.Logger]

// Logger returns the current package-level logger. It is safe to call from
// multiple goroutines.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	l := newDefaultLogger()
	if defaultLogger.CompareAndSwap(nil, l) {
		return l
	}
	if l2 := defaultLogger.Load(); l2 != nil {
		return l2
	}
	return l
}

func newDefaultLogger() *slog.Logger {
	return slog.Default().With("component", "k8sproject")
}

// SetLogger replaces the package-level logger. A nil l restores the default.
func SetLogger(l *slog.Logger) {
	logger.Store(l)
	defaultLogger.Store(nil)
}
