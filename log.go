package k8sproject

import (
	"log/slog"

	"github.com/giantswarm/k8sproject/internal/core"
)

// SetLogger replaces the package-level logger used by k8sproject.
// The provided logger should already have any desired attributes;
// k8sproject will not add additional attributes.
//
// If l is nil, the logger resets to the default: slog.Default() with a
// "component" attribute. Call SetLogger(nil) after slog.SetDefault() to pick
// up changes.
//
// SetLogger is safe to call concurrently with other k8sproject operations.
// For a strict happens-before guarantee, call it before starting goroutines
// that use the library (e.g., in TestMain before m.Run).
//
// Example:
//
//	k8sproject.SetLogger(myLogger.With("component", "k8sproject"))
func SetLogger(l *slog.Logger) {
	core.SetLogger(l)
}
