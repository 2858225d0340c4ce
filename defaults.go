package k8sproject

import (
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/k8sproject/internal/core"
)

// Default configuration values for NewManager.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them (e.g.,
// 2 * DefaultCleanupTimeout).
const (
	// DefaultRequestTimeout bounds every cluster and OAuth request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultProjectReadyTimeout is how long EnsureProject polls for a
	// freshly created project before falling back to the requested name.
	DefaultProjectReadyTimeout = 30 * time.Second

	// DefaultCleanupTimeout bounds project deletion during Shutdown and on
	// termination signals.
	DefaultCleanupTimeout = time.Minute

	// DefaultRemediationTemplate is the login command shown in an
	// AuthenticationError.
	DefaultRemediationTemplate = core.DefaultRemediationTemplate

	// DefaultDescription is stored on projects created by k8sproject.
	DefaultDescription = core.DefaultDescription

	// DefaultCleanup deletes created projects at the end of the run.
	DefaultCleanup = true

	// DefaultBackend manages plain namespaces.
	DefaultBackend = BackendNamespace

	// DefaultHandleSignals deletes the created project when the process
	// receives SIGINT or SIGTERM.
	DefaultHandleSignals = true

	// GeneratedNamespacePrefix starts namespace names generated when none
	// is configured.
	GeneratedNamespacePrefix = "t-"
)

// maxNamespaceLength is the DNS-1123 label limit.
const maxNamespaceLength = 63

// generateNamespace returns a unique DNS-1123 label.
func generateNamespace() string {
	name := GeneratedNamespacePrefix + uuid.NewString()
	if len(name) > maxNamespaceLength {
		name = name[:maxNamespaceLength]
	}
	return name
}

// defaultManagerConfig returns a managerConfig populated with all default
// values. Both NewManager and test helpers use this to avoid duplicating
// the default field assignments.
func defaultManagerConfig() managerConfig {
	return managerConfig{core.ManagerConfig{
		Run: core.RunConfig{
			Cleanup:     DefaultCleanup,
			Description: DefaultDescription,
			Backend:     DefaultBackend,
		},
		RequestTimeout:      DefaultRequestTimeout,
		ProjectReadyTimeout: DefaultProjectReadyTimeout,
		CleanupTimeout:      DefaultCleanupTimeout,
		RemediationTemplate: DefaultRemediationTemplate,
		HandleSignals:       DefaultHandleSignals,
	}}
}
