package k8sproject

import "github.com/giantswarm/k8sproject/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrShuttingDown is returned by Manager operations after Shutdown.
	ErrShuttingDown = core.ErrShuttingDown

	// ErrNotInitialized is returned by Manager operations before Initialize.
	ErrNotInitialized = core.ErrNotInitialized

	// ErrNotAuthenticated matches every *AuthenticationError.
	ErrNotAuthenticated = core.ErrNotAuthenticated

	// ErrTokenRefresh is wrapped around failures of the OAuth token issuer.
	// The issuer error stays reachable with errors.Is and errors.As.
	ErrTokenRefresh = core.ErrTokenRefresh

	// ErrProvisioning is wrapped around failures to create the project.
	ErrProvisioning = core.ErrProvisioning

	// ErrNoMatchingPod is returned by ManagementHandle.URL when no pod
	// matches the handle's labels.
	ErrNoMatchingPod = core.ErrNoMatchingPod
)

// AuthenticationError is returned when the session holds no token. Token is
// a freshly issued token and Remediation the command that logs in with it.
type AuthenticationError = core.AuthenticationError
