package k8sproject

import (
	"context"
	"crypto/tls"
	"time"
)

// Manager owns the test project of one run.
//
// Callers must follow this lifecycle ordering:
//
//	NewManager → Initialize → EnsureProject → ManagementHandle/Token (repeatable) → Cleanup → Shutdown
//
// Shutdown is safe to call at any point, including before Initialize, and
// cleans up the project itself when Cleanup was not called.
type Manager interface {
	// Initialize builds the cluster clients. It performs no cluster
	// requests. Safe to call multiple times: after a successful
	// initialization, subsequent calls return nil immediately. If
	// initialization fails, subsequent calls retry.
	Initialize(ctx context.Context) error

	// EnsureValid probes the cluster with the held token. An expired token
	// is replaced with a freshly issued one. Without any token, a token is
	// issued and an *AuthenticationError carrying the login command is
	// returned.
	EnsureValid(ctx context.Context) error

	// EnsureProject runs EnsureValid and creates the project unless it
	// already exists. Only a project created here is deleted by Cleanup.
	//
	// Returns an error matching ErrProvisioning if creation fails.
	EnsureProject(ctx context.Context) error

	// Cleanup deletes the project if this run created it and cleanup is
	// enabled. Delete failures are logged and swallowed. Safe to call
	// concurrently with the termination handler: the project is deleted at
	// most once.
	Cleanup(ctx context.Context) error

	// ProjectState reports whether this run created or deleted the project.
	ProjectState() ProjectState

	// Namespace returns the name of the project, generated when none was
	// configured.
	Namespace() string

	// ManagementHandle returns a handle for the pods matching labels.
	// Returns an error if labels is empty.
	ManagementHandle(labels map[string]string) (ManagementHandle, error)

	// Token returns the bearer token currently used for cluster requests.
	Token() (string, error)

	// Reap deletes projects older than olderThan that were recorded in the
	// ledger by runs which are no longer alive. Requires WithLedgerPath.
	Reap(ctx context.Context, olderThan time.Duration) ([]ReapResult, error)

	// RegisterTermination adds a callback run on SIGINT or SIGTERM before
	// the process exits. Callbacks run in reverse registration order, so a
	// callback registered after EnsureProject runs before the project is
	// deleted. No-op unless WithSignalHandling is set.
	RegisterTermination(name string, fn func(ctx context.Context))

	// Shutdown runs Cleanup bounded by the cleanup timeout and releases
	// the ledger and the signal watcher.
	Shutdown() error
}

// ManagementHandle exposes an externally reachable URL for a workload pod
// together with the credentials needed to talk to it.
type ManagementHandle interface {
	// URL returns the API server proxy URL for port of the first pod, by
	// name, matching the handle's labels. Returns an error matching
	// ErrNoMatchingPod when no pod matches.
	URL(ctx context.Context, port int) (string, error)

	// Labels returns a copy of the label selector.
	Labels() map[string]string

	Username() string
	Password() string

	// OAuthToken returns the current token. It reflects refreshes done by
	// the credential guard after the handle was created.
	OAuthToken() string

	// TLSConfig returns the TLS configuration used for cluster requests, or
	// nil when the cluster is reached over plain HTTP.
	TLSConfig() *tls.Config
}
