package k8sproject

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasttemplate"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/rest"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("k8sproject: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("k8sproject: %s must not be empty", name))
	}
}

// ManagerOption configures a Manager during construction via NewManager.
// Each With* function returns a ManagerOption that sets a specific field.
//
// Several With* functions panic on invalid input (empty names, malformed
// URLs, non-positive durations). Option values are typically constants or
// values read once at startup, so an invalid value is a programmer error.
// The pattern mirrors [regexp.MustCompile].
type ManagerOption func(*managerConfig)

// WithNamespace sets the name of the test project.
// If not set, a unique name starting with GeneratedNamespacePrefix is used.
//
// Panics if name is not a valid DNS-1123 label.
func WithNamespace(name string) ManagerOption {
	requireNonEmpty("namespace", name)
	if msgs := validation.IsDNS1123Label(name); len(msgs) > 0 {
		panic(fmt.Sprintf("k8sproject: invalid namespace %q: %s", name, strings.Join(msgs, "; ")))
	}
	return func(c *managerConfig) {
		c.Run.Namespace = name
	}
}

// WithMasterURL sets the cluster API endpoint. It is also the OAuth server
// used to issue tokens. If not set, the host of WithRestConfig is used.
//
// Panics if masterURL is not an absolute URL.
func WithMasterURL(masterURL string) ManagerOption {
	requireNonEmpty("master URL", masterURL)
	if u, err := url.Parse(masterURL); err != nil || u.Scheme == "" || u.Host == "" {
		panic(fmt.Sprintf("k8sproject: master URL must be absolute, got %q", masterURL))
	}
	return func(c *managerConfig) {
		c.Run.MasterURL = masterURL
	}
}

// WithCredentials sets the username and password used to issue tokens.
//
// Panics if username is empty.
func WithCredentials(username, password string) ManagerOption {
	requireNonEmpty("username", username)
	return func(c *managerConfig) {
		c.Run.Username = username
		c.Run.Password = password
	}
}

// WithToken sets the initial bearer token. Without a token the first
// EnsureValid returns an *AuthenticationError.
//
// Panics if token is empty.
func WithToken(token string) ManagerOption {
	requireNonEmpty("token", token)
	return func(c *managerConfig) {
		c.Token = token
	}
}

// WithCleanup enables or disables deletion of a project this run created.
//
// Default: true.
func WithCleanup(enabled bool) ManagerOption {
	return func(c *managerConfig) {
		c.Run.Cleanup = enabled
	}
}

// WithBackend selects how the project is managed.
//
// Default: BackendNamespace.
//
// Panics if b is not a valid Backend.
func WithBackend(b Backend) ManagerOption {
	if !b.IsValid() {
		panic(fmt.Sprintf("k8sproject: invalid project backend: %v", b))
	}
	return func(c *managerConfig) {
		c.Run.Backend = b
	}
}

// WithDescription sets the description stored on created projects.
//
// Default: DefaultDescription.
//
// Panics if description is empty.
func WithDescription(description string) ManagerOption {
	requireNonEmpty("description", description)
	return func(c *managerConfig) {
		c.Run.Description = description
	}
}

// WithRestConfig sets a base client configuration, for example one loaded
// from a kubeconfig. Its bearer token becomes the initial token unless
// WithToken is also given. The config is copied; later changes to cfg have
// no effect.
//
// Panics if cfg is nil.
func WithRestConfig(cfg *rest.Config) ManagerOption {
	if cfg == nil {
		panic("k8sproject: rest config must not be nil")
	}
	cfg = rest.CopyConfig(cfg)
	return func(c *managerConfig) {
		c.RestConfig = cfg
	}
}

// WithInsecureSkipTLSVerify disables verification of the cluster's serving
// certificate for cluster and OAuth requests.
func WithInsecureSkipTLSVerify(insecure bool) ManagerOption {
	return func(c *managerConfig) {
		c.InsecureSkipTLSVerify = insecure
	}
}

// WithCAFile sets a PEM bundle used to verify the cluster's serving
// certificate.
//
// Panics if path is empty.
func WithCAFile(path string) ManagerOption {
	requireNonEmpty("CA file path", path)
	return func(c *managerConfig) {
		c.CAFile = path
	}
}

// WithRequestTimeout bounds every cluster and OAuth request.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithRequestTimeout(d time.Duration) ManagerOption {
	requirePositive("request timeout", d)
	return func(c *managerConfig) {
		c.RequestTimeout = d
	}
}

// WithProjectReadyTimeout bounds how long EnsureProject waits for a created
// project to become readable.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithProjectReadyTimeout(d time.Duration) ManagerOption {
	requirePositive("project ready timeout", d)
	return func(c *managerConfig) {
		c.ProjectReadyTimeout = d
	}
}

// WithCleanupTimeout bounds project deletion during Shutdown and on
// termination signals.
//
// Default: 1 minute.
//
// Panics if d <= 0.
func WithCleanupTimeout(d time.Duration) ManagerOption {
	requirePositive("cleanup timeout", d)
	return func(c *managerConfig) {
		c.CleanupTimeout = d
	}
}

// WithRemediationTemplate sets the login command shown in an
// AuthenticationError. The placeholders {{token}}, {{server}},
// {{username}} and {{namespace}} are substituted.
//
// Default: DefaultRemediationTemplate.
//
// Panics if tmpl is empty or has unbalanced placeholders.
func WithRemediationTemplate(tmpl string) ManagerOption {
	requireNonEmpty("remediation template", tmpl)
	if _, err := fasttemplate.NewTemplate(tmpl, "{{", "}}"); err != nil {
		panic(fmt.Sprintf("k8sproject: invalid remediation template: %v", err))
	}
	return func(c *managerConfig) {
		c.RemediationTemplate = tmpl
	}
}

// WithLedgerPath records every project this run creates in a SQLite ledger
// at path. The ledger is shared between processes and enables Reap.
//
// Panics if path is empty.
func WithLedgerPath(path string) ManagerOption {
	requireNonEmpty("ledger path", path)
	return func(c *managerConfig) {
		c.LedgerPath = path
	}
}

// WithSignalHandling controls the SIGINT/SIGTERM handler that runs the
// termination callbacks, deleting the project, before the process exits.
// It is on by default; WithSignalHandling(false) leaves signals to the
// caller.
//
// Default: DefaultHandleSignals (true)
func WithSignalHandling(enabled bool) ManagerOption {
	return func(c *managerConfig) {
		c.HandleSignals = enabled
	}
}

// WithMetricsRegisterer exports the k8sproject counters to reg during
// Initialize.
//
// Panics if reg is nil.
func WithMetricsRegisterer(reg prometheus.Registerer) ManagerOption {
	if reg == nil {
		panic("k8sproject: metrics registerer must not be nil")
	}
	return func(c *managerConfig) {
		c.MetricsRegisterer = reg
	}
}
