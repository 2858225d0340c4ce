package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasttemplate"
	"k8s.io/apimachinery/pkg/util/validation"
	"k8s.io/client-go/rest"

	"github.com/giantswarm/k8sproject/internal/cluster"
)

// ProjectState is the lifecycle state of the test project as seen by this
// run.
type ProjectState int

const (
	// ProjectAbsent means this run did not create the project: either
	// EnsureProject has not run or the project already existed.
	ProjectAbsent ProjectState = iota

	// ProjectCreated means this run created the project and still owns it.
	ProjectCreated

	// ProjectDeleted means cleanup ran for a project this run created. It
	// behaves like ProjectAbsent but is only reachable from ProjectCreated.
	ProjectDeleted
)

// IsValid reports whether s is a recognized ProjectState value.
func (s ProjectState) IsValid() bool {
	switch s {
	case ProjectAbsent, ProjectCreated, ProjectDeleted:
		return true
	default:
		return false
	}
}

// String returns the name of the state.
func (s ProjectState) String() string {
	switch s {
	case ProjectAbsent:
		return "Absent"
	case ProjectCreated:
		return "Created"
	case ProjectDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("ProjectState(%d)", int(s))
	}
}

// RunConfig is the read-only configuration of one test run. The core never
// mutates it; the live token is kept in a CredentialStore instead.
type RunConfig struct {
	// Namespace is the name of the project the tests run in.
	Namespace string
	// MasterURL is the cluster API endpoint, also used as the OAuth server.
	MasterURL string
	Username  string
	Password  string
	// Cleanup enables deletion of a project this run created.
	Cleanup bool
	// Description is stored on created projects.
	Description string
	Backend     cluster.Backend
}

// Validate checks all RunConfig invariants and joins every violation.
func (c RunConfig) Validate() error {
	var errs []error

	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace must not be empty"))
	} else if msgs := validation.IsDNS1123Label(c.Namespace); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("invalid namespace %q: %s", c.Namespace, strings.Join(msgs, "; ")))
	}
	if c.MasterURL == "" {
		errs = append(errs, errors.New("master URL must not be empty"))
	} else if u, err := url.Parse(c.MasterURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("master URL must be absolute, got %q", c.MasterURL))
	}
	if !c.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("invalid project backend: %v", c.Backend))
	}

	return errors.Join(errs...)
}

// ManagerConfig holds configuration for Manager instances. All fields are
// immutable after construction via NewManagerWithConfig.
type ManagerConfig struct {
	Run RunConfig

	// Token is the initial bearer token. Empty means the session starts
	// unauthenticated.
	Token string

	// RestConfig is an optional base client configuration. Host, bearer
	// token and transport wrappers are overridden.
	RestConfig *rest.Config

	InsecureSkipTLSVerify bool
	CAFile                string

	// RequestTimeout bounds every cluster and OAuth request. Default: 30s.
	RequestTimeout time.Duration

	// ProjectReadyTimeout bounds the re-fetch of a freshly created project.
	// Default: 30s.
	ProjectReadyTimeout time.Duration

	// CleanupTimeout bounds project deletion during Shutdown and on
	// termination signals. Default: 1m.
	CleanupTimeout time.Duration

	// RemediationTemplate renders the login command of an
	// AuthenticationError. Placeholders: {{token}}, {{server}},
	// {{username}}, {{namespace}}.
	RemediationTemplate string

	// LedgerPath enables the created-project ledger when non-empty.
	LedgerPath string

	// HandleSignals installs a SIGINT/SIGTERM watcher that deletes the
	// project before the process exits. Ignored when a TerminationRegistrar
	// is injected.
	HandleSignals bool

	// MetricsRegisterer exports the k8sproject counters when non-nil.
	MetricsRegisterer prometheus.Registerer
}

// Validate checks all ManagerConfig invariants and joins every violation.
func (c ManagerConfig) Validate() error {
	var errs []error

	if err := c.Run.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be greater than 0, got %s", c.RequestTimeout))
	}
	if c.ProjectReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("project ready timeout must be greater than 0, got %s", c.ProjectReadyTimeout))
	}
	if c.CleanupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("cleanup timeout must be greater than 0, got %s", c.CleanupTimeout))
	}
	if c.RemediationTemplate == "" {
		errs = append(errs, errors.New("remediation template must not be empty"))
	} else if _, err := fasttemplate.NewTemplate(c.RemediationTemplate, templateStart, templateEnd); err != nil {
		errs = append(errs, fmt.Errorf("invalid remediation template: %w", err))
	}

	return errors.Join(errs...)
}
