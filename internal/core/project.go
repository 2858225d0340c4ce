package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/k8sproject/internal/cluster"
	"github.com/giantswarm/k8sproject/internal/ledger"
	"github.com/giantswarm/k8sproject/internal/metrics"
)

// projectReadyPollInterval is the interval between re-fetches of a freshly
// created project.
const projectReadyPollInterval = 250 * time.Millisecond

// defaultProjectReadyTimeout is used when ProjectManagerParams leaves
// ReadyTimeout unset.
const defaultProjectReadyTimeout = 30 * time.Second

// DefaultDescription is stored on projects created without a configured
// description.
const DefaultDescription = "auto-generated project for integration testing"

// TerminationRegistrar registers callbacks invoked when the process is
// terminated externally. Callbacks may run on another goroutine.
type TerminationRegistrar interface {
	Register(name string, fn func(ctx context.Context))
}

// ProjectLedger persists the projects this run created.
type ProjectLedger interface {
	Record(ctx context.Context, e ledger.Entry) error
	Remove(ctx context.Context, name, server string) error
}

// ProjectManagerParams holds the dependencies of a ProjectManager.
type ProjectManagerParams struct {
	Session *Session
	Config  RunConfig
	Guard   *CredentialGuard

	// Termination, Ledger and Metrics are optional.
	Termination TerminationRegistrar
	Ledger      ProjectLedger
	Metrics     *metrics.Metrics

	RunID        string
	ReadyTimeout time.Duration
}

// ProjectManager creates the test project when it is missing and deletes it
// again if, and only if, this run created it.
//
// Cleanup and the termination callback share mu, so the check of the
// created record and the delete are atomic with respect to each other.
type ProjectManager struct {
	session      *Session
	cfg          RunConfig
	guard        *CredentialGuard
	termination  TerminationRegistrar
	ledger       ProjectLedger
	metrics      *metrics.Metrics
	runID        string
	readyTimeout time.Duration
	log          *slog.Logger

	mu         sync.Mutex
	created    *cluster.Project // non-nil only while this run owns the project
	state      ProjectState
	registered bool
}

// NewProjectManager panics on missing dependencies.
func NewProjectManager(p ProjectManagerParams) *ProjectManager {
	if p.Session == nil || p.Session.Projects == nil {
		panic("k8sproject: project manager requires a session with a project client")
	}
	if p.Guard == nil {
		panic("k8sproject: project manager requires a credential guard")
	}
	m := p.Metrics
	if m == nil {
		m = metrics.Discard()
	}
	readyTimeout := p.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = defaultProjectReadyTimeout
	}
	return &ProjectManager{
		session:      p.Session,
		cfg:          p.Config,
		guard:        p.Guard,
		termination:  p.Termination,
		ledger:       p.Ledger,
		metrics:      m,
		runID:        p.RunID,
		readyTimeout: readyTimeout,
		log:          Logger().With("namespace", p.Session.Namespace),
	}
}

// State returns the current project state.
func (pm *ProjectManager) State() ProjectState {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.state
}

// Created returns a copy of the record of the project this run created, or
// nil.
func (pm *ProjectManager) Created() *cluster.Project {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.created == nil {
		return nil
	}
	p := *pm.created
	return &p
}

// EnsureProject validates the credentials and creates the project when it
// does not exist yet. It is safe to call more than once.
func (pm *ProjectManager) EnsureProject(ctx context.Context) error {
	if err := pm.guard.EnsureValid(ctx); err != nil {
		return err
	}

	name := pm.session.Namespace
	pm.registerTermination(name, pm.cfg.Cleanup)

	existing, err := pm.session.Projects.Get(ctx, name)
	if err != nil {
		// Lookup failures, including Forbidden, are treated as "absent".
		// Creation then fails loudly if the project exists after all.
		pm.log.Debug("project lookup failed, treating as absent", "error", err)
		existing = nil
	}
	if existing != nil {
		pm.log.Debug("project already exists", "created", existing.CreationTimestamp)
		return nil
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	description := pm.cfg.Description
	if description == "" {
		description = DefaultDescription
	}
	if err := pm.session.Projects.Create(ctx, name, description); err != nil {
		return fmt.Errorf("%w: create project %s: %w", ErrProvisioning, name, err)
	}

	created := pm.fetchCreated(ctx, name)
	if created == nil {
		pm.log.Warn("created project not readable yet, using requested name", "timeout", pm.readyTimeout)
		created = &cluster.Project{Name: name, Description: description, CreationTimestamp: time.Now()}
	}
	pm.created = created
	pm.state = ProjectCreated
	pm.metrics.ProjectsCreated.Inc()
	pm.log.Info("created project")

	if pm.ledger != nil {
		err := pm.ledger.Record(ctx, ledger.Entry{
			Name:      created.Name,
			Server:    pm.session.MasterURL,
			CreatedAt: created.CreationTimestamp,
			PID:       os.Getpid(),
			RunID:     pm.runID,
		})
		if err != nil {
			pm.log.Warn("failed to record project in ledger", "error", err)
		}
	}
	return nil
}

// fetchCreated re-reads a project right after creation. OpenShift creates
// projects asynchronously from the request, so the read is retried.
func (pm *ProjectManager) fetchCreated(ctx context.Context, name string) *cluster.Project {
	var created *cluster.Project
	_ = wait.PollUntilContextTimeout(ctx, projectReadyPollInterval, pm.readyTimeout, true,
		func(pollCtx context.Context) (bool, error) {
			p, err := pm.session.Projects.Get(pollCtx, name)
			if err != nil {
				pm.log.Debug("created project not readable", "error", err)
				return false, nil
			}
			created = p
			return true, nil
		})
	return created
}

// registerTermination registers the termination callback once. The
// callback captures name and cleanup by value.
func (pm *ProjectManager) registerTermination(name string, cleanup bool) {
	if pm.termination == nil {
		return
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.registered {
		return
	}
	pm.registered = true
	pm.termination.Register("delete-project "+name, func(ctx context.Context) {
		pm.deleteIfCreated(ctx, name, cleanup)
	})
}

// Cleanup deletes the project if this run created it and cleanup is
// enabled. Deletion failures are logged and swallowed. Cleanup is
// idempotent and safe to call concurrently with the termination callback.
func (pm *ProjectManager) Cleanup(ctx context.Context) {
	pm.deleteIfCreated(ctx, pm.session.Namespace, pm.cfg.Cleanup)
}

// deleteIfCreated reports whether a delete was issued and succeeded.
func (pm *ProjectManager) deleteIfCreated(ctx context.Context, name string, cleanup bool) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.created == nil || pm.created.Name != name {
		return false
	}
	if !cleanup {
		pm.log.Debug("cleanup disabled, keeping project")
		return false
	}

	err := pm.session.Projects.Delete(ctx, name)
	pm.created = nil
	pm.state = ProjectDeleted
	if err != nil {
		pm.metrics.CleanupFailures.Inc()
		pm.log.Warn("project cleanup failed", "error", err)
		return false
	}

	pm.metrics.ProjectsDeleted.Inc()
	pm.log.Info("deleted project")
	if pm.ledger != nil {
		if err := pm.ledger.Remove(ctx, name, pm.session.MasterURL); err != nil {
			pm.log.Warn("failed to remove project from ledger", "error", err)
		}
	}
	return true
}
