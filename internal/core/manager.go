package core

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/transport"

	"github.com/giantswarm/k8sproject/internal/cluster"
	"github.com/giantswarm/k8sproject/internal/ledger"
	"github.com/giantswarm/k8sproject/internal/metrics"
	"github.com/giantswarm/k8sproject/internal/oauth"
	"github.com/giantswarm/k8sproject/internal/process"
	"github.com/giantswarm/k8sproject/internal/proxy"
	"github.com/giantswarm/k8sproject/internal/termination"
)

// managerState represents the lifecycle state of a Manager.
type managerState uint32

const (
	managerCreated      managerState = iota // Zero value; NewManagerWithConfig returns in this state
	managerInitializing                     // Initialize in progress
	managerReady                            // EnsureProject and Handle allowed
	managerShuttingDown                     // Shutdown called
)

// Dependencies replaces the collaborators Initialize would otherwise build
// from the configuration. Nil fields are built.
type Dependencies struct {
	Projects    cluster.ProjectClient
	Pods        kubernetes.Interface
	Issuer      TokenIssuer
	Termination TerminationRegistrar
}

// Manager wires the credential guard, the project lifecycle and management
// handles for one test run. It is safe for concurrent use.
//
// state is an atomic managerState (created → initializing → ready →
// shuttingDown). initMu serializes Initialize and Shutdown.
type Manager struct {
	cfg   ManagerConfig
	deps  Dependencies
	runID string

	state  atomic.Uint32
	initMu sync.Mutex

	// Set during Initialize and read-only afterwards.
	session   *Session
	guard     *CredentialGuard
	projects  *ProjectManager
	resolver  proxy.Resolver
	tlsConfig *tls.Config
	ledger    *ledger.Ledger
	watcher   *termination.Watcher
	registrar TerminationRegistrar
	metrics   *metrics.Metrics
}

func (m *Manager) loadState() managerState {
	return managerState(m.state.Load())
}

func (m *Manager) storeState(s managerState) {
	m.state.Store(uint32(s))
}

// NewManagerWithConfig creates a Manager. It performs no I/O.
//
// Panics if cfg.Validate() reports any errors.
func NewManagerWithConfig(cfg ManagerConfig) *Manager {
	return NewManagerWithDependencies(cfg, Dependencies{})
}

// NewManagerWithDependencies is NewManagerWithConfig with injected
// collaborators.
func NewManagerWithDependencies(cfg ManagerConfig, deps Dependencies) *Manager {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("k8sproject: invalid manager config: %v", err))
	}
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		runID:   uuid.NewString(),
		metrics: metrics.Discard(),
	}
}

// RunID identifies this run in the ledger.
func (m *Manager) RunID() string {
	return m.runID
}

// Config returns the configuration.
func (m *Manager) Config() ManagerConfig {
	return m.cfg
}

// Initialize builds the cluster clients and the collaborators. Safe to call
// multiple times: after a success, later calls return nil; after a failure,
// later calls retry.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	switch m.loadState() {
	case managerReady:
		return nil
	case managerShuttingDown:
		return ErrShuttingDown
	case managerCreated, managerInitializing:
	}

	m.storeState(managerInitializing)
	if err := m.doInitialize(ctx); err != nil {
		m.releaseResources()
		m.storeState(managerCreated)
		return fmt.Errorf("initialize: %w", err)
	}
	m.storeState(managerReady)
	return nil
}

func (m *Manager) doInitialize(ctx context.Context) error {
	met := m.metrics
	store := NewCredentialStore(m.cfg.Token)
	restCfg := m.restConfig(store)

	var err error
	m.tlsConfig, err = rest.TLSConfigFor(restCfg)
	if err != nil {
		return fmt.Errorf("build TLS config: %w", err)
	}

	pods := m.deps.Pods
	if pods == nil {
		if pods, err = kubernetes.NewForConfig(restCfg); err != nil {
			return fmt.Errorf("create kubernetes client: %w", err)
		}
	}

	projects := m.deps.Projects
	if projects == nil {
		if projects, err = m.projectClient(restCfg, pods); err != nil {
			return err
		}
	}

	m.resolver, err = proxy.NewPodProxy(pods, restCfg.Host, m.cfg.Run.Namespace)
	if err != nil {
		return fmt.Errorf("create pod proxy: %w", err)
	}

	issuer := m.deps.Issuer
	if issuer == nil {
		issuer = oauth.NewChallengeIssuer(m.cfg.RequestTimeout, m.tlsConfig)
	}

	m.session = &Session{
		Projects:    projects,
		Namespace:   m.cfg.Run.Namespace,
		MasterURL:   restCfg.Host,
		Credentials: store,
	}
	m.guard = NewCredentialGuard(CredentialGuardParams{
		Session:     m.session,
		Config:      m.cfg.Run,
		Issuer:      issuer,
		Remediation: m.cfg.RemediationTemplate,
		Metrics:     met,
	})

	var projectLedger ProjectLedger
	if m.cfg.LedgerPath != "" {
		m.ledger, err = ledger.Open(ctx, m.cfg.LedgerPath, Logger())
		if err != nil {
			return err
		}
		projectLedger = m.ledger
	}

	registrar := m.deps.Termination
	if registrar == nil && m.cfg.HandleSignals {
		m.watcher = termination.New(
			termination.WithTimeout(m.cfg.CleanupTimeout),
			termination.WithLogger(Logger()),
		)
		m.watcher.Start()
		registrar = m.watcher
	}
	m.registrar = registrar

	m.projects = NewProjectManager(ProjectManagerParams{
		Session:      m.session,
		Config:       m.cfg.Run,
		Guard:        m.guard,
		Termination:  registrar,
		Ledger:       projectLedger,
		Metrics:      met,
		RunID:        m.runID,
		ReadyTimeout: m.cfg.ProjectReadyTimeout,
	})

	// Registered last so a failed Initialize leaves nothing registered.
	return met.Register(m.cfg.MetricsRegisterer)
}

// restConfig derives the client configuration. The bearer token moves into
// store so the guard can replace it for every client built from the result.
func (m *Manager) restConfig(store *CredentialStore) *rest.Config {
	cfg := &rest.Config{}
	if m.cfg.RestConfig != nil {
		cfg = rest.CopyConfig(m.cfg.RestConfig)
	}
	if m.cfg.Run.MasterURL != "" {
		cfg.Host = m.cfg.Run.MasterURL
	}
	if cfg.BearerToken != "" && store.Get() == "" {
		store.Set(cfg.BearerToken)
	}
	cfg.BearerToken = ""
	cfg.BearerTokenFile = ""

	if m.cfg.InsecureSkipTLSVerify {
		cfg.Insecure = true
		cfg.CAFile = ""
		cfg.CAData = nil
	} else if m.cfg.CAFile != "" {
		cfg.CAFile = m.cfg.CAFile
	}
	cfg.Timeout = m.cfg.RequestTimeout
	if cfg.UserAgent == "" {
		cfg.UserAgent = "k8sproject"
	}
	cfg.WrapTransport = transport.Wrappers(cfg.WrapTransport, store.WrapTransport)
	return cfg
}

func (m *Manager) projectClient(restCfg *rest.Config, pods kubernetes.Interface) (cluster.ProjectClient, error) {
	switch m.cfg.Run.Backend {
	case cluster.BackendOpenShift:
		dyn, err := dynamic.NewForConfig(restCfg)
		if err != nil {
			return nil, fmt.Errorf("create dynamic client: %w", err)
		}
		return cluster.NewOpenShiftProjects(dyn), nil
	case cluster.BackendNamespace:
		return cluster.NewNamespaces(pods), nil
	default:
		return nil, fmt.Errorf("invalid project backend: %v", m.cfg.Run.Backend)
	}
}

// ready returns nil when the manager accepts operations.
func (m *Manager) ready() error {
	switch m.loadState() {
	case managerReady:
		return nil
	case managerShuttingDown:
		return ErrShuttingDown
	case managerCreated, managerInitializing:
		return ErrNotInitialized
	}
	return ErrNotInitialized
}

// EnsureValid runs the credential guard.
func (m *Manager) EnsureValid(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.guard.EnsureValid(ctx)
}

// EnsureProject validates the credentials and creates the project if it is
// missing.
func (m *Manager) EnsureProject(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.projects.EnsureProject(ctx)
}

// Cleanup deletes the project if this run created it and cleanup is
// enabled. Deletion failures are logged, never returned.
func (m *Manager) Cleanup(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.projects.Cleanup(ctx)
	return nil
}

// ProjectState returns the state of the project as seen by this run. It
// keeps reporting the final state after Shutdown.
func (m *Manager) ProjectState() ProjectState {
	switch m.loadState() {
	case managerReady, managerShuttingDown:
		if m.projects != nil {
			return m.projects.State()
		}
	case managerCreated, managerInitializing:
	}
	return ProjectAbsent
}

// Handle returns a management handle for the pods matching labels.
func (m *Manager) Handle(labels map[string]string) (*Handle, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.New("management handle requires at least one label")
	}
	return NewHandle(m.resolver, labels, m.cfg.Run, m.session.Credentials, m.tlsConfig, m.metrics), nil
}

// Token returns the current bearer token.
func (m *Manager) Token() (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}
	return m.session.Credentials.Get(), nil
}

// Reap deletes ledger-recorded projects older than olderThan whose runs are
// gone. It requires a ledger.
func (m *Manager) Reap(ctx context.Context, olderThan time.Duration) ([]ReapResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if m.ledger == nil {
		return nil, errors.New("reap requires a ledger path")
	}
	if err := m.guard.EnsureValid(ctx); err != nil {
		return nil, err
	}
	return Reap(ctx, ReapParams{
		Projects:  m.session.Projects,
		Ledger:    m.ledger,
		Server:    m.session.MasterURL,
		OlderThan: olderThan,
		Alive:     process.Alive,
		Metrics:   m.metrics,
	})
}

// RegisterTermination adds a callback run on SIGINT/SIGTERM. Callbacks
// registered after EnsureProject run before the project is deleted. It is a
// no-op unless signal handling is enabled.
func (m *Manager) RegisterTermination(name string, fn func(ctx context.Context)) {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	if m.ready() != nil || m.registrar == nil {
		return
	}
	m.registrar.Register(name, fn)
}

// Shutdown runs Cleanup bounded by the cleanup timeout and releases the
// ledger and the signal watcher. Safe to call multiple times and before
// Initialize.
func (m *Manager) Shutdown() error {
	m.initMu.Lock()
	defer m.initMu.Unlock()

	prev := m.loadState()
	m.storeState(managerShuttingDown)
	if prev != managerReady {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CleanupTimeout)
	defer cancel()
	m.projects.Cleanup(ctx)

	return m.releaseResources()
}

func (m *Manager) releaseResources() error {
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	m.registrar = nil
	if m.ledger != nil {
		err := m.ledger.Close()
		m.ledger = nil
		if err != nil {
			return err
		}
	}
	return nil
}
