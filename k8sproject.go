package k8sproject

import (
	"context"
	"sync"
	"time"

	"github.com/giantswarm/k8sproject/internal/core"
)

// Singleton state for NewManager. The first call creates the manager;
// subsequent calls return the same instance and log a warning.
//
// singletonMu protects both singletonMgr and singletonOnce so that
// resetForTesting (used in tests) is concurrency-safe with NewManager.
var (
	singletonMu   sync.Mutex
	singletonMgr  Manager
	singletonOnce sync.Once
)

// Compile-time interface satisfaction checks.
var (
	_ Manager          = (*managerWrapper)(nil)
	_ ManagementHandle = (*core.Handle)(nil)
)

// managerWrapper wraps core.Manager to implement the Manager interface.
//
// The core.Manager is stored as a named (unexported) field rather than
// embedded so that callers cannot reach methods outside the public Manager
// interface through a type assertion.
type managerWrapper struct {
	mgr *core.Manager
}

func (w *managerWrapper) Initialize(ctx context.Context) error {
	return w.mgr.Initialize(ctx)
}

func (w *managerWrapper) EnsureValid(ctx context.Context) error {
	return w.mgr.EnsureValid(ctx)
}

func (w *managerWrapper) EnsureProject(ctx context.Context) error {
	return w.mgr.EnsureProject(ctx)
}

func (w *managerWrapper) Cleanup(ctx context.Context) error {
	return w.mgr.Cleanup(ctx)
}

func (w *managerWrapper) ProjectState() ProjectState {
	return w.mgr.ProjectState()
}

func (w *managerWrapper) Namespace() string {
	return w.mgr.Config().Run.Namespace
}

// ManagementHandle implements Manager.ManagementHandle, returning the
// ManagementHandle interface.
//
//nolint:ireturn // Returns ManagementHandle interface by design for testability (mockable).
func (w *managerWrapper) ManagementHandle(labels map[string]string) (ManagementHandle, error) {
	h, err := w.mgr.Handle(labels)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (w *managerWrapper) Token() (string, error) {
	return w.mgr.Token()
}

func (w *managerWrapper) Reap(ctx context.Context, olderThan time.Duration) ([]ReapResult, error) {
	return w.mgr.Reap(ctx, olderThan)
}

func (w *managerWrapper) RegisterTermination(name string, fn func(ctx context.Context)) {
	w.mgr.RegisterTermination(name, fn)
}

func (w *managerWrapper) Shutdown() error {
	return w.mgr.Shutdown()
}

// resetForTesting resets the singleton state so that the next call to
// NewManager creates a fresh manager. It must only be called from tests.
func resetForTesting() {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	singletonMgr = nil
	singletonOnce = sync.Once{}
}

// NewManager returns the process-level singleton Manager.
//
// The first call creates the manager with the given options and stores it.
// Subsequent calls return the same instance; options are ignored and a
// warning is logged. This performs no I/O operations; call Initialize
// before EnsureProject.
//
// Panics if any option receives an invalid value, or if the combined
// configuration is incomplete (no master URL and no rest config).
//
//nolint:ireturn // Returns Manager interface by design for testability (mockable).
func NewManager(opts ...ManagerOption) Manager {
	singletonMu.Lock()
	defer singletonMu.Unlock()

	created := false
	singletonOnce.Do(func() {
		singletonMgr = newManager(opts...)
		created = true
	})
	if !created {
		core.Logger().Warn("NewManager called more than once; returning existing singleton (options ignored)")
	}
	return singletonMgr
}

func newManager(opts ...ManagerOption) *managerWrapper {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &managerWrapper{mgr: core.NewManagerWithConfig(cfg.toCoreConfig())}
}
