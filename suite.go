package k8sproject

import (
	"context"
	"os"
	"testing"

	"github.com/giantswarm/k8sproject/internal/core"
	"github.com/giantswarm/k8sproject/internal/lifecycle"
)

// Precedences of the hooks registered by NewSuite. Hooks with a higher
// precedence run first within a phase.
const (
	EnsureProjectPrecedence = 10
	DeleteProjectPrecedence = -100
)

// TestRunner is the part of *testing.M used by Suite.
type TestRunner interface {
	Run() int
}

// Suite runs ordered setup and teardown hooks around a test binary.
//
// NewSuite registers two hooks: "ensure-project" (BeforeSuite, precedence
// EnsureProjectPrecedence) initializes the manager and creates the
// project; "delete-project" (AfterSuite, precedence DeleteProjectPrecedence)
// deletes it. Register additional hooks with BeforeSuite and AfterSuite
// before calling Run or TestMain.
//
// Typical use:
//
//	func TestMain(m *testing.M) {
//	    k8sproject.NewSuite(k8sproject.NewManager(
//	        k8sproject.WithMasterURL(os.Getenv("KUBERNETES_MASTER")),
//	        k8sproject.WithSignalHandling(true),
//	    )).TestMain(m)
//	}
type Suite struct {
	mgr   Manager
	hooks lifecycle.Registry
}

// NewSuite returns a Suite driving mgr.
//
// Panics if mgr is nil.
func NewSuite(mgr Manager) *Suite {
	if mgr == nil {
		panic("k8sproject: suite manager must not be nil")
	}
	s := &Suite{mgr: mgr}
	s.BeforeSuite("ensure-project", EnsureProjectPrecedence, func(ctx context.Context) error {
		if err := mgr.Initialize(ctx); err != nil {
			return err
		}
		return mgr.EnsureProject(ctx)
	})
	s.AfterSuite("delete-project", DeleteProjectPrecedence, mgr.Cleanup)
	return s
}

// Manager returns the manager driven by the suite.
//
//nolint:ireturn // Returns the Manager the suite was built with.
func (s *Suite) Manager() Manager {
	return s.mgr
}

// BeforeSuite registers fn to run before the tests. The first failing
// BeforeSuite hook stops the remaining ones and the tests.
func (s *Suite) BeforeSuite(name string, precedence int, fn func(ctx context.Context) error) {
	s.hooks.Add(lifecycle.Hook{Name: name, Phase: lifecycle.BeforeSuite, Precedence: precedence, Fn: fn})
}

// AfterSuite registers fn to run after the tests. Every AfterSuite hook
// runs even when an earlier one fails.
func (s *Suite) AfterSuite(name string, precedence int, fn func(ctx context.Context) error) {
	s.hooks.Add(lifecycle.Hook{Name: name, Phase: lifecycle.AfterSuite, Precedence: precedence, Fn: fn})
}

// Run executes the BeforeSuite hooks, the tests, the AfterSuite hooks and
// finally Manager.Shutdown, and returns the exit code for the test binary.
// AfterSuite hooks run even when setup failed.
func (s *Suite) Run(ctx context.Context, m TestRunner) int {
	log := core.Logger()
	code := 1

	if err := s.hooks.Run(ctx, lifecycle.BeforeSuite); err != nil {
		log.Error("suite setup failed", "error", err)
	} else {
		code = m.Run()
	}

	if err := s.hooks.Run(ctx, lifecycle.AfterSuite); err != nil {
		log.Error("suite teardown failed", "error", err)
		if code == 0 {
			code = 1
		}
	}
	if err := s.mgr.Shutdown(); err != nil {
		log.Warn("manager shutdown failed", "error", err)
	}
	return code
}

// TestMain runs the suite around m and exits the process with its code.
func (s *Suite) TestMain(m *testing.M) {
	os.Exit(s.Run(context.Background(), m))
}
