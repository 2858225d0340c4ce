package lifecycle

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Phase selects when a hook runs.
type Phase int

const (
	// BeforeSuite hooks run before any test. The first failure stops the
	// phase.
	BeforeSuite Phase = iota
	// AfterSuite hooks run after all tests. Every hook runs; failures are
	// joined.
	AfterSuite
)

// IsValid reports whether p is a recognized Phase.
func (p Phase) IsValid() bool {
	return p == BeforeSuite || p == AfterSuite
}

// String returns the name of the phase.
func (p Phase) String() string {
	switch p {
	case BeforeSuite:
		return "BeforeSuite"
	case AfterSuite:
		return "AfterSuite"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Hook is a named suite callback.
type Hook struct {
	Name       string
	Phase      Phase
	Precedence int
	Fn         func(ctx context.Context) error
}

// Registry holds hooks. The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	hooks []Hook
}

// Add registers h. Panics on a nil Fn or an invalid phase.
func (r *Registry) Add(h Hook) {
	if h.Fn == nil {
		panic(fmt.Sprintf("k8sproject: hook %q has nil Fn", h.Name))
	}
	if !h.Phase.IsValid() {
		panic(fmt.Sprintf("k8sproject: hook %q has invalid phase %v", h.Name, h.Phase))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
}

// Hooks returns the hooks of phase p in execution order.
func (r *Registry) Hooks(p Phase) []Hook {
	r.mu.Lock()
	var out []Hook
	for _, h := range r.hooks {
		if h.Phase == p {
			out = append(out, h)
		}
	}
	r.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Hook) int {
		return cmp.Compare(b.Precedence, a.Precedence)
	})
	return out
}

// Run executes the hooks of phase p.
func (r *Registry) Run(ctx context.Context, p Phase) error {
	var errs []error
	for _, h := range r.Hooks(p) {
		err := h.Fn(ctx)
		if err == nil {
			continue
		}
		err = fmt.Errorf("%s hook %s: %w", p, h.Name, err)
		if p == BeforeSuite {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
