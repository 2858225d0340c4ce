package core

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"

	"github.com/giantswarm/k8sproject/internal/cluster"
	"github.com/giantswarm/k8sproject/internal/ledger"
)

const testMaster = "https://api.example.test:6443"

var errUnauthorized = apierrors.NewUnauthorized("token expired")

var errForbidden = apierrors.NewForbidden(
	schema.GroupResource{Resource: "namespaces"}, "", errors.New("cluster scope"))

// fakeIssuer counts IssueToken calls and returns the configured result.
type fakeIssuer struct {
	mu     sync.Mutex
	calls  int
	token  string
	err    error
	master string
	user   string
	pass   string
}

func (f *fakeIssuer) IssueToken(_ context.Context, masterURL, username, password string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.master, f.user, f.pass = masterURL, username, password
	return f.token, f.err
}

func (f *fakeIssuer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// probeOnly is a ProjectClient whose Probe returns a fixed error.
type probeOnly struct {
	cluster.ProjectClient
	err error
}

func (p probeOnly) Probe(context.Context) error { return p.err }

// fakeRegistrar records termination callbacks.
type fakeRegistrar struct {
	mu        sync.Mutex
	names     []string
	callbacks []func(ctx context.Context)
}

func (r *fakeRegistrar) Register(name string, fn func(ctx context.Context)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.callbacks = append(r.callbacks, fn)
}

func (r *fakeRegistrar) fire(ctx context.Context) {
	r.mu.Lock()
	cbs := append([]func(context.Context){}, r.callbacks...)
	r.mu.Unlock()
	for _, cb := range cbs {
		cb(ctx)
	}
}

// memLedger is an in-memory ProjectLedger and ReapLedger.
type memLedger struct {
	mu      sync.Mutex
	entries map[string]ledger.Entry
	err     error
}

func newMemLedger(entries ...ledger.Entry) *memLedger {
	l := &memLedger{entries: map[string]ledger.Entry{}}
	for _, e := range entries {
		l.entries[e.Server+"/"+e.Name] = e
	}
	return l
}

func (l *memLedger) Record(_ context.Context, e ledger.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.entries[e.Server+"/"+e.Name] = e
	return nil
}

func (l *memLedger) Remove(_ context.Context, name, server string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, server+"/"+name)
	return nil
}

func (l *memLedger) List(_ context.Context, cutoff time.Time) ([]ledger.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ledger.Entry
	for _, e := range l.entries {
		if cutoff.IsZero() || e.CreatedAt.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *memLedger) has(name, server string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[server+"/"+name]
	return ok
}

// countVerb counts recorded namespace actions with the given verb.
func countVerb(client *fake.Clientset, verb string) int {
	n := 0
	for _, a := range client.Actions() {
		if a.GetVerb() == verb && a.GetResource().Resource == "namespaces" {
			n++
		}
	}
	return n
}

// failVerb makes every namespace action with verb fail with err.
func failVerb(client *fake.Clientset, verb string, err error) {
	client.PrependReactor(verb, "namespaces", func(clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, err
	})
}

func testRunConfig(cleanup bool) RunConfig {
	return RunConfig{
		Namespace: "test-ns",
		MasterURL: testMaster,
		Username:  "developer",
		Password:  "secret",
		Cleanup:   cleanup,
		Backend:   cluster.BackendNamespace,
	}
}

// newTestSession returns a namespace-backed session over a fake clientset.
func newTestSession(token string) (*Session, *fake.Clientset) {
	client := fake.NewClientset()
	return &Session{
		Projects:    cluster.NewNamespaces(client),
		Namespace:   "test-ns",
		MasterURL:   testMaster,
		Credentials: NewCredentialStore(token),
	}, client
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o600)
}
