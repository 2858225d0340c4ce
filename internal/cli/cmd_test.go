package cli

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giantswarm/k8sproject"
	"github.com/giantswarm/k8sproject/internal/ledger"
)

type fakeHandle struct {
	labels map[string]string
	url    string
	err    error
}

func (h *fakeHandle) URL(context.Context, int) (string, error) { return h.url, h.err }
func (h *fakeHandle) Labels() map[string]string                { return h.labels }
func (h *fakeHandle) Username() string                         { return "developer" }
func (h *fakeHandle) Password() string                         { return "secret" }
func (h *fakeHandle) OAuthToken() string                       { return "sha256~tok" }
func (h *fakeHandle) TLSConfig() *tls.Config                   { return nil }

type fakeManager struct {
	mu          sync.Mutex
	calls       []string
	namespace   string
	token       string
	validErr    error
	ensureErr   error
	urlErr      error
	reapResults []k8sproject.ReapResult
	gotLabels   map[string]string
	gotAge      time.Duration
	terminators []string
}

func (m *fakeManager) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *fakeManager) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

func (m *fakeManager) Initialize(context.Context) error {
	m.record("initialize")
	return nil
}

func (m *fakeManager) EnsureValid(context.Context) error {
	m.record("ensure-valid")
	return m.validErr
}

func (m *fakeManager) EnsureProject(context.Context) error {
	m.record("ensure-project")
	return m.ensureErr
}

func (m *fakeManager) Cleanup(context.Context) error {
	m.record("cleanup")
	return nil
}

func (m *fakeManager) ProjectState() k8sproject.ProjectState { return k8sproject.ProjectCreated }
func (m *fakeManager) Namespace() string                     { return m.namespace }

func (m *fakeManager) ManagementHandle(labels map[string]string) (k8sproject.ManagementHandle, error) {
	m.gotLabels = labels
	return &fakeHandle{
		labels: labels,
		url:    "https://api.example.com/api/v1/namespaces/" + m.namespace + "/pods/eap-0:9990/proxy/",
		err:    m.urlErr,
	}, nil
}

func (m *fakeManager) Token() (string, error) { return m.token, nil }

func (m *fakeManager) Reap(_ context.Context, olderThan time.Duration) ([]k8sproject.ReapResult, error) {
	m.record("reap")
	m.gotAge = olderThan
	return m.reapResults, nil
}

func (m *fakeManager) RegisterTermination(name string, _ func(context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminators = append(m.terminators, name)
}

func (m *fakeManager) Shutdown() error {
	m.record("shutdown")
	return nil
}

type harness struct {
	out, err *bytes.Buffer
	mgr      *fakeManager
	settings Settings
	signals  bool
}

func newHarness(t *testing.T, env map[string]string) (*harness, Config) {
	t.Helper()
	h := &harness{
		out: &bytes.Buffer{},
		err: &bytes.Buffer{},
		mgr: &fakeManager{namespace: "it-tests", token: "sha256~tok"},
	}
	if env == nil {
		env = map[string]string{EnvMasterURL: "https://api.example.com"}
	}
	cfg := Config{
		OutputWriter: h.out,
		ErrorWriter:  h.err,
		LookupEnv:    envMap(env),
		Environ:      func() []string { return []string{"PATH=/usr/bin:/bin"} },
		NewManager: func(s Settings, signals bool) k8sproject.Manager {
			h.settings = s
			h.signals = signals
			return h.mgr
		},
	}
	// Keep the default config file lookup away from the working directory.
	cfg.ConfigPath = filepath.Join(t.TempDir(), "k8sproject.yaml")
	require.NoError(t, writeFile(cfg.ConfigPath, ""))
	return h, cfg
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func execute(cfg Config, args ...string) error {
	root := NewRootCommand(cfg)
	root.SetArgs(args)
	return root.Execute()
}

func TestURLCommand(t *testing.T) {
	h, cfg := newHarness(t, nil)

	err := execute(cfg, "url", "--selector", "app=eap,tier=mgmt", "--port", "9990")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api/v1/namespaces/it-tests/pods/eap-0:9990/proxy/\n", h.out.String())
	assert.Equal(t, map[string]string{"app": "eap", "tier": "mgmt"}, h.mgr.gotLabels)
	assert.Equal(t, []string{"initialize", "ensure-valid", "shutdown"}, h.mgr.Calls())
	assert.False(t, h.signals)
}

func TestURLCommand_JSON(t *testing.T) {
	h, cfg := newHarness(t, nil)

	err := execute(cfg, "url", "-l", "app=eap", "-p", "9990", "-o", "json")
	require.NoError(t, err)

	var got URLResult
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &got))
	assert.Equal(t, "it-tests", got.Namespace)
	assert.Equal(t, 9990, got.Port)
	assert.Equal(t, map[string]string{"app": "eap"}, got.Labels)
	assert.Contains(t, got.URL, "/pods/eap-0:9990/proxy/")
}

func TestURLCommand_NoMatchingPod(t *testing.T) {
	h, cfg := newHarness(t, nil)
	h.mgr.urlErr = k8sproject.ErrNoMatchingPod

	err := execute(cfg, "url", "--selector", "app=eap", "--port", "9990")
	require.ErrorIs(t, err, k8sproject.ErrNoMatchingPod)
	assert.Contains(t, h.mgr.Calls(), "shutdown")
}

func TestURLCommand_InvalidFlags(t *testing.T) {
	tests := map[string][]string{
		"missing selector": {"url", "--port", "9990"},
		"missing port":     {"url", "--selector", "app=eap"},
		"port too large":   {"url", "--selector", "app=eap", "--port", "70000"},
		"bad selector":     {"url", "--selector", "app", "--port", "9990"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			h, cfg := newHarness(t, nil)
			assert.Error(t, execute(cfg, args...))
			assert.Empty(t, h.mgr.Calls(), "manager must not be used")
		})
	}
}

func TestTokenCommand(t *testing.T) {
	h, cfg := newHarness(t, nil)

	require.NoError(t, execute(cfg, "token"))
	assert.Equal(t, "sha256~tok\n", h.out.String())
}

func TestTokenCommand_NotAuthenticated(t *testing.T) {
	h, cfg := newHarness(t, nil)
	h.mgr.validErr = &k8sproject.AuthenticationError{
		Server:      "https://api.example.com",
		Token:       "sha256~new",
		Remediation: "oc login --token=sha256~new --server=https://api.example.com",
	}

	err := execute(cfg, "token")
	require.ErrorIs(t, err, k8sproject.ErrNotAuthenticated)
	assert.Contains(t, err.Error(), "oc login --token=sha256~new")
	assert.Empty(t, h.out.String())
}

func TestReapCommand(t *testing.T) {
	h, cfg := newHarness(t, nil)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h.mgr.reapResults = []k8sproject.ReapResult{
		{Entry: ledger.Entry{Name: "t-old", Server: "https://api.example.com", CreatedAt: created, PID: 42, RunID: "r1"}, Outcome: k8sproject.ReapDeleted},
		{Entry: ledger.Entry{Name: "t-live", Server: "https://api.example.com", CreatedAt: created, PID: 7, RunID: "r2"}, Outcome: k8sproject.ReapSkipped, Reason: "alive"},
	}

	err := execute(cfg, "reap", "--ledger", filepath.Join(t.TempDir(), "ledger.db"), "--older-than", "2h")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, h.mgr.gotAge)
	out := h.out.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "t-old")
	assert.Contains(t, out, "deleted")
	assert.Contains(t, out, "alive")
}

func TestReapCommand_JSONAndFailure(t *testing.T) {
	h, cfg := newHarness(t, nil)
	h.mgr.reapResults = []k8sproject.ReapResult{
		{Entry: ledger.Entry{Name: "t-stuck", Server: "https://api.example.com"}, Outcome: k8sproject.ReapFailed, Reason: "forbidden"},
	}

	err := execute(cfg, "reap", "--ledger", "/tmp/ledger.db", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t-stuck")

	var got []map[string]any
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "t-stuck", got[0]["name"])
	assert.Equal(t, "failed", got[0]["outcome"])
}

func TestReapCommand_RequiresLedger(t *testing.T) {
	h, cfg := newHarness(t, nil)

	err := execute(cfg, "reap")
	require.ErrorContains(t, err, "requires a ledger")
	assert.Empty(t, h.mgr.Calls())
}

func TestRunCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	h, cfg := newHarness(t, nil)

	err := execute(cfg, "run", "--", "sh", "-c", `echo "ns=$NAMESPACE tok=$OPENSHIFT_TOKEN"; exit 3`)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "ns=it-tests tok=sha256~tok\n", h.out.String())
	assert.True(t, h.signals, "run installs signal handling")
	assert.Equal(t, []string{"stop-child"}, h.mgr.terminators)
	assert.Equal(t, []string{"initialize", "ensure-project", "shutdown"}, h.mgr.Calls())
}

func TestRunCommand_Success(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, cfg := newHarness(t, nil)

	require.NoError(t, execute(cfg, "run", "--", "sh", "-c", "exit 0"))
}

func TestRunCommand_ProvisioningFailure(t *testing.T) {
	h, cfg := newHarness(t, nil)
	h.mgr.ensureErr = errors.Join(k8sproject.ErrProvisioning, errors.New("quota exceeded"))

	err := execute(cfg, "run", "--", "sh", "-c", "exit 0")
	require.ErrorIs(t, err, k8sproject.ErrProvisioning)
	assert.Empty(t, h.mgr.terminators, "the command must not start")
	assert.Equal(t, []string{"initialize", "ensure-project", "shutdown"}, h.mgr.Calls())
}

func TestRunCommand_RequiresCommand(t *testing.T) {
	_, cfg := newHarness(t, nil)
	assert.Error(t, execute(cfg, "run"))
}

func TestRootCommand_SettingsPrecedence(t *testing.T) {
	h, cfg := newHarness(t, map[string]string{
		EnvMasterURL: "https://env.example.com",
		EnvNamespace: "env-ns",
		EnvCleanup:   "false",
	})
	require.NoError(t, writeFile(cfg.ConfigPath, "master: https://file.example.com\nnamespace: file-ns\nusername: file-user\n"))

	require.NoError(t, execute(cfg, "token", "--namespace", "flag-ns"))

	assert.Equal(t, "https://env.example.com", h.settings.MasterURL)
	assert.Equal(t, "flag-ns", h.settings.Namespace)
	assert.Equal(t, "file-user", h.settings.Username)
	require.NotNil(t, h.settings.Cleanup)
	assert.False(t, *h.settings.Cleanup)
}

func TestRootCommand_ConfigErrors(t *testing.T) {
	tests := map[string]struct {
		env     map[string]string
		args    []string
		wantErr string
	}{
		"missing master": {
			env:     map[string]string{},
			args:    []string{"token"},
			wantErr: "master URL is required",
		},
		"bad output format": {
			args:    []string{"token", "-o", "xml"},
			wantErr: "unknown output format",
		},
		"missing config from env": {
			env:     map[string]string{EnvMasterURL: "https://api.example.com", EnvConfigPath: "/nonexistent/k8sproject.yaml"},
			args:    []string{"token", "--config", ""},
			wantErr: "read config",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h, cfg := newHarness(t, tt.env)
			err := execute(cfg, tt.args...)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q does not contain %q", err, tt.wantErr)
			assert.Empty(t, h.mgr.Calls())
		})
	}
}
