package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/giantswarm/k8sproject/internal/metrics"
)

func newGuard(probeErr error, token string, issuer *fakeIssuer, remediation string) (*CredentialGuard, *Session, *metrics.Metrics) {
	session, _ := newTestSession(token)
	session.Projects = probeOnly{ProjectClient: session.Projects, err: probeErr}
	m := metrics.Discard()
	g := NewCredentialGuard(CredentialGuardParams{
		Session:     session,
		Config:      testRunConfig(true),
		Issuer:      issuer,
		Remediation: remediation,
		Metrics:     m,
	})
	return g, session, m
}

func TestEnsureValid_ProbeSucceeds(t *testing.T) {
	t.Parallel()
	issuer := &fakeIssuer{token: "fresh"}
	g, session, _ := newGuard(nil, "held", issuer, "")

	if err := g.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error: %v", err)
	}
	if issuer.Calls() != 0 {
		t.Errorf("issuer called %d times, want 0", issuer.Calls())
	}
	if got := session.Credentials.Get(); got != "held" {
		t.Errorf("token = %q, want %q", got, "held")
	}
}

func TestEnsureValid_ExpiredTokenRefreshedOnce(t *testing.T) {
	t.Parallel()
	issuer := &fakeIssuer{token: "fresh"}
	g, session, m := newGuard(errUnauthorized, "stale", issuer, "")

	if err := g.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error: %v", err)
	}
	if issuer.Calls() != 1 {
		t.Errorf("issuer called %d times, want 1", issuer.Calls())
	}
	if got := session.Credentials.Get(); got != "fresh" {
		t.Errorf("token = %q, want %q", got, "fresh")
	}
	if issuer.master != testMaster || issuer.user != "developer" || issuer.pass != "secret" {
		t.Errorf("issuer got (%q, %q, %q), want configured master and credentials",
			issuer.master, issuer.user, issuer.pass)
	}
	if got := testutil.ToFloat64(m.TokenRefreshes); got != 1 {
		t.Errorf("token refreshes = %v, want 1", got)
	}
}

func TestEnsureValid_NoTokenEscalates(t *testing.T) {
	t.Parallel()
	issuer := &fakeIssuer{token: "operator-token"}
	g, session, _ := newGuard(errUnauthorized, "", issuer, "")

	err := g.EnsureValid(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("EnsureValid() = %v, want ErrNotAuthenticated", err)
	}

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("EnsureValid() error %T is not *AuthenticationError", err)
	}
	if authErr.Token != "operator-token" || authErr.Server != testMaster {
		t.Errorf("AuthenticationError = %+v, want issued token and master", authErr)
	}
	want := "oc login --token=operator-token --server=" + testMaster
	if authErr.Remediation != want {
		t.Errorf("Remediation = %q, want %q", authErr.Remediation, want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error message %q does not contain the remediation", err.Error())
	}
	if got := session.Credentials.Get(); got != "" {
		t.Errorf("session token mutated to %q", got)
	}
	if issuer.Calls() != 1 {
		t.Errorf("issuer called %d times, want 1", issuer.Calls())
	}
}

func TestEnsureValid_NoTokenAnyProbeError(t *testing.T) {
	t.Parallel()
	issuer := &fakeIssuer{token: "operator-token"}
	g, _, _ := newGuard(errForbidden, "", issuer, "")

	if err := g.EnsureValid(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("EnsureValid() = %v, want ErrNotAuthenticated", err)
	}
}

func TestEnsureValid_CustomRemediation(t *testing.T) {
	t.Parallel()
	issuer := &fakeIssuer{token: "tok"}
	g, _, _ := newGuard(errUnauthorized, "", issuer, "kubectl --token={{token}} -n {{namespace}} as {{username}} {{other}}")

	var authErr *AuthenticationError
	if !errors.As(g.EnsureValid(context.Background()), &authErr) {
		t.Fatal("expected *AuthenticationError")
	}
	want := "kubectl --token=tok -n test-ns as developer {{other}}"
	if authErr.Remediation != want {
		t.Errorf("Remediation = %q, want %q", authErr.Remediation, want)
	}
}

func TestEnsureValid_IssuerFailure(t *testing.T) {
	t.Parallel()

	issuerErr := errors.New("connection refused")
	tests := map[string]string{
		"refresh":  "stale",
		"escalate": "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			issuer := &fakeIssuer{err: issuerErr}
			g, session, _ := newGuard(errUnauthorized, token, issuer, "")

			err := g.EnsureValid(context.Background())
			if !errors.Is(err, ErrTokenRefresh) {
				t.Errorf("EnsureValid() = %v, want ErrTokenRefresh", err)
			}
			if !errors.Is(err, issuerErr) {
				t.Errorf("EnsureValid() = %v, want issuer error in chain", err)
			}
			if errors.Is(err, ErrNotAuthenticated) {
				t.Error("issuer failure must not be reported as AuthenticationError")
			}
			if got := session.Credentials.Get(); got != token {
				t.Errorf("token = %q, want unchanged %q", got, token)
			}
		})
	}
}

func TestEnsureValid_ForbiddenWithTokenAccepted(t *testing.T) {
	t.Parallel()
	issuer := &fakeIssuer{token: "fresh"}
	g, session, _ := newGuard(errForbidden, "held", issuer, "")

	if err := g.EnsureValid(context.Background()); err != nil {
		t.Fatalf("EnsureValid() error: %v", err)
	}
	if issuer.Calls() != 0 || session.Credentials.Get() != "held" {
		t.Error("forbidden probe with a token must not refresh")
	}
}

func TestEnsureValid_OtherProbeErrorPropagates(t *testing.T) {
	t.Parallel()
	probeErr := errors.New("dial tcp: i/o timeout")
	issuer := &fakeIssuer{token: "fresh"}
	g, _, _ := newGuard(probeErr, "held", issuer, "")

	err := g.EnsureValid(context.Background())
	if !errors.Is(err, probeErr) {
		t.Fatalf("EnsureValid() = %v, want probe error", err)
	}
	if issuer.Calls() != 0 {
		t.Errorf("issuer called %d times, want 0", issuer.Calls())
	}
}

func TestNewCredentialGuard_Panics(t *testing.T) {
	t.Parallel()

	session, _ := newTestSession("")
	tests := map[string]CredentialGuardParams{
		"nil session":      {Issuer: &fakeIssuer{}},
		"nil issuer":       {Session: session},
		"invalid template": {Session: session, Issuer: &fakeIssuer{}, Remediation: "oc login {{token"},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			NewCredentialGuard(p)
		})
	}
}
