package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/valyala/fasttemplate"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/giantswarm/k8sproject/internal/cluster"
	"github.com/giantswarm/k8sproject/internal/metrics"
)

// DefaultRemediationTemplate is the login command suggested when a session
// has never been authenticated.
const DefaultRemediationTemplate = "oc login --token={{token}} --server={{server}}"

const (
	templateStart = "{{"
	templateEnd   = "}}"
)

// TokenIssuer obtains a bearer token with username/password credentials.
type TokenIssuer interface {
	IssueToken(ctx context.Context, masterURL, username, password string) (string, error)
}

// Session is the cluster connection shared by one test run.
type Session struct {
	Projects    cluster.ProjectClient
	Namespace   string
	MasterURL   string
	Credentials *CredentialStore
}

// CredentialGuardParams holds the dependencies of a CredentialGuard.
type CredentialGuardParams struct {
	Session *Session
	Config  RunConfig
	Issuer  TokenIssuer
	// Remediation defaults to DefaultRemediationTemplate.
	Remediation string
	// Metrics defaults to unregistered counters.
	Metrics *metrics.Metrics
}

// CredentialGuard checks the held token before privileged calls and
// replaces it when it has expired.
type CredentialGuard struct {
	mu          sync.Mutex
	session     *Session
	cfg         RunConfig
	issuer      TokenIssuer
	remediation *fasttemplate.Template
	metrics     *metrics.Metrics
	log         *slog.Logger
}

// NewCredentialGuard panics on missing dependencies or an invalid template;
// both are programmer errors caught by ManagerConfig.Validate.
func NewCredentialGuard(p CredentialGuardParams) *CredentialGuard {
	if p.Session == nil || p.Session.Projects == nil || p.Session.Credentials == nil {
		panic("k8sproject: credential guard requires a session with projects and credentials")
	}
	if p.Issuer == nil {
		panic("k8sproject: credential guard requires a token issuer")
	}
	src := p.Remediation
	if src == "" {
		src = DefaultRemediationTemplate
	}
	tmpl, err := fasttemplate.NewTemplate(src, templateStart, templateEnd)
	if err != nil {
		panic(fmt.Sprintf("k8sproject: invalid remediation template: %v", err))
	}
	m := p.Metrics
	if m == nil {
		m = metrics.Discard()
	}
	return &CredentialGuard{
		session:     p.Session,
		cfg:         p.Config,
		issuer:      p.Issuer,
		remediation: tmpl,
		metrics:     m,
		log:         Logger().With("namespace", p.Session.Namespace),
	}
}

// EnsureValid probes the cluster with the held token.
//
// An Unauthorized probe with a token held refreshes the token in place. A
// failed probe without any token issues a token for the operator and returns
// an *AuthenticationError; the session is left untouched. A Forbidden probe
// with a token held proves the token authenticated and counts as success.
func (g *CredentialGuard) EnsureValid(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	probeErr := g.session.Projects.Probe(ctx)
	if probeErr == nil {
		return nil
	}

	held := g.session.Credentials.Get()
	if held == "" {
		token, err := g.issue(ctx)
		if err != nil {
			return err
		}
		return &AuthenticationError{
			Server:      g.session.MasterURL,
			Token:       token,
			Remediation: g.render(token),
			Err:         probeErr,
		}
	}

	switch {
	case apierrors.IsUnauthorized(probeErr):
	case apierrors.IsForbidden(probeErr):
		g.log.Debug("probe forbidden, token accepted", "error", probeErr)
		return nil
	default:
		return fmt.Errorf("probe cluster: %w", probeErr)
	}

	g.log.Warn("token has expired, revalidating", "token", held)
	token, err := g.issue(ctx)
	if err != nil {
		return err
	}
	g.session.Credentials.Set(token)
	g.metrics.TokenRefreshes.Inc()
	return nil
}

func (g *CredentialGuard) issue(ctx context.Context) (string, error) {
	token, err := g.issuer.IssueToken(ctx, g.session.MasterURL, g.cfg.Username, g.cfg.Password)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}
	return token, nil
}

func (g *CredentialGuard) render(token string) string {
	return g.remediation.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		switch tag {
		case "token":
			return w.Write([]byte(token))
		case "server":
			return w.Write([]byte(g.session.MasterURL))
		case "username":
			return w.Write([]byte(g.cfg.Username))
		case "namespace":
			return w.Write([]byte(g.session.Namespace))
		default:
			return w.Write([]byte(templateStart + tag + templateEnd))
		}
	})
}
