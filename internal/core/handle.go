package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"maps"

	"github.com/giantswarm/k8sproject/internal/metrics"
	"github.com/giantswarm/k8sproject/internal/proxy"
)

// Handle resolves URLs into the first pod matching a fixed label set and
// carries the credentials needed to call it. A Handle is immutable; the
// token is read from the shared CredentialStore on every call.
type Handle struct {
	resolver proxy.Resolver
	labels   map[string]string
	cfg      RunConfig
	creds    *CredentialStore
	tls      *tls.Config
	metrics  *metrics.Metrics
}

// NewHandle copies labels. tlsConfig may be nil for plain-HTTP clusters.
func NewHandle(
	resolver proxy.Resolver,
	labels map[string]string,
	cfg RunConfig,
	creds *CredentialStore,
	tlsConfig *tls.Config,
	m *metrics.Metrics,
) *Handle {
	if resolver == nil || creds == nil {
		panic("k8sproject: handle requires a resolver and a credential store")
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Handle{
		resolver: resolver,
		labels:   maps.Clone(labels),
		cfg:      cfg,
		creds:    creds,
		tls:      tlsConfig,
		metrics:  m,
	}
}

// URL returns the proxy URL of port on the first matching pod.
func (h *Handle) URL(ctx context.Context, port int) (string, error) {
	u, err := h.resolver.URL(ctx, h.labels, 0, port, "", nil)
	if err != nil {
		h.metrics.URLResolutions.WithLabelValues(metrics.ResultError).Inc()
		return "", fmt.Errorf("resolve management URL: %w", err)
	}
	h.metrics.URLResolutions.WithLabelValues(metrics.ResultOK).Inc()
	return u, nil
}

// Labels returns a copy of the selector.
func (h *Handle) Labels() map[string]string {
	return maps.Clone(h.labels)
}

// Username returns the configured username.
func (h *Handle) Username() string { return h.cfg.Username }

// Password returns the configured password.
func (h *Handle) Password() string { return h.cfg.Password }

// OAuthToken returns the current token.
func (h *Handle) OAuthToken() string { return h.creds.Get() }

// TLSConfig returns a copy of the TLS configuration of the cluster client,
// or nil when the cluster is reached over plain HTTP.
func (h *Handle) TLSConfig() *tls.Config {
	if h.tls == nil {
		return nil
	}
	return h.tls.Clone()
}
