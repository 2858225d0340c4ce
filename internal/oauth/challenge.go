package oauth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/giantswarm/k8sproject/internal/sentinel"
)

// ChallengingClientID is the OAuth client OpenShift registers for
// non-browser logins.
const ChallengingClientID = "openshift-challenging-client"

// wellKnownPath is where OpenShift 4 publishes its OAuth server metadata.
// OpenShift 3 serves the authorize endpoint on the API server itself.
const wellKnownPath = "/.well-known/oauth-authorization-server"

const defaultAuthorizePath = "/oauth/authorize"

// ErrInvalidCredentials is returned when the OAuth server rejects the
// username or password.
const ErrInvalidCredentials = sentinel.Error("oauth server rejected the credentials")

// ErrTokenNotIssued is returned when the OAuth server answers without a
// token in the redirect.
const ErrTokenNotIssued = sentinel.Error("oauth server did not issue a token")

// serverMetadata is the subset of RFC 8414 metadata we read.
type serverMetadata struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
}

// ChallengeIssuer requests tokens with the challenging-client flow.
// It is safe for concurrent use.
type ChallengeIssuer struct {
	client *resty.Client
}

// NewChallengeIssuer returns an issuer whose requests time out after timeout.
// tlsConfig carries the trust settings of the API server, which usually
// fronts the OAuth server with the same certificate authority. A nil
// tlsConfig verifies against the system roots.
func NewChallengeIssuer(timeout time.Duration, tlsConfig *tls.Config) *ChallengeIssuer {
	client := resty.New().
		SetTimeout(timeout).
		SetJSONUnmarshaler(json.Unmarshal).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			// The token is in the Location header of the first redirect.
			return http.ErrUseLastResponse
		}))
	if tlsConfig != nil {
		client.SetTLSClientConfig(tlsConfig.Clone())
	}
	return &ChallengeIssuer{client: client}
}

// IssueToken logs in to the OAuth server of masterURL and returns the
// access token.
func (c *ChallengeIssuer) IssueToken(ctx context.Context, masterURL, username, password string) (string, error) {
	authorizeURL := c.authorizationEndpoint(ctx, masterURL)

	resp, err := c.client.R().
		SetContext(ctx).
		SetBasicAuth(username, password).
		SetHeader("X-CSRF-Token", "1").
		SetQueryParams(map[string]string{
			"response_type": "token",
			"client_id":     ChallengingClientID,
		}).
		Get(authorizeURL)
	if err != nil {
		return "", fmt.Errorf("request token from %s: %w", authorizeURL, err)
	}

	switch resp.StatusCode() {
	case http.StatusFound, http.StatusSeeOther:
	case http.StatusUnauthorized:
		return "", fmt.Errorf("login as %s at %s: %w", username, authorizeURL, ErrInvalidCredentials)
	default:
		return "", fmt.Errorf("login as %s at %s: unexpected status %s: %w",
			username, authorizeURL, resp.Status(), ErrTokenNotIssued)
	}

	return tokenFromLocation(resp.Header().Get("Location"))
}

// authorizationEndpoint discovers the authorize endpoint. Any discovery
// failure falls back to the endpoint on the API server.
func (c *ChallengeIssuer) authorizationEndpoint(ctx context.Context, masterURL string) string {
	base := strings.TrimSuffix(masterURL, "/")

	var meta serverMetadata
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&meta).
		Get(base + wellKnownPath)
	if err == nil && resp.StatusCode() == http.StatusOK && meta.AuthorizationEndpoint != "" {
		return meta.AuthorizationEndpoint
	}
	return base + defaultAuthorizePath
}

// tokenFromLocation extracts access_token from the redirect fragment.
func tokenFromLocation(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("redirect without location: %w", ErrTokenNotIssued)
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse redirect location: %w", err)
	}
	values, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return "", fmt.Errorf("parse redirect fragment: %w", err)
	}
	if token := values.Get("access_token"); token != "" {
		return token, nil
	}
	if reason := values.Get("error_description"); reason != "" {
		return "", fmt.Errorf("%s: %w", reason, ErrTokenNotIssued)
	}
	return "", ErrTokenNotIssued
}
