package core

import (
	"fmt"

	"github.com/giantswarm/k8sproject/internal/proxy"
	"github.com/giantswarm/k8sproject/internal/sentinel"
)

// ErrShuttingDown is returned by Manager operations after Shutdown.
const ErrShuttingDown = sentinel.Error("manager is shutting down")

// ErrNotInitialized is returned by Manager operations before Initialize.
const ErrNotInitialized = sentinel.Error("manager not initialized")

// ErrNotAuthenticated matches *AuthenticationError.
const ErrNotAuthenticated = sentinel.Error("session is not authenticated")

// ErrTokenRefresh wraps failures of the token issuer.
const ErrTokenRefresh = sentinel.Error("token refresh failed")

// ErrProvisioning wraps failures to create the test project.
const ErrProvisioning = sentinel.Error("project provisioning failed")

// ErrNoToken is returned by CredentialStore.Token when no token is held.
const ErrNoToken = sentinel.Error("no token held")

// ErrNoMatchingPod is re-exported from proxy so the public API imports only
// from core.
const ErrNoMatchingPod = proxy.ErrNoMatchingPod

// AuthenticationError reports a session that never held a token. A fresh
// token was issued for the operator; Remediation is the command that logs in
// with it.
type AuthenticationError struct {
	Server      string
	Token       string
	Remediation string
	// Err is the probe failure that triggered the check.
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s, please perform the following command and try again: [%s]",
		ErrNotAuthenticated, e.Remediation)
}

// Is reports whether target is ErrNotAuthenticated.
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrNotAuthenticated
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}
