package k8sproject_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/giantswarm/k8sproject"
)

func publicErrors() map[string]error {
	return map[string]error{
		"ErrNoMatchingPod":    k8sproject.ErrNoMatchingPod,
		"ErrNotAuthenticated": k8sproject.ErrNotAuthenticated,
		"ErrNotInitialized":   k8sproject.ErrNotInitialized,
		"ErrProvisioning":     k8sproject.ErrProvisioning,
		"ErrShuttingDown":     k8sproject.ErrShuttingDown,
		"ErrTokenRefresh":     k8sproject.ErrTokenRefresh,
	}
}

// TestPublicErrorConstants verifies that every exported error constant has a
// message and matches itself directly and when wrapped.
func TestPublicErrorConstants(t *testing.T) {
	t.Parallel()

	for name, sentinel := range publicErrors() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if sentinel == nil {
				t.Fatalf("%s is nil", name)
			}
			if msg := sentinel.Error(); msg == "" {
				t.Errorf("%s.Error() returned empty string", name)
			}
			if !errors.Is(sentinel, sentinel) {
				t.Errorf("errors.Is(%s, %s) = false, want true (self-match)", name, name)
			}
			wrapped := fmt.Errorf("wrapping: %w", sentinel)
			if !errors.Is(wrapped, sentinel) {
				t.Errorf("errors.Is(wrapped %s) = false, want true", name)
			}
			if errors.Is(sentinel, errors.New("some other error")) {
				t.Errorf("errors.Is(%s, errors.New(...)) = true, want false", name)
			}
		})
	}
}

// TestPublicErrorConstantsAreDistinct verifies that no two exported error
// constants are equal to each other.
func TestPublicErrorConstantsAreDistinct(t *testing.T) {
	t.Parallel()

	all := publicErrors()
	for an, a := range all {
		for bn, b := range all {
			if an != bn && errors.Is(a, b) {
				t.Errorf("errors.Is(%s, %s) = true: constants must be distinct", an, bn)
			}
		}
	}
}

func TestAuthenticationError(t *testing.T) {
	t.Parallel()

	probeErr := errors.New("401")
	var err error = &k8sproject.AuthenticationError{
		Server:      "https://api.example.com:6443",
		Token:       "sha256~abc",
		Remediation: "oc login --token=sha256~abc --server=https://api.example.com:6443",
		Err:         probeErr,
	}

	if !errors.Is(err, k8sproject.ErrNotAuthenticated) {
		t.Error("AuthenticationError does not match ErrNotAuthenticated")
	}
	if !errors.Is(err, probeErr) {
		t.Error("AuthenticationError does not unwrap to the probe error")
	}
	var authErr *k8sproject.AuthenticationError
	if !errors.As(fmt.Errorf("ensure project: %w", err), &authErr) {
		t.Fatal("errors.As did not find *AuthenticationError")
	}
	if authErr.Token != "sha256~abc" {
		t.Errorf("Token = %q, want sha256~abc", authErr.Token)
	}
	want := "[oc login --token=sha256~abc --server=https://api.example.com:6443]"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("Error() = %q, want it to contain %q", err.Error(), want)
	}
}
