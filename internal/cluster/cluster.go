package cluster

import (
	"context"
	"fmt"
	"time"
)

// DescriptionAnnotation is the annotation OpenShift uses for the project
// description. The namespace backend sets it too so both backends produce
// the same metadata.
const DescriptionAnnotation = "openshift.io/description"

// ManagedByLabel marks projects created by k8sproject.
const ManagedByLabel = "app.kubernetes.io/managed-by"

// ManagedByValue is the value of ManagedByLabel.
const ManagedByValue = "k8sproject"

// Project is the part of a namespace or OpenShift project the lifecycle
// manager keeps after creating it.
type Project struct {
	Name              string
	Description       string
	CreationTimestamp time.Time
}

// ProjectClient is the cluster capability consumed by the lifecycle manager
// and the credential guard.
//
// Implementations return errors from k8s.io/apimachinery/pkg/api/errors so
// callers can classify them with apierrors.IsNotFound, IsUnauthorized, etc.
type ProjectClient interface {
	// Probe issues a cheap authenticated request. It fails with an
	// Unauthorized status error when the held credentials are rejected.
	Probe(ctx context.Context) error

	// Get returns the project with the given name.
	Get(ctx context.Context, name string) (*Project, error)

	// Create requests a new project. The returned error is the API error of
	// the create request; the created object is fetched separately with Get.
	Create(ctx context.Context, name, description string) error

	// Delete removes the project. A project that is already gone is not an
	// error.
	Delete(ctx context.Context, name string) error
}

// Backend selects a ProjectClient implementation.
type Backend int

const (
	// BackendNamespace manages core/v1 namespaces.
	BackendNamespace Backend = iota

	// BackendOpenShift manages project.openshift.io/v1 projects.
	BackendOpenShift
)

// IsValid reports whether b is a recognized backend.
func (b Backend) IsValid() bool {
	switch b {
	case BackendNamespace, BackendOpenShift:
		return true
	default:
		return false
	}
}

// String returns the backend name as used in configuration files.
func (b Backend) String() string {
	switch b {
	case BackendNamespace:
		return "namespace"
	case BackendOpenShift:
		return "openshift"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend is the inverse of Backend.String.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "", "namespace":
		return BackendNamespace, nil
	case "openshift":
		return BackendOpenShift, nil
	default:
		return 0, fmt.Errorf("unknown project backend %q", s)
	}
}
