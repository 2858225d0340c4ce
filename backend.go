package k8sproject

import (
	"github.com/giantswarm/k8sproject/internal/cluster"
	"github.com/giantswarm/k8sproject/internal/core"
)

// Backend selects how the test project is managed on the cluster.
//
// Backend is a type alias so that IsValid and String of the underlying
// type are part of the public API.
type Backend = cluster.Backend

const (
	// BackendNamespace manages a plain core/v1 Namespace. This is the
	// default and works on any Kubernetes cluster.
	BackendNamespace = cluster.BackendNamespace

	// BackendOpenShift manages a project.openshift.io/v1 Project, created
	// through a ProjectRequest so that the requesting user becomes its admin.
	BackendOpenShift = cluster.BackendOpenShift
)

// ParseBackend parses the configuration name of a backend ("namespace" or
// "openshift"). The empty string selects BackendNamespace.
func ParseBackend(s string) (Backend, error) {
	return cluster.ParseBackend(s)
}

// ProjectState is the lifecycle state of the test project as seen by this
// run. See ProjectAbsent, ProjectCreated and ProjectDeleted.
type ProjectState = core.ProjectState

const (
	// ProjectAbsent means this run does not own the project, either because
	// EnsureProject has not run or because the project already existed.
	ProjectAbsent = core.ProjectAbsent

	// ProjectCreated means this run created the project and will delete it
	// on cleanup when cleanup is enabled.
	ProjectCreated = core.ProjectCreated

	// ProjectDeleted means this run created the project and has deleted it.
	ProjectDeleted = core.ProjectDeleted
)

// ReapResult reports what Manager.Reap did with one ledger entry.
type ReapResult = core.ReapResult

// ReapOutcome classifies a ReapResult.
type ReapOutcome = core.ReapOutcome

const (
	ReapDeleted = core.ReapDeleted
	ReapSkipped = core.ReapSkipped
	ReapFailed  = core.ReapFailed
)
