// Package core provides the internal implementation of k8sproject: the
// Manager state machine, the CredentialGuard that keeps the shared bearer
// token valid, the ProjectManager that owns the lifecycle of the test
// project, management Handles, and Reap for projects left behind by killed
// runs.
package core
