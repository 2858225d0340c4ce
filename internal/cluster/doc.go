// Package cluster adapts the Kubernetes API to the small project capability
// the lifecycle manager needs: probe the credentials, get, create and delete
// a single project.
//
// Two backends are provided. Namespaces talks to core/v1 namespaces and works
// on any cluster where the caller may create namespaces. OpenShiftProjects
// goes through project.openshift.io/v1, creating projects with a
// ProjectRequest so that self-provisioning users can run tests without
// cluster-admin rights.
package cluster
