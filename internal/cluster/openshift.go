package cluster

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
)

var (
	// ProjectsGVR is the cluster-scoped OpenShift project resource.
	ProjectsGVR = schema.GroupVersionResource{Group: "project.openshift.io", Version: "v1", Resource: "projects"}

	// ProjectRequestsGVR is the resource self-provisioners create projects through.
	ProjectRequestsGVR = schema.GroupVersionResource{Group: "project.openshift.io", Version: "v1", Resource: "projectrequests"}
)

var _ ProjectClient = (*OpenShiftProjects)(nil)

// OpenShiftProjects is the ProjectClient backed by project.openshift.io/v1.
// It uses the dynamic client so the module does not depend on the OpenShift
// API types.
type OpenShiftProjects struct {
	client dynamic.Interface
}

// NewOpenShiftProjects returns an OpenShift-backed ProjectClient.
func NewOpenShiftProjects(client dynamic.Interface) *OpenShiftProjects {
	if client == nil {
		panic("k8sproject: openshift dynamic client must not be nil")
	}
	return &OpenShiftProjects{client: client}
}

// Probe lists at most one project. OpenShift filters the list to projects
// the caller can see, so any authenticated user may call it.
func (o *OpenShiftProjects) Probe(ctx context.Context) error {
	if _, err := o.client.Resource(ProjectsGVR).List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	return nil
}

// Get returns the project with the given name.
func (o *OpenShiftProjects) Get(ctx context.Context, name string) (*Project, error) {
	obj, err := o.client.Resource(ProjectsGVR).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", name, err)
	}
	return &Project{
		Name:              obj.GetName(),
		Description:       obj.GetAnnotations()[DescriptionAnnotation],
		CreationTimestamp: obj.GetCreationTimestamp().Time,
	}, nil
}

// Create submits a ProjectRequest. The API server turns it into a project
// owned by the caller.
func (o *OpenShiftProjects) Create(ctx context.Context, name, description string) error {
	req := &unstructured.Unstructured{Object: map[string]any{
		"apiVersion":  "project.openshift.io/v1",
		"kind":        "ProjectRequest",
		"metadata":    map[string]any{"name": name},
		"description": description,
	}}
	if _, err := o.client.Resource(ProjectRequestsGVR).Create(ctx, req, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create project request %s: %w", name, err)
	}
	return nil
}

// Delete deletes the project. OpenShift removes the backing namespace.
func (o *OpenShiftProjects) Delete(ctx context.Context, name string) error {
	err := o.client.Resource(ProjectsGVR).Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete project %s: %w", name, err)
	}
	return nil
}
