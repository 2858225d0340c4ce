package cluster

import (
	"context"
	"testing"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	clienttesting "k8s.io/client-go/testing"
)

func newProject(name, description string) *unstructured.Unstructured {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion("project.openshift.io/v1")
	u.SetKind("Project")
	u.SetName(name)
	if description != "" {
		u.SetAnnotations(map[string]string{DescriptionAnnotation: description})
	}
	return u
}

// newFakeOpenShift returns a dynamic fake that behaves like the OpenShift
// project API: creating a ProjectRequest materializes a Project.
func newFakeOpenShift(t *testing.T, objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	t.Helper()
	client := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(
		runtime.NewScheme(),
		map[schema.GroupVersionResource]string{
			ProjectsGVR:        "ProjectList",
			ProjectRequestsGVR: "ProjectRequestList",
		},
		objects...,
	)
	client.PrependReactor("create", "projectrequests", func(action clienttesting.Action) (bool, runtime.Object, error) {
		req := action.(clienttesting.CreateAction).GetObject().(*unstructured.Unstructured)
		desc, _, _ := unstructured.NestedString(req.Object, "description")
		if err := client.Tracker().Create(ProjectsGVR, newProject(req.GetName(), desc), ""); err != nil {
			return true, nil, err
		}
		return false, nil, nil
	})
	return client
}

func TestOpenShiftProjectsCreateGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := newFakeOpenShift(t)
	projects := NewOpenShiftProjects(client)

	if err := projects.Create(ctx, "test-ns", "integration run"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := projects.Get(ctx, "test-ns")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Name != "test-ns" || got.Description != "integration run" {
		t.Errorf("Get() = %+v, want name test-ns with description", got)
	}

	if err := projects.Delete(ctx, "test-ns"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := projects.Get(ctx, "test-ns"); !apierrors.IsNotFound(err) {
		t.Errorf("Get() after Delete error = %v, want NotFound", err)
	}
}

func TestOpenShiftProjectsCreateSendsProjectRequest(t *testing.T) {
	t.Parallel()
	client := newFakeOpenShift(t)

	if err := NewOpenShiftProjects(client).Create(context.Background(), "test-ns", "desc"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	var found bool
	for _, action := range client.Actions() {
		if action.GetVerb() != "create" || action.GetResource() != ProjectRequestsGVR {
			continue
		}
		found = true
		obj := action.(clienttesting.CreateAction).GetObject().(*unstructured.Unstructured)
		if obj.GetKind() != "ProjectRequest" {
			t.Errorf("kind = %q, want ProjectRequest", obj.GetKind())
		}
		if desc, _, _ := unstructured.NestedString(obj.Object, "description"); desc != "desc" {
			t.Errorf("description = %q, want %q", desc, "desc")
		}
	}
	if !found {
		t.Error("no create action on projectrequests recorded")
	}
}

func TestOpenShiftProjectsProbe(t *testing.T) {
	t.Parallel()

	t.Run("lists projects", func(t *testing.T) {
		t.Parallel()
		client := newFakeOpenShift(t, newProject("existing", ""))
		if err := NewOpenShiftProjects(client).Probe(context.Background()); err != nil {
			t.Errorf("Probe() error: %v", err)
		}
	})

	t.Run("surfaces unauthorized", func(t *testing.T) {
		t.Parallel()
		client := newFakeOpenShift(t)
		client.PrependReactor("list", "projects", func(clienttesting.Action) (bool, runtime.Object, error) {
			return true, nil, apierrors.NewUnauthorized("expired")
		})
		if err := NewOpenShiftProjects(client).Probe(context.Background()); !apierrors.IsUnauthorized(err) {
			t.Errorf("Probe() error = %v, want Unauthorized", err)
		}
	})
}

func TestOpenShiftProjectsDeleteMissingIsNoError(t *testing.T) {
	t.Parallel()
	client := newFakeOpenShift(t)

	if err := NewOpenShiftProjects(client).Delete(context.Background(), "gone"); err != nil {
		t.Errorf("Delete() error = %v, want nil", err)
	}
}
