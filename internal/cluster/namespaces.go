package cluster

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

var _ ProjectClient = (*Namespaces)(nil)

// Namespaces is the ProjectClient backed by core/v1 namespaces.
type Namespaces struct {
	client kubernetes.Interface
}

// NewNamespaces returns a namespace-backed ProjectClient.
func NewNamespaces(client kubernetes.Interface) *Namespaces {
	if client == nil {
		panic("k8sproject: namespaces client must not be nil")
	}
	return &Namespaces{client: client}
}

// Probe lists at most one namespace.
func (n *Namespaces) Probe(ctx context.Context) error {
	if _, err := n.client.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1}); err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	return nil
}

// Get returns the namespace with the given name.
func (n *Namespaces) Get(ctx context.Context, name string) (*Project, error) {
	ns, err := n.client.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("get namespace %s: %w", name, err)
	}
	return &Project{
		Name:              ns.Name,
		Description:       ns.Annotations[DescriptionAnnotation],
		CreationTimestamp: ns.CreationTimestamp.Time,
	}, nil
}

// Create creates the namespace with the description annotation and the
// managed-by label.
func (n *Namespaces) Create(ctx context.Context, name, description string) error {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name:        name,
			Labels:      map[string]string{ManagedByLabel: ManagedByValue},
			Annotations: map[string]string{DescriptionAnnotation: description},
		},
	}
	if _, err := n.client.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("create namespace %s: %w", name, err)
	}
	return nil
}

// Delete deletes the namespace with background propagation. The namespace
// controller removes its contents asynchronously.
func (n *Namespaces) Delete(ctx context.Context, name string) error {
	propagation := metav1.DeletePropagationBackground
	err := n.client.CoreV1().Namespaces().Delete(ctx, name, metav1.DeleteOptions{
		PropagationPolicy: &propagation,
	})
	if apierrors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete namespace %s: %w", name, err)
	}
	return nil
}
