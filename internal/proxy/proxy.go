package proxy

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"

	"github.com/giantswarm/k8sproject/internal/sentinel"
)

// ErrNoMatchingPod is returned when no pod matches the selector, or fewer
// pods match than the requested index requires.
const ErrNoMatchingPod = sentinel.Error("no pod matches the selector")

// Resolver maps label selectors and a port to a URL.
type Resolver interface {
	URL(ctx context.Context, selectors map[string]string, index, port int, path string, query url.Values) (string, error)
}

var _ Resolver = (*PodProxy)(nil)

// PodProxy builds pod proxy URLs for pods in a single namespace.
type PodProxy struct {
	client    kubernetes.Interface
	namespace string
	server    *url.URL
}

// NewPodProxy returns a PodProxy for pods in namespace, building URLs under
// server (the API server URL, as in rest.Config.Host).
func NewPodProxy(client kubernetes.Interface, server, namespace string) (*PodProxy, error) {
	if client == nil {
		panic("k8sproject: pod proxy client must not be nil")
	}
	if namespace == "" {
		return nil, fmt.Errorf("pod proxy: namespace must not be empty")
	}
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("pod proxy: parse server %q: %w", server, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("pod proxy: server %q must be an absolute URL", server)
	}
	return &PodProxy{client: client, namespace: namespace, server: u}, nil
}

// URL returns the proxy URL for port on the index-th pod matching
// selectors. Pods are ordered by name so the same cluster state always
// yields the same URL; pods being deleted are skipped.
func (p *PodProxy) URL(
	ctx context.Context,
	selectors map[string]string,
	index, port int,
	path string,
	query url.Values,
) (string, error) {
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("pod proxy: invalid port %d", port)
	}
	if index < 0 {
		return "", fmt.Errorf("pod proxy: invalid pod index %d", index)
	}

	selector := labels.SelectorFromSet(selectors).String()
	pods, err := p.client.CoreV1().Pods(p.namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("pod proxy: list pods %q in %s: %w", selector, p.namespace, err)
	}

	names := candidatePods(pods.Items)
	if index >= len(names) {
		return "", fmt.Errorf("pod proxy: %d pods match %q in %s, need index %d: %w",
			len(names), selector, p.namespace, index, ErrNoMatchingPod)
	}

	return p.proxyURL(names[index], port, path, query), nil
}

// candidatePods returns the sorted names of pods not marked for deletion.
func candidatePods(pods []corev1.Pod) []string {
	names := make([]string, 0, len(pods))
	for idx := range pods {
		if pods[idx].DeletionTimestamp != nil {
			continue
		}
		names = append(names, pods[idx].Name)
	}
	slices.Sort(names)
	return names
}

// proxyURL renders /api/v1/namespaces/<ns>/pods/<pod>:<port>/proxy/<path>.
func (p *PodProxy) proxyURL(pod string, port int, path string, query url.Values) string {
	u := *p.server
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/namespaces/" + p.namespace +
		"/pods/" + pod + ":" + strconv.Itoa(port) + "/proxy/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""
	u.RawQuery = query.Encode()
	u.Fragment = ""
	return u.String()
}
