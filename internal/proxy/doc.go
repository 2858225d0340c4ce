// Package proxy resolves URLs that reach a pod port through the Kubernetes
// API server's pod proxy subresource. The URLs are reachable from wherever
// the API server is, so tests outside the cluster can call management
// endpoints of workloads that have no route or ingress.
package proxy
