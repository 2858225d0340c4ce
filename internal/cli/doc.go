// Package cli implements the k8sproject command line tool.
//
// Settings are read from a YAML config file, then from the environment
// (NAMESPACE, KUBERNETES_MASTER, OPENSHIFT_USERNAME, OPENSHIFT_PASSWORD,
// OPENSHIFT_TOKEN, CLEANUP), then from flags.
package cli
