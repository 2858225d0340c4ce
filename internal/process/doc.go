// Package process runs the test command wrapped by "k8sproject run" and
// answers whether the process that created a ledger entry is still alive.
package process
