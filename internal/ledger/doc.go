// Package ledger records the projects created by k8sproject runs in a local
// SQLite database so that projects orphaned by a killed process can be found
// and deleted later.
//
// Writes from concurrent processes sharing the same ledger file are serialized
// with an advisory file lock next to the database.
package ledger
