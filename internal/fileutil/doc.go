// Package fileutil holds the small filesystem helpers used by the project
// ledger: creating state directories before SQLite and lock files are opened.
package fileutil
