// Package termination runs registered cleanup callbacks when the process
// receives SIGINT or SIGTERM, then exits.
//
// Callbacks run sequentially in reverse registration order with a context
// bounded by the watcher's timeout. A callback that outlives the timeout is
// abandoned; the process still exits.
package termination
