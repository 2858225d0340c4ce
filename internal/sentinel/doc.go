// Package sentinel provides a string-backed error type so that the sentinel
// errors of k8sproject can be declared as constants.
//
// A const sentinel cannot be reassigned by importers, and because Error is a
// comparable value type, errors.Is matches it through wrapped chains exactly
// like a pointer sentinel created with errors.New.
package sentinel
