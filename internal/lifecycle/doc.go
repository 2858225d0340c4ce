// Package lifecycle is an ordered list of suite hooks. Hooks belong to a
// phase and run by descending precedence; hooks of equal precedence keep
// their registration order.
package lifecycle
