// Package batch holds helpers for tools that act on several items at once:
// parsing an id parameter given as a string or a list, running one call per
// item and reporting per-item results with totals.
package batch
