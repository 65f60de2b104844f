// Package common provides helpers shared by the tool packages: account
// resolution, argument parsing, result formatting, error classification
// and the instrumentation wrapper every handler is registered through.
package common
