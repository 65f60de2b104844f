// Package resources provides MCP resources describing the connected Google
// accounts. Resources are read-only and never expose token material.
package resources
