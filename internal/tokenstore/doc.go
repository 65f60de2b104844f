// Package tokenstore persists OAuth token documents keyed by user email.
//
// A document is a small JSON object holding the user's Google OAuth2 token,
// the granted scopes, and timestamps. Three backends implement Store:
//
//   - memory: process-local, used by tests and throwaway runs
//   - sqlite: a single-table document store on local disk (default)
//   - valkey: one key per document, for shared deployments
//
// Documents can be sealed at rest with AES-256-GCM. See Sealer.
package tokenstore
