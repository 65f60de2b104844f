// Package google holds the OAuth2 token lifecycle for Google Workspace APIs:
// the consent flow, code exchange, per-user token persistence, refresh, and
// authenticated HTTP clients for the Drive, Sheets and Docs wrappers.
package google
