// Package server holds the shared state of the MCP server and its HTTP
// surfaces.
//
// ServerContext resolves which Google account a call acts as and hands out
// cached, rate limited Drive, Sheets and Docs clients for it. Clients are
// created on first use and dropped when an account is re-authorized or
// revoked.
//
// The HTTP side consists of:
//   - CallbackServer, which finishes consent flows at /oauth/callback
//   - HTTPServer, the streamable-http transport at /mcp with health probes
//   - MetricsServer, which exposes Prometheus metrics on a separate port
package server
