// Package logging provides structured logging helpers built on log/slog.
//
// Logs always go to stderr. When the server runs over the stdio transport,
// stdout carries MCP protocol frames and must not receive anything else.
//
// Attribute helpers keep key names consistent across packages:
//
//	logger := logging.WithOperation(slog.Default(), "token.refresh")
//	logger.Info("refreshed token", logging.UserHash(email), logging.Err(err))
//
// Email addresses are hashed before they are logged and tokens are reduced
// to a length marker.
package logging
