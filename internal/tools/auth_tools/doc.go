// Package auth_tools provides the MCP tools that connect Google accounts:
// starting and completing the consent flow, reporting token status, listing
// connected accounts and revoking access.
package auth_tools
