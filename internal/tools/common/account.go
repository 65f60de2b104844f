package common

import (
	"context"
	"strings"

	"github.com/chayan-1906/google-workspace-mcp/internal/server"
)

// AccountParamDescription documents the account argument on every tool.
const AccountParamDescription = "Google account email to act as. Optional when only one account is authenticated or a default account is configured."

// GetAccountFromArgs resolves the account a tool call runs as from the request
// context and its "account" argument. See server.ServerContext.ResolveAccount
// for the priority order.
func GetAccountFromArgs(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) string {
	explicit, _ := args["account"].(string)
	return sc.ResolveAccount(ctx, strings.TrimSpace(explicit))
}
