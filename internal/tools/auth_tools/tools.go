package auth_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

const notConfiguredMessage = "Google OAuth is not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET (or google.client_id and google.client_secret in the config file) and restart the server."

// Token states reported by auth_status.
const (
	StatusValid            = "valid"
	StatusNotAuthenticated = "not_authenticated"
	StatusReauthRequired   = "reauth_required"
	StatusError            = "error"
)

// StartResponse is returned by auth_start.
type StartResponse struct {
	AuthURL   string    `json:"authUrl"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StatusResponse is returned by auth_status.
type StatusResponse struct {
	Account         string     `json:"account"`
	Status          string     `json:"status"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	Scopes          []string   `json:"scopes,omitempty"`
	Message         string     `json:"message,omitempty"`
}

// AccountsResponse is returned by auth_list_accounts.
type AccountsResponse struct {
	Accounts       []string `json:"accounts"`
	DefaultAccount string   `json:"defaultAccount,omitempty"`
}

// RegisterAuthTools registers the account connection tools.
func RegisterAuthTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	startTool := mcp.NewTool("auth_start",
		mcp.WithDescription("Start connecting a Google account. Returns a consent URL to open in a browser. After granting access the browser is redirected to the local callback; if that page cannot load, pass the full redirect URL to auth_complete."),
		mcp.WithString("email",
			mcp.Description("Email address to pre-select on the Google sign-in page"),
		),
	)
	s.AddTool(startTool, common.InstrumentedToolHandlerWithService("auth_start", instrumentation.ServiceAuth, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleStart(sc, request.GetArguments())
		}))

	completeTool := mcp.NewTool("auth_complete",
		mcp.WithDescription("Finish connecting a Google account when the browser could not reach the callback. Provide either the full redirect URL or the state and code parameters from it."),
		mcp.WithString("redirectUrl",
			mcp.Description("The URL the browser was redirected to after consent"),
		),
		mcp.WithString("state",
			mcp.Description("The state parameter from the redirect URL"),
		),
		mcp.WithString("code",
			mcp.Description("The code parameter from the redirect URL"),
		),
	)
	s.AddTool(completeTool, common.InstrumentedToolHandlerWithService("auth_complete", instrumentation.ServiceAuth, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleComplete(ctx, sc, request.GetArguments())
		}))

	statusTool := mcp.NewTool("auth_status",
		mcp.WithDescription("Check whether a Google account is connected and its token is usable"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandlerWithService("auth_status", instrumentation.ServiceAuth, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			account := common.GetAccountFromArgs(ctx, sc, request.GetArguments())
			return common.JSONResult("", accountStatus(ctx, sc, account)), nil
		}))

	listTool := mcp.NewTool("auth_list_accounts",
		mcp.WithDescription("List the Google accounts with stored tokens"),
	)
	s.AddTool(listTool, common.InstrumentedToolHandlerWithService("auth_list_accounts", instrumentation.ServiceAuth, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleList(ctx, sc)
		}))

	if !readOnly {
		revokeTool := mcp.NewTool("auth_revoke",
			mcp.WithDescription("Revoke the server's access to a Google account and delete its stored token"),
			mcp.WithString("account",
				mcp.Required(),
				mcp.Description("Email of the account to disconnect"),
			),
		)
		s.AddTool(revokeTool, common.InstrumentedToolHandlerWithService("auth_revoke", instrumentation.ServiceAuth, instrumentation.OperationDelete, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleRevoke(ctx, sc, request.GetArguments())
			}))
	}

	return nil
}

func handleStart(sc *server.ServerContext, args map[string]interface{}) (*mcp.CallToolResult, error) {
	auth := sc.Authenticator()
	if auth == nil {
		return mcp.NewToolResultError(notConfiguredMessage), nil
	}

	req, err := auth.BeginAuth(common.OptionalString(args, "email", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to start authorization: %v", err)), nil
	}

	summary := fmt.Sprintf("Open this URL in a browser to grant access (valid until %s):\n%s", req.ExpiresAt.Format(time.RFC3339), req.URL)
	return common.JSONResult(summary, StartResponse{AuthURL: req.URL, State: req.State, ExpiresAt: req.ExpiresAt}), nil
}

func handleComplete(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) (*mcp.CallToolResult, error) {
	auth := sc.Authenticator()
	if auth == nil {
		return mcp.NewToolResultError(notConfiguredMessage), nil
	}

	state := common.OptionalString(args, "state", "")
	code := common.OptionalString(args, "code", "")
	if redirectURL := common.OptionalString(args, "redirectUrl", ""); redirectURL != "" {
		var err error
		state, code, err = google.ParseCallbackURL(redirectURL)
		if err != nil {
			return common.InvalidArgument(err), nil
		}
	}
	if state == "" || code == "" {
		return common.InvalidArgument(errors.New("provide redirectUrl, or both state and code")), nil
	}

	email, err := auth.CompleteAuth(ctx, state, code)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to complete authorization: %v", err)), nil
	}
	sc.InvalidateAccount(email)

	return mcp.NewToolResultText(fmt.Sprintf("Connected Google account %s. Pass account=%q to tools, or omit it when this is the only account.", email, email)), nil
}

func accountStatus(ctx context.Context, sc *server.ServerContext, account string) StatusResponse {
	resp := StatusResponse{Account: account}

	_, err := sc.Provider().TokenForAccount(ctx, account)
	switch {
	case errors.Is(err, google.ErrNotAuthenticated):
		resp.Status = StatusNotAuthenticated
		resp.Message = google.GetAuthenticationErrorMessage(account)
		return resp
	case errors.Is(err, google.ErrReauthRequired):
		resp.Status = StatusReauthRequired
		resp.Message = google.GetAuthenticationErrorMessage(account)
	case err != nil:
		resp.Status = StatusError
		resp.Message = err.Error()
	default:
		resp.Status = StatusValid
	}

	// Report from the stored document so a refresh above is reflected.
	if store := sc.Store(); store != nil {
		if doc, err := store.Get(ctx, account); err == nil && doc.Token != nil {
			if !doc.Token.Expiry.IsZero() {
				expiry := doc.Token.Expiry
				resp.Expiry = &expiry
			}
			resp.HasRefreshToken = doc.Token.RefreshToken != ""
			resp.Scopes = doc.Scopes
		}
	}
	return resp
}

func handleList(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	store := sc.Store()
	if store == nil {
		return mcp.NewToolResultError("No token store is configured."), nil
	}
	accounts, err := store.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list accounts: %v", err)), nil
	}
	if accounts == nil {
		accounts = []string{}
	}

	resp := AccountsResponse{Accounts: accounts, DefaultAccount: sc.ResolveAccount(ctx, "")}
	if resp.DefaultAccount == google.DefaultAccount {
		resp.DefaultAccount = ""
	}
	return common.JSONResult(fmt.Sprintf("%d connected account(s)", len(accounts)), resp), nil
}

func handleRevoke(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) (*mcp.CallToolResult, error) {
	auth := sc.Authenticator()
	if auth == nil {
		return mcp.NewToolResultError(notConfiguredMessage), nil
	}
	account, err := common.RequiredString(args, "account")
	if err != nil {
		return common.InvalidArgument(err), nil
	}

	err = auth.Revoke(ctx, account)
	switch {
	case errors.Is(err, google.ErrNotAuthenticated):
		return mcp.NewToolResultError(fmt.Sprintf("No stored token for %s.", account)), nil
	case errors.Is(err, tokenstore.ErrInvalidEmail):
		return common.InvalidArgument(err), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to revoke %s: %v", account, err)), nil
	}
	sc.InvalidateAccount(account)

	return mcp.NewToolResultText(fmt.Sprintf("Revoked access for %s and deleted its stored token.", account)), nil
}
