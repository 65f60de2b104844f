package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

const (
	AccountsURI       = "workspace://accounts"
	CurrentAccountURI = "workspace://accounts/current"
)

// AccountInfo describes one stored account.
type AccountInfo struct {
	Email           string     `json:"email"`
	Expiry          *time.Time `json:"expiry,omitempty"`
	Expired         bool       `json:"expired"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	Scopes          []string   `json:"scopes,omitempty"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CurrentAccount is the account tool calls in this session resolve to.
type CurrentAccount struct {
	Account       string       `json:"account"`
	Authenticated bool         `json:"authenticated"`
	Info          *AccountInfo `json:"info,omitempty"`
}

// RegisterAccountResources registers the account resources.
func RegisterAccountResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if sc.Store() == nil {
		return fmt.Errorf("account resources need a token store")
	}

	accounts := mcp.NewResource(
		AccountsURI,
		"Connected Google accounts",
		mcp.WithResourceDescription("Google accounts with stored tokens and their expiry"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(accounts, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		infos, err := listAccounts(ctx, sc.Store())
		if err != nil {
			return nil, err
		}
		return jsonContents(request.Params.URI, infos)
	})

	current := mcp.NewResource(
		CurrentAccountURI,
		"Current Google account",
		mcp.WithResourceDescription("The account tool calls act as when no account argument is given"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(current, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		account := sc.ResolveAccount(ctx, "")
		resp := CurrentAccount{Account: account}
		doc, err := sc.Store().Get(ctx, account)
		switch {
		case err == nil:
			info := accountInfo(doc, time.Now())
			resp.Info = &info
			resp.Authenticated = doc.Token != nil
		case errors.Is(err, tokenstore.ErrNotFound), errors.Is(err, tokenstore.ErrInvalidEmail):
		default:
			return nil, fmt.Errorf("failed to read account %s: %w", account, err)
		}
		if resp.Account == google.DefaultAccount {
			resp.Account = ""
		}
		return jsonContents(request.Params.URI, resp)
	})

	return nil
}

func listAccounts(ctx context.Context, store tokenstore.Store) ([]AccountInfo, error) {
	emails, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	now := time.Now()
	infos := make([]AccountInfo, 0, len(emails))
	for _, email := range emails {
		doc, err := store.Get(ctx, email)
		if errors.Is(err, tokenstore.ErrNotFound) {
			// Revoked between List and Get.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read account %s: %w", email, err)
		}
		infos = append(infos, accountInfo(doc, now))
	}
	return infos, nil
}

func accountInfo(doc *tokenstore.Document, now time.Time) AccountInfo {
	info := AccountInfo{Email: doc.Email, Scopes: doc.Scopes, UpdatedAt: doc.UpdatedAt}
	if doc.Token == nil {
		return info
	}
	if !doc.Token.Expiry.IsZero() {
		expiry := doc.Token.Expiry
		info.Expiry = &expiry
		info.Expired = now.After(expiry)
	}
	info.HasRefreshToken = doc.Token.RefreshToken != ""
	return info
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
