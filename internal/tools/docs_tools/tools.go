package docs_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/docs"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

const documentIDDescription = "The ID of the Google Doc, or its docs.google.com URL"

var documentURLPattern = regexp.MustCompile(`/document/d/([a-zA-Z0-9_-]+)`)

// RegisterDocsTools registers all Google Docs-related tools with the MCP server
func RegisterDocsTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getDocumentTool := mcp.NewTool("docs_get_document",
		mcp.WithDescription("Get Google Docs content by document ID"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default), 'text', or 'json'"),
			mcp.Enum(docs.FormatMarkdown, docs.FormatText, docs.FormatJSON),
		),
	)
	s.AddTool(getDocumentTool, common.InstrumentedToolHandlerWithService("docs_get_document", instrumentation.ServiceDocs, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetDocument(ctx, request, sc)
		}))

	getMetadataTool := mcp.NewTool("docs_get_document_metadata",
		mcp.WithDescription("Get metadata about a Google Doc or Drive file"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description("The ID of the Google Doc or Drive file, or its URL"),
		),
	)
	s.AddTool(getMetadataTool, common.InstrumentedToolHandlerWithService("docs_get_document_metadata", instrumentation.ServiceDocs, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMetadata(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}
	return registerEditTools(s, sc)
}

// documentIDArg reads documentId and accepts a pasted document URL.
func documentIDArg(args map[string]interface{}) (string, error) {
	id, err := common.RequiredString(args, "documentId")
	if err != nil {
		return "", err
	}
	if m := documentURLPattern.FindStringSubmatch(id); m != nil {
		return m[1], nil
	}
	if strings.Contains(id, "/") {
		return "", fmt.Errorf("documentId %q is neither a document ID nor a Google Docs URL", id)
	}
	return id, nil
}

func handleGetDocument(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, sc, args)

	documentID, err := documentIDArg(args)
	if err != nil {
		return common.InvalidArgument(err), nil
	}
	format := strings.ToLower(common.OptionalString(args, "format", docs.FormatMarkdown))

	client, err := sc.DocsClientForAccount(account)
	if err != nil {
		return common.ErrorResult(account, "get document", err), nil
	}

	content, doc, err := client.GetDocumentAs(ctx, documentID, format)
	if err != nil {
		return common.ErrorResult(account, "get document", err), nil
	}

	switch format {
	case docs.FormatText:
		return mcp.NewToolResultText(fmt.Sprintf("Document content (plain text, %d bytes):\n%s", len(content), content)), nil
	case docs.FormatJSON:
		jsonBytes, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize document: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Document content (JSON, %d bytes):\n%s", len(jsonBytes), string(jsonBytes))), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Document content (Markdown, %d bytes):\n%s", len(content), content)), nil
	}
}

func handleGetMetadata(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(ctx, sc, args)

	documentID, err := documentIDArg(args)
	if err != nil {
		return common.InvalidArgument(err), nil
	}

	client, err := sc.DocsClientForAccount(account)
	if err != nil {
		return common.ErrorResult(account, "get metadata", err), nil
	}
	metadata, err := client.GetDocumentMetadata(ctx, documentID)
	if err != nil {
		return common.ErrorResult(account, "get metadata", err), nil
	}
	return common.JSONResult("Document metadata:", metadata), nil
}
