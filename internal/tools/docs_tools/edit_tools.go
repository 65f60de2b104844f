package docs_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

func registerEditTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	createTool := mcp.NewTool("docs_create_document",
		mcp.WithDescription("Create a new Google Doc, optionally with initial text"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title of the document"),
		),
		mcp.WithString("text",
			mcp.Description("Initial body text"),
		),
	)
	s.AddTool(createTool, common.InstrumentedToolHandlerWithService("docs_create_document", instrumentation.ServiceDocs, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			title, err := common.RequiredString(args, "title")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "create document", err), nil
			}
			created, err := client.CreateDocument(ctx, title, common.OptionalString(args, "text", ""))
			if err != nil {
				if created != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Created document %s (%s) but failed to write its text: %v", created.DocumentID, created.URL, err)), nil
				}
				return common.ErrorResult(account, "create document", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Created document %q", created.Title), created), nil
		}))

	appendTool := mcp.NewTool("docs_append_text",
		mcp.WithDescription("Append text to the end of a document"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to append. Start it with a newline to begin a new paragraph"),
		),
	)
	s.AddTool(appendTool, common.InstrumentedToolHandlerWithService("docs_append_text", instrumentation.ServiceDocs, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			documentID, err := documentIDArg(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			text, err := common.RequiredString(args, "text")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "append text", err), nil
			}
			result, err := client.AppendText(ctx, documentID, text)
			if err != nil {
				return common.ErrorResult(account, "append text", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Appended %d characters", len([]rune(text))), result), nil
		}))

	insertTool := mcp.NewTool("docs_insert_text",
		mcp.WithDescription("Insert text at a position in a document"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to insert"),
		),
		mcp.WithNumber("index",
			mcp.Required(),
			mcp.Description("1-based body index to insert at (1 is the start of the document)"),
		),
	)
	s.AddTool(insertTool, common.InstrumentedToolHandlerWithService("docs_insert_text", instrumentation.ServiceDocs, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			documentID, err := documentIDArg(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			text, err := common.RequiredString(args, "text")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			index, err := common.RequiredInt(args, "index")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "insert text", err), nil
			}
			result, err := client.InsertText(ctx, documentID, index, text)
			if err != nil {
				return common.ErrorResult(account, "insert text", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Inserted %d characters at index %d", len([]rune(text)), index), result), nil
		}))

	replaceTool := mcp.NewTool("docs_replace_text",
		mcp.WithDescription("Replace every occurrence of a string in a document"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithString("find",
			mcp.Required(),
			mcp.Description("Text to find"),
		),
		mcp.WithString("replacement",
			mcp.Description("Replacement text (default: empty, which deletes matches)"),
		),
		mcp.WithBoolean("matchCase",
			mcp.Description("Case-sensitive match (default: false)"),
		),
	)
	s.AddTool(replaceTool, common.InstrumentedToolHandlerWithService("docs_replace_text", instrumentation.ServiceDocs, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			documentID, err := documentIDArg(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			find, err := common.RequiredString(args, "find")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "replace text", err), nil
			}
			result, err := client.ReplaceText(ctx, documentID, find, common.OptionalString(args, "replacement", ""), common.OptionalBool(args, "matchCase", false))
			if err != nil {
				return common.ErrorResult(account, "replace text", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Replaced %d occurrence(s) of %q", result.OccurrencesChanged, find), result), nil
		}))

	deleteTool := mcp.NewTool("docs_delete_range",
		mcp.WithDescription("Delete the content between two body indexes"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithNumber("startIndex",
			mcp.Required(),
			mcp.Description("1-based start index (inclusive)"),
		),
		mcp.WithNumber("endIndex",
			mcp.Required(),
			mcp.Description("End index (exclusive)"),
		),
	)
	s.AddTool(deleteTool, common.InstrumentedToolHandlerWithService("docs_delete_range", instrumentation.ServiceDocs, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			documentID, err := documentIDArg(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			start, err := common.RequiredInt(args, "startIndex")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			end, err := common.RequiredInt(args, "endIndex")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "delete range", err), nil
			}
			result, err := client.DeleteRange(ctx, documentID, start, end)
			if err != nil {
				return common.ErrorResult(account, "delete range", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Deleted content from index %d to %d", start, end), result), nil
		}))

	tableTool := mcp.NewTool("docs_insert_table",
		mcp.WithDescription("Insert an empty table into a document"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithNumber("rows",
			mcp.Required(),
			mcp.Description("Number of rows"),
		),
		mcp.WithNumber("columns",
			mcp.Required(),
			mcp.Description("Number of columns"),
		),
		mcp.WithNumber("index",
			mcp.Description("1-based body index to insert at (default: end of document)"),
		),
	)
	s.AddTool(tableTool, common.InstrumentedToolHandlerWithService("docs_insert_table", instrumentation.ServiceDocs, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			documentID, err := documentIDArg(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			rows, err := common.RequiredInt(args, "rows")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			cols, err := common.RequiredInt(args, "columns")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			index, err := common.OptionalIntPtr(args, "index")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "insert table", err), nil
			}
			result, err := client.InsertTable(ctx, documentID, rows, cols, index)
			if err != nil {
				return common.ErrorResult(account, "insert table", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Inserted a %dx%d table %s", rows, cols, where(index)), result), nil
		}))

	pageBreakTool := mcp.NewTool("docs_insert_page_break",
		mcp.WithDescription("Insert a page break into a document"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("documentId",
			mcp.Required(),
			mcp.Description(documentIDDescription),
		),
		mcp.WithNumber("index",
			mcp.Description("1-based body index to insert at (default: end of document)"),
		),
	)
	s.AddTool(pageBreakTool, common.InstrumentedToolHandlerWithService("docs_insert_page_break", instrumentation.ServiceDocs, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			documentID, err := documentIDArg(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			index, err := common.OptionalIntPtr(args, "index")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.DocsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "insert page break", err), nil
			}
			result, err := client.InsertPageBreak(ctx, documentID, index)
			if err != nil {
				return common.ErrorResult(account, "insert page break", err), nil
			}
			return common.JSONResult("Inserted a page break "+where(index), result), nil
		}))

	return nil
}

func where(index *int64) string {
	if index == nil {
		return "at the end of the document"
	}
	return fmt.Sprintf("at index %d", *index)
}
