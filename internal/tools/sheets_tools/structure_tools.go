package sheets_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/sheets"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

const sheetIDDescription = "Numeric sheet (tab) ID, as returned by sheets_get_spreadsheet (the gid in the URL)"

func registerStructureTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	addSheetTool := mcp.NewTool("sheets_add_sheet",
		mcp.WithDescription("Add a new sheet (tab) to a spreadsheet"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Name of the new sheet"),
		),
		mcp.WithNumber("rowCount",
			mcp.Description("Number of rows (default: 1000)"),
		),
		mcp.WithNumber("columnCount",
			mcp.Description("Number of columns (default: 26)"),
		),
	)
	s.AddTool(addSheetTool, common.InstrumentedToolHandlerWithService("sheets_add_sheet", instrumentation.ServiceSheets, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			title, err := common.RequiredString(args, "title")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			rows, err := common.OptionalInt(args, "rowCount", 0)
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			cols, err := common.OptionalInt(args, "columnCount", 0)
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "add sheet", err), nil
			}
			info, err := client.AddSheet(ctx, spreadsheetID, title, rows, cols)
			if err != nil {
				return common.ErrorResult(account, "add sheet", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Added sheet %q (sheetId %d)", info.Title, info.SheetID), info), nil
		}))

	deleteSheetTool := mcp.NewTool("sheets_delete_sheet",
		mcp.WithDescription("Delete a sheet (tab) and all of its data"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithNumber("sheetId",
			mcp.Required(),
			mcp.Description(sheetIDDescription),
		),
	)
	s.AddTool(deleteSheetTool, common.InstrumentedToolHandlerWithService("sheets_delete_sheet", instrumentation.ServiceSheets, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			sheetID, err := common.RequiredInt(args, "sheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "delete sheet", err), nil
			}
			if err := client.DeleteSheet(ctx, spreadsheetID, sheetID); err != nil {
				return common.ErrorResult(account, "delete sheet", err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Deleted sheet %d", sheetID)), nil
		}))

	renameSheetTool := mcp.NewTool("sheets_rename_sheet",
		mcp.WithDescription("Rename a sheet (tab)"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithNumber("sheetId",
			mcp.Required(),
			mcp.Description(sheetIDDescription),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("New sheet name"),
		),
	)
	s.AddTool(renameSheetTool, common.InstrumentedToolHandlerWithService("sheets_rename_sheet", instrumentation.ServiceSheets, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			sheetID, err := common.RequiredInt(args, "sheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			title, err := common.RequiredString(args, "title")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "rename sheet", err), nil
			}
			if err := client.RenameSheet(ctx, spreadsheetID, sheetID, title); err != nil {
				return common.ErrorResult(account, "rename sheet", err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Renamed sheet %d to %q", sheetID, title)), nil
		}))

	duplicateSheetTool := mcp.NewTool("sheets_duplicate_sheet",
		mcp.WithDescription("Copy a sheet (tab) within the same spreadsheet"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithNumber("sheetId",
			mcp.Required(),
			mcp.Description(sheetIDDescription),
		),
		mcp.WithString("newTitle",
			mcp.Description("Name of the copy (default: 'Copy of <name>')"),
		),
	)
	s.AddTool(duplicateSheetTool, common.InstrumentedToolHandlerWithService("sheets_duplicate_sheet", instrumentation.ServiceSheets, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			sheetID, err := common.RequiredInt(args, "sheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "duplicate sheet", err), nil
			}
			info, err := client.DuplicateSheet(ctx, spreadsheetID, sheetID, common.OptionalString(args, "newTitle", ""))
			if err != nil {
				return common.ErrorResult(account, "duplicate sheet", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Duplicated sheet %d as %q (sheetId %d)", sheetID, info.Title, info.SheetID), info), nil
		}))

	insertDimensionTool := mcp.NewTool("sheets_insert_dimension",
		withDimensionParams("Insert empty rows or columns into a sheet",
			mcp.WithBoolean("inheritFromBefore",
				mcp.Description("Copy formatting from the row/column before the insertion point instead of after (default: false)"),
			),
		)...,
	)
	s.AddTool(insertDimensionTool, common.InstrumentedToolHandlerWithService("sheets_insert_dimension", instrumentation.ServiceSheets, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, rng, err := dimensionArgs(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "insert dimension", err), nil
			}
			if err := client.InsertDimension(ctx, spreadsheetID, rng, common.OptionalBool(args, "inheritFromBefore", false)); err != nil {
				return common.ErrorResult(account, "insert dimension", err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Inserted %d %s at index %d of sheet %d",
				rng.EndIndex-rng.StartIndex, strings.ToLower(rng.Dimension), rng.StartIndex, rng.SheetID)), nil
		}))

	deleteDimensionTool := mcp.NewTool("sheets_delete_dimension",
		withDimensionParams("Delete rows or columns from a sheet")...,
	)
	s.AddTool(deleteDimensionTool, common.InstrumentedToolHandlerWithService("sheets_delete_dimension", instrumentation.ServiceSheets, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, rng, err := dimensionArgs(args)
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "delete dimension", err), nil
			}
			if err := client.DeleteDimension(ctx, spreadsheetID, rng); err != nil {
				return common.ErrorResult(account, "delete dimension", err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Deleted %d %s starting at index %d of sheet %d",
				rng.EndIndex-rng.StartIndex, strings.ToLower(rng.Dimension), rng.StartIndex, rng.SheetID)), nil
		}))

	findReplaceTool := mcp.NewTool("sheets_find_replace",
		mcp.WithDescription("Find and replace text across a spreadsheet or in one sheet"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("find",
			mcp.Required(),
			mcp.Description("Text (or regular expression) to find"),
		),
		mcp.WithString("replacement",
			mcp.Description("Replacement text (default: empty, which removes matches)"),
		),
		mcp.WithNumber("sheetId",
			mcp.Description("Restrict the search to one sheet (default: all sheets)"),
		),
		mcp.WithBoolean("matchCase",
			mcp.Description("Case-sensitive match (default: false)"),
		),
		mcp.WithBoolean("matchEntireCell",
			mcp.Description("Only match cells whose whole content matches (default: false)"),
		),
		mcp.WithBoolean("searchByRegex",
			mcp.Description("Treat find as a regular expression (default: false)"),
		),
		mcp.WithBoolean("includeFormulas",
			mcp.Description("Also search formula text (default: false)"),
		),
	)
	s.AddTool(findReplaceTool, common.InstrumentedToolHandlerWithService("sheets_find_replace", instrumentation.ServiceSheets, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			find, err := common.RequiredString(args, "find")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			sheetID, err := common.OptionalIntPtr(args, "sheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			opts := sheets.FindReplaceOptions{
				Find:            find,
				Replacement:     common.OptionalString(args, "replacement", ""),
				SheetID:         sheetID,
				MatchCase:       common.OptionalBool(args, "matchCase", false),
				MatchEntire:     common.OptionalBool(args, "matchEntireCell", false),
				UseRegex:        common.OptionalBool(args, "searchByRegex", false),
				IncludeFormulas: common.OptionalBool(args, "includeFormulas", false),
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "find and replace", err), nil
			}
			result, err := client.FindReplace(ctx, spreadsheetID, opts)
			if err != nil {
				return common.ErrorResult(account, "find and replace", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Replaced %d occurrence(s)", result.OccurrencesChanged), result), nil
		}))

	return nil
}

// withDimensionParams returns the options shared by the dimension tools.
func withDimensionParams(description string, extra ...mcp.ToolOption) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithNumber("sheetId",
			mcp.Required(),
			mcp.Description(sheetIDDescription),
		),
		mcp.WithString("dimension",
			mcp.Required(),
			mcp.Description("'ROWS' or 'COLUMNS'"),
			mcp.Enum(sheets.DimensionRows, sheets.DimensionColumns),
		),
		mcp.WithNumber("startIndex",
			mcp.Required(),
			mcp.Description("Zero-based start index (inclusive)"),
		),
		mcp.WithNumber("endIndex",
			mcp.Required(),
			mcp.Description("Zero-based end index (exclusive)"),
		),
	}
	return append(opts, extra...)
}

func dimensionArgs(args map[string]interface{}) (string, sheets.DimensionRange, error) {
	var rng sheets.DimensionRange

	spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
	if err != nil {
		return "", rng, err
	}
	if rng.SheetID, err = common.RequiredInt(args, "sheetId"); err != nil {
		return "", rng, err
	}
	dimension, err := common.RequiredString(args, "dimension")
	if err != nil {
		return "", rng, err
	}
	rng.Dimension = strings.ToUpper(dimension)
	if rng.StartIndex, err = common.RequiredInt(args, "startIndex"); err != nil {
		return "", rng, err
	}
	if rng.EndIndex, err = common.RequiredInt(args, "endIndex"); err != nil {
		return "", rng, err
	}
	if err := rng.Validate(); err != nil {
		return "", rng, err
	}
	return spreadsheetID, rng, nil
}
