package sheets_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/sheets"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/common"
)

const (
	spreadsheetIDDescription = "The spreadsheet ID (from the URL https://docs.google.com/spreadsheets/d/<id>/edit)"
	rangeDescription         = "A1 notation range, e.g. 'Sheet1!A1:C10' or 'Sheet1'"
	valuesDescription        = "2D array of cell values, rows first, e.g. [[\"Name\",\"Qty\"],[\"apples\",3]]"
	inputOptionDescription   = "How input is interpreted: 'USER_ENTERED' (default, parses formulas and numbers) or 'RAW'"
)

func registerValueTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	getSpreadsheetTool := mcp.NewTool("sheets_get_spreadsheet",
		mcp.WithDescription("Get a spreadsheet's title and the list of its sheets (tabs) with their IDs and sizes"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
	)
	s.AddTool(getSpreadsheetTool, common.InstrumentedToolHandlerWithService("sheets_get_spreadsheet", instrumentation.ServiceSheets, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "get spreadsheet", err), nil
			}
			info, err := client.GetSpreadsheet(ctx, spreadsheetID)
			if err != nil {
				return common.ErrorResult(account, "get spreadsheet", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Spreadsheet %q has %d sheet(s)", info.Title, len(info.Sheets)), info), nil
		}))

	readValuesTool := mcp.NewTool("sheets_read_values",
		mcp.WithDescription("Read cell values from a range of a spreadsheet"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description(rangeDescription),
		),
		mcp.WithString("valueRenderOption",
			mcp.Description("'FORMATTED_VALUE' (default), 'UNFORMATTED_VALUE' or 'FORMULA'"),
		),
		mcp.WithString("majorDimension",
			mcp.Description("'ROWS' (default) or 'COLUMNS'"),
		),
	)
	s.AddTool(readValuesTool, common.InstrumentedToolHandlerWithService("sheets_read_values", instrumentation.ServiceSheets, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			rng, err := common.RequiredString(args, "range")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "read values", err), nil
			}
			values, err := client.ReadValues(ctx, spreadsheetID, rng, readOptions(args))
			if err != nil {
				return common.ErrorResult(account, "read values", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Read %d row(s) from %s", len(values.Values), values.Range), values), nil
		}))

	batchReadTool := mcp.NewTool("sheets_batch_read_values",
		mcp.WithDescription("Read cell values from several ranges of a spreadsheet in one call"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("ranges",
			mcp.Required(),
			mcp.Description("Comma-separated or array of A1 ranges"),
		),
		mcp.WithString("valueRenderOption",
			mcp.Description("'FORMATTED_VALUE' (default), 'UNFORMATTED_VALUE' or 'FORMULA'"),
		),
		mcp.WithString("majorDimension",
			mcp.Description("'ROWS' (default) or 'COLUMNS'"),
		),
	)
	s.AddTool(batchReadTool, common.InstrumentedToolHandlerWithService("sheets_batch_read_values", instrumentation.ServiceSheets, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			ranges, err := common.StringList(args, "ranges")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			if len(ranges) == 0 {
				return common.InvalidArgument(fmt.Errorf("ranges is required")), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "read values", err), nil
			}
			values, err := client.BatchReadValues(ctx, spreadsheetID, ranges, readOptions(args))
			if err != nil {
				return common.ErrorResult(account, "read values", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Read %d range(s)", len(values)), values), nil
		}))

	if readOnly {
		return nil
	}

	createTool := mcp.NewTool("sheets_create_spreadsheet",
		mcp.WithDescription("Create a new spreadsheet"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title of the spreadsheet"),
		),
		mcp.WithString("sheetTitles",
			mcp.Description("Comma-separated or array of sheet (tab) names to create (default: one sheet named Sheet1)"),
		),
	)
	s.AddTool(createTool, common.InstrumentedToolHandlerWithService("sheets_create_spreadsheet", instrumentation.ServiceSheets, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			title, err := common.RequiredString(args, "title")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			sheetTitles, err := common.StringList(args, "sheetTitles")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "create spreadsheet", err), nil
			}
			info, err := client.CreateSpreadsheet(ctx, title, sheetTitles)
			if err != nil {
				return common.ErrorResult(account, "create spreadsheet", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Created spreadsheet %q (%s)", info.Title, info.ID), info), nil
		}))

	writeTool := mcp.NewTool("sheets_write_values",
		mcp.WithDescription("Overwrite the cells of a range with new values"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description(rangeDescription),
		),
		mcp.WithArray("values",
			mcp.Required(),
			mcp.Description(valuesDescription),
		),
		mcp.WithString("valueInputOption",
			mcp.Description(inputOptionDescription),
		),
	)
	s.AddTool(writeTool, common.InstrumentedToolHandlerWithService("sheets_write_values", instrumentation.ServiceSheets, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleWrite(ctx, sc, request.GetArguments(), false)
		}))

	appendTool := mcp.NewTool("sheets_append_values",
		mcp.WithDescription("Append rows after the last row of data in a range"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description("A1 range whose table is appended to, e.g. 'Sheet1!A:C'"),
		),
		mcp.WithArray("values",
			mcp.Required(),
			mcp.Description(valuesDescription),
		),
		mcp.WithString("valueInputOption",
			mcp.Description(inputOptionDescription),
		),
	)
	s.AddTool(appendTool, common.InstrumentedToolHandlerWithService("sheets_append_values", instrumentation.ServiceSheets, instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleWrite(ctx, sc, request.GetArguments(), true)
		}))

	clearTool := mcp.NewTool("sheets_clear_values",
		mcp.WithDescription("Clear the values of a range, keeping formatting"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithString("range",
			mcp.Required(),
			mcp.Description(rangeDescription),
		),
	)
	s.AddTool(clearTool, common.InstrumentedToolHandlerWithService("sheets_clear_values", instrumentation.ServiceSheets, instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			rng, err := common.RequiredString(args, "range")
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "clear values", err), nil
			}
			cleared, err := client.ClearValues(ctx, spreadsheetID, rng)
			if err != nil {
				return common.ErrorResult(account, "clear values", err), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Cleared %s", cleared)), nil
		}))

	batchWriteTool := mcp.NewTool("sheets_batch_write_values",
		mcp.WithDescription("Write values to several ranges of a spreadsheet in one call"),
		mcp.WithString("account",
			mcp.Description(common.AccountParamDescription),
		),
		mcp.WithString("spreadsheetId",
			mcp.Required(),
			mcp.Description(spreadsheetIDDescription),
		),
		mcp.WithArray("data",
			mcp.Required(),
			mcp.Description("Array of {\"range\": \"Sheet1!A1\", \"values\": [[...]]} objects"),
		),
		mcp.WithString("valueInputOption",
			mcp.Description(inputOptionDescription),
		),
	)
	s.AddTool(batchWriteTool, common.InstrumentedToolHandlerWithService("sheets_batch_write_values", instrumentation.ServiceSheets, instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			account := common.GetAccountFromArgs(ctx, sc, args)

			spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
			if err != nil {
				return common.InvalidArgument(err), nil
			}
			data, err := parseValueRanges(args["data"])
			if err != nil {
				return common.InvalidArgument(err), nil
			}

			client, err := sc.SheetsClientForAccount(account)
			if err != nil {
				return common.ErrorResult(account, "write values", err), nil
			}
			result, err := client.BatchWriteValues(ctx, spreadsheetID, data, common.OptionalString(args, "valueInputOption", ""))
			if err != nil {
				return common.ErrorResult(account, "write values", err), nil
			}
			return common.JSONResult(fmt.Sprintf("Updated %d cell(s) in %d range(s)", result.TotalUpdatedCells, len(data)), result), nil
		}))

	return nil
}

func readOptions(args map[string]interface{}) sheets.ReadOptions {
	return sheets.ReadOptions{
		ValueRender:    common.OptionalString(args, "valueRenderOption", ""),
		MajorDimension: common.OptionalString(args, "majorDimension", ""),
	}
}

func handleWrite(ctx context.Context, sc *server.ServerContext, args map[string]interface{}, appendRows bool) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(ctx, sc, args)
	action := "write values"
	if appendRows {
		action = "append values"
	}

	spreadsheetID, err := common.RequiredString(args, "spreadsheetId")
	if err != nil {
		return common.InvalidArgument(err), nil
	}
	rng, err := common.RequiredString(args, "range")
	if err != nil {
		return common.InvalidArgument(err), nil
	}
	values, err := common.Values2D(args, "values")
	if err != nil {
		return common.InvalidArgument(err), nil
	}
	inputOption := common.OptionalString(args, "valueInputOption", "")

	client, err := sc.SheetsClientForAccount(account)
	if err != nil {
		return common.ErrorResult(account, action, err), nil
	}

	var result *sheets.UpdateResult
	if appendRows {
		result, err = client.AppendValues(ctx, spreadsheetID, rng, values, inputOption)
	} else {
		result, err = client.WriteValues(ctx, spreadsheetID, rng, values, inputOption)
	}
	if err != nil {
		return common.ErrorResult(account, action, err), nil
	}
	return common.JSONResult(fmt.Sprintf("Updated %d cell(s) in %s", result.UpdatedCells, result.UpdatedRange), result), nil
}

// parseValueRanges accepts an array of {range, values} objects or a JSON
// string holding one.
func parseValueRanges(raw interface{}) ([]*sheets.ValueRange, error) {
	if raw == nil {
		return nil, fmt.Errorf("data is required")
	}
	if s, ok := raw.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("data must be an array of range objects: %w", err)
		}
		raw = decoded
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("data must be an array of range objects")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	ranges := make([]*sheets.ValueRange, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("data[%d] must be an object", i)
		}
		rng, err := common.RequiredString(obj, "range")
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		values, err := common.Values2D(obj, "values")
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		ranges = append(ranges, &sheets.ValueRange{Range: rng, Values: values})
	}
	return ranges, nil
}
