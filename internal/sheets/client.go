package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// Client wraps the Sheets API service for one account.
type Client struct {
	service *sheets.Service
	account string
}

// NewClient creates a Sheets client for account.
func NewClient(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}
	return &Client{service: svc, account: account}, nil
}

// Account returns the account this client acts as.
func (c *Client) Account() string {
	return c.account
}

// GetSpreadsheet returns spreadsheet properties and its tabs, without cell data.
func (c *Client) GetSpreadsheet(ctx context.Context, spreadsheetID string) (*SpreadsheetInfo, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}

	ss, err := c.service.Spreadsheets.Get(spreadsheetID).
		Context(ctx).
		Fields("spreadsheetId,spreadsheetUrl,properties(title,locale,timeZone),sheets(properties(sheetId,title,index,hidden,gridProperties(rowCount,columnCount)))").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", spreadsheetID, err)
	}
	return convertSpreadsheet(ss), nil
}

// ReadValues reads one range.
func (c *Client) ReadValues(ctx context.Context, spreadsheetID, rng string, opts ReadOptions) (*ValueRange, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}
	if rng == "" {
		return nil, fmt.Errorf("range is required")
	}

	call := c.service.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx)
	if opts.ValueRender != "" {
		call = call.ValueRenderOption(opts.ValueRender)
	}
	if opts.MajorDimension != "" {
		call = call.MajorDimension(opts.MajorDimension)
	}

	vr, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read range %s: %w", rng, err)
	}
	return convertValueRange(vr), nil
}

// BatchReadValues reads several ranges in one request.
func (c *Client) BatchReadValues(ctx context.Context, spreadsheetID string, ranges []string, opts ReadOptions) ([]*ValueRange, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("at least one range is required")
	}

	call := c.service.Spreadsheets.Values.BatchGet(spreadsheetID).Ranges(ranges...).Context(ctx)
	if opts.ValueRender != "" {
		call = call.ValueRenderOption(opts.ValueRender)
	}
	if opts.MajorDimension != "" {
		call = call.MajorDimension(opts.MajorDimension)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read ranges: %w", err)
	}

	out := make([]*ValueRange, len(resp.ValueRanges))
	for i, vr := range resp.ValueRanges {
		out[i] = convertValueRange(vr)
	}
	return out, nil
}

// CreateSpreadsheet creates a spreadsheet, optionally with named tabs.
func (c *Client) CreateSpreadsheet(ctx context.Context, title string, sheetTitles []string) (*SpreadsheetInfo, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	ss := &sheets.Spreadsheet{Properties: &sheets.SpreadsheetProperties{Title: title}}
	for _, t := range sheetTitles {
		ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: t}})
	}

	created, err := c.service.Spreadsheets.Create(ss).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	return convertSpreadsheet(created), nil
}

// WriteValues overwrites a range.
func (c *Client) WriteValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}, inputOption string) (*UpdateResult, error) {
	input, err := validateWrite(spreadsheetID, rng, values, inputOption)
	if err != nil {
		return nil, err
	}

	resp, err := c.service.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(input).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to write range %s: %w", rng, err)
	}
	return convertUpdate(resp), nil
}

// AppendValues appends rows after the table found in rng.
func (c *Client) AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]interface{}, inputOption string) (*UpdateResult, error) {
	input, err := validateWrite(spreadsheetID, rng, values, inputOption)
	if err != nil {
		return nil, err
	}

	resp, err := c.service.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption(input).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to append to range %s: %w", rng, err)
	}
	if resp.Updates == nil {
		return &UpdateResult{}, nil
	}
	return convertUpdate(resp.Updates), nil
}

// ClearValues clears values (not formatting) in a range and returns the
// range that was cleared.
func (c *Client) ClearValues(ctx context.Context, spreadsheetID, rng string) (string, error) {
	if spreadsheetID == "" {
		return "", fmt.Errorf("spreadsheetID is required")
	}
	if rng == "" {
		return "", fmt.Errorf("range is required")
	}

	resp, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to clear range %s: %w", rng, err)
	}
	return resp.ClearedRange, nil
}

// BatchWriteValues writes several ranges in one request.
func (c *Client) BatchWriteValues(ctx context.Context, spreadsheetID string, data []*ValueRange, inputOption string) (*BatchUpdateResult, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("at least one range is required")
	}
	input, err := validateInputOption(inputOption)
	if err != nil {
		return nil, err
	}

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: input}
	for i, d := range data {
		if d == nil || d.Range == "" {
			return nil, fmt.Errorf("range %d has no A1 range", i)
		}
		req.Data = append(req.Data, &sheets.ValueRange{Range: d.Range, Values: d.Values})
	}

	resp, err := c.service.Spreadsheets.Values.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to write ranges: %w", err)
	}

	result := &BatchUpdateResult{
		TotalUpdatedCells:  resp.TotalUpdatedCells,
		TotalUpdatedRows:   resp.TotalUpdatedRows,
		TotalUpdatedSheets: resp.TotalUpdatedSheets,
	}
	for _, r := range resp.Responses {
		result.Responses = append(result.Responses, convertUpdate(r))
	}
	return result, nil
}

func validateWrite(spreadsheetID, rng string, values [][]interface{}, inputOption string) (string, error) {
	if spreadsheetID == "" {
		return "", fmt.Errorf("spreadsheetID is required")
	}
	if rng == "" {
		return "", fmt.Errorf("range is required")
	}
	if len(values) == 0 {
		return "", fmt.Errorf("values must contain at least one row")
	}
	return validateInputOption(inputOption)
}

func convertSpreadsheet(ss *sheets.Spreadsheet) *SpreadsheetInfo {
	info := &SpreadsheetInfo{
		ID:  ss.SpreadsheetId,
		URL: ss.SpreadsheetUrl,
	}
	if p := ss.Properties; p != nil {
		info.Title = p.Title
		info.Locale = p.Locale
		info.TimeZone = p.TimeZone
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			info.Sheets = append(info.Sheets, convertSheetProperties(sh.Properties))
		}
	}
	return info
}

func convertSheetProperties(p *sheets.SheetProperties) SheetInfo {
	s := SheetInfo{
		SheetID: p.SheetId,
		Title:   p.Title,
		Index:   p.Index,
		Hidden:  p.Hidden,
	}
	if g := p.GridProperties; g != nil {
		s.RowCount = g.RowCount
		s.ColumnCount = g.ColumnCount
	}
	return s
}

func convertValueRange(vr *sheets.ValueRange) *ValueRange {
	values := vr.Values
	if values == nil {
		values = [][]interface{}{}
	}
	return &ValueRange{
		Range:          vr.Range,
		MajorDimension: vr.MajorDimension,
		Values:         values,
	}
}

func convertUpdate(r *sheets.UpdateValuesResponse) *UpdateResult {
	return &UpdateResult{
		UpdatedRange:   r.UpdatedRange,
		UpdatedRows:    r.UpdatedRows,
		UpdatedColumns: r.UpdatedColumns,
		UpdatedCells:   r.UpdatedCells,
	}
}
