package sheets

import (
	"context"
	"fmt"

	sheets "google.golang.org/api/sheets/v4"
)

// batchUpdate sends structural requests and returns the replies.
func (c *Client) batchUpdate(ctx context.Context, spreadsheetID string, requests ...*sheets.Request) ([]*sheets.Response, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheetID is required")
	}

	resp, err := c.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Replies, nil
}

// AddSheet adds a tab. Zero rows or columns use the Sheets defaults.
func (c *Client) AddSheet(ctx context.Context, spreadsheetID, title string, rows, columns int64) (*SheetInfo, error) {
	if title == "" {
		return nil, fmt.Errorf("sheet title is required")
	}

	props := &sheets.SheetProperties{Title: title}
	if rows > 0 || columns > 0 {
		props.GridProperties = &sheets.GridProperties{RowCount: rows, ColumnCount: columns}
	}

	replies, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		AddSheet: &sheets.AddSheetRequest{Properties: props},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add sheet %q: %w", title, err)
	}
	if len(replies) == 0 || replies[0].AddSheet == nil || replies[0].AddSheet.Properties == nil {
		return nil, fmt.Errorf("add sheet reply is empty")
	}
	info := convertSheetProperties(replies[0].AddSheet.Properties)
	return &info, nil
}

// DeleteSheet removes a tab.
func (c *Client) DeleteSheet(ctx context.Context, spreadsheetID string, sheetID int64) error {
	_, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		DeleteSheet: &sheets.DeleteSheetRequest{SheetId: sheetID, ForceSendFields: []string{"SheetId"}},
	})
	if err != nil {
		return fmt.Errorf("failed to delete sheet %d: %w", sheetID, err)
	}
	return nil
}

// RenameSheet changes a tab's title.
func (c *Client) RenameSheet(ctx context.Context, spreadsheetID string, sheetID int64, title string) error {
	if title == "" {
		return fmt.Errorf("sheet title is required")
	}

	_, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:         sheetID,
				Title:           title,
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "title",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to rename sheet %d: %w", sheetID, err)
	}
	return nil
}

// DuplicateSheet copies a tab within the same spreadsheet. An empty
// newTitle lets Sheets choose one.
func (c *Client) DuplicateSheet(ctx context.Context, spreadsheetID string, sheetID int64, newTitle string) (*SheetInfo, error) {
	replies, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		DuplicateSheet: &sheets.DuplicateSheetRequest{
			SourceSheetId:   sheetID,
			NewSheetName:    newTitle,
			ForceSendFields: []string{"SourceSheetId"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to duplicate sheet %d: %w", sheetID, err)
	}
	if len(replies) == 0 || replies[0].DuplicateSheet == nil || replies[0].DuplicateSheet.Properties == nil {
		return nil, fmt.Errorf("duplicate sheet reply is empty")
	}
	info := convertSheetProperties(replies[0].DuplicateSheet.Properties)
	return &info, nil
}

func (r DimensionRange) toAPI() *sheets.DimensionRange {
	return &sheets.DimensionRange{
		SheetId:         r.SheetID,
		Dimension:       r.Dimension,
		StartIndex:      r.StartIndex,
		EndIndex:        r.EndIndex,
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
}

// InsertDimension inserts empty rows or columns. inheritFromBefore copies
// formatting from the row or column before the insertion point.
func (c *Client) InsertDimension(ctx context.Context, spreadsheetID string, rng DimensionRange, inheritFromBefore bool) error {
	if err := rng.Validate(); err != nil {
		return err
	}
	if inheritFromBefore && rng.StartIndex == 0 {
		return fmt.Errorf("cannot inherit formatting when inserting at index 0")
	}

	_, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		InsertDimension: &sheets.InsertDimensionRequest{
			Range:             rng.toAPI(),
			InheritFromBefore: inheritFromBefore,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", rng.Dimension, err)
	}
	return nil
}

// DeleteDimension deletes rows or columns.
func (c *Client) DeleteDimension(ctx context.Context, spreadsheetID string, rng DimensionRange) error {
	if err := rng.Validate(); err != nil {
		return err
	}

	_, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{Range: rng.toAPI()},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", rng.Dimension, err)
	}
	return nil
}

// FindReplace replaces text across one sheet or all sheets.
func (c *Client) FindReplace(ctx context.Context, spreadsheetID string, opts FindReplaceOptions) (*FindReplaceResult, error) {
	if opts.Find == "" {
		return nil, fmt.Errorf("find text is required")
	}

	req := &sheets.FindReplaceRequest{
		Find:            opts.Find,
		Replacement:     opts.Replacement,
		MatchCase:       opts.MatchCase,
		MatchEntireCell: opts.MatchEntire,
		SearchByRegex:   opts.UseRegex,
		IncludeFormulas: opts.IncludeFormulas,
		ForceSendFields: []string{"Replacement"},
	}
	if opts.SheetID != nil {
		req.SheetId = *opts.SheetID
		req.ForceSendFields = append(req.ForceSendFields, "SheetId")
	} else {
		req.AllSheets = true
	}

	replies, err := c.batchUpdate(ctx, spreadsheetID, &sheets.Request{FindReplace: req})
	if err != nil {
		return nil, fmt.Errorf("failed to find and replace: %w", err)
	}
	if len(replies) == 0 || replies[0].FindReplace == nil {
		return &FindReplaceResult{}, nil
	}
	r := replies[0].FindReplace
	return &FindReplaceResult{
		OccurrencesChanged: r.OccurrencesChanged,
		ValuesChanged:      r.ValuesChanged,
		RowsChanged:        r.RowsChanged,
		SheetsChanged:      r.SheetsChanged,
		FormulasChanged:    r.FormulasChanged,
	}, nil
}
