package sheets

import "fmt"

// Value input options.
const (
	InputRaw         = "RAW"
	InputUserEntered = "USER_ENTERED"
)

// Dimensions for row and column operations.
const (
	DimensionRows    = "ROWS"
	DimensionColumns = "COLUMNS"
)

// Value render options.
const (
	RenderFormatted   = "FORMATTED_VALUE"
	RenderUnformatted = "UNFORMATTED_VALUE"
	RenderFormula     = "FORMULA"
)

// SpreadsheetInfo summarizes a spreadsheet and its tabs.
type SpreadsheetInfo struct {
	ID       string      `json:"spreadsheetId"`
	Title    string      `json:"title"`
	Locale   string      `json:"locale,omitempty"`
	TimeZone string      `json:"timeZone,omitempty"`
	URL      string      `json:"url,omitempty"`
	Sheets   []SheetInfo `json:"sheets"`
}

// SheetInfo describes one tab.
type SheetInfo struct {
	SheetID     int64  `json:"sheetId"`
	Title       string `json:"title"`
	Index       int64  `json:"index"`
	RowCount    int64  `json:"rowCount,omitempty"`
	ColumnCount int64  `json:"columnCount,omitempty"`
	Hidden      bool   `json:"hidden,omitempty"`
}

// ValueRange is a block of cell values.
type ValueRange struct {
	Range          string          `json:"range"`
	MajorDimension string          `json:"majorDimension,omitempty"`
	Values         [][]interface{} `json:"values"`
}

// UpdateResult reports what a write touched.
type UpdateResult struct {
	UpdatedRange   string `json:"updatedRange"`
	UpdatedRows    int64  `json:"updatedRows"`
	UpdatedColumns int64  `json:"updatedColumns"`
	UpdatedCells   int64  `json:"updatedCells"`
}

// BatchUpdateResult totals a multi-range write.
type BatchUpdateResult struct {
	TotalUpdatedCells  int64           `json:"totalUpdatedCells"`
	TotalUpdatedRows   int64           `json:"totalUpdatedRows"`
	TotalUpdatedSheets int64           `json:"totalUpdatedSheets"`
	Responses          []*UpdateResult `json:"responses,omitempty"`
}

// ReadOptions controls how values are returned.
type ReadOptions struct {
	// ValueRender defaults to FORMATTED_VALUE.
	ValueRender string

	// MajorDimension defaults to ROWS.
	MajorDimension string
}

// DimensionRange selects rows or columns of a sheet. Indexes are zero-based
// and EndIndex is exclusive.
type DimensionRange struct {
	SheetID    int64
	Dimension  string
	StartIndex int64
	EndIndex   int64
}

// Validate checks the dimension and bounds.
func (r DimensionRange) Validate() error {
	if r.Dimension != DimensionRows && r.Dimension != DimensionColumns {
		return fmt.Errorf("invalid dimension %q, must be ROWS or COLUMNS", r.Dimension)
	}
	if r.StartIndex < 0 {
		return fmt.Errorf("start index must not be negative")
	}
	if r.EndIndex <= r.StartIndex {
		return fmt.Errorf("end index (%d) must be greater than start index (%d)", r.EndIndex, r.StartIndex)
	}
	return nil
}

// FindReplaceOptions configures FindReplace. With no SheetID and AllSheets
// unset, every sheet is searched.
type FindReplaceOptions struct {
	Find        string
	Replacement string
	SheetID     *int64
	MatchCase   bool
	MatchEntire bool
	UseRegex    bool
	// IncludeFormulas also searches formula text.
	IncludeFormulas bool
}

// FindReplaceResult counts the changes FindReplace made.
type FindReplaceResult struct {
	OccurrencesChanged int64 `json:"occurrencesChanged"`
	ValuesChanged      int64 `json:"valuesChanged"`
	RowsChanged        int64 `json:"rowsChanged"`
	SheetsChanged      int64 `json:"sheetsChanged"`
	FormulasChanged    int64 `json:"formulasChanged"`
}

func validateInputOption(opt string) (string, error) {
	switch opt {
	case "":
		return InputUserEntered, nil
	case InputRaw, InputUserEntered:
		return opt, nil
	default:
		return "", fmt.Errorf("invalid value input option %q, must be RAW or USER_ENTERED", opt)
	}
}
