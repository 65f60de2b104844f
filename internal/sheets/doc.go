// Package sheets wraps the Google Sheets v4 API for a single account.
//
// Ranges use A1 notation ("Sheet1!A1:C10"). Structural operations such as
// adding or deleting tabs address sheets by their numeric sheet ID, which
// GetSpreadsheet reports.
package sheets
