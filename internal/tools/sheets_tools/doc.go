// Package sheets_tools provides MCP tools for Google Sheets: reading and
// writing cell values in A1 notation, and managing the tabs, rows and
// columns of a spreadsheet.
//
// Values are passed as a 2D array (rows of cells), either as JSON arrays
// or as a string holding one. With valueInputOption USER_ENTERED (the
// default) values are parsed as if typed into the UI, so "=SUM(A1:A3)" is
// stored as a formula.
package sheets_tools
