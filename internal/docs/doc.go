// Package docs reads and edits Google Docs.
//
// Documents can be returned as Markdown, plain text or the raw API
// structure. Markdown conversion covers headings, bullet and numbered lists,
// bold, italic, strikethrough, links, monospace runs and tables. Tabbed
// documents render each tab under its own heading.
//
// Edit operations address the body by 1-based character index. Indexes can
// be read from the JSON form of a document (startIndex/endIndex on each
// structural element).
package docs
