// Package docs_tools provides MCP tools for Google Docs.
//
// Read tools return a document as Markdown, plain text or raw JSON, and
// its Drive metadata. Write tools create documents and edit their body
// text, tables and page breaks. Body indexes are 1-based UTF-16 offsets
// as reported by the json format; tools that take an optional index
// append to the end of the body when it is omitted.
//
// Every tool accepts either a document ID or a full docs.google.com URL.
package docs_tools
