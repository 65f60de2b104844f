package docs

import (
	"context"
	"fmt"

	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Output formats for GetDocumentAs.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatJSON     = "json"
)

// Client wraps the Docs API, plus the Drive API for file metadata.
type Client struct {
	docsService  *docs.Service
	driveService *drive.Service
	account      string
}

// NewClient creates a Docs client for account. The same options configure
// both the Docs and the Drive service.
func NewClient(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	docsService, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docs service: %w", err)
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{docsService: docsService, driveService: driveService, account: account}, nil
}

// Account returns the account this client acts as.
func (c *Client) Account() string {
	return c.account
}

// GetDocument fetches a document with the content of every tab.
func (c *Client) GetDocument(ctx context.Context, documentID string) (*docs.Document, error) {
	if documentID == "" {
		return nil, fmt.Errorf("documentID is required")
	}

	doc, err := c.docsService.Documents.Get(documentID).IncludeTabsContent(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", documentID, err)
	}
	return doc, nil
}

// GetDocumentAs fetches a document rendered as markdown or text. The json
// format returns the raw API document and is handled by the caller.
func (c *Client) GetDocumentAs(ctx context.Context, documentID, format string) (string, *docs.Document, error) {
	doc, err := c.GetDocument(ctx, documentID)
	if err != nil {
		return "", nil, err
	}

	switch format {
	case "", FormatMarkdown:
		s, err := DocumentToMarkdown(doc)
		return s, doc, err
	case FormatText:
		s, err := DocumentToPlainText(doc)
		return s, doc, err
	case FormatJSON:
		return "", doc, nil
	default:
		return "", nil, fmt.Errorf("invalid format %q, must be markdown, text or json", format)
	}
}

// GetDocumentMetadata reads a document's Drive metadata.
func (c *Client) GetDocumentMetadata(ctx context.Context, fileID string) (*DocumentMetadata, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	file, err := c.driveService.Files.Get(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Fields("id, name, mimeType, createdTime, modifiedTime, size, owners, webViewLink, lastModifyingUser").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file metadata %s: %w", fileID, err)
	}

	meta := &DocumentMetadata{
		ID:           file.Id,
		Name:         file.Name,
		MimeType:     file.MimeType,
		CreatedTime:  file.CreatedTime,
		ModifiedTime: file.ModifiedTime,
		Size:         file.Size,
		WebViewLink:  file.WebViewLink,
	}
	for _, owner := range file.Owners {
		meta.Owners = append(meta.Owners, User{DisplayName: owner.DisplayName, EmailAddress: owner.EmailAddress})
	}
	if u := file.LastModifyingUser; u != nil {
		meta.LastModifiedBy = &User{DisplayName: u.DisplayName, EmailAddress: u.EmailAddress}
	}
	return meta, nil
}

// CreateDocument creates a document and optionally fills it with text.
func (c *Client) CreateDocument(ctx context.Context, title, initialText string) (*CreatedDocument, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	doc, err := c.docsService.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	created := &CreatedDocument{
		DocumentID: doc.DocumentId,
		Title:      doc.Title,
		URL:        DocumentURL(doc.DocumentId),
	}
	if initialText != "" {
		if _, err := c.AppendText(ctx, doc.DocumentId, initialText); err != nil {
			return created, fmt.Errorf("document %s was created but writing its text failed: %w", doc.DocumentId, err)
		}
	}
	return created, nil
}

// DocumentURL returns the editor URL for a document ID.
func DocumentURL(documentID string) string {
	return "https://docs.google.com/document/d/" + documentID + "/edit"
}

func (c *Client) batchUpdate(ctx context.Context, documentID string, requests ...*docs.Request) (*docs.BatchUpdateDocumentResponse, error) {
	if documentID == "" {
		return nil, fmt.Errorf("documentID is required")
	}
	return c.docsService.Documents.BatchUpdate(documentID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
}

func writeResult(documentID string, resp *docs.BatchUpdateDocumentResponse) *WriteResult {
	res := &WriteResult{DocumentID: documentID}
	if resp.WriteControl != nil {
		res.RevisionID = resp.WriteControl.RequiredRevisionId
	}
	return res
}

// location returns an explicit index, or the end of the body when index is nil.
func location(index *int64) (*docs.Location, *docs.EndOfSegmentLocation, error) {
	if index == nil {
		return nil, &docs.EndOfSegmentLocation{}, nil
	}
	if *index < 1 {
		return nil, nil, fmt.Errorf("index must be at least 1, got %d", *index)
	}
	return &docs.Location{Index: *index}, nil, nil
}

// AppendText inserts text at the end of the document body.
func (c *Client) AppendText(ctx context.Context, documentID, text string) (*WriteResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}

	resp, err := c.batchUpdate(ctx, documentID, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Text:                 text,
			EndOfSegmentLocation: &docs.EndOfSegmentLocation{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append text to %s: %w", documentID, err)
	}
	return writeResult(documentID, resp), nil
}

// InsertText inserts text at a 1-based index in the body.
func (c *Client) InsertText(ctx context.Context, documentID string, index int64, text string) (*WriteResult, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	loc, _, err := location(&index)
	if err != nil {
		return nil, err
	}

	resp, err := c.batchUpdate(ctx, documentID, &docs.Request{
		InsertText: &docs.InsertTextRequest{Text: text, Location: loc},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert text into %s: %w", documentID, err)
	}
	return writeResult(documentID, resp), nil
}

// ReplaceText replaces every occurrence of find. The result carries the
// number of occurrences changed.
func (c *Client) ReplaceText(ctx context.Context, documentID, find, replacement string, matchCase bool) (*ReplaceResult, error) {
	if find == "" {
		return nil, fmt.Errorf("find text is required")
	}

	resp, err := c.batchUpdate(ctx, documentID, &docs.Request{
		ReplaceAllText: &docs.ReplaceAllTextRequest{
			ContainsText:    &docs.SubstringMatchCriteria{Text: find, MatchCase: matchCase},
			ReplaceText:     replacement,
			ForceSendFields: []string{"ReplaceText"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace text in %s: %w", documentID, err)
	}

	res := &ReplaceResult{WriteResult: *writeResult(documentID, resp)}
	if len(resp.Replies) > 0 && resp.Replies[0].ReplaceAllText != nil {
		res.OccurrencesChanged = resp.Replies[0].ReplaceAllText.OccurrencesChanged
	}
	return res, nil
}

// DeleteRange deletes the content between startIndex (inclusive) and
// endIndex (exclusive).
func (c *Client) DeleteRange(ctx context.Context, documentID string, startIndex, endIndex int64) (*WriteResult, error) {
	if startIndex < 1 {
		return nil, fmt.Errorf("start index must be at least 1, got %d", startIndex)
	}
	if endIndex <= startIndex {
		return nil, fmt.Errorf("end index (%d) must be greater than start index (%d)", endIndex, startIndex)
	}

	resp, err := c.batchUpdate(ctx, documentID, &docs.Request{
		DeleteContentRange: &docs.DeleteContentRangeRequest{
			Range: &docs.Range{StartIndex: startIndex, EndIndex: endIndex},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete range in %s: %w", documentID, err)
	}
	return writeResult(documentID, resp), nil
}

// InsertTable inserts an empty table at index, or at the end when index is nil.
func (c *Client) InsertTable(ctx context.Context, documentID string, rows, columns int64, index *int64) (*WriteResult, error) {
	if rows < 1 || columns < 1 {
		return nil, fmt.Errorf("a table needs at least one row and one column")
	}
	loc, end, err := location(index)
	if err != nil {
		return nil, err
	}

	resp, err := c.batchUpdate(ctx, documentID, &docs.Request{
		InsertTable: &docs.InsertTableRequest{
			Rows:                 rows,
			Columns:              columns,
			Location:             loc,
			EndOfSegmentLocation: end,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert table into %s: %w", documentID, err)
	}
	return writeResult(documentID, resp), nil
}

// InsertPageBreak inserts a page break at index, or at the end when index is nil.
func (c *Client) InsertPageBreak(ctx context.Context, documentID string, index *int64) (*WriteResult, error) {
	loc, end, err := location(index)
	if err != nil {
		return nil, err
	}

	resp, err := c.batchUpdate(ctx, documentID, &docs.Request{
		InsertPageBreak: &docs.InsertPageBreakRequest{
			Location:             loc,
			EndOfSegmentLocation: end,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert page break into %s: %w", documentID, err)
	}
	return writeResult(documentID, resp), nil
}
