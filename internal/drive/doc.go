// Package drive wraps the Google Drive v3 API for a single account.
//
// Clients are constructed with an already authorized *http.Client:
//
//	httpClient := google.NewHTTPClientForAccount(ctx, provider, "jane@example.com", nil)
//	client, err := drive.NewClient(ctx, "jane@example.com", option.WithHTTPClient(httpClient))
//	files, next, err := client.ListFiles(ctx, &drive.ListOptions{
//	    Query:      "mimeType='application/pdf'",
//	    MaxResults: 10,
//	})
//
// Google Docs, Sheets, Slides and Drawings have no binary content of their
// own; DownloadFile exports them to a text or image format instead.
package drive
