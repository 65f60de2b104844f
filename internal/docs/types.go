package docs

// DocumentMetadata is the Drive metadata of a document.
type DocumentMetadata struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MimeType       string `json:"mimeType"`
	CreatedTime    string `json:"createdTime"`
	ModifiedTime   string `json:"modifiedTime"`
	Size           int64  `json:"size,omitempty"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	Owners         []User `json:"owners,omitempty"`
	LastModifiedBy *User  `json:"lastModifiedBy,omitempty"`
}

// User is a Drive user.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// CreatedDocument identifies a new document.
type CreatedDocument struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

// WriteResult is returned by edit operations.
type WriteResult struct {
	DocumentID string `json:"documentId"`
	RevisionID string `json:"revisionId,omitempty"`
}

// ReplaceResult is returned by ReplaceText.
type ReplaceResult struct {
	WriteResult
	OccurrencesChanged int64 `json:"occurrencesChanged"`
}
