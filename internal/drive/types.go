package drive

import (
	"fmt"
	"time"
)

// FileInfo is the metadata returned for a file or folder.
type FileInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	Description string `json:"description,omitempty"`

	// Size is in bytes and is zero for folders and Google-native documents.
	Size int64 `json:"size,omitempty"`

	CreatedTime  time.Time `json:"createdTime"`
	ModifiedTime time.Time `json:"modifiedTime"`

	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`

	Parents     []string     `json:"parents,omitempty"`
	Owners      []User       `json:"owners,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`

	Shared      bool       `json:"shared"`
	Starred     bool       `json:"starred,omitempty"`
	Trashed     bool       `json:"trashed"`
	TrashedTime *time.Time `json:"trashedTime,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (f *FileInfo) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// User is a Drive user such as an owner.
type User struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	PhotoLink    string `json:"photoLink,omitempty"`
}

// Permission is an access grant on a file.
type Permission struct {
	ID string `json:"id"`

	// Type is user, group, domain or anyone.
	Type string `json:"type"`

	// Role is owner, organizer, fileOrganizer, writer, commenter or reader.
	Role string `json:"role"`

	EmailAddress string `json:"emailAddress,omitempty"`
	Domain       string `json:"domain,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
}

// ListOptions filters ListFiles.
type ListOptions struct {
	// Query uses the Drive search syntax, e.g. "mimeType='application/pdf'".
	// See https://developers.google.com/drive/api/guides/search-files
	Query string

	// FolderID restricts results to direct children of a folder.
	FolderID string

	// MaxResults is the page size (Drive caps it at 1000).
	MaxResults int

	// OrderBy is a sort spec such as "folder,modifiedTime desc,name".
	OrderBy string

	PageToken      string
	IncludeTrashed bool

	// Spaces is a comma-separated list of drive, appDataFolder.
	Spaces string
}

// UploadOptions sets metadata on an uploaded file.
type UploadOptions struct {
	ParentFolders []string
	Description   string

	// MimeType is detected by Drive when empty.
	MimeType string

	ModifiedTime *time.Time
}

// MoveOptions renames a file or changes its parents.
type MoveOptions struct {
	NewName       string
	AddParents    []string
	RemoveParents []string
}

// ShareOptions describes a new permission.
type ShareOptions struct {
	Type         string
	Role         string
	EmailAddress string
	Domain       string

	SendNotificationEmail bool
	EmailMessage          string
}

var (
	validPermissionTypes = map[string]bool{"user": true, "group": true, "domain": true, "anyone": true}
	validPermissionRoles = map[string]bool{
		"owner": true, "organizer": true, "fileOrganizer": true,
		"writer": true, "commenter": true, "reader": true,
	}
)

// Validate checks that the grantee fields match the permission type.
func (o *ShareOptions) Validate() error {
	if o == nil {
		return fmt.Errorf("share options are required")
	}
	if !validPermissionTypes[o.Type] {
		return fmt.Errorf("invalid permission type %q, must be one of: user, group, domain, anyone", o.Type)
	}
	if !validPermissionRoles[o.Role] {
		return fmt.Errorf("invalid permission role %q", o.Role)
	}
	switch o.Type {
	case "user", "group":
		if o.EmailAddress == "" {
			return fmt.Errorf("email address is required for %s permissions", o.Type)
		}
	case "domain":
		if o.Domain == "" {
			return fmt.Errorf("domain is required for domain permissions")
		}
	}
	return nil
}

// Download is file content read by DownloadFile.
type Download struct {
	FileID string `json:"fileId"`
	Name   string `json:"name"`

	// MimeType is the type of Content, which is the export format for
	// Google-native documents.
	MimeType  string `json:"mimeType"`
	Exported  bool   `json:"exported,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Content   []byte `json:"-"`
}

// About describes the Drive account.
type About struct {
	User         User         `json:"user"`
	StorageQuota StorageQuota `json:"storageQuota"`
}

// StorageQuota is in bytes. A zero Limit means unlimited.
type StorageQuota struct {
	Limit             int64 `json:"limit"`
	Usage             int64 `json:"usage"`
	UsageInDrive      int64 `json:"usageInDrive"`
	UsageInDriveTrash int64 `json:"usageInDriveTrash"`
}
