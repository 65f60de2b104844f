package drive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"

	// DefaultMaxDownloadBytes caps how much of a file is read into memory.
	DefaultMaxDownloadBytes = 10 << 20

	fileFields       = "id, name, mimeType, size, createdTime, modifiedTime, webViewLink, webContentLink, parents, owners, shared, trashed, trashedTime, description, starred"
	permissionFields = "id, type, role, emailAddress, domain, displayName"
)

// exportFormats maps Google-native types to the format they are exported as
// when downloaded.
var exportFormats = map[string]string{
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.presentation": "text/plain",
	"application/vnd.google-apps.drawing":      "image/png",
	"application/vnd.google-apps.script":       "application/vnd.google-apps.script+json",
}

// Client wraps the Drive API service for one account.
type Client struct {
	service *drive.Service
	account string
}

// NewClient creates a Drive client for account. Callers pass
// option.WithHTTPClient with an authorized client.
func NewClient(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{service: svc, account: account}, nil
}

// Account returns the account this client acts as.
func (c *Client) Account() string {
	return c.account
}

// ListFiles lists files matching options. Trashed files are excluded unless
// IncludeTrashed is set. It returns the next page token, if any.
func (c *Client) ListFiles(ctx context.Context, options *ListOptions) ([]*FileInfo, string, error) {
	if options == nil {
		options = &ListOptions{}
	}

	call := c.service.Files.List().
		Context(ctx).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")"))

	if q := buildQuery(options.Query, options.FolderID, options.IncludeTrashed); q != "" {
		call = call.Q(q)
	}
	if options.MaxResults > 0 {
		call = call.PageSize(int64(options.MaxResults))
	}
	if options.OrderBy != "" {
		call = call.OrderBy(options.OrderBy)
	}
	if options.PageToken != "" {
		call = call.PageToken(options.PageToken)
	}
	if options.Spaces != "" {
		call = call.Spaces(options.Spaces)
	}

	list, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]*FileInfo, len(list.Files))
	for i, f := range list.Files {
		files[i] = convertToFileInfo(f)
	}
	return files, list.NextPageToken, nil
}

// SearchFiles runs a full-text search over file names and content.
func (c *Client) SearchFiles(ctx context.Context, text string, options *ListOptions) ([]*FileInfo, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", fmt.Errorf("search text is required")
	}

	opts := ListOptions{}
	if options != nil {
		opts = *options
	}
	q := fmt.Sprintf("fullText contains '%s'", EscapeQueryValue(text))
	if opts.Query != "" {
		q = "(" + opts.Query + ") and " + q
	}
	opts.Query = q
	return c.ListFiles(ctx, &opts)
}

func buildQuery(query, folderID string, includeTrashed bool) string {
	var parts []string
	if query != "" {
		parts = append(parts, "("+query+")")
	}
	if folderID != "" {
		parts = append(parts, fmt.Sprintf("'%s' in parents", EscapeQueryValue(folderID)))
	}
	if !includeTrashed {
		parts = append(parts, "trashed=false")
	}
	return strings.Join(parts, " and ")
}

// EscapeQueryValue escapes a string for use inside a quoted Drive query literal.
func EscapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// GetFile retrieves file metadata including permissions.
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	f, err := c.service.Files.Get(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields + ", permissions(" + permissionFields + ")")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}
	return convertToFileInfo(f), nil
}

// DownloadFile reads up to maxBytes of a file. Google-native documents are
// exported, using exportMimeType when set or a default text format otherwise.
func (c *Client) DownloadFile(ctx context.Context, fileID, exportMimeType string, maxBytes int64) (*Download, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}

	meta, err := c.service.Files.Get(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Fields("id, name, mimeType, size").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}

	dl := &Download{
		FileID:   meta.Id,
		Name:     meta.Name,
		MimeType: meta.MimeType,
	}

	var body io.ReadCloser
	switch {
	case meta.MimeType == FolderMimeType:
		return nil, fmt.Errorf("%s is a folder and cannot be downloaded", fileID)
	case strings.HasPrefix(meta.MimeType, "application/vnd.google-apps."):
		target := exportMimeType
		if target == "" {
			target = exportFormats[meta.MimeType]
		}
		if target == "" {
			return nil, fmt.Errorf("file type %s cannot be exported", meta.MimeType)
		}
		resp, err := c.service.Files.Export(fileID, target).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("failed to export file %s: %w", fileID, err)
		}
		body = resp.Body
		dl.MimeType = target
		dl.Exported = true
	default:
		resp, err := c.service.Files.Get(fileID).Context(ctx).SupportsAllDrives(true).Download()
		if err != nil {
			return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
		}
		body = resp.Body
	}
	defer body.Close()

	content, err := io.ReadAll(io.LimitReader(body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	if int64(len(content)) > maxBytes {
		content = content[:maxBytes]
		dl.Truncated = true
	}
	dl.Content = content
	return dl, nil
}

// UploadFile creates a file with the given content.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader, options *UploadOptions) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if content == nil {
		return nil, fmt.Errorf("file content is required")
	}

	file := &drive.File{Name: name}
	if options != nil {
		file.Parents = options.ParentFolders
		file.Description = options.Description
		file.MimeType = options.MimeType
		if options.ModifiedTime != nil {
			file.ModifiedTime = options.ModifiedTime.Format(time.RFC3339)
		}
	}

	media := []googleapi.MediaOption{}
	if file.MimeType != "" {
		media = append(media, googleapi.ContentType(file.MimeType))
	}

	f, err := c.service.Files.Create(file).
		Context(ctx).
		SupportsAllDrives(true).
		Media(content, media...).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	return convertToFileInfo(f), nil
}

// CreateFolder creates a folder, optionally inside parentFolders.
func (c *Client) CreateFolder(ctx context.Context, name string, parentFolders []string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	f, err := c.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  parentFolders,
	}).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return convertToFileInfo(f), nil
}

// CopyFile copies a file. An empty name lets Drive pick "Copy of ...".
func (c *Client) CopyFile(ctx context.Context, fileID, name string, parentFolders []string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	f, err := c.service.Files.Copy(fileID, &drive.File{Name: name, Parents: parentFolders}).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to copy file %s: %w", fileID, err)
	}
	return convertToFileInfo(f), nil
}

// RenameFile changes a file's name.
func (c *Client) RenameFile(ctx context.Context, fileID, newName string) (*FileInfo, error) {
	if newName == "" {
		return nil, fmt.Errorf("new name is required")
	}
	return c.MoveFile(ctx, fileID, &MoveOptions{NewName: newName})
}

// MoveFile renames a file and/or changes its parent folders.
func (c *Client) MoveFile(ctx context.Context, fileID string, options *MoveOptions) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}
	if options == nil || (options.NewName == "" && len(options.AddParents) == 0 && len(options.RemoveParents) == 0) {
		return nil, fmt.Errorf("nothing to change: set a new name or parent folders")
	}

	update := &drive.File{Name: options.NewName}
	call := c.service.Files.Update(fileID, update).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields))

	if len(options.AddParents) > 0 {
		call = call.AddParents(strings.Join(options.AddParents, ","))
	}
	if len(options.RemoveParents) > 0 {
		call = call.RemoveParents(strings.Join(options.RemoveParents, ","))
	}

	f, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update file %s: %w", fileID, err)
	}
	return convertToFileInfo(f), nil
}

// TrashFile moves a file to the trash.
func (c *Client) TrashFile(ctx context.Context, fileID string) (*FileInfo, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	f, err := c.service.Files.Update(fileID, &drive.File{Trashed: true}).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(googleapi.Field(fileFields)).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to trash file %s: %w", fileID, err)
	}
	return convertToFileInfo(f), nil
}

// DeleteFile permanently deletes a file, skipping the trash.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("fileID is required")
	}

	if err := c.service.Files.Delete(fileID).Context(ctx).SupportsAllDrives(true).Do(); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}
	return nil
}

// ShareFile grants a permission on a file.
func (c *Client) ShareFile(ctx context.Context, fileID string, options *ShareOptions) (*Permission, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	perm := &drive.Permission{
		Type:         options.Type,
		Role:         options.Role,
		EmailAddress: options.EmailAddress,
		Domain:       options.Domain,
	}

	call := c.service.Permissions.Create(fileID, perm).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(permissionFields).
		SendNotificationEmail(options.SendNotificationEmail)
	if options.SendNotificationEmail && options.EmailMessage != "" {
		call = call.EmailMessage(options.EmailMessage)
	}

	p, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to share file %s: %w", fileID, err)
	}
	return convertToPermission(p), nil
}

// RemovePermission revokes a permission on a file.
func (c *Client) RemovePermission(ctx context.Context, fileID, permissionID string) error {
	if fileID == "" {
		return fmt.Errorf("fileID is required")
	}
	if permissionID == "" {
		return fmt.Errorf("permissionID is required")
	}

	if err := c.service.Permissions.Delete(fileID, permissionID).Context(ctx).SupportsAllDrives(true).Do(); err != nil {
		return fmt.Errorf("failed to remove permission %s from %s: %w", permissionID, fileID, err)
	}
	return nil
}

// ListPermissions lists the permissions on a file.
func (c *Client) ListPermissions(ctx context.Context, fileID string) ([]*Permission, error) {
	if fileID == "" {
		return nil, fmt.Errorf("fileID is required")
	}

	list, err := c.service.Permissions.List(fileID).
		Context(ctx).
		SupportsAllDrives(true).
		Fields(googleapi.Field("permissions(" + permissionFields + ")")).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions for %s: %w", fileID, err)
	}

	perms := make([]*Permission, len(list.Permissions))
	for i, p := range list.Permissions {
		perms[i] = convertToPermission(p)
	}
	return perms, nil
}

// GetAbout returns the signed-in user and their storage quota.
func (c *Client) GetAbout(ctx context.Context) (*About, error) {
	a, err := c.service.About.Get().
		Context(ctx).
		Fields("user(displayName, emailAddress, photoLink), storageQuota(limit, usage, usageInDrive, usageInDriveTrash)").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get Drive account info: %w", err)
	}

	about := &About{}
	if a.User != nil {
		about.User = User{
			DisplayName:  a.User.DisplayName,
			EmailAddress: a.User.EmailAddress,
			PhotoLink:    a.User.PhotoLink,
		}
	}
	if q := a.StorageQuota; q != nil {
		about.StorageQuota = StorageQuota{
			Limit:             q.Limit,
			Usage:             q.Usage,
			UsageInDrive:      q.UsageInDrive,
			UsageInDriveTrash: q.UsageInDriveTrash,
		}
	}
	return about, nil
}

func convertToFileInfo(f *drive.File) *FileInfo {
	info := &FileInfo{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Description:    f.Description,
		Size:           f.Size,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		Parents:        f.Parents,
		Shared:         f.Shared,
		Starred:        f.Starred,
		Trashed:        f.Trashed,
		CreatedTime:    parseTime(f.CreatedTime),
		ModifiedTime:   parseTime(f.ModifiedTime),
	}
	if t := parseTime(f.TrashedTime); !t.IsZero() {
		info.TrashedTime = &t
	}

	for _, owner := range f.Owners {
		info.Owners = append(info.Owners, User{
			DisplayName:  owner.DisplayName,
			EmailAddress: owner.EmailAddress,
			PhotoLink:    owner.PhotoLink,
		})
	}
	for _, perm := range f.Permissions {
		info.Permissions = append(info.Permissions, *convertToPermission(perm))
	}
	return info
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func convertToPermission(p *drive.Permission) *Permission {
	return &Permission{
		ID:           p.Id,
		Type:         p.Type,
		Role:         p.Role,
		EmailAddress: p.EmailAddress,
		Domain:       p.Domain,
		DisplayName:  p.DisplayName,
	}
}
