package drive

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// fakeDrive serves the subset of the Drive REST API the client uses.
type fakeDrive struct {
	mu       sync.Mutex
	lastQ    string
	lastBody map[string]interface{}
	lastURL  string
	files    map[string]*drive.File
	content  map[string]string
}

func newFakeServer(t *testing.T) (*fakeDrive, *Client) {
	t.Helper()
	f := &fakeDrive{
		files: map[string]*drive.File{
			"pdf1":  {Id: "pdf1", Name: "report.pdf", MimeType: "application/pdf", Size: 11},
			"doc1":  {Id: "doc1", Name: "Notes", MimeType: "application/vnd.google-apps.document"},
			"dir1":  {Id: "dir1", Name: "Folder", MimeType: FolderMimeType},
			"form1": {Id: "form1", Name: "Survey", MimeType: "application/vnd.google-apps.form"},
		},
		content: map[string]string{
			"pdf1": "hello world",
			"doc1": "exported text",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, &drive.FileList{
			Files:         []*drive.File{f.files["pdf1"], f.files["doc1"]},
			NextPageToken: "next",
		})
	})
	mux.HandleFunc("GET /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		id := r.PathValue("id")
		file, ok := f.files[id]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"File not found"}}`, http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("alt") == "media" {
			_, _ = io.WriteString(w, f.content[id])
			return
		}
		writeJSON(w, file)
	})
	mux.HandleFunc("GET /files/{id}/export", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_, _ = io.WriteString(w, f.content[r.PathValue("id")])
	})
	mux.HandleFunc("PATCH /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.recordBody(r)
		file := *f.files[r.PathValue("id")]
		if name, ok := f.lastBody["name"].(string); ok {
			file.Name = name
		}
		if trashed, ok := f.lastBody["trashed"].(bool); ok {
			file.Trashed = trashed
		}
		writeJSON(w, &file)
	})
	mux.HandleFunc("DELETE /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		f.recordBody(r)
		name, _ := f.lastBody["name"].(string)
		mime, _ := f.lastBody["mimeType"].(string)
		writeJSON(w, &drive.File{Id: "new1", Name: name, MimeType: mime})
	})
	mux.HandleFunc("POST /upload/drive/v3/files", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "upload body") {
			http.Error(w, "missing media", http.StatusBadRequest)
			return
		}
		writeJSON(w, &drive.File{Id: "up1", Name: "upload.txt", MimeType: "text/plain"})
	})
	mux.HandleFunc("POST /files/{id}/copy", func(w http.ResponseWriter, r *http.Request) {
		f.recordBody(r)
		name, _ := f.lastBody["name"].(string)
		writeJSON(w, &drive.File{Id: "copy1", Name: name})
	})
	mux.HandleFunc("GET /files/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		writeJSON(w, &drive.PermissionList{Permissions: []*drive.Permission{
			{Id: "p1", Type: "user", Role: "owner", EmailAddress: "jane@example.com"},
		}})
	})
	mux.HandleFunc("POST /files/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		f.recordBody(r)
		writeJSON(w, &drive.Permission{
			Id:           "p2",
			Type:         f.lastBody["type"].(string),
			Role:         f.lastBody["role"].(string),
			EmailAddress: f.lastBody["emailAddress"].(string),
		})
	})
	mux.HandleFunc("DELETE /files/{id}/permissions/{pid}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /about", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &drive.About{
			User:         &drive.User{DisplayName: "Jane", EmailAddress: "jane@example.com"},
			StorageQuota: &drive.AboutStorageQuota{Limit: 100, Usage: 40},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), "jane@example.com",
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return f, client
}

func (f *fakeDrive) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = r.URL.Query().Get("q")
	f.lastURL = r.URL.String()
}

func (f *fakeDrive) recordBody(r *http.Request) {
	f.record(r)
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.lastBody = body
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_ListFiles(t *testing.T) {
	f, client := newFakeServer(t)

	files, next, err := client.ListFiles(context.Background(), &ListOptions{
		Query:    "mimeType='application/pdf'",
		FolderID: "dir1",
	})
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Equal(t, "next", next)
	assert.Equal(t, "(mimeType='application/pdf') and 'dir1' in parents and trashed=false", f.lastQ)

	_, _, err = client.ListFiles(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "trashed=false", f.lastQ)
}

func TestClient_SearchFiles(t *testing.T) {
	f, client := newFakeServer(t)

	_, _, err := client.SearchFiles(context.Background(), "bob's notes", nil)
	require.NoError(t, err)
	assert.Equal(t, `(fullText contains 'bob\'s notes') and trashed=false`, f.lastQ)

	_, _, err = client.SearchFiles(context.Background(), "  ", nil)
	assert.Error(t, err)
}

func TestClient_GetFile(t *testing.T) {
	_, client := newFakeServer(t)

	file, err := client.GetFile(context.Background(), "pdf1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", file.Name)

	_, err = client.GetFile(context.Background(), "missing")
	assert.ErrorContains(t, err, "missing")

	_, err = client.GetFile(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_DownloadFile(t *testing.T) {
	f, client := newFakeServer(t)
	ctx := context.Background()

	dl, err := client.DownloadFile(ctx, "pdf1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(dl.Content))
	assert.False(t, dl.Exported)
	assert.False(t, dl.Truncated)

	dl, err = client.DownloadFile(ctx, "pdf1", "", 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(dl.Content))
	assert.True(t, dl.Truncated)

	dl, err = client.DownloadFile(ctx, "doc1", "", 0)
	require.NoError(t, err)
	assert.True(t, dl.Exported)
	assert.Equal(t, "text/plain", dl.MimeType)
	assert.Equal(t, "exported text", string(dl.Content))
	assert.Contains(t, f.lastURL, "mimeType=text%2Fplain")

	_, err = client.DownloadFile(ctx, "dir1", "", 0)
	assert.ErrorContains(t, err, "folder")

	_, err = client.DownloadFile(ctx, "form1", "", 0)
	assert.ErrorContains(t, err, "cannot be exported")
}

func TestClient_WriteOperations(t *testing.T) {
	f, client := newFakeServer(t)
	ctx := context.Background()

	folder, err := client.CreateFolder(ctx, "New", []string{"root"})
	require.NoError(t, err)
	assert.True(t, folder.IsFolder())

	up, err := client.UploadFile(ctx, "upload.txt", strings.NewReader("upload body"), &UploadOptions{MimeType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "up1", up.ID)

	cp, err := client.CopyFile(ctx, "pdf1", "report copy.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, "report copy.pdf", cp.Name)

	renamed, err := client.RenameFile(ctx, "pdf1", "final.pdf")
	require.NoError(t, err)
	assert.Equal(t, "final.pdf", renamed.Name)

	_, err = client.MoveFile(ctx, "pdf1", &MoveOptions{AddParents: []string{"a", "b"}, RemoveParents: []string{"root"}})
	require.NoError(t, err)
	assert.Contains(t, f.lastURL, "addParents=a%2Cb")
	assert.Contains(t, f.lastURL, "removeParents=root")

	_, err = client.MoveFile(ctx, "pdf1", &MoveOptions{})
	assert.Error(t, err)

	trashed, err := client.TrashFile(ctx, "pdf1")
	require.NoError(t, err)
	assert.True(t, trashed.Trashed)

	require.NoError(t, client.DeleteFile(ctx, "pdf1"))
	assert.Error(t, client.DeleteFile(ctx, ""))
}

func TestClient_Permissions(t *testing.T) {
	f, client := newFakeServer(t)
	ctx := context.Background()

	perms, err := client.ListPermissions(ctx, "pdf1")
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "owner", perms[0].Role)

	p, err := client.ShareFile(ctx, "pdf1", &ShareOptions{Type: "user", Role: "reader", EmailAddress: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", p.EmailAddress)
	assert.Contains(t, f.lastURL, "sendNotificationEmail=false")

	_, err = client.ShareFile(ctx, "pdf1", &ShareOptions{Type: "user", Role: "reader"})
	assert.ErrorContains(t, err, "email address is required")

	require.NoError(t, client.RemovePermission(ctx, "pdf1", "p2"))
	assert.Error(t, client.RemovePermission(ctx, "pdf1", ""))
}

func TestClient_GetAbout(t *testing.T) {
	_, client := newFakeServer(t)

	about, err := client.GetAbout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", about.User.EmailAddress)
	assert.Equal(t, int64(100), about.StorageQuota.Limit)
	assert.Equal(t, int64(40), about.StorageQuota.Usage)
}

func TestConvertToFileInfo(t *testing.T) {
	driveFile := &drive.File{
		Id:           "file123",
		Name:         "test.pdf",
		MimeType:     "application/pdf",
		Size:         1024,
		CreatedTime:  "2023-01-01T10:00:00Z",
		ModifiedTime: "2023-01-02T15:30:00Z",
		TrashedTime:  "2023-01-03T20:00:00Z",
		Parents:      []string{"parent1", "parent2"},
		Shared:       true,
		Trashed:      true,
		Owners:       []*drive.User{{DisplayName: "Test User", EmailAddress: "test@example.com"}},
		Permissions:  []*drive.Permission{{Id: "perm123", Type: "user", Role: "reader"}},
	}

	info := convertToFileInfo(driveFile)

	assert.Equal(t, "file123", info.ID)
	assert.Equal(t, int64(1024), info.Size)
	assert.Equal(t, []string{"parent1", "parent2"}, info.Parents)
	assert.True(t, info.Shared)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), info.CreatedTime.UTC())
	require.NotNil(t, info.TrashedTime)
	assert.Equal(t, time.Date(2023, 1, 3, 20, 0, 0, 0, time.UTC), info.TrashedTime.UTC())
	require.Len(t, info.Owners, 1)
	assert.Equal(t, "test@example.com", info.Owners[0].EmailAddress)
	require.Len(t, info.Permissions, 1)
	assert.Equal(t, "perm123", info.Permissions[0].ID)
}

func TestConvertToFileInfo_MinimalData(t *testing.T) {
	info := convertToFileInfo(&drive.File{Id: "file456", Name: "minimal.txt", CreatedTime: "not a time"})

	assert.Equal(t, "file456", info.ID)
	assert.True(t, info.CreatedTime.IsZero())
	assert.Nil(t, info.TrashedTime)
	assert.Empty(t, info.Owners)
	assert.Empty(t, info.Permissions)
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name           string
		userQuery      string
		folderID       string
		includeTrashed bool
		expected       string
	}{
		{"user query with trashed excluded", "mimeType='application/pdf'", "", false, "(mimeType='application/pdf') and trashed=false"},
		{"user query with trashed included", "mimeType='application/pdf'", "", true, "(mimeType='application/pdf')"},
		{"no user query", "", "", false, "trashed=false"},
		{"nothing at all", "", "", true, ""},
		{"or query stays grouped", "name contains 'house' or name contains 'water'", "", false, "(name contains 'house' or name contains 'water') and trashed=false"},
		{"folder only", "", "abc", true, "'abc' in parents"},
		{"folder with quote", "", "a'b", false, `'a\'b' in parents and trashed=false`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := buildQuery(tt.userQuery, tt.folderID, tt.includeTrashed)
			if result != tt.expected {
				t.Errorf("buildQuery(%q, %q, %v) = %q, want %q",
					tt.userQuery, tt.folderID, tt.includeTrashed, result, tt.expected)
			}
		})
	}
}

func TestShareOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    *ShareOptions
		wantErr bool
	}{
		{"nil", nil, true},
		{"user", &ShareOptions{Type: "user", Role: "writer", EmailAddress: "a@b.c"}, false},
		{"user without email", &ShareOptions{Type: "user", Role: "writer"}, true},
		{"domain", &ShareOptions{Type: "domain", Role: "reader", Domain: "example.com"}, false},
		{"domain without domain", &ShareOptions{Type: "domain", Role: "reader"}, true},
		{"anyone", &ShareOptions{Type: "anyone", Role: "reader"}, false},
		{"bad type", &ShareOptions{Type: "robot", Role: "reader"}, true},
		{"bad role", &ShareOptions{Type: "anyone", Role: "admin"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
