package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

func newAuditedContext(t *testing.T, buf *bytes.Buffer) *server.ServerContext {
	t.Helper()
	store := tokenstore.NewMemoryStore(nil)
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Provider:       google.NewStoreTokenProvider(&oauth2.Config{}, store, google.StoreTokenProviderOptions{}),
		Store:          store,
		DefaultAccount: "user@example.com",
		Metrics:        &instrumentation.Metrics{},
		AuditLogger: instrumentation.NewAuditLogger(
			slog.New(slog.NewJSONHandler(buf, nil)),
			instrumentation.AuditConfig{Enabled: true},
		),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func auditRecord(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	return record
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	var buf bytes.Buffer
	sc := newAuditedContext(t, &buf)

	var called bool
	handler := InstrumentedToolHandlerWithService("drive_list_files", instrumentation.ServiceDrive, instrumentation.OperationList, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			return mcp.NewToolResultText("ok"), nil
		})

	res, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, res.IsError)

	record := auditRecord(t, &buf)
	assert.Equal(t, "tool_executed", record["msg"])
	assert.Equal(t, "drive_list_files", record["tool"])
	assert.Equal(t, instrumentation.ServiceDrive, record["service"])
	assert.Equal(t, "example.com", record["user_domain"])
	assert.NotContains(t, buf.String(), "user@example.com")
}

func TestInstrumentedToolHandler_ErrorResult(t *testing.T) {
	var buf bytes.Buffer
	sc := newAuditedContext(t, &buf)

	handler := InstrumentedToolHandler("docs_get_document", sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("Not found: failed to get document."), nil
		})

	res, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	record := auditRecord(t, &buf)
	assert.Equal(t, "tool_failed", record["msg"])
	assert.Equal(t, "Not found: failed to get document.", record["error"])
}

func TestInstrumentedToolHandler_GoErrorPassesThrough(t *testing.T) {
	var buf bytes.Buffer
	sc := newAuditedContext(t, &buf)

	handler := InstrumentedToolHandler("sheets_read_values", sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, errors.New("transport closed")
		})

	res, err := handler(context.Background(), mcp.CallToolRequest{})
	assert.Nil(t, res)
	assert.EqualError(t, err, "transport closed")
	assert.Equal(t, "transport closed", auditRecord(t, &buf)["error"])
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	sc := newTestServerContext(t, "")

	handler := InstrumentedToolHandler("auth_status", sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("fine"), nil
		})

	res, err := handler(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}
