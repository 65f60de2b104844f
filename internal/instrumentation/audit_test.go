package instrumentation

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestToolInvocation_Lifecycle(t *testing.T) {
	ti := NewToolInvocation("drive_list_files").
		WithAccount("user@example.com").
		WithService(ServiceDrive, OperationList)

	if ti.StartTime.IsZero() {
		t.Fatal("StartTime should be set")
	}
	time.Sleep(time.Millisecond)
	ti.CompleteSuccess()

	if !ti.Success || ti.Status() != StatusSuccess {
		t.Errorf("Success = %v, Status = %q", ti.Success, ti.Status())
	}
	if ti.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", ti.Duration)
	}
}

func TestToolInvocation_CompleteWithErrorTruncates(t *testing.T) {
	ti := NewToolInvocation("docs_append_text").CompleteWithError(strings.Repeat("x", 1000))

	if ti.Success || ti.Status() != StatusError {
		t.Errorf("Success = %v, Status = %q", ti.Success, ti.Status())
	}
	if len(ti.Error) != maxAuditErrorLen+3 {
		t.Errorf("len(Error) = %d, want %d", len(ti.Error), maxAuditErrorLen+3)
	}
}

func logRecord(t *testing.T, cfg AuditConfig, ti *ToolInvocation) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)), cfg).LogToolInvocation(ti)
	if buf.Len() == 0 {
		return nil
	}
	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	return record
}

func TestAuditLogger_HashesAccountByDefault(t *testing.T) {
	ti := NewToolInvocation("sheets_read_values").
		WithAccount("user@example.com").
		WithService(ServiceSheets, OperationGet).
		CompleteSuccess()

	record := logRecord(t, AuditConfig{Enabled: true}, ti)

	if record["msg"] != "tool_executed" || record["level"] != "INFO" {
		t.Errorf("msg/level = %v/%v", record["msg"], record["level"])
	}
	if record["user_domain"] != "example.com" {
		t.Errorf("user_domain = %v", record["user_domain"])
	}
	if hash, _ := record["user_hash"].(string); !strings.HasPrefix(hash, "user:") {
		t.Errorf("user_hash = %v", record["user_hash"])
	}
	if _, ok := record["account"]; ok {
		t.Error("the raw account must not be logged without IncludePII")
	}
	if record["service"] != ServiceSheets || record["component"] != "audit" {
		t.Errorf("service/component = %v/%v", record["service"], record["component"])
	}
}

func TestAuditLogger_IncludePII(t *testing.T) {
	ti := NewToolInvocation("auth_revoke").WithAccount("user@example.com").CompleteWithError("denied")

	record := logRecord(t, AuditConfig{Enabled: true, IncludePII: true}, ti)

	if record["msg"] != "tool_failed" || record["level"] != "WARN" {
		t.Errorf("msg/level = %v/%v", record["msg"], record["level"])
	}
	if record["account"] != "user@example.com" {
		t.Errorf("account = %v", record["account"])
	}
	if record["error"] != "denied" {
		t.Errorf("error = %v", record["error"])
	}
}

func TestAuditLogger_Disabled(t *testing.T) {
	ti := NewToolInvocation("drive_get_about").CompleteSuccess()
	if record := logRecord(t, AuditConfig{Enabled: false}, ti); record != nil {
		t.Errorf("expected no output, got %v", record)
	}

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(ti)
}
