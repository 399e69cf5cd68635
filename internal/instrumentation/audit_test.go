package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestOperationInvocation_Complete(t *testing.T) {
	oi := NewOperationInvocation("create_event", "call-1").WithSession("session:1").Complete("")
	if !oi.Success || oi.Status() != StatusSuccess {
		t.Errorf("expected success, got %+v", oi)
	}

	oi = NewOperationInvocation("create_event", "call-2").Complete("timeout")
	if oi.Success || oi.Status() != StatusError || oi.ErrorKind != "timeout" {
		t.Errorf("expected failure, got %+v", oi)
	}
}

func TestAuditLogger_LogInvocation(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newJSONLogger(&buf), AuditLoggingConfig{Enabled: true})

	al.LogInvocation(NewOperationInvocation("list_events", "call-1").
		WithSession("session:abc").
		WithArguments(`{"time_min":"x"}`).
		Complete(""))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}
	if entry["msg"] != "operation_executed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["operation"] != "list_events" || entry["correlation_id"] != "call-1" || entry["session"] != "session:abc" {
		t.Errorf("unexpected attributes: %v", entry)
	}
	if _, ok := entry["arguments"]; ok {
		t.Error("arguments must not be logged unless enabled")
	}
}

func TestAuditLogger_FailureIncludesArgumentsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newJSONLogger(&buf), AuditLoggingConfig{Enabled: true, IncludeArguments: true})

	al.LogInvocation(NewOperationInvocation("delete_event", "call-9").
		WithArguments(`{"event_id":"abc"}`).
		WithSpanContext(context.Background()).
		Complete("not_found"))

	out := buf.String()
	for _, want := range []string{`"msg":"operation_failed"`, `"level":"WARN"`, `"error_kind":"not_found"`, `event_id`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestAuditLogger_DisabledAndNil(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(newJSONLogger(&buf), AuditLoggingConfig{Enabled: false})
	al.LogInvocation(NewOperationInvocation("x", "y").Complete(""))
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote output: %s", buf.String())
	}

	var nilLogger *AuditLogger
	nilLogger.LogInvocation(NewOperationInvocation("x", "y").Complete(""))
}
