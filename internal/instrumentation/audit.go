package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// OperationInvocation captures one capability invocation for audit logging.
type OperationInvocation struct {
	Operation     string
	CorrelationID string

	// SessionHash is the anonymized conversation session, empty for MCP callers.
	SessionHash string

	// Arguments is the raw argument document, only logged when enabled.
	Arguments string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	ErrorKind string

	TraceID string
	SpanID  string
}

// NewOperationInvocation starts timing an invocation.
func NewOperationInvocation(operation, correlationID string) *OperationInvocation {
	return &OperationInvocation{
		Operation:     operation,
		CorrelationID: correlationID,
		StartTime:     time.Now(),
	}
}

// WithSession records the anonymized session.
func (oi *OperationInvocation) WithSession(sessionHash string) *OperationInvocation {
	oi.SessionHash = sessionHash
	return oi
}

// WithArguments records the raw argument document.
func (oi *OperationInvocation) WithArguments(args string) *OperationInvocation {
	oi.Arguments = args
	return oi
}

// WithSpanContext extracts trace context from the current span.
func (oi *OperationInvocation) WithSpanContext(ctx context.Context) *OperationInvocation {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() {
		oi.TraceID = sc.TraceID().String()
		oi.SpanID = sc.SpanID().String()
	}
	return oi
}

// Complete stops the timer. errorKind is empty on success.
func (oi *OperationInvocation) Complete(errorKind string) *OperationInvocation {
	oi.Duration = time.Since(oi.StartTime)
	oi.Success = errorKind == ""
	oi.ErrorKind = errorKind
	return oi
}

// Status returns "success" or "error".
func (oi *OperationInvocation) Status() string {
	if oi.Success {
		return StatusSuccess
	}
	return StatusError
}

func (oi *OperationInvocation) attrs(includeArguments bool) []any {
	args := []any{
		slog.String("operation", oi.Operation),
		slog.String("correlation_id", oi.CorrelationID),
		slog.Duration("duration", oi.Duration),
		slog.Bool("success", oi.Success),
	}
	if oi.SessionHash != "" {
		args = append(args, slog.String("session", oi.SessionHash))
	}
	if oi.ErrorKind != "" {
		args = append(args, slog.String("error_kind", oi.ErrorKind))
	}
	if oi.TraceID != "" {
		args = append(args, slog.String("trace_id", oi.TraceID), slog.String("span_id", oi.SpanID))
	}
	if includeArguments && oi.Arguments != "" {
		args = append(args, slog.String("arguments", oi.Arguments))
	}
	return args
}

// AuditLogger writes one structured line per capability invocation.
type AuditLogger struct {
	logger           *slog.Logger
	enabled          bool
	includeArguments bool
}

// NewAuditLogger creates an AuditLogger from config. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger.With(slog.String("component", "audit")),
		enabled:          config.Enabled,
		includeArguments: config.IncludeArguments,
	}
}

// LogInvocation logs the completed invocation. A nil AuditLogger is a no-op.
func (al *AuditLogger) LogInvocation(oi *OperationInvocation) {
	if al == nil || !al.enabled {
		return
	}

	if oi.Success {
		al.logger.Info("operation_executed", oi.attrs(al.includeArguments)...)
	} else {
		al.logger.Warn("operation_failed", oi.attrs(al.includeArguments)...)
	}
}
