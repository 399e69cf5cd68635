package common

import (
	"context"
	"encoding/json"
	"time"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// Instrumentation bundles the optional observers of capability invocations.
// The zero value records nothing.
type Instrumentation struct {
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Outcome is what a capability handler produced. ErrorKind is empty on success.
type Outcome struct {
	Content   string
	ErrorKind string
}

// Handler executes one invocation.
type Handler func(ctx context.Context) Outcome

// InstrumentedInvocation runs handler inside a capability span and records
// metrics and an audit entry for it.
//
// Usage:
//
//	out := common.InstrumentedInvocation(ctx, inst, inv, func(ctx context.Context) common.Outcome { ... })
func InstrumentedInvocation(ctx context.Context, inst Instrumentation, inv agent.Invocation, handler Handler) Outcome {
	ctx, span := instrumentation.StartCapabilitySpan(ctx, inv.Name, inv.ID)
	defer span.End()

	start := time.Now()
	record := instrumentation.NewOperationInvocation(inv.Name, inv.ID).
		WithSpanContext(ctx).
		WithArguments(string(inv.Arguments))
	if session := agent.SessionFromContext(ctx); session != "" {
		record.WithSession(logging.AnonymizeSession(session))
	}

	out := handler(ctx)
	duration := time.Since(start)
	record.Complete(out.ErrorKind)

	status := instrumentation.StatusSuccess
	if out.ErrorKind != "" {
		status = instrumentation.StatusError
		span.SetAttributes(instrumentation.ErrorKindAttribute(out.ErrorKind))
		instrumentation.SetSpanError(span, errorKind(out.ErrorKind))
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	inst.Metrics.RecordCapabilityInvocation(ctx, inv.Name, status, duration)
	inst.Audit.LogInvocation(record)
	return out
}

type errorKind string

func (e errorKind) Error() string { return string(e) }

// ArgumentsJSON encodes transport arguments (for example an MCP request's
// argument map) as the raw document an invocation carries.
func ArgumentsJSON(args map[string]any) (json.RawMessage, error) {
	if args == nil {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
