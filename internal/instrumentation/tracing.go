package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for all spans created by this module.
const TracerName = "github.com/teemow/agenda"

// Span attribute keys.
const (
	SpanAttrOperation     = "agenda.operation"
	SpanAttrCorrelationID = "agenda.correlation_id"
	SpanAttrSession       = "agenda.session"
	SpanAttrRoundTrip     = "agenda.round_trip"
	SpanAttrBackend       = "calendar.backend"
	SpanAttrCalendarID    = "calendar.id"
	SpanAttrEventID       = "calendar.event_id"
	SpanAttrModel         = "model.name"
	SpanAttrErrorKind     = "agenda.error_kind"
)

// ErrorKindAttribute labels a span with the kind of a failed capability result.
func ErrorKindAttribute(kind string) attribute.KeyValue {
	return attribute.String(SpanAttrErrorKind, kind)
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts a new internal span with the given name and attributes.
// The caller is responsible for ending the span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartTurnSpan starts the root span of one conversation turn.
func StartTurnSpan(ctx context.Context, sessionHash string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "agent.turn",
		trace.WithAttributes(attribute.String(SpanAttrSession, sessionHash)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartModelSpan starts a client span around one model completion.
func StartModelSpan(ctx context.Context, model string, roundTrip int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "model.complete",
		trace.WithAttributes(
			attribute.String(SpanAttrModel, model),
			attribute.Int(SpanAttrRoundTrip, roundTrip),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// StartCapabilitySpan starts a span for one capability invocation.
func StartCapabilitySpan(ctx context.Context, operation, correlationID string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "capability."+CapabilityLabel(operation),
		trace.WithAttributes(
			attribute.String(SpanAttrOperation, operation),
			attribute.String(SpanAttrCorrelationID, correlationID),
		),
	)
}

// StartGatewaySpan starts a client span for a calendar gateway call.
func StartGatewaySpan(ctx context.Context, backend, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := make([]attribute.KeyValue, 0, len(attrs)+2)
	all = append(all,
		attribute.String(SpanAttrBackend, backend),
		attribute.String(SpanAttrOperation, operation),
	)
	all = append(all, attrs...)

	return tracer().Start(ctx, "gateway."+operation,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
