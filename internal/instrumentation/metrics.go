package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrBackend   = "backend"
	attrOutcome   = "outcome"
	attrReason    = "reason"
)

// Metrics provides methods for recording observability metrics.
// The zero value is a no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Calendar gateway metrics
	gatewayOperationsTotal   metric.Int64Counter
	gatewayOperationDuration metric.Float64Histogram

	// Capability metrics
	capabilityInvocationsTotal metric.Int64Counter
	capabilityDuration         metric.Float64Histogram

	// Conversation metrics
	turnsTotal      metric.Int64Counter
	turnRoundTrips  metric.Int64Histogram
	modelCallsTotal metric.Int64Counter

	// Event log metrics
	malformedEntriesTotal metric.Int64Counter
	segmentsPrunedTotal   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	if m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	if m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of conversation sessions with a turn in progress"),
		metric.WithUnit("{session}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	if m.gatewayOperationsTotal, err = meter.Int64Counter(
		"gateway_operations_total",
		metric.WithDescription("Total number of calendar gateway operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create gateway_operations_total counter: %w", err)
	}

	if m.gatewayOperationDuration, err = meter.Float64Histogram(
		"gateway_operation_duration_seconds",
		metric.WithDescription("Calendar gateway operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create gateway_operation_duration_seconds histogram: %w", err)
	}

	if m.capabilityInvocationsTotal, err = meter.Int64Counter(
		"capability_invocations_total",
		metric.WithDescription("Total number of capability invocations"),
		metric.WithUnit("{invocation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create capability_invocations_total counter: %w", err)
	}

	if m.capabilityDuration, err = meter.Float64Histogram(
		"capability_duration_seconds",
		metric.WithDescription("Capability execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, fmt.Errorf("failed to create capability_duration_seconds histogram: %w", err)
	}

	if m.turnsTotal, err = meter.Int64Counter(
		"conversation_turns_total",
		metric.WithDescription("Total number of conversation turns by outcome"),
		metric.WithUnit("{turn}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create conversation_turns_total counter: %w", err)
	}

	if m.turnRoundTrips, err = meter.Int64Histogram(
		"conversation_round_trips",
		metric.WithDescription("Model/operation round trips per turn"),
		metric.WithUnit("{round_trip}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 6, 8, 12, 16),
	); err != nil {
		return nil, fmt.Errorf("failed to create conversation_round_trips histogram: %w", err)
	}

	if m.modelCallsTotal, err = meter.Int64Counter(
		"model_calls_total",
		metric.WithDescription("Total number of model completions requested"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create model_calls_total counter: %w", err)
	}

	if m.malformedEntriesTotal, err = meter.Int64Counter(
		"eventlog_malformed_entries_total",
		metric.WithDescription("Log lines that could not be reconstructed into events"),
		metric.WithUnit("{line}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create eventlog_malformed_entries_total counter: %w", err)
	}

	if m.segmentsPrunedTotal, err = meter.Int64Counter(
		"eventlog_segments_pruned_total",
		metric.WithDescription("Log segments removed by retention"),
		metric.WithUnit("{segment}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create eventlog_segments_pruned_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGatewayOperation records one calendar gateway round trip.
//
// Parameters:
//   - backend: gateway implementation (google, memory)
//   - operation: list, get, insert, update, delete, calendars
//   - status: success, error or timeout
//   - duration: time taken for the call
func (m *Metrics) RecordGatewayOperation(ctx context.Context, backend, operation, status string, duration time.Duration) {
	if m == nil || m.gatewayOperationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrBackend, backend),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.gatewayOperationsTotal.Add(ctx, 1, attrs)
	m.gatewayOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCapabilityInvocation records a capability execution with its status and duration.
func (m *Metrics) RecordCapabilityInvocation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.capabilityInvocationsTotal == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, CapabilityLabel(operation)),
		attribute.String(attrStatus, status),
	)
	m.capabilityInvocationsTotal.Add(ctx, 1, attrs)
	m.capabilityDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordTurn records the outcome of one conversation turn and its round-trip count.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string, roundTrips int) {
	if m == nil || m.turnsTotal == nil {
		return
	}

	m.turnsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
	m.turnRoundTrips.Record(ctx, int64(roundTrips))
}

// RecordModelCall records one model completion request.
func (m *Metrics) RecordModelCall(ctx context.Context, status string) {
	if m == nil || m.modelCallsTotal == nil {
		return
	}

	m.modelCallsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordMalformedLogEntries adds n skipped log lines to the malformed counter.
func (m *Metrics) RecordMalformedLogEntries(ctx context.Context, reason string, n int) {
	if m == nil || m.malformedEntriesTotal == nil || n <= 0 {
		return
	}

	m.malformedEntriesTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordSegmentsPruned records log segments removed (status success) or left
// behind after a failed removal (status error).
func (m *Metrics) RecordSegmentsPruned(ctx context.Context, status string, n int) {
	if m == nil || m.segmentsPrunedTotal == nil || n <= 0 {
		return
	}

	m.segmentsPrunedTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrStatus, status)))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
