package instrumentation

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestNewMetrics_NoopMeter(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	if m.turnsTotal == nil || m.gatewayOperationsTotal == nil || m.malformedEntriesTotal == nil {
		t.Error("expected instruments to be initialized")
	}
}

func TestMetrics_RecordAll(t *testing.T) {
	provider := newTestProvider(t)
	ctx := context.Background()
	metrics := provider.Metrics()

	// None of these should panic.
	metrics.RecordHTTPRequest(ctx, "POST", "/v1/sessions/{sessionID}/messages", 200, 100*time.Millisecond)
	metrics.RecordGatewayOperation(ctx, BackendGoogle, OperationInsert, StatusTimeout, time.Second)
	metrics.RecordCapabilityInvocation(ctx, "find_available_slots", StatusSuccess, 5*time.Millisecond)
	metrics.RecordCapabilityInvocation(ctx, "rm_rf", StatusError, time.Millisecond)
	metrics.RecordTurn(ctx, OutcomeBudgetExceeded, 8)
	metrics.RecordModelCall(ctx, StatusSuccess)
	metrics.RecordMalformedLogEntries(ctx, "missing_summary", 1)
	metrics.RecordSegmentsPruned(ctx, StatusSuccess, 3)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_NilAndZeroValueAreNoops(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	nilMetrics.RecordTurn(ctx, OutcomeReply, 1)
	nilMetrics.RecordGatewayOperation(ctx, BackendMemory, OperationList, StatusSuccess, 0)
	nilMetrics.IncrementActiveSessions(ctx)

	zero := &Metrics{}
	zero.RecordHTTPRequest(ctx, "GET", "/", 200, 0)
	zero.RecordCapabilityInvocation(ctx, "list_events", StatusSuccess, 0)
	zero.RecordMalformedLogEntries(ctx, "x", 1)
	zero.RecordSegmentsPruned(ctx, StatusError, 1)
	zero.RecordModelCall(ctx, StatusError)
	zero.DecrementActiveSessions(ctx)
}
