// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for agenda.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total, http_request_duration_seconds
//   - active_sessions: sessions with a turn in progress
//
// Calendar gateway:
//   - gateway_operations_total, gateway_operation_duration_seconds by backend, operation, status
//
// Capabilities:
//   - capability_invocations_total, capability_duration_seconds by operation and status
//
// Conversation:
//   - conversation_turns_total by outcome (reply, budget_exceeded, model_error)
//   - conversation_round_trips per turn
//   - model_calls_total by status
//
// Event log:
//   - eventlog_malformed_entries_total by reason
//   - eventlog_segments_pruned_total by status
//
// # Tracing
//
// Spans: agent.turn, model.complete, capability.<operation>, gateway.<operation>.
//
// # Configuration
//
// Config is filled from the telemetry section of the agenda configuration
// (telemetry.enabled, telemetry.metrics_exporter, telemetry.tracing_exporter,
// telemetry.otlp_endpoint, telemetry.trace_sampling_rate, telemetry.audit.*).
// DefaultConfig matches its defaults: prometheus metrics, no tracing.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordGatewayOperation(ctx, "google", "list", "success", time.Since(start))
package instrumentation
