// Package calendar defines the calendar Event model and the Gateway boundary
// to calendar backends.
//
// Implementations:
//   - GoogleGateway talks to the Google Calendar API v3.
//   - MemoryGateway keeps events in process memory, for offline use and tests.
//
// Guard wraps any Gateway with a per-call timeout, a circuit breaker and
// metrics. Every error leaving a guarded gateway is an *OperationError, so
// callers can tell timeouts and retryable faults apart with IsTimeout and
// IsRetryable, and unknown ids with errors.Is(err, ErrEventNotFound).
package calendar
