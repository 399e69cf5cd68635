// Package server exposes the assistant over HTTP.
//
// # Key Components
//
// ChatAPI serves the session-based chat endpoints:
//
//	POST   /v1/sessions                 create a session
//	POST   /v1/sessions/{id}/messages   run one turn
//	GET    /v1/sessions/{id}/messages   read the stored history
//	DELETE /v1/sessions/{id}            drop a session
//
// Turns of the same session are serialized by SessionLocks; turns of
// different sessions run concurrently.
//
// HealthChecker provides /healthz and /readyz for Kubernetes probes, with
// readiness checks registered on the ServerContext.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server
