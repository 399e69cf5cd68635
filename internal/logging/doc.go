// Package logging provides structured logging utilities for agenda.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Build the root logger from configuration:
//
//	logger, err := logging.New(os.Stderr, "info", "json")
//
// Tag loggers per component and attach common attributes:
//
//	logger := logging.WithComponent(base, "eventlog")
//	logger.Info("segment pruned", logging.Segment(name), logging.Status("success"))
//
// Session ids are hashed before they reach log output:
//
//	logger.Info("turn finished", logging.Session(sessionID))
package logging
