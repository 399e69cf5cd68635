package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PrintfLogger adapts an slog.Logger to printf-style logger interfaces such
// as the one the migration runner expects.
type PrintfLogger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewPrintfLogger returns an adapter that writes Printf output at level. A
// nil logger is replaced by slog.Default().
func NewPrintfLogger(logger *slog.Logger, level slog.Level) *PrintfLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrintfLogger{logger: logger, level: level}
}

// Printf logs the formatted message, without its trailing newline.
func (l *PrintfLogger) Printf(format string, v ...any) {
	l.logger.Log(context.Background(), l.level, strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}

// Fatalf logs at error level. It does not exit the process.
func (l *PrintfLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimRight(fmt.Sprintf(format, v...), "\n"))
}
