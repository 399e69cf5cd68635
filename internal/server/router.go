package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
)

// RouterConfig lists the handlers mounted on the main HTTP server.
type RouterConfig struct {
	Chat   *ChatAPI
	Health *HealthChecker
	// MCP, when set, is mounted at /mcp.
	MCP     http.Handler
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// NewRouter builds the HTTP handler of the serve command.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestTelemetry(cfg.Metrics, logging.WithComponent(cfg.Logger, "http")))

	if cfg.Health != nil {
		cfg.Health.RegisterHealthEndpoints(r)
	}
	if cfg.Chat != nil {
		r.Route("/v1", cfg.Chat.Routes)
	}
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}
	return r
}

// requestTelemetry records http_requests_total and logs each request. The
// route pattern, not the raw path, is used as the metric label.
func requestTelemetry(metrics *instrumentation.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			duration := time.Since(start)

			pattern := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				pattern = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, status, duration)
			logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("route", pattern),
				slog.Int("status", status),
				slog.Duration("duration", duration),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())))
		})
	}
}
