package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/agenda/internal/logging"
	"github.com/teemow/agenda/internal/server"
	"github.com/teemow/agenda/internal/tools/calendar_tools"
)

// Transports accepted by serve.
const (
	transportHTTP  = "http"
	transportStdio = "stdio"
)

func newServeCmd() *cobra.Command {
	var (
		transport        string
		disableStreaming bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API and the calendar capabilities over MCP",
		Long: `Start the assistant as a server.

Supports multiple transport types:
  - http: chat API (/v1/sessions), MCP streamable HTTP endpoint (/mcp) and
    health endpoints (/healthz, /readyz) on --http-addr, plus Prometheus
    metrics on --metrics-addr (default)
  - stdio: the calendar capabilities as an MCP server on standard input/output;
    logs go to stderr

The MCP endpoint exposes the same operations the assistant uses, so other
agents can drive the calendar directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			switch transport {
			case transportStdio:
				a, err := newApp(ctx, cfg, appOptions{LogOutput: os.Stderr})
				if err != nil {
					return err
				}
				defer a.Close(ctx)
				return runStdioServer(ctx, a)
			case transportHTTP:
				a, err := newApp(ctx, cfg, appOptions{Agent: true, Transcripts: true})
				if err != nil {
					return err
				}
				defer a.Close(ctx)
				return runHTTPServer(ctx, a, disableStreaming)
			default:
				return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", transportHTTP, "Transport type: http or stdio")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming on the MCP endpoint (for compatibility with certain clients)")
	cmd.Flags().String("http-addr", ":8080", "HTTP server address. Can also use AGENDA_SERVER_ADDR env var.")
	cmd.Flags().String("metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use AGENDA_SERVER_METRICS_ADDR env var.")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use AGENDA_SERVER_METRICS_ENABLED env var.")
	for key, flag := range map[string]string{
		"server.addr":            "http-addr",
		"server.metrics_addr":    "metrics-addr",
		"server.metrics_enabled": "metrics-enabled",
	} {
		if err := settings.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	return cmd
}

// newMCPServer exposes the capability set of a as MCP tools.
func newMCPServer(a *app) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("agenda", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := calendar_tools.RegisterCalendarTools(mcpSrv, a.registry); err != nil {
		return nil, fmt.Errorf("failed to register calendar tools: %w", err)
	}
	return mcpSrv, nil
}

func runStdioServer(ctx context.Context, a *app) error {
	mcpSrv, err := newMCPServer(a)
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}

func runHTTPServer(ctx context.Context, a *app, disableStreaming bool) error {
	logger := logging.WithComponent(a.logger, "server")
	metrics := a.provider.Metrics()

	serverContext := server.NewServerContext(ctx)
	defer func() { _ = serverContext.Shutdown() }()
	serverContext.AddReadinessCheck("transcripts", a.transcripts.Ping)
	serverContext.AddReadinessCheck("eventlog", func(context.Context) error {
		_, err := os.Stat(a.events.Dir())
		return err
	})

	mcpSrv, err := newMCPServer(a)
	if err != nil {
		return err
	}
	mcpHandler := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithDisableStreaming(disableStreaming),
	)

	locks := server.NewSessionLocks(server.DefaultSessionIdleTimeout, metrics, a.logger)
	defer locks.Stop()

	httpServer := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: server.NewRouter(server.RouterConfig{
			Chat:    server.NewChatAPI(a.orchestrator, a.transcripts, locks, a.logger),
			Health:  server.NewHealthChecker(serverContext),
			MCP:     mcpHandler,
			Metrics: metrics,
			Logger:  a.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var metricsServer *server.MetricsServer
	if a.cfg.Server.MetricsEnabled && a.provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    a.cfg.Server.MetricsAddr,
			InstrumentationProvider: a.provider,
			Logger:                  a.logger,
		})
		if err != nil {
			// Exporters without a scrape endpoint (otlp, stdout) push instead.
			logger.Warn("metrics server disabled", logging.Err(err))
			metricsServer = nil
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server",
			slog.String("addr", httpServer.Addr),
			slog.String("calendar_backend", a.backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		return nil
	})
	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping servers")
		_ = serverContext.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		var errs []error
		if metricsServer != nil {
			errs = append(errs, metricsServer.Shutdown(shutdownCtx))
		}
		errs = append(errs, httpServer.Shutdown(shutdownCtx))
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("HTTP server gracefully stopped")
	return nil
}
