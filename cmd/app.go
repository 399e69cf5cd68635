package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/teemow/agenda/internal/agent"
	"github.com/teemow/agenda/internal/calendar"
	"github.com/teemow/agenda/internal/config"
	"github.com/teemow/agenda/internal/eventlog"
	"github.com/teemow/agenda/internal/google"
	"github.com/teemow/agenda/internal/instrumentation"
	"github.com/teemow/agenda/internal/logging"
	"github.com/teemow/agenda/internal/model"
	"github.com/teemow/agenda/internal/scheduling"
	"github.com/teemow/agenda/internal/tools/calendar_tools"
	"github.com/teemow/agenda/internal/tools/common"
	"github.com/teemow/agenda/internal/transcript"
)

// appOptions selects which parts of the runtime graph a command needs.
type appOptions struct {
	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer
	// Agent builds the model adapter and the orchestrator.
	Agent bool
	// Transcripts opens the session store.
	Transcripts bool
	// Getenv is used by the credential resolver. Defaults to os.Getenv.
	Getenv func(string) string
}

// app is the runtime graph shared by the commands.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	logger   *slog.Logger
	provider *instrumentation.Provider

	events       *eventlog.Store
	gateway      calendar.Gateway
	backend      string
	scheduling   *scheduling.Service
	registry     *calendar_tools.Registry
	orchestrator *agent.Orchestrator
	transcripts  *transcript.Store
}

// newApp wires configuration into components: logger, instrumentation,
// event log, calendar gateway, scheduling service, capability registry and,
// on request, the orchestrator and the transcript store.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}

	logger, err := logging.New(opts.LogOutput, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	loc, err := cfg.Calendar.Location()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loc: loc, logger: logger}

	tc := cfg.Telemetry
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.Enabled = tc.Enabled
	instrConfig.MetricsExporter = tc.MetricsExporter
	instrConfig.TracingExporter = tc.TracingExporter
	instrConfig.OTLPEndpoint = tc.OTLPEndpoint
	instrConfig.OTLPInsecure = tc.OTLPInsecure
	instrConfig.TraceSamplingRate = tc.TraceSamplingRate
	instrConfig.AuditLogging = instrumentation.AuditLoggingConfig{
		Enabled:          tc.Audit.Enabled,
		IncludeArguments: tc.Audit.IncludeArguments,
	}
	a.provider, err = instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	metrics := a.provider.Metrics()

	a.events, err = eventlog.Open(cfg.EventLog.Dir,
		eventlog.WithLocation(loc),
		eventlog.WithRetentionDays(cfg.EventLog.RetentionDays),
		eventlog.WithLogger(logger),
		eventlog.WithMalformedObserver(func(_, reason string) {
			metrics.RecordMalformedLogEntries(context.Background(), reason, 1)
		}),
	)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.gateway, a.backend, err = a.buildGateway(ctx, opts.Getenv)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.scheduling, err = scheduling.NewService(scheduling.Config{
		Gateway:    a.gateway,
		Log:        a.events,
		CalendarID: cfg.Calendar.ID,
		Location:   loc,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create scheduling service: %w", err)
	}

	a.registry, err = calendar_tools.NewRegistry(a.scheduling,
		calendar_tools.WithLogger(logger),
		calendar_tools.WithInstrumentation(common.Instrumentation{
			Metrics: metrics,
			Audit:   instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
		}),
	)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to create capability registry: %w", err)
	}

	if opts.Agent {
		if err := a.buildAgent(); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}

	if opts.Transcripts {
		a.transcripts, err = transcript.Open(ctx, cfg.Transcript.Path, transcript.WithLogger(logger))
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to open transcript store: %w", err)
		}
	}

	logger.Debug("runtime ready",
		slog.String("calendar_backend", a.backend),
		slog.String("eventlog_dir", a.events.Dir()),
		slog.String("timezone", loc.String()))
	return a, nil
}

// buildGateway returns the configured gateway wrapped in a Guard, or nil
// when no backend is available. With backend auto, missing Google
// credentials fall back to no backend; with backend google they are fatal.
func (a *app) buildGateway(ctx context.Context, getenv func(string) string) (calendar.Gateway, string, error) {
	cc := a.cfg.Calendar

	var (
		inner   calendar.Gateway
		backend string
	)
	switch cc.Backend {
	case config.BackendNone:
		a.logger.Info("no calendar backend configured, using the activity log")
		return nil, config.BackendNone, nil

	case config.BackendMemory:
		inner, backend = calendar.NewMemoryGateway(), instrumentation.BackendMemory

	case config.BackendGoogle, config.BackendAuto:
		creds, err := google.Resolve(ctx, a.logger, google.DefaultSources(google.Options{
			SecretFile:      cc.SecretFile,
			CredentialsFile: cc.CredentialsFile,
			Getenv:          getenv,
		})...)
		if err != nil {
			if cc.Backend == config.BackendAuto && errors.Is(err, google.ErrCredentialsUnavailable) {
				a.logger.Warn("google credentials unavailable, using the activity log", logging.Err(err))
				return nil, config.BackendNone, nil
			}
			return nil, "", fmt.Errorf("failed to resolve google credentials: %w", err)
		}
		gw, err := calendar.NewGoogleGateway(ctx, creds.TokenSource, a.loc)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create google calendar gateway: %w", err)
		}
		inner, backend = gw, instrumentation.BackendGoogle

	default:
		return nil, "", fmt.Errorf("unknown calendar backend %q", cc.Backend)
	}

	return calendar.NewGuard(inner, calendar.GuardConfig{
		Backend:                backend,
		Timeout:                cc.Timeout,
		MaxConsecutiveFailures: cc.Breaker.MaxFailures,
		OpenTimeout:            cc.Breaker.OpenTimeout,
		Metrics:                a.provider.Metrics(),
		Logger:                 a.logger,
	}), backend, nil
}

func (a *app) buildAgent() error {
	mc := a.cfg.Model
	if mc.APIKey == "" {
		return errors.New("model.api_key is not set (use AGENDA_MODEL_API_KEY or HUGGINGFACEHUB_API_TOKEN)")
	}

	llm, err := model.NewOpenAI(model.Config{
		BaseURL:     mc.BaseURL,
		APIKey:      mc.APIKey,
		Name:        mc.Name,
		MaxTokens:   mc.MaxTokens,
		Temperature: mc.Temperature,
		Timeout:     mc.Timeout,
		Logger:      a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create model adapter: %w", err)
	}

	loc := a.loc
	a.orchestrator, err = agent.New(agent.Config{
		Model:         llm,
		Capabilities:  a.registry,
		MaxRoundTrips: a.cfg.Agent.MaxRoundTrips,
		HistoryWindow: a.cfg.Agent.HistoryWindow,
		VoiceFriendly: a.cfg.Agent.VoiceFriendlyTimes,
		ModelName:     llm.Name(),
		Now:           func() time.Time { return time.Now().In(loc) },
		Logger:        a.logger,
		Metrics:       a.provider.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return nil
}

// Close releases the transcript store and flushes instrumentation.
func (a *app) Close(ctx context.Context) {
	if a.transcripts != nil {
		if err := a.transcripts.Close(); err != nil {
			a.logger.Warn("failed to close transcript store", logging.Err(err))
		}
	}
	if a.provider != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.provider.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}
}
