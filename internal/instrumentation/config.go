package instrumentation

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config selects exporters for the provider. The agenda's own configuration
// fills it in; see config.TelemetryConfig.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	MetricsExporter string `validate:"omitempty,oneof=prometheus otlp stdout"`
	TracingExporter string `validate:"omitempty,oneof=otlp stdout none"`
	OTLPEndpoint    string `validate:"required_if=MetricsExporter otlp,required_if=TracingExporter otlp"`
	OTLPInsecure    bool

	// TraceSamplingRate is the parent-based ratio of sampled turns.
	TraceSamplingRate float64 `validate:"gte=0,lte=1"`

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the capability audit log.
type AuditLoggingConfig struct {
	Enabled bool
	// IncludeArguments logs raw operation arguments, which carry event
	// titles and descriptions.
	IncludeArguments bool
}

// DefaultConfig is prometheus metrics, no tracing and audit logging without
// arguments.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		ServiceName:       "agenda",
		ServiceVersion:    "unknown",
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
		AuditLogging:      AuditLoggingConfig{Enabled: true},
	}
}

// Validate checks exporter names, the sampling ratio and that OTLP export
// has an endpoint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}
	return nil
}

// Label values shared by the metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"

	OutcomeReply          = "reply"
	OutcomeBudgetExceeded = "budget_exceeded"
	OutcomeModelError     = "model_error"

	BackendGoogle = "google"
	BackendMemory = "memory"
)

// Exporters.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// DefaultMetricInterval is the export interval for periodic readers.
const DefaultMetricInterval = 10 * time.Second
