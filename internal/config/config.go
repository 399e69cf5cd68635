// Package config loads the assistant's configuration with viper.
//
// Values come from, in increasing precedence: built-in defaults, a YAML
// config file, AGENDA_* environment variables and command-line flags bound
// by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. AGENDA_LOG_LEVEL.
const EnvPrefix = "AGENDA"

// Calendar backends.
const (
	BackendAuto   = "auto"
	BackendGoogle = "google"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config is the full configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	EventLog   EventLogConfig   `mapstructure:"eventlog"`
	Calendar   CalendarConfig   `mapstructure:"calendar"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Model      ModelConfig      `mapstructure:"model"`
	Transcript TranscriptConfig `mapstructure:"transcript"`
	Server     ServerConfig     `mapstructure:"server"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

type EventLogConfig struct {
	Dir           string `mapstructure:"dir" validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=1"`
}

type CalendarConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=auto google memory none"`
	ID              string        `mapstructure:"id" validate:"required"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Timezone        string        `mapstructure:"timezone" validate:"required"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	SecretFile      string        `mapstructure:"secret_file"`
	Breaker         BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" validate:"gte=1"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
}

type AgentConfig struct {
	MaxRoundTrips      int  `mapstructure:"max_round_trips" validate:"gte=1"`
	HistoryWindow      int  `mapstructure:"history_window"`
	VoiceFriendlyTimes bool `mapstructure:"voice_friendly_times"`
}

type ModelConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"required,url"`
	Name        string        `mapstructure:"name" validate:"required"`
	APIKey      string        `mapstructure:"api_key"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"gte=1"`
	Temperature float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

type TranscriptConfig struct {
	// Path is the sqlite file. Empty keeps transcripts in memory.
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr           string `mapstructure:"addr" validate:"required"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

type TelemetryConfig struct {
	Enabled           bool        `mapstructure:"enabled"`
	MetricsExporter   string      `mapstructure:"metrics_exporter" validate:"oneof=prometheus otlp stdout"`
	TracingExporter   string      `mapstructure:"tracing_exporter" validate:"oneof=otlp stdout none"`
	OTLPEndpoint      string      `mapstructure:"otlp_endpoint"`
	OTLPInsecure      bool        `mapstructure:"otlp_insecure"`
	TraceSamplingRate float64     `mapstructure:"trace_sampling_rate" validate:"gte=0,lte=1"`
	Audit             AuditConfig `mapstructure:"audit"`
}

type AuditConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	IncludeArguments bool `mapstructure:"include_arguments"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("eventlog.dir", "./event_logs")
	v.SetDefault("eventlog.retention_days", 7)

	v.SetDefault("calendar.backend", BackendAuto)
	v.SetDefault("calendar.id", "primary")
	v.SetDefault("calendar.timeout", 10*time.Second)
	v.SetDefault("calendar.timezone", "Local")
	v.SetDefault("calendar.credentials_file", "")
	v.SetDefault("calendar.secret_file", "/var/run/secrets/agenda/google.json")
	v.SetDefault("calendar.breaker.max_failures", 5)
	v.SetDefault("calendar.breaker.open_timeout", 30*time.Second)

	v.SetDefault("agent.max_round_trips", 8)
	v.SetDefault("agent.history_window", 40)
	v.SetDefault("agent.voice_friendly_times", true)

	v.SetDefault("model.base_url", "https://router.huggingface.co/v1")
	v.SetDefault("model.name", "deepseek-ai/DeepSeek-V3.2")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.temperature", 0.2)
	v.SetDefault("model.timeout", 60*time.Second)

	v.SetDefault("transcript.path", "./agenda.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.metrics_enabled", true)

	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_exporter", "prometheus")
	v.SetDefault("telemetry.tracing_exporter", "none")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.trace_sampling_rate", 0.1)
	v.SetDefault("telemetry.audit.enabled", true)
	v.SetDefault("telemetry.audit.include_arguments", false)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The model router token is commonly exported under its own name.
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "HUGGINGFACEHUB_API_TOKEN")
	return v
}

// Load reads the config file (explicit path, or agenda.yaml in the working
// directory or $XDG_CONFIG_HOME/agenda), unmarshals and validates. A missing
// default config file is not an error; a missing explicit one is.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("agenda")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "agenda"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enums.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := c.Calendar.Location(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Location resolves the configured time zone.
func (c CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar.timezone: %w", err)
	}
	return loc, nil
}
