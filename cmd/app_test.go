package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/agenda/internal/config"
	"github.com/teemow/agenda/internal/google"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())

	v := config.New()
	v.Set("telemetry.enabled", false)
	v.Set("eventlog.dir", t.TempDir())
	v.Set("calendar.backend", backend)
	v.Set("calendar.secret_file", "")
	v.Set("calendar.timezone", "UTC")
	v.Set("transcript.path", "")
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	return cfg
}

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestNewApp_Backends(t *testing.T) {
	tests := []struct {
		name        string
		backend     string
		env         map[string]string
		wantBackend string
		wantGateway bool
		wantErr     bool
	}{
		{name: "none", backend: config.BackendNone, wantBackend: config.BackendNone},
		{name: "memory", backend: config.BackendMemory, wantBackend: "memory", wantGateway: true},
		{name: "auto without credentials", backend: config.BackendAuto, wantBackend: config.BackendNone},
		{
			name:    "auto with refresh token",
			backend: config.BackendAuto,
			env: map[string]string{
				google.EnvClientID:     "client",
				google.EnvClientSecret: "secret",
				google.EnvRefreshToken: "refresh",
			},
			wantBackend: "google",
			wantGateway: true,
		},
		{name: "google without credentials", backend: config.BackendGoogle, wantErr: true},
		{
			name:    "google with broken credentials",
			backend: config.BackendGoogle,
			env:     map[string]string{google.EnvCredentials: `{"type":"unknown"}`},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.backend)
			var logs bytes.Buffer
			a, err := newApp(context.Background(), cfg, appOptions{LogOutput: &logs, Getenv: envOf(tt.env)})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer a.Close(context.Background())

			assert.Equal(t, tt.wantBackend, a.backend)
			assert.Equal(t, tt.wantGateway, a.gateway != nil)
			assert.Equal(t, tt.wantGateway, a.scheduling.BackendAvailable())
			assert.Len(t, a.registry.Tools(), 10)
			assert.Nil(t, a.orchestrator)
			assert.Nil(t, a.transcripts)
		})
	}
}

func TestNewApp_AgentRequiresAPIKey(t *testing.T) {
	cfg := testConfig(t, config.BackendNone)
	cfg.Model.APIKey = ""

	_, err := newApp(context.Background(), cfg, appOptions{LogOutput: &bytes.Buffer{}, Agent: true, Getenv: envOf(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.api_key")
}

func TestNewApp_Full(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Model.APIKey = "test-token"

	a, err := newApp(context.Background(), cfg, appOptions{
		LogOutput:   &bytes.Buffer{},
		Agent:       true,
		Transcripts: true,
		Getenv:      envOf(nil),
	})
	require.NoError(t, err)
	defer a.Close(context.Background())

	require.NotNil(t, a.orchestrator)
	assert.Equal(t, cfg.Agent.MaxRoundTrips, a.orchestrator.MaxRoundTrips())
	require.NotNil(t, a.transcripts)
	require.NoError(t, a.transcripts.Ping(context.Background()))
}
