package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.TargetDir)
	assert.Equal(t, "transfers.db", cfg.DBPath)
	assert.Equal(t, int64(1048576), cfg.ProgressInterval)
	assert.Equal(t, 8080, cfg.Proxy.Port)
	assert.False(t, cfg.HasProxy())
	assert.False(t, cfg.Web.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Web.ShutdownTimeout)
	assert.Equal(t, 720*time.Hour, cfg.HistoryRetention)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("HTTPFETCH_TARGET_DIR", "/tmp/downloads")
	t.Setenv("HTTPFETCH_PROXY_HOST", "proxy.local")
	t.Setenv("HTTPFETCH_PROXY_PORT", "3128")
	t.Setenv("HTTPFETCH_PROXY_USERNAME", "squid")
	t.Setenv("HTTPFETCH_AUTH_USERNAME", "alice")
	t.Setenv("HTTPFETCH_WEB_BIND_ADDRESS", "0.0.0.0:9000")
	t.Setenv("HTTPFETCH_TELEMETRY_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("HTTPFETCH_HISTORY_RETENTION", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/downloads", cfg.TargetDir)
	assert.True(t, cfg.HasProxy())
	assert.Equal(t, "proxy.local", cfg.Proxy.Host)
	assert.Equal(t, 3128, cfg.Proxy.Port)
	assert.Equal(t, "squid", cfg.Proxy.Username)
	assert.Equal(t, "alice", cfg.Auth.Username)
	assert.Equal(t, "0.0.0.0:9000", cfg.Web.BindAddress)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Zero(t, cfg.HistoryRetention)
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Setenv("HTTPFETCH_PROXY_PORT", "not-a-port")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			assert.Equal(t, tt.want, cfg.SlogLevel())
		})
	}
}
