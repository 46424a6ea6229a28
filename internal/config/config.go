package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. HTTPFETCH_TARGET_DIR.
const EnvPrefix = "HTTPFETCH"

// Config struct for environment variables.
type Config struct {
	TargetDir         string `envconfig:"TARGET_DIR" default:"."`
	LogLevel          string `envconfig:"LOG_LEVEL" default:"INFO"`
	DBPath            string `envconfig:"DB_PATH" default:"transfers.db"`
	DiscordWebhookURL string `envconfig:"DISCORD_WEBHOOK_URL"`
	Title             string `envconfig:"TITLE" default:"httpfetch"`

	// HistoryRetention is how long finished transfers stay in the history.
	// Zero keeps them forever.
	HistoryRetention time.Duration `envconfig:"HISTORY_RETENTION" default:"720h"`

	// ProgressInterval is the number of bytes between two progress events.
	ProgressInterval int64 `envconfig:"PROGRESS_INTERVAL" default:"1048576"`

	Proxy struct {
		Host     string `split_words:"true"`
		Port     int    `split_words:"true" default:"8080"`
		Username string `split_words:"true"`
		Password string `split_words:"true"`
	}

	// Auth holds credentials answered to authentication challenges when the
	// interactive prompt is disabled.
	Auth struct {
		Username string `split_words:"true"`
		Password string `split_words:"true"`
	}

	Telemetry struct {
		Enabled      bool   `split_words:"true" default:"false"`
		OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	}

	Web struct {
		Enabled         bool          `split_words:"true" default:"false"`
		BindAddress     string        `split_words:"true" default:"127.0.0.1:9092"`
		Username        string        `split_words:"true"`
		Password        string        `split_words:"true"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"5s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

// HasProxy reports whether a proxy host was configured.
func (c *Config) HasProxy() bool {
	return c.Proxy.Host != ""
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
