package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the portal gateway.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"PORTAL_HTTP_PORT" envDefault:"8090"`

	// Upstream MLM backend
	UpstreamURL      string        `env:"UPSTREAM_URL" envDefault:"https://mlm-backend.pixl.uz"`
	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`
	RealtimeURL      string        `env:"REALTIME_URL" envDefault:"wss://mlm-backend.pixl.uz/socket"`
	RealtimeDisabled bool          `env:"REALTIME_DISABLED" envDefault:"false"`

	// Durable store. Backend is "bolt" or "redis"; bolt keeps a per-profile
	// database file, redis is for hosted deployments.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"bolt"`
	DataDir        string `env:"PORTAL_DATA_DIR" envDefault:"."`
	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass      string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`

	// Daily bonus shown optimistically in the cached profile. The backend
	// ledger stays authoritative; this is display-only.
	DailyBonusCoins int64 `env:"DAILY_BONUS_COINS" envDefault:"10"`

	// Deposit request cooldown.
	DepositCooldown time.Duration `env:"DEPOSIT_COOLDOWN" envDefault:"120s"`

	// Kafka analytics events; disabled when no brokers are configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// OpenTelemetry
	TracingEnabled bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint   string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TraceSample    float64 `env:"TRACE_SAMPLE_RATE" envDefault:"1.0"`

	// CORS origin of the browser SPA. "*" is only acceptable in development.
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse portal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.StorageBackend != "bolt" && c.StorageBackend != "redis" {
		return fmt.Errorf("invalid storage backend: %q", c.StorageBackend)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.UpstreamTimeout)
	}
	u, err := url.Parse(c.UpstreamURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream URL: %q", c.UpstreamURL)
	}
	return nil
}
