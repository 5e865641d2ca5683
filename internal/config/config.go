package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8095"`
	Hostname    string `env:"HOSTNAME" default:"localhost"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	MaxSocketConnections      int `env:"MAX_SOCKET_CONNECTIONS" default:"10000"`
	MaxSocketConnectionsPerIP int `env:"MAX_SOCKET_CONNECTIONS_PER_IP" default:"32"`
	SocketConnectsPerMinute   int `env:"SOCKET_CONNECTS_PER_MINUTE" default:"60"`

	// JournalSize bounds the Redis-backed event journal; only relevant
	// when REDIS_URL is set.
	JournalSize int `env:"JOURNAL_SIZE" default:"64"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// IsDevelopment reports whether the server runs with development-mode
// diagnostics (error detail in responses, permissive socket origins).
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

// JournalEnabled reports whether the Redis event journal is configured.
func (c *Config) JournalEnabled() bool {
	return c.RedisURL != ""
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	positives := map[string]int{
		"MAX_SOCKET_CONNECTIONS":        cfg.MaxSocketConnections,
		"MAX_SOCKET_CONNECTIONS_PER_IP": cfg.MaxSocketConnectionsPerIP,
		"SOCKET_CONNECTS_PER_MINUTE":    cfg.SocketConnectsPerMinute,
		"JOURNAL_SIZE":                  cfg.JournalSize,
	}
	for name, value := range positives {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}

	if cfg.AppEnv == "production" {
		if err := validateProductionSSL(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	return nil
}

func validateProductionSSL(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
