// Package config loads runtime settings from the environment (optionally seeded
// from a .env file) and holds the fixed chat constants.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	BackendLocal = "local"
	BackendRedis = "redis"

	defaultDSN = "host=localhost user=user password=password dbname=globalchatdb port=5432 sslmode=disable"
)

var ErrMissingSecret = errors.New("JWT_SECRET must not be empty")

type Config struct {
	Port             int           `env:"PORT,default=8080"`
	DatabaseDSN      string        `env:"DATABASE_DSN"`
	RedisAddr        string        `env:"REDIS_ADDR,default=localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB,default=0"`
	JWTSecret        string        `env:"JWT_SECRET,required=true"`
	JWTIssuer        string        `env:"JWT_ISSUER,default=globalchat-service"`
	TokenTTL         time.Duration `env:"TOKEN_TTL,default=72h"`
	BroadcastBackend string        `env:"BROADCAST_BACKEND,default=local"`
	LogLevel         string        `env:"LOG_LEVEL,default=INFO"`
	DefaultLanguage  string        `env:"DEFAULT_LANGUAGE,default=en"`
	AllowedOrigins   string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize   int           `env:"MAX_MESSAGE_SIZE,default=4096"`
	SendBufferSize   int           `env:"SEND_BUFFER_SIZE,default=256"`
	HandleCacheTTL   time.Duration `env:"HANDLE_CACHE_TTL,default=5m"`
	HistoryLimit     int           `env:"HISTORY_LIMIT,default=50"`
}

// Load reads .env (if present) and the process environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded", "error", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if cfg.JWTSecret == "" {
		return Config{}, ErrMissingSecret
	}
	return Sanitize(cfg), nil
}

// Sanitize replaces empty or out-of-range values with their defaults.
func Sanitize(cfg Config) Config {
	if cfg.Port <= 0 {
		cfg.Port = 8080
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = defaultDSN
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	if cfg.BroadcastBackend != BackendRedis {
		cfg.BroadcastBackend = BackendLocal
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "INFO"
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	if cfg.HandleCacheTTL <= 0 {
		cfg.HandleCacheTTL = 5 * time.Minute
	}
	if cfg.HistoryLimit <= 0 || cfg.HistoryLimit > MaxHistoryLimit {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return cfg
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Origins splits ALLOWED_ORIGINS into trimmed, non-empty entries.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
