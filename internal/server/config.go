// Package server provides configuration helpers that define runtime defaults,
// validation, and environment loading for the chat service.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = 1 << 20
	defaultSendBufferSize  = 256
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string        `env:"SERVER_PORT" envDefault:":8080"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:8080" envSeparator:","`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE" envDefault:"1048576"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE" envDefault:"256"`
	DefaultRooms    []string      `env:"DEFAULT_ROOMS" envDefault:"general" envSeparator:","`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns a Config populated with default values for all settings.
func DefaultConfig() Config {
	return Config{
		Port:            defaultPort,
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  defaultMaxMessageSize,
		SendBufferSize:  defaultSendBufferSize,
		DefaultRooms:    []string{"general"},
		LogLevel:        "info",
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// LoadConfig reads an optional .env file and then the process environment.
// Unset variables fall back to their defaults.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.Sanitize(), nil
}

// Sanitize replaces invalid or missing values with defaults and trims list
// entries.
func (c Config) Sanitize() Config {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	c.AllowedOrigins = trimAll(c.AllowedOrigins)
	c.DefaultRooms = trimAll(c.DefaultRooms)
	return c
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseLogLevel maps a level name to a slog level. Unknown names mean info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger. A nil writer means stderr.
func NewLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLogLevel(level)}))
}
