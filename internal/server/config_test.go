package server

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	require.EqualValues(t, 1<<20, cfg.MaxMessageSize)
	require.Equal(t, 256, cfg.SendBufferSize)
	require.Equal(t, []string{"general"}, cfg.DefaultRooms)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestConfigSanitize(t *testing.T) {
	cfg := Config{
		AllowedOrigins: []string{" http://a.test ", "", "  "},
		DefaultRooms:   []string{"general", " random "},
		MaxMessageSize: -1,
		SendBufferSize: 0,
	}.Sanitize()

	require.Equal(t, ":8080", cfg.Port)
	require.Equal(t, []string{"http://a.test"}, cfg.AllowedOrigins)
	require.Equal(t, []string{"general", "random"}, cfg.DefaultRooms)
	require.EqualValues(t, defaultMaxMessageSize, cfg.MaxMessageSize)
	require.Equal(t, defaultSendBufferSize, cfg.SendBufferSize)
	require.Equal(t, defaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, https://b.test")
	t.Setenv("DEFAULT_ROOMS", "lobby,random")
	t.Setenv("SEND_BUFFER_SIZE", "8")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Port)
	require.Equal(t, []string{"http://a.test", "https://b.test"}, cfg.AllowedOrigins)
	require.Equal(t, []string{"lobby", "random"}, cfg.DefaultRooms)
	require.Equal(t, 8, cfg.SendBufferSize)
	require.EqualValues(t, 1<<20, cfg.MaxMessageSize)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "lots")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "parse env")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for name, want := range tests {
		require.Equal(t, want, ParseLogLevel(name), "level %q", name)
	}
}
