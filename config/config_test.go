package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/botdash/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// clearEnv aísla el test de variables del entorno de CI.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "BOTDASH_API_BASE", "BOTDASH_EMAIL",
		"BOTDASH_PASSWORD", "BOTDASH_STORAGE", "REDIS_ADDR", "BOTDASH_REFRESH_SECONDS",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	assert.Equal(t, "http://localhost:8080/api/v1/auth", cfg.AuthBase())
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval())
	assert.Equal(t, 23*time.Hour, cfg.TokenRefreshInterval())
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 10, cfg.Dashboard.LogsLimit)
	assert.True(t, cfg.AutoRefresh())
	assert.Equal(t, "crypgo", cfg.Auth.Namespace)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "botdash.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "warning", cfg.Alerts.Level)
	assert.Empty(t, cfg.Alerts.TelegramToken)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
api:
  base_url: https://bots.example.com/
  rate_per_sec: 2
dashboard:
  refresh_seconds: 5
  auto_refresh: false
  logs_limit: 25
  bot_id: abc
storage:
  backend: memory
log:
  level: debug
  format: tint
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bots.example.com/api/v1/auth", cfg.AuthBase())
	assert.Equal(t, 2.0, cfg.API.RatePerSec)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval())
	assert.False(t, cfg.AutoRefresh())
	assert.Equal(t, 25, cfg.Dashboard.LogsLimit)
	assert.Equal(t, "abc", cfg.Dashboard.BotID)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "tint", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "log:\n  level: info\n")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("BOTDASH_API_BASE", "http://10.0.0.5:9000")
	t.Setenv("BOTDASH_EMAIL", "ana@example.com")
	t.Setenv("BOTDASH_PASSWORD", "secret")
	t.Setenv("BOTDASH_STORAGE", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("BOTDASH_REFRESH_SECONDS", "12")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001234")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://10.0.0.5:9000", cfg.API.BaseURL)
	assert.Equal(t, "ana@example.com", cfg.Auth.Email)
	assert.Equal(t, "secret", cfg.Auth.Password)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis:6379", cfg.Storage.RedisAddr)
	assert.Equal(t, 12*time.Second, cfg.RefreshInterval())
	assert.Equal(t, "123:abc", cfg.Alerts.TelegramToken)
	assert.Equal(t, int64(-1001234), cfg.Alerts.TelegramChatID)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(writeConfig(t, "storage:\n  backend: mongo\n"))
	assert.ErrorContains(t, err, "unknown backend")

	_, err = config.Load(writeConfig(t, "log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "unknown format")

	_, err = config.Load(writeConfig(t, "api: [not, a, map"))
	assert.ErrorContains(t, err, "parse YAML")

	_, err = config.Load(writeConfig(t, "alerts:\n  level: loud\n"))
	assert.ErrorContains(t, err, "unknown level")

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	_, err = config.Load(writeConfig(t, ""))
	assert.ErrorContains(t, err, "telegram_chat_id")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	t.Setenv("BOTDASH_REFRESH_SECONDS", "soon")
	_, err = config.Load(writeConfig(t, ""))
	assert.ErrorContains(t, err, "BOTDASH_REFRESH_SECONDS")
}

func TestLoad_ShippedConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "crypgo", cfg.Auth.Namespace)
	assert.True(t, cfg.AutoRefresh())
}
