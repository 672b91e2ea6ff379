package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del dashboard.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Auth      AuthConfig      `yaml:"auth"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Storage   StorageConfig   `yaml:"storage"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig contiene las URLs y límites del backend de monitoreo.
type APIConfig struct {
	BaseURL        string  `yaml:"base_url"`  // host, sin path
	AuthPath       string  `yaml:"auth_path"` // /login, /validate, /refresh cuelgan de acá
	APIPath        string  `yaml:"api_path"`  // /trading/* cuelga de acá
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
}

// AuthConfig controla la sesión persistida.
type AuthConfig struct {
	Namespace    string `yaml:"namespace"`     // prefijo de las claves persistidas
	RefreshHours int    `yaml:"refresh_hours"` // cadencia del auto-refresh del token
	Email        string `yaml:"-"`            // solo desde env
	Password     string `yaml:"-"`            // solo desde env
}

// DashboardConfig controla el polling.
type DashboardConfig struct {
	RefreshSeconds int    `yaml:"refresh_seconds"`
	AutoRefresh    *bool  `yaml:"auto_refresh"` // nil = default (true)
	LogsLimit      int    `yaml:"logs_limit"`
	DebounceMS     int    `yaml:"debounce_ms"`
	BotID          string `yaml:"bot_id"` // vacío = logs de todos los bots
}

// StorageConfig controla dónde se persiste la sesión.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // sqlite | redis | memory
	DSN       string `yaml:"dsn"`     // ruta al archivo SQLite, o ":memory:"
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
}

// AlertsConfig controla el reenvío de avisos a Telegram. Sin token no hay alertas.
type AlertsConfig struct {
	Level          string `yaml:"level"` // nivel mínimo: info | success | warning | error
	TelegramToken  string `yaml:"-"`     // solo desde env
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json | tint
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un path vacío o inexistente no es error: se usan env y defaults.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
			}
		case os.IsNotExist(err):
			// sin archivo: env + defaults
		default:
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// AuthBase es la URL base de los endpoints de autenticación.
func (c *Config) AuthBase() string {
	return strings.TrimRight(c.API.BaseURL, "/") + c.API.AuthPath
}

// Timeout devuelve el timeout por request.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// TokenRefreshInterval devuelve la cadencia del auto-refresh del token.
func (c *Config) TokenRefreshInterval() time.Duration {
	return time.Duration(c.Auth.RefreshHours) * time.Hour
}

// RefreshInterval devuelve el período del polling de datos.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshSeconds) * time.Second
}

// Debounce devuelve la espera de los filtros.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Dashboard.DebounceMS) * time.Millisecond
}

// AutoRefresh informa si el polling arranca activo.
func (c *Config) AutoRefresh() bool {
	return c.Dashboard.AutoRefresh == nil || *c.Dashboard.AutoRefresh
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BOTDASH_API_BASE"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("BOTDASH_EMAIL"); v != "" {
		cfg.Auth.Email = v
	}
	if v := os.Getenv("BOTDASH_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv("BOTDASH_STORAGE"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Alerts.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Alerts.TelegramChatID = id
	}
	if v := os.Getenv("BOTDASH_REFRESH_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOTDASH_REFRESH_SECONDS: %w", err)
		}
		cfg.Dashboard.RefreshSeconds = n
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8080"
	}
	if cfg.API.AuthPath == "" {
		cfg.API.AuthPath = "/api/v1/auth"
	}
	if cfg.API.APIPath == "" {
		cfg.API.APIPath = "/api/v1"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}
	if cfg.API.RatePerSec <= 0 {
		cfg.API.RatePerSec = 10
	}
	if cfg.Auth.Namespace == "" {
		cfg.Auth.Namespace = "crypgo"
	}
	if cfg.Auth.RefreshHours <= 0 {
		cfg.Auth.RefreshHours = 23 // los tokens duran 24h
	}
	if cfg.Dashboard.RefreshSeconds <= 0 {
		cfg.Dashboard.RefreshSeconds = 30
	}
	if cfg.Dashboard.LogsLimit <= 0 {
		cfg.Dashboard.LogsLimit = 10
	}
	if cfg.Dashboard.DebounceMS <= 0 {
		cfg.Dashboard.DebounceMS = 300
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "botdash.db"
	}
	if cfg.Storage.RedisAddr == "" {
		cfg.Storage.RedisAddr = "localhost:6379"
	}
	if cfg.Alerts.Level == "" {
		cfg.Alerts.Level = "warning"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	switch c.Alerts.Level {
	case "info", "success", "warning", "error":
	default:
		return fmt.Errorf("alerts.level: unknown level %q", c.Alerts.Level)
	}
	if c.Alerts.TelegramToken != "" && c.Alerts.TelegramChatID == 0 {
		return fmt.Errorf("alerts: TELEGRAM_BOT_TOKEN set without telegram_chat_id")
	}
	switch c.Log.Format {
	case "text", "json", "tint":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}
