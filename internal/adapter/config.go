package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mmcdole/libdesk/internal/domain"
	"github.com/spf13/viper"
)

// FeedDriver identifies the change-notification backend
type FeedDriver string

const (
	FeedDriverNone     FeedDriver = "none"
	FeedDriverSupabase FeedDriver = "supabase"
	FeedDriverPostgres FeedDriver = "postgres"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Cache    CacheConfig    `mapstructure:"cache"`
	UI       UIConfig       `mapstructure:"ui"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds the library API location
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig is the persisted login. Written by SaveSession, wiped by
// ClearSession.
type SessionConfig struct {
	Token string `mapstructure:"token"`
	Email string `mapstructure:"email"`
	Role  string `mapstructure:"role"`
}

// RealtimeConfig selects and configures the change feed
type RealtimeConfig struct {
	Driver     FeedDriver    `mapstructure:"driver"`      // "supabase", "postgres" or "none"
	URL        string        `mapstructure:"url"`         // Supabase project URL
	Key        string        `mapstructure:"key"`         // Supabase anon key
	DSN        string        `mapstructure:"dsn"`         // Postgres connection string
	RetryDelay time.Duration `mapstructure:"retry_delay"` // wait before resubscribing after a drop
}

// RefreshConfig tunes the refresh coordinator
type RefreshConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// CacheConfig holds snapshot cache configuration
type CacheConfig struct {
	Dir string `mapstructure:"dir"` // empty = memory only
}

// UIConfig holds UI configuration
type UIConfig struct {
	DefaultPage string `mapstructure:"default_page"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MetricsConfig holds the watch-mode metrics listener
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty = disabled
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     "",
			Timeout: 30 * time.Second,
		},
		Realtime: RealtimeConfig{
			Driver:     FeedDriverNone,
			RetryDelay: 5 * time.Second,
		},
		Refresh: RefreshConfig{
			Debounce: 100 * time.Millisecond,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		UI: UIConfig{
			DefaultPage: "",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "libdesk", "libdesk.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "libdesk", "libdesk.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "libdesk")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "libdesk")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "libdesk", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "libdesk", "cache")
	}
}

// LoadConfig loads configuration from file, .env and environment.
// configFile overrides the search path when non-empty.
func LoadConfig(configFile string) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	cfg := DefaultConfig()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(defaultConfigPath())
		viper.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. LIBDESK_SERVER_URL
	viper.SetEnvPrefix("LIBDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvKeys()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(configFile != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// bindEnvKeys registers keys that have no config-file default so
// AutomaticEnv picks them up during Unmarshal.
func bindEnvKeys() {
	for _, key := range []string{
		"server.url", "server.timeout",
		"session.token", "session.email", "session.role",
		"realtime.driver", "realtime.url", "realtime.key", "realtime.dsn", "realtime.retry_delay",
		"refresh.debounce",
		"cache.dir",
		"ui.default_page",
		"logging.file", "logging.level",
		"metrics.addr",
	} {
		_ = viper.BindEnv(key)
	}
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.timeout", cfg.Server.Timeout.String())

	viper.Set("session.token", cfg.Session.Token)
	viper.Set("session.email", cfg.Session.Email)
	viper.Set("session.role", cfg.Session.Role)

	viper.Set("realtime.driver", string(cfg.Realtime.Driver))
	viper.Set("realtime.url", cfg.Realtime.URL)
	viper.Set("realtime.key", cfg.Realtime.Key)
	viper.Set("realtime.dsn", cfg.Realtime.DSN)
	viper.Set("realtime.retry_delay", cfg.Realtime.RetryDelay.String())

	viper.Set("refresh.debounce", cfg.Refresh.Debounce.String())
	viper.Set("cache.dir", cfg.Cache.Dir)
	viper.Set("ui.default_page", cfg.UI.DefaultPage)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)
	viper.Set("metrics.addr", cfg.Metrics.Addr)

	return writeConfig()
}

// SaveSession persists the login so the next run restores it
func SaveSession(token, email string, role domain.Role) error {
	viper.Set("session.token", token)
	viper.Set("session.email", email)
	viper.Set("session.role", string(role))
	return writeConfig()
}

// ClearSession removes the persisted login while preserving other settings
func ClearSession() error {
	viper.Set("session.token", "")
	viper.Set("session.email", "")
	viper.Set("session.role", "")
	return writeConfig()
}

func writeConfig() error {
	if used := viper.ConfigFileUsed(); used != "" {
		if err := os.MkdirAll(filepath.Dir(used), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := viper.WriteConfigAs(used); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
		return nil
	}

	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsConfigured returns true if the server URL is set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != ""
}

// CacheDirFor returns the per-server, per-user cache directory.
// Switching accounts or servers never mixes cached collections.
func (c *Config) CacheDirFor(email string) string {
	if c.Cache.Dir == "" {
		return ""
	}
	normalized := strings.TrimRight(strings.ToLower(c.Server.URL), "/") + "|" + strings.ToLower(email)
	hash := sha256.Sum256([]byte(normalized))
	return filepath.Join(c.Cache.Dir, hex.EncodeToString(hash[:6]))
}

// ClearCache removes all cached data under dir
func ClearCache(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
