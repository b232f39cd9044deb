// Package config loads subburn settings from a TOML file with an
// environment overlay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/subburn/internal/model"
)

// Config holds all subburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Budget     BudgetConfig     `toml:"budget"`
	Projection ProjectionConfig `toml:"projection"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Alerts     AlertsConfig     `toml:"alerts"`

	// Env is populated from SUBBURN_* variables and never written to disk.
	Env Environment `toml:"-"`
}

// GeneralConfig holds the default user and database location.
type GeneralConfig struct {
	UserID   string `toml:"user_id"`
	Database string `toml:"database,omitempty"`
}

// BudgetConfig holds the limit applied to users without a stored setting.
type BudgetConfig struct {
	DefaultLimit  string `toml:"default_limit"`
	AlertsEnabled bool   `toml:"alerts_enabled"`
}

// ProjectionConfig holds projection preferences.
type ProjectionConfig struct {
	HorizonMonths int    `toml:"horizon_months"`
	CacheTTL      string `toml:"cache_ttl"`
	DueSoonDays   int    `toml:"due_soon_days"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr            string   `toml:"addr"`
	RefreshInterval string   `toml:"refresh_interval"`
	RepairSchedule  string   `toml:"repair_schedule"`
	AlertSchedule   string   `toml:"alert_schedule"`
	EventsBuffer    int      `toml:"events_buffer"`
	CORSOrigins     []string `toml:"cors_origins,omitempty"`
}

// AlertsConfig selects the alert transport.
type AlertsConfig struct {
	Transport     string           `toml:"transport"` // "log" or "telegram"
	TelegramToken string           `toml:"telegram_token,omitempty"`
	TelegramChats map[string]int64 `toml:"telegram_chats,omitempty"`
}

// Environment is the SUBBURN_* overlay.
type Environment struct {
	Database      string `envconfig:"DATABASE"`
	UserID        string `envconfig:"USER_ID"`
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
	DaemonAddr    string `envconfig:"DAEMON_ADDR"`
	Env           string `envconfig:"ENV" default:"production"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			UserID: "default",
		},
		Budget: BudgetConfig{
			DefaultLimit:  model.DefaultBudgetLimit.String(),
			AlertsEnabled: true,
		},
		Projection: ProjectionConfig{
			HorizonMonths: 12,
			CacheTTL:      "10m",
			DueSoonDays:   7,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			RefreshInterval: "1m",
			RepairSchedule:  "5 0 * * *",
			AlertSchedule:   "0 9 * * *",
			EventsBuffer:    200,
		},
		Alerts: AlertsConfig{
			Transport: "log",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "subburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "subburn")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "subburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "subburn")
}

// DefaultDatabasePath is the SQLite file used when no database is configured.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "subburn.db")
}

// Load reads the config file, returning defaults if it doesn't exist, and
// applies the environment overlay.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := envconfig.Process("subburn", &cfg.Env); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Env.Database != "" {
		c.General.Database = c.Env.Database
	}
	if c.Env.UserID != "" {
		c.General.UserID = c.Env.UserID
	}
	if c.Env.TelegramToken != "" {
		c.Alerts.TelegramToken = c.Env.TelegramToken
	}
	if c.Env.DaemonAddr != "" {
		c.Daemon.Addr = c.Env.DaemonAddr
	}
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveFile(Path(), cfg)
}

// SaveFile writes the config to path, creating its directory.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// DatabaseDSN returns the configured DSN or the default SQLite path.
func (c Config) DatabaseDSN() string {
	if dsn := strings.TrimSpace(c.General.Database); dsn != "" {
		return dsn
	}
	return DefaultDatabasePath()
}

// Limit returns the configured default budget limit, or
// model.DefaultBudgetLimit when unset or invalid.
func (b BudgetConfig) Limit() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(b.DefaultLimit))
	if err != nil || !d.IsPositive() {
		return model.DefaultBudgetLimit
	}
	return d
}

// TTL parses CacheTTL, defaulting to ten minutes.
func (p ProjectionConfig) TTL() time.Duration {
	return parseDuration(p.CacheTTL, 10*time.Minute)
}

// Horizon returns HorizonMonths, defaulting to 12.
func (p ProjectionConfig) Horizon() int {
	if p.HorizonMonths <= 0 {
		return 12
	}
	return p.HorizonMonths
}

// DueSoon returns DueSoonDays, defaulting to 7.
func (p ProjectionConfig) DueSoon() int {
	if p.DueSoonDays <= 0 {
		return 7
	}
	return p.DueSoonDays
}

// Refresh parses RefreshInterval, defaulting to one minute.
func (d DaemonConfig) Refresh() time.Duration {
	return parseDuration(d.RefreshInterval, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
