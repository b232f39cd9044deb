package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SUBBURN_DATABASE", "SUBBURN_USER_ID", "SUBBURN_TELEGRAM_TOKEN", "SUBBURN_DAEMON_ADDR", "SUBBURN_ENV", "SUBBURN_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadFile_MissingReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.General.UserID != "default" {
		t.Errorf("UserID = %q", cfg.General.UserID)
	}
	if cfg.Projection.TTL() != 10*time.Minute {
		t.Errorf("TTL = %v", cfg.Projection.TTL())
	}
	if cfg.Daemon.AlertSchedule != "0 9 * * *" {
		t.Errorf("AlertSchedule = %q", cfg.Daemon.AlertSchedule)
	}
	if cfg.Env.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Env.LogLevel)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.General.UserID = "alice"
	cfg.Budget.DefaultLimit = "42.50"
	cfg.Alerts.Transport = "telegram"
	cfg.Alerts.TelegramChats = map[string]int64{"alice": 12345}
	if err := SaveFile(path, cfg); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.General.UserID != "alice" || got.Alerts.TelegramChats["alice"] != 12345 {
		t.Errorf("loaded = %+v", got)
	}
	if got.Budget.Limit().String() != "42.5" {
		t.Errorf("Limit = %s, want 42.5", got.Budget.Limit())
	}
}

func TestEnvOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUBBURN_DATABASE", "postgres://localhost/subburn")
	t.Setenv("SUBBURN_USER_ID", "bob")
	t.Setenv("SUBBURN_DAEMON_ADDR", ":9999")
	t.Setenv("SUBBURN_TELEGRAM_TOKEN", "tok")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DatabaseDSN() != "postgres://localhost/subburn" {
		t.Errorf("DSN = %q", cfg.DatabaseDSN())
	}
	if cfg.General.UserID != "bob" || cfg.Daemon.Addr != ":9999" || cfg.Alerts.TelegramToken != "tok" {
		t.Errorf("overlay not applied: %+v", cfg)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[general\nuser_id = "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFallbacks(t *testing.T) {
	if got := (BudgetConfig{DefaultLimit: "-3"}).Limit().String(); got != "100" {
		t.Errorf("Limit = %s, want 100", got)
	}
	if got := (ProjectionConfig{CacheTTL: "soon"}).TTL(); got != 10*time.Minute {
		t.Errorf("TTL = %v", got)
	}
	if got := (DaemonConfig{RefreshInterval: "30s"}).Refresh(); got != 30*time.Second {
		t.Errorf("Refresh = %v", got)
	}
	p := ProjectionConfig{}
	if p.Horizon() != 12 || p.DueSoon() != 7 {
		t.Errorf("Horizon/DueSoon = %d/%d", p.Horizon(), p.DueSoon())
	}
}
