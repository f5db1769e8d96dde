package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tiliavir/timeex/internal/config"
)

func TestLoadFileWritesTemplateOnFirstRun(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.json")

	cfg, err := config.LoadFile(path, home)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.Backend != config.DefaultBackend || cfg.Session.TTLHours != 24 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	// The written template must parse back to the same defaults.
	again, err := config.LoadFile(path, home)
	if err != nil {
		t.Fatalf("LoadFile on template: %v", err)
	}
	if again.Archive.ScanSchedule != config.DefaultScanSchedule || again.Privacy.RetentionDays != 730 {
		t.Errorf("template did not round-trip: %+v", again)
	}
	if !again.Session.SeedDemoUser {
		t.Error("template disables the demo user")
	}
	if err := again.Validate(); err != nil {
		t.Errorf("template config invalid: %v", err)
	}
}

func TestLoadFilePartialWithComments(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.json")
	content := `// custom
{
  // use sqlite
  "storage": {"backend": "sqlite", "sqlite_path": ""},
  "timer": {"default_hourly_rate": 85}
}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFile(path, home)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.SQLiteFile() != filepath.Join(home, config.DefaultSQLitePath) {
		t.Errorf("SQLiteFile = %q", cfg.SQLiteFile())
	}
	if cfg.Timer.DefaultHourlyRate != 85 {
		t.Errorf("DefaultHourlyRate = %v, want 85", cfg.Timer.DefaultHourlyRate)
	}
	if cfg.Outlook.ClientID != config.DefaultClientID {
		t.Errorf("ClientID default not applied")
	}
	if cfg.Session.TTLHours != 24 {
		t.Errorf("TTLHours = %d, want default 24", cfg.Session.TTLHours)
	}
}

func TestLoadFileInvalidJSON(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFile(path, home); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvBackend, "sqlite")
	t.Setenv(config.EnvSQLitePath, "/tmp/other.db")
	t.Setenv(config.EnvLogLevel, "debug")
	t.Setenv(config.EnvArchiveSchedule, "@every 15m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Home != home {
		t.Errorf("Home = %q, want %q", cfg.Home, home)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.SQLiteFile() != "/tmp/other.db" {
		t.Errorf("storage overrides not applied: %+v", cfg.Storage)
	}
	if cfg.LogLevel != "debug" || cfg.Archive.ScanSchedule != "@every 15m" {
		t.Errorf("overrides not applied: level=%q schedule=%q", cfg.LogLevel, cfg.Archive.ScanSchedule)
	}
	if cfg.DataDir() != filepath.Join(home, "data") {
		t.Errorf("DataDir = %q", cfg.DataDir())
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	home := t.TempDir()
	cfg, err := config.LoadFile(filepath.Join(home, "config.json"), home)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Storage.Backend = "postgres"
	cfg.Archive.ScanSchedule = "every hour please"
	cfg.Session.TTLHours = 0
	cfg.Timer.DefaultHourlyRate = -1
	cfg.Outlook.Timezone = "Mars/Olympus"
	cfg.LogLevel = "loud"

	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"storage backend", "scan schedule", "ttl_hours", "default_hourly_rate", "timezone", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
