package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config is the root configuration for timeex, stored in ~/.timeex/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	Storage  StorageConfig `json:"storage"`
	Archive  ArchiveConfig `json:"archive"`
	Session  SessionConfig `json:"session"`
	Privacy  PrivacyConfig `json:"privacy"`
	Timer    TimerConfig   `json:"timer"`
	Outlook  OutlookConfig `json:"outlook"`
	LogLevel string        `json:"log_level"`

	// Home is the data directory the config was loaded from.
	Home string `json:"-"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	// Backend is "file" (one JSON document per key) or "sqlite".
	Backend string `json:"backend"`
	// SQLitePath is the database file. Relative paths are resolved against Home.
	SQLitePath string `json:"sqlite_path"`
}

// ArchiveConfig controls the periodic archive scan of `timeex watch`.
type ArchiveConfig struct {
	// ScanSchedule is a cron expression or descriptor such as "@every 1h".
	ScanSchedule string `json:"scan_schedule"`
}

type SessionConfig struct {
	TTLHours     int  `json:"ttl_hours"`
	SeedDemoUser bool `json:"seed_demo_user"`
}

type PrivacyConfig struct {
	RetentionDays int `json:"retention_days"`
}

type TimerConfig struct {
	DefaultHourlyRate float64 `json:"default_hourly_rate"`
}

// OutlookConfig holds Microsoft Graph / Outlook calendar sync settings.
type OutlookConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id"`
	// DefaultProject is the project name assigned to imported Outlook events.
	DefaultProject string `json:"default_project"`
	// Timezone is the IANA timezone for event times (e.g. "Europe/Berlin"). Empty = UTC.
	Timezone string `json:"timezone"`
}

const (
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultProject is the project name used for imported meetings.
	DefaultProject = "Meetings"

	DefaultBackend       = "file"
	DefaultSQLitePath    = "timeex.db"
	DefaultScanSchedule  = "@every 1h"
	DefaultTTLHours      = 24
	DefaultRetentionDays = 730
	DefaultLogLevel      = "info"
)

// Environment overrides. They take precedence over the config file.
const (
	EnvHome            = "TIMEEX_HOME"
	EnvBackend         = "TIMEEX_STORAGE_BACKEND"
	EnvSQLitePath      = "TIMEEX_SQLITE_PATH"
	EnvLogLevel        = "TIMEEX_LOG_LEVEL"
	EnvArchiveSchedule = "TIMEEX_ARCHIVE_SCHEDULE"
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig(home string) Config {
	return Config{
		Storage: StorageConfig{
			Backend:    DefaultBackend,
			SQLitePath: DefaultSQLitePath,
		},
		Archive: ArchiveConfig{ScanSchedule: DefaultScanSchedule},
		Session: SessionConfig{TTLHours: DefaultTTLHours, SeedDemoUser: true},
		Privacy: PrivacyConfig{RetentionDays: DefaultRetentionDays},
		Outlook: OutlookConfig{
			TenantID:       DefaultTenantID,
			ClientID:       DefaultClientID,
			DefaultProject: DefaultProject,
		},
		LogLevel: DefaultLogLevel,
		Home:     home,
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// timeex configuration – ~/.timeex/config.json
//
// All settings are optional; the built-in defaults shown below work out of
// the box. Environment variables (TIMEEX_STORAGE_BACKEND, TIMEEX_SQLITE_PATH,
// TIMEEX_LOG_LEVEL, TIMEEX_ARCHIVE_SCHEDULE) and a .env file override them.
{
  // ── Storage ──────────────────────────────────────────────────────────────
  "storage": {
    // "file"   – one JSON document per key under ~/.timeex/data (default)
    // "sqlite" – a single SQLite database
    "backend": "file",

    // SQLite database file, relative to ~/.timeex unless absolute.
    "sqlite_path": "timeex.db"
  },

  // ── Report archive ───────────────────────────────────────────────────────
  "archive": {
    // How often ` + "`timeex watch`" + ` scans for unarchived cycles.
    // Cron expression or descriptor, e.g. "@every 1h", "0 * * * *".
    "scan_schedule": "@every 1h"
  },

  // ── Sessions ─────────────────────────────────────────────────────────────
  "session": {
    // Hours until a login expires.
    "ttl_hours": 24,

    // Create demo@timeex.com / demo123 on first run.
    "seed_demo_user": true
  },

  // ── Privacy ──────────────────────────────────────────────────────────────
  "privacy": {
    // Entries older than this many days are removed by ` + "`timeex privacy purge`" + `.
    "retention_days": 730
  },

  // ── Timer ────────────────────────────────────────────────────────────────
  "timer": {
    // Hourly rate used when ` + "`timeex start`" + ` is run without --rate.
    "default_hourly_rate": 0
  },

  // ── Microsoft Graph / Outlook calendar sync ──────────────────────────────
  "outlook": {
    // Azure AD tenant ID.
    // • "common"  – personal Microsoft accounts and any organisation (default)
    // • Your organisation's tenant GUID, e.g. "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
    "tenant_id": "common",

    // Azure application (client) ID used for the OAuth2 device code flow.
    // The built-in value is the public Azure CLI app – no app registration needed.
    "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

    // Default project name assigned to imported Outlook calendar events.
    // Can be overridden per-sync with: timeex outlook sync --project <name>
    "default_project": "Meetings",

    // IANA timezone for interpreting calendar event times, e.g. "Europe/Berlin".
    // Leave empty to use UTC. Can be overridden with: timeex outlook sync --timezone <tz>
    "timezone": ""
  },

  // debug | info | warn | error
  "log_level": "info"
}
`

// HomeDir returns $TIMEEX_HOME or ~/.timeex.
func HomeDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".timeex"), nil
}

// DataDir is where the file backend keeps its documents.
func (c Config) DataDir() string {
	return filepath.Join(c.Home, "data")
}

// SQLiteFile resolves Storage.SQLitePath against Home.
func (c Config) SQLiteFile() string {
	if filepath.IsAbs(c.Storage.SQLitePath) {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Home, c.Storage.SQLitePath)
}

// SessionTTL returns the session lifetime.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// Retention returns the privacy retention window.
func (c Config) Retention() time.Duration {
	return time.Duration(c.Privacy.RetentionDays) * 24 * time.Hour
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads .env files, then ~/.timeex/config.json (creating it with
// annotated defaults on first run), then applies environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := HomeDir()
	if err != nil {
		return defaultConfig(""), err
	}
	// A .env inside the data directory is read after the working directory
	// one; godotenv never overrides variables that are already set.
	_ = godotenv.Load(filepath.Join(home, ".env"))

	cfg, err := LoadFile(filepath.Join(home, "config.json"), home)
	if err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads the config at path. Lines starting with // are treated as
// comments and stripped before JSON parsing.
func LoadFile(path, home string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(home), nil
	}
	if err != nil {
		return defaultConfig(home), fmt.Errorf("reading config file %s: %w", path, err)
	}

	cleaned := stripLineComments(data)
	cfg := defaultConfig(home)
	if err := json.Unmarshal(cleaned, &cfg); err != nil {
		return defaultConfig(home), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	cfg.Home = home

	// Fill blanked string fields with built-in defaults so callers always
	// get a usable Config even if the user only partially fills in the file.
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultBackend
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}
	if cfg.Archive.ScanSchedule == "" {
		cfg.Archive.ScanSchedule = DefaultScanSchedule
	}
	if cfg.Outlook.TenantID == "" {
		cfg.Outlook.TenantID = DefaultTenantID
	}
	if cfg.Outlook.ClientID == "" {
		cfg.Outlook.ClientID = DefaultClientID
	}
	if cfg.Outlook.DefaultProject == "" {
		cfg.Outlook.DefaultProject = DefaultProject
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(EnvSQLitePath); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvArchiveSchedule); v != "" {
		cfg.Archive.ScanSchedule = v
	}
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var problems []string

	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of [file sqlite]", c.Storage.Backend))
	}
	if _, err := cron.ParseStandard(c.Archive.ScanSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("invalid archive scan schedule '%s': %v", c.Archive.ScanSchedule, err))
	}
	if c.Session.TTLHours < 1 {
		problems = append(problems, fmt.Sprintf("invalid session ttl_hours %d: must be at least 1", c.Session.TTLHours))
	}
	if c.Privacy.RetentionDays < 1 {
		problems = append(problems, fmt.Sprintf("invalid privacy retention_days %d: must be at least 1", c.Privacy.RetentionDays))
	}
	if c.Timer.DefaultHourlyRate < 0 {
		problems = append(problems, fmt.Sprintf("invalid timer default_hourly_rate %v: must not be negative", c.Timer.DefaultHourlyRate))
	}
	if c.Outlook.Timezone != "" {
		if _, err := time.LoadLocation(c.Outlook.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("invalid outlook timezone '%s': %v", c.Outlook.Timezone, err))
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid log_level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
