// Package config loads the server configuration from a JSON5 file, then
// overlays environment variables so secrets never need to live on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Config is the root configuration for the Papyrus server.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
	Database  DatabaseConfig  `json:"database"`
	Sync      SyncConfig      `json:"sync"`
	Quota     QuotaConfig     `json:"quota"`
	AI        AIConfig        `json:"ai"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	SessionTTLHours  int    `json:"session_ttl_hours"`
	CLITokenTTLDays  int    `json:"cli_token_ttl_days"`
	RateLimitPerMin  int    `json:"rate_limit_per_min"`
	MaxUploadSizeMB  int    `json:"max_upload_size_mb"`
	SessionCookie    string `json:"session_cookie"`
	UploadTmpDir     string `json:"upload_tmp_dir"`
	LogLevel         string `json:"log_level"`
}

// StorageConfig points at the on-disk content root (§5).
type StorageConfig struct {
	Root string `json:"root"`
}

// DatabaseConfig selects and configures the Metadata Store backend.
// PostgresDSN is NEVER read from the config file (secret) — env only.
type DatabaseConfig struct {
	Driver      string `json:"driver"` // "postgres" or "sqlite"
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// SyncConfig tunes the fsnotify-based Sync Engine (§4.5).
type SyncConfig struct {
	DebounceMillis  int  `json:"debounce_millis"`
	WatchEnabled    bool `json:"watch_enabled"`
	ForceSyncOnBoot bool `json:"force_sync_on_boot"`
}

// QuotaConfig sets the default per-user storage quota, in bytes, for newly
// created users (§3 User.storageQuota).
type QuotaConfig struct {
	DefaultUserQuotaBytes int64 `json:"default_user_quota_bytes"`
}

// AIConfig configures the AI Streaming Bridge's upstream provider (§4.8).
type AIConfig struct {
	Provider       string `json:"provider"`
	APIKey         string `json:"-"`
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens"`
	RequestTimeout int    `json:"request_timeout_seconds"`
}

// TelemetryConfig controls OpenTelemetry tracing export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"service_name,omitempty"`
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"`
}

// Default returns a Config with sensible defaults for a single-user,
// sqlite-backed deployment listening on all interfaces.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8420,
			SessionTTLHours: 24 * 14,
			CLITokenTTLDays: 30,
			RateLimitPerMin: 120,
			MaxUploadSizeMB: 200,
			SessionCookie:   "papyrus_session",
			UploadTmpDir:    "",
			LogLevel:        "info",
		},
		Storage: StorageConfig{
			Root: "~/.papyrus/content",
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "~/.papyrus/papyrus.db",
		},
		Sync: SyncConfig{
			DebounceMillis:  500,
			WatchEnabled:    true,
			ForceSyncOnBoot: true,
		},
		Quota: QuotaConfig{
			DefaultUserQuotaBytes: 5 << 30, // 5 GiB
		},
		AI: AIConfig{
			Provider:       "anthropic",
			Model:          "claude-sonnet-4-5-20250929",
			MaxTokens:      4096,
			RequestTimeout: 120,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "papyrus",
		},
	}
}

// Load reads config from a JSON5 file at path, then overlays environment
// variables (which always win over the file). A missing file is not an
// error: the defaults plus env overrides are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays PAPYRUS_* environment variables onto cfg.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	envStr("PAPYRUS_HOST", &c.Server.Host)
	envInt("PAPYRUS_PORT", &c.Server.Port)
	envStr("PAPYRUS_STORAGE_ROOT", &c.Storage.Root)
	envStr("PAPYRUS_DB_DRIVER", &c.Database.Driver)
	envStr("PAPYRUS_SQLITE_PATH", &c.Database.SQLitePath)
	envStr("PAPYRUS_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("PAPYRUS_AI_API_KEY", &c.AI.APIKey)
	envStr("PAPYRUS_AI_PROVIDER", &c.AI.Provider)
	envStr("PAPYRUS_AI_MODEL", &c.AI.Model)
	envStr("PAPYRUS_OTLP_ENDPOINT", &c.Telemetry.OTLPEndpoint)
	envStr("PAPYRUS_LOG_LEVEL", &c.Server.LogLevel)
	envStr("PAPYRUS_SESSION_COOKIE", &c.Server.SessionCookie)
	envStr("PAPYRUS_UPLOAD_TMPDIR", &c.Server.UploadTmpDir)

	if v := os.Getenv("PAPYRUS_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "1" || strings.EqualFold(v, "true")
	}

	c.Storage.Root = ExpandHome(c.Storage.Root)
	c.Database.SQLitePath = ExpandHome(c.Database.SQLitePath)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
