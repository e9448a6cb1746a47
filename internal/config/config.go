package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrMissingAPIKey is returned by Validate when no Marvin API token is set.
var ErrMissingAPIKey = errors.New("amazing marvin API key not configured; run 'marvinr config' or set AMAZING_MARVIN_API_KEY")

type Config struct {
	Marvin        MarvinConfig  `toml:"marvin"`
	Cache         CacheConfig   `toml:"cache"`
	Report        ReportConfig  `toml:"report"`
	Digest        DigestConfig  `toml:"digest"`
	Notifications NotifyConfig  `toml:"notifications"`
	History       HistoryConfig `toml:"history"`
	Log           LogConfig     `toml:"log"`
}

type MarvinConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

type CacheConfig struct {
	TTLMinutes          int `toml:"ttl_minutes"`
	CleanupGraceMinutes int `toml:"cleanup_grace_minutes"`
}

type ReportConfig struct {
	DefaultDays int    `toml:"default_days"`
	MaxDays     int    `toml:"max_days"`
	TopProjects int    `toml:"top_projects"`
	Timezone    string `toml:"timezone"` // IANA name; empty means local
}

type DigestConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	WorkStart       string `toml:"work_start"`
	WorkEnd         string `toml:"work_end"`
	WorkDays        []int  `toml:"work_days"`
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Marvin: MarvinConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
		Cache: CacheConfig{
			TTLMinutes:          10,
			CleanupGraceMinutes: 60,
		},
		Report: ReportConfig{
			DefaultDays: 7,
			MaxDays:     366,
			TopProjects: 5,
		},
		Digest: DigestConfig{
			IntervalMinutes: 120,
			WorkStart:       "09:00",
			WorkEnd:         "18:00",
			WorkDays:        []int{1, 2, 3, 4, 5},
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	if dir := os.Getenv("MARVINR_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "marvinr"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. A missing file yields the defaults with
// environment overrides applied.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AMAZING_MARVIN_API_KEY"); v != "" {
		cfg.Marvin.APIKey = v
	}
	if v := os.Getenv("AMAZING_MARVIN_BASE_URL"); v != "" {
		cfg.Marvin.BaseURL = v
	}
	if v := os.Getenv("MARVINR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) Validate() error {
	if c.Marvin.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Report.Timezone != "" {
		if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
			return fmt.Errorf("report timezone %q: %w", c.Report.Timezone, err)
		}
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Marvin.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func (c *Config) CleanupGrace() time.Duration {
	return time.Duration(c.Cache.CleanupGraceMinutes) * time.Minute
}

// Location is the zone that decides calendar days. Invalid names fall back
// to local time; Validate reports them.
func (c *Config) Location() *time.Location {
	if c.Report.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
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

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes a starter config to path unless one already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := DefaultConfig()
	out, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, out, 0600)
}
