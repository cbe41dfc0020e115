// Package config provides configuration loading and defaults for hyprshutdown.
//
// Configuration is loaded from an optional TOML file next to the Hyprland
// config. The package covers the shutdown UI timings, the application ignore
// list, the post-session VT switch and logging, with sensible defaults for
// every field so that a missing file is never an error.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/hyprshutdown/internal/atomicfile"
	"tools.zach/dev/hyprshutdown/internal/migrate"
)

// DefaultTopLabel is the text shown at the top of the shutdown UI when
// neither the command line nor the config file sets one.
const DefaultTopLabel = "Shutting down..."

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// UI holds shutdown UI behavior.
	UI UIConfig `toml:"ui"`
	// Apps holds application filtering and the post-exit command.
	Apps AppsConfig `toml:"apps"`
	// Session holds settings applied after the compositor session ends.
	Session SessionConfig `toml:"session"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// UIConfig holds shutdown UI behavior.
type UIConfig struct {
	// TopLabel is the text shown at the top of the UI.
	TopLabel string `toml:"top_label"`
	// CloseTimeoutSeconds bounds how long the UI waits for windows to close.
	CloseTimeoutSeconds int `toml:"close_timeout_seconds"`
	// PollIntervalMS is the interval between client list polls while waiting.
	PollIntervalMS int `toml:"poll_interval_ms"`
	// ForceKill kills windows still open after the close timeout instead of
	// aborting the shutdown.
	ForceKill bool `toml:"force_kill"`
	// NotifyColor is the Hyprland notification color (e.g. "rgb(89b4fa)"), or
	// "0" for the compositor default.
	NotifyColor string `toml:"notify_color"`
	// ExitTimeoutSeconds bounds the wait for the compositor to go away after
	// the exit dispatch.
	ExitTimeoutSeconds int `toml:"exit_timeout_seconds"`
}

// AppsConfig holds application filtering and the post-exit command.
type AppsConfig struct {
	// Ignore is a list of glob patterns matched against window classes.
	// Matching windows are left alone.
	Ignore []string `toml:"ignore"`
	// PostCmd is a shell command launched once all applications are closed.
	PostCmd string `toml:"post_cmd,omitempty"`
}

// SessionConfig holds settings applied after the compositor session ends.
type SessionConfig struct {
	// VT is the virtual terminal to switch to after the UI returns (0 = none).
	VT int `toml:"vt"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		UI: UIConfig{
			TopLabel:            DefaultTopLabel,
			CloseTimeoutSeconds: 15,
			PollIntervalMS:      250,
			ForceKill:           false,
			NotifyColor:         "0",
			ExitTimeoutSeconds:  5,
		},
		Apps: AppsConfig{
			Ignore: []string{},
		},
		Session: SessionConfig{
			VT: 0,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
// It differs from the defaults only where an empty value would hide an option.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Apps.Ignore = []string{"org.keepassxc.*"}
	return cfg
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file at path. If the file doesn't
// exist, returns DefaultConfig.
//
// Older schema versions are migrated in memory only. A copy of the original
// file is written to path.bak the first time it is migrated, but the file
// itself is left untouched: hyprshutdown runs while the session is being torn
// down and must not rewrite user files.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	if err := migrate.Config.Check(version); err != nil {
		return nil, err
	}

	if migrate.Config.NeedsMigration(version) {
		if _, statErr := os.Stat(path + ".bak"); os.IsNotExist(statErr) {
			if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
				slog.Warn("failed to write config backup", "error", backupErr)
			}
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Upgrade(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown config key", "key", key.String(), "path", path)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// maxVT is the highest virtual terminal number the kernel exposes.
const maxVT = 63

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.UI.TopLabel) == "" {
		return fmt.Errorf("ui.top_label must not be empty")
	}

	if c.UI.CloseTimeoutSeconds <= 0 {
		return fmt.Errorf("ui.close_timeout_seconds must be > 0, got %d", c.UI.CloseTimeoutSeconds)
	}

	if c.UI.PollIntervalMS < 10 {
		return fmt.Errorf("ui.poll_interval_ms must be >= 10, got %d", c.UI.PollIntervalMS)
	}

	if c.UI.ExitTimeoutSeconds < 0 {
		return fmt.Errorf("ui.exit_timeout_seconds must be >= 0, got %d", c.UI.ExitTimeoutSeconds)
	}

	if strings.ContainsAny(c.UI.NotifyColor, " \t\n") || c.UI.NotifyColor == "" {
		return fmt.Errorf("invalid ui.notify_color %q: must be a single Hyprland color token", c.UI.NotifyColor)
	}

	for _, pattern := range c.Apps.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid apps.ignore pattern %q", pattern)
		}
	}

	if c.Session.VT < 0 || c.Session.VT > maxVT {
		return fmt.Errorf("session.vt must be between 0 and %d, got %d", maxVT, c.Session.VT)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}

// ///////////////////////////////////////////////
// Durations
// ///////////////////////////////////////////////

// CloseTimeout returns ui.close_timeout_seconds as a duration.
func (c *Config) CloseTimeout() time.Duration {
	return time.Duration(c.UI.CloseTimeoutSeconds) * time.Second
}

// PollInterval returns ui.poll_interval_ms as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.UI.PollIntervalMS) * time.Millisecond
}

// ExitTimeout returns ui.exit_timeout_seconds as a duration.
func (c *Config) ExitTimeout() time.Duration {
	return time.Duration(c.UI.ExitTimeoutSeconds) * time.Second
}

// ///////////////////////////////////////////////
// Application Filtering
// ///////////////////////////////////////////////

// IsIgnored reports whether a window class matches any of the configured
// ignore patterns. Patterns are validated on load, so a match error only
// happens for configs built in code; such patterns are skipped with a warning.
func (c *Config) IsIgnored(class string) bool {
	for _, pattern := range c.Apps.Ignore {
		matched, err := doublestar.Match(pattern, class)
		if err != nil {
			slog.Warn("invalid glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
