package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	LogFile  string        `yaml:"log_file"`
	Scan     ScanConfig    `yaml:"scan"`
	Session  SessionConfig `yaml:"session"`
	UI       UIConfig      `yaml:"ui"`
}

// ScanConfig holds discovery settings.
type ScanConfig struct {
	AutoStart bool `yaml:"auto_start"` // scan as soon as the adapter powers on
}

// SessionConfig holds connection session settings.
type SessionConfig struct {
	EventBuffer   int  `yaml:"event_buffer"`
	CommandBuffer int  `yaml:"command_buffer"`
	ClearOnDrop   bool `yaml:"clear_on_drop"`
	HexFallback   bool `yaml:"hex_fallback"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Mode string `yaml:"mode"` // "tui" or "plain"
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bleterm")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultLogFile returns where the TUI writes process logs when log_file
// is not set.
func DefaultLogFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "bleterm.log"
	}
	return filepath.Join(home, ".local", "state", "bleterm", "bleterm.log")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Scan: ScanConfig{
			AutoStart: true,
		},
		Session: SessionConfig{
			EventBuffer:   64,
			CommandBuffer: 16,
			ClearOnDrop:   true,
		},
		UI: UIConfig{
			Mode: "tui",
		},
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in log_file is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.LogFile = expandTilde(cfg.LogFile)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	if c.Session.EventBuffer <= 0 {
		return fmt.Errorf("session.event_buffer must be > 0")
	}

	if c.Session.CommandBuffer <= 0 {
		return fmt.Errorf("session.command_buffer must be > 0")
	}

	switch c.UI.Mode {
	case "tui", "plain":
	default:
		return fmt.Errorf("ui.mode must be \"tui\" or \"plain\", got %q", c.UI.Mode)
	}

	return nil
}

// ParseLogLevel maps a log_level string to a slog level. Unknown values
// map to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# bleterm configuration
# log_level: debug | info | warn | error
# log_file: process log destination (empty: stderr in plain mode, ~/.local/state/bleterm/bleterm.log in tui mode)
# scan.auto_start: start scanning when the adapter powers on
# session.clear_on_drop: clear the connected flag when a peripheral drops the link
# session.hex_fallback: append a hex dump to "not UTF-8" log lines
# ui.mode: tui | plain

`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there. It returns the path written, or "" if a config already existed.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
