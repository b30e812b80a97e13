package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if !cfg.Scan.AutoStart {
		t.Error("Scan.AutoStart should default to true")
	}
	if cfg.Session.EventBuffer != 64 {
		t.Errorf("Session.EventBuffer = %d, want 64", cfg.Session.EventBuffer)
	}
	if cfg.Session.CommandBuffer != 16 {
		t.Errorf("Session.CommandBuffer = %d, want 16", cfg.Session.CommandBuffer)
	}
	if !cfg.Session.ClearOnDrop {
		t.Error("Session.ClearOnDrop should default to true")
	}
	if cfg.Session.HexFallback {
		t.Error("Session.HexFallback should default to false")
	}
	if cfg.UI.Mode != "tui" {
		t.Errorf("UI.Mode = %q, want %q", cfg.UI.Mode, "tui")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
log_level: debug
log_file: /tmp/bleterm.log
scan:
  auto_start: false
session:
  event_buffer: 128
  command_buffer: 4
  clear_on_drop: false
  hex_fallback: true
ui:
  mode: plain
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFile != "/tmp/bleterm.log" {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, "/tmp/bleterm.log")
	}
	if cfg.Scan.AutoStart {
		t.Error("Scan.AutoStart = true, want false")
	}
	if cfg.Session.EventBuffer != 128 {
		t.Errorf("Session.EventBuffer = %d, want 128", cfg.Session.EventBuffer)
	}
	if cfg.Session.CommandBuffer != 4 {
		t.Errorf("Session.CommandBuffer = %d, want 4", cfg.Session.CommandBuffer)
	}
	if cfg.Session.ClearOnDrop {
		t.Error("Session.ClearOnDrop = true, want false")
	}
	if !cfg.Session.HexFallback {
		t.Error("Session.HexFallback = false, want true")
	}
	if cfg.UI.Mode != "plain" {
		t.Errorf("UI.Mode = %q, want %q", cfg.UI.Mode, "plain")
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	yamlContent := `
session:
  hex_fallback: true
`
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Session.HexFallback {
		t.Error("Session.HexFallback = false, want true")
	}
	if cfg.Session.EventBuffer != 64 {
		t.Errorf("Session.EventBuffer = %d, want default 64", cfg.Session.EventBuffer)
	}
	if !cfg.Session.ClearOnDrop {
		t.Error("Session.ClearOnDrop should keep its default")
	}
	if cfg.UI.Mode != "tui" {
		t.Errorf("UI.Mode = %q, want default %q", cfg.UI.Mode, "tui")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
log_file: ~/logs/bleterm.log
`
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "logs/bleterm.log")
	if cfg.LogFile != expected {
		t.Errorf("LogFile = %q, want %q", cfg.LogFile, expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("session: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should return error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "plain ui mode",
			modify:  func(c *Config) { c.UI.Mode = "plain" },
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "zero event buffer",
			modify:  func(c *Config) { c.Session.EventBuffer = 0 },
			wantErr: true,
		},
		{
			name:    "negative command buffer",
			modify:  func(c *Config) { c.Session.CommandBuffer = -1 },
			wantErr: true,
		},
		{
			name:    "invalid ui mode",
			modify:  func(c *Config) { c.UI.Mode = "gui" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "bleterm", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# bleterm") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.UI.Mode != "tui" {
		t.Errorf("written config UI.Mode = %q, want %q", cfg.UI.Mode, "tui")
	}
	if cfg.Session.EventBuffer != 64 {
		t.Errorf("written config Session.EventBuffer = %d, want 64", cfg.Session.EventBuffer)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "bleterm")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
