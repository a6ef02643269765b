package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Session.IdlePollSeconds != 30 {
		t.Errorf("Session.IdlePollSeconds = %d, want 30", cfg.Session.IdlePollSeconds)
	}
	if cfg.Listen.SocketPath == "" {
		t.Errorf("Listen.SocketPath is empty")
	}
	if cfg.Listen.CtlSocketPath == "" {
		t.Errorf("Listen.CtlSocketPath is empty")
	}
	if len(cfg.Autostart.Dirs) == 0 {
		t.Errorf("Autostart.Dirs is empty")
	}
}

func TestConfigDir(t *testing.T) {
	os.Unsetenv("GSMD_CONFIG_DIR")
	os.Unsetenv("XDG_CONFIG_HOME")

	dir := ConfigDir()

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".config", "gsmd")
	if dir != expected {
		t.Errorf("ConfigDir() = %q, want %q", dir, expected)
	}
}

func TestConfigDirWithEnv(t *testing.T) {
	os.Setenv("GSMD_CONFIG_DIR", "/custom/config")
	defer os.Unsetenv("GSMD_CONFIG_DIR")

	dir := ConfigDir()
	if dir != "/custom/config" {
		t.Errorf("ConfigDir() = %q, want %q", dir, "/custom/config")
	}
}

func TestConfigDirWithXDG(t *testing.T) {
	os.Unsetenv("GSMD_CONFIG_DIR")
	os.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	defer os.Unsetenv("XDG_CONFIG_HOME")

	dir := ConfigDir()
	if dir != "/xdg/config/gsmd" {
		t.Errorf("ConfigDir() = %q, want %q", dir, "/xdg/config/gsmd")
	}
}

func TestDataDirWithEnv(t *testing.T) {
	os.Setenv("GSMD_DATA_DIR", "/custom/data")
	defer os.Unsetenv("GSMD_DATA_DIR")

	dir := DataDir()
	if dir != "/custom/data" {
		t.Errorf("DataDir() = %q, want %q", dir, "/custom/data")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[listen]
socket_path = "/tmp/custom-xsmp.sock"
`
	os.WriteFile(configPath, []byte(content), 0644)

	os.Setenv("GSMD_CONFIG_DIR", dir)
	defer os.Unsetenv("GSMD_CONFIG_DIR")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Listen.SocketPath != "/tmp/custom-xsmp.sock" {
		t.Errorf("Listen.SocketPath = %q, want %q", cfg.Listen.SocketPath, "/tmp/custom-xsmp.sock")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("GSMD_CONFIG_DIR", dir)
	defer os.Unsetenv("GSMD_CONFIG_DIR")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Session.IdlePollSeconds != 30 {
		t.Errorf("Session.IdlePollSeconds = %d, want 30", cfg.Session.IdlePollSeconds)
	}
}

func TestLoadConfigPartialFallsBackToDefaultIdlePoll(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[session]
idle_poll_seconds = 0
`
	os.WriteFile(configPath, []byte(content), 0644)

	os.Setenv("GSMD_CONFIG_DIR", dir)
	defer os.Unsetenv("GSMD_CONFIG_DIR")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Session.IdlePollSeconds != 30 {
		t.Errorf("Session.IdlePollSeconds = %d, want 30 (invalid value corrected)", cfg.Session.IdlePollSeconds)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	os.Setenv("GSMD_CONFIG_DIR", dir)
	defer os.Unsetenv("GSMD_CONFIG_DIR")

	cfg := DefaultConfig()
	cfg.Listen.SocketPath = "/tmp/round-trip.sock"
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	reloaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if reloaded.Listen.SocketPath != "/tmp/round-trip.sock" {
		t.Errorf("Listen.SocketPath = %q, want %q", reloaded.Listen.SocketPath, "/tmp/round-trip.sock")
	}
}
