// Package config loads and saves gsmd's TOML configuration, following
// the same XDG-directory conventions as the teacher's internal/config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ListenConfig holds the two Unix-domain-socket listen paths: the XSMP
// transport socket session clients speak to, and the control-surface
// socket gsmdctl/monitor speak to.
type ListenConfig struct {
	SocketPath    string `toml:"socket_path"`
	CtlSocketPath string `toml:"ctl_socket_path"`
}

// AutostartConfig holds the desktop-entry autostart directories, highest
// priority first.
type AutostartConfig struct {
	Dirs []string `toml:"dirs"`
}

// SessionConfig holds session-level tunables.
type SessionConfig struct {
	// IdlePollSeconds bounds how long an external shutdown coordinator
	// should wait on outstanding interact/save-yourself replies before
	// treating a client as unresponsive. gsmd itself enforces no timeout
	// (§5's wall-clock deadline is left to the caller); this is exposed
	// so that caller can be configured consistently.
	IdlePollSeconds int `toml:"idle_poll_seconds"`
}

// Config holds all gsmd configuration.
type Config struct {
	Listen    ListenConfig    `toml:"listen"`
	Autostart AutostartConfig `toml:"autostart"`
	Session   SessionConfig   `toml:"session"`
}

// DefaultConfig returns configuration with sensible defaults, rooted at
// DataDir() so a fresh install works without any config file.
func DefaultConfig() *Config {
	data := DataDir()
	return &Config{
		Listen: ListenConfig{
			SocketPath:    filepath.Join(data, "xsmp.sock"),
			CtlSocketPath: filepath.Join(data, "control.sock"),
		},
		Autostart: AutostartConfig{
			Dirs: defaultAutostartDirs(),
		},
		Session: SessionConfig{
			IdlePollSeconds: 30,
		},
	}
}

func defaultAutostartDirs() []string {
	var dirs []string
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		dirs = append(dirs, filepath.Join(configHome, "autostart"))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "autostart"))
	}
	dirs = append(dirs, "/etc/xdg/autostart")
	return dirs
}

// LoadConfig loads configuration from the config file, using defaults for
// missing values.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	configPath := filepath.Join(ConfigDir(), "config.toml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Session.IdlePollSeconds < 1 {
		cfg.Session.IdlePollSeconds = 30
	}

	return cfg, nil
}

// SaveConfig writes cfg to the config file, creating ConfigDir() if
// needed.
func SaveConfig(cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(ConfigDir(), "config.toml")

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// DataDir returns the data directory for sockets and runtime state.
func DataDir() string {
	if dir := os.Getenv("GSMD_DATA_DIR"); dir != "" {
		return dir
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "gsmd")
}

// ConfigDir returns the config directory for gsmd's own config.toml.
func ConfigDir() string {
	if dir := os.Getenv("GSMD_CONFIG_DIR"); dir != "" {
		return dir
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, "gsmd")
}
