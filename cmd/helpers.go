package cmd

import (
	"github.com/cwel/gsmd/internal/config"
)

// ctlSocketPath returns the control-surface socket path from the current
// configuration, falling back to the compiled-in default if the config
// file can't be loaded.
func ctlSocketPath() string {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.DefaultConfig().Listen.CtlSocketPath
	}
	return cfg.Listen.CtlSocketPath
}
