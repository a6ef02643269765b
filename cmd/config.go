package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwel/gsmd/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage gsmd configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(filepath.Join(config.ConfigDir(), "config.toml"))
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := filepath.Join(config.ConfigDir(), "config.toml")

		if _, err := os.Stat(configPath); err == nil {
			backupPath := configPath + ".bak"
			if err := os.Rename(configPath, backupPath); err != nil {
				return fmt.Errorf("backup config: %w", err)
			}
			fmt.Printf("Backed up existing config to %s\n", backupPath)
		}

		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		fmt.Printf("Created config at %s\n", configPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
