package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var inspectFormat string

type clientDetail struct {
	ObjectPath       string `json:"object_path" yaml:"object_path"`
	StartupID        string `json:"startup_id" yaml:"startup_id"`
	AppID            string `json:"app_id" yaml:"app_id"`
	RestartStyleHint string `json:"restart_style_hint" yaml:"restart_style_hint"`
	Status           string `json:"status" yaml:"status"`
	UnixProcessID    uint32 `json:"unix_process_id" yaml:"unix_process_id"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <object-path>",
	Short: "Show detailed state for one registered client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		objectPath := args[0]
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}

		startupID, err := c.GetStartupID(objectPath)
		if err != nil {
			return err
		}
		appID, _ := c.GetAppID(objectPath)
		hint, _ := c.GetRestartStyleHint(objectPath)
		status, _ := c.GetStatus(objectPath)
		pid, _ := c.GetUnixProcessID(objectPath)

		detail := clientDetail{
			ObjectPath:       objectPath,
			StartupID:        startupID,
			AppID:            appID,
			RestartStyleHint: hint,
			Status:           status,
			UnixProcessID:    pid,
		}

		switch inspectFormat {
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			defer enc.Close()
			return enc.Encode(detail)
		default:
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		}
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "json", "Output format: json or yaml")
	rootCmd.AddCommand(inspectCmd)
}
