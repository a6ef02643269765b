package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwel/gsmd/internal/autostart"
	"github.com/cwel/gsmd/internal/config"
)

var autostartCmd = &cobra.Command{
	Use:   "autostart",
	Short: "Inspect saved-session autostart entries",
}

var autostartListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List every desktop-entry record in the autostart directories",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		reader := autostart.NewReader(cfg.Autostart.Dirs)
		entries, err := reader.List()
		if err != nil {
			return fmt.Errorf("list autostart entries: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSTARTUP ID\tEXEC\tPATH")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.StartupID, e.Exec, e.Path)
		}
		return w.Flush()
	},
}

func init() {
	autostartCmd.AddCommand(autostartListCmd)
	rootCmd.AddCommand(autostartCmd)
}
