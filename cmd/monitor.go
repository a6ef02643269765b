package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cwel/gsmd/internal/tui"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live dashboard of clients registered with the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}

		m := tui.New(c)
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}
