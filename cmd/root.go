package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gsmdctl",
	Short: "XSMP session manager daemon and control client",
	Long:  "gsmdctl runs and talks to gsmd, a desktop session manager implementing the X Session Management Protocol.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.SetHelpFunc(styledHelp)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
