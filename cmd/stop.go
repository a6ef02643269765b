package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwel/gsmd/internal/ctlclient"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ctlclientFromConfig()

		if !c.IsRunning() {
			fmt.Println("gsmd is not running")
			return nil
		}

		if err := c.ShutdownDaemon(); err != nil {
			return err
		}

		fmt.Println("gsmd stopped")
		return nil
	},
}

func ctlclientFromConfig() *ctlclient.Client {
	return ctlclient.New(ctlSocketPath())
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
