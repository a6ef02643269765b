package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var queryEndSessionCmd = &cobra.Command{
	Use:   "query-end-session <object-path> [flags-bitmask]",
	Short: "Ask a client whether an end-session can proceed",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, err := parseFlags(args)
		if err != nil {
			return err
		}
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}
		return c.QueryEndSession(args[0], flags)
	},
}

var endSessionCmd = &cobra.Command{
	Use:   "end-session <object-path> [flags-bitmask]",
	Short: "Begin ending a client's session",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags, err := parseFlags(args)
		if err != nil {
			return err
		}
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}
		return c.EndSession(args[0], flags)
	},
}

var cancelEndSessionCmd = &cobra.Command{
	Use:   "cancel-end-session <object-path>",
	Short: "Cancel an in-progress end-session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}
		return c.CancelEndSession(args[0])
	},
}

var saveSessionCmd = &cobra.Command{
	Use:   "save-session",
	Short: "Persist an autostart entry for every registered client",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}
		result, err := c.SaveSession()
		if err != nil {
			return err
		}
		fmt.Printf("saved %d/%d clients\n", result.Saved, result.Total)
		return nil
	},
}

func parseFlags(args []string) (uint32, error) {
	if len(args) < 2 {
		return 0, nil
	}
	v, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("parse flags: %w", err)
	}
	return uint32(v), nil
}

func init() {
	rootCmd.AddCommand(queryEndSessionCmd)
	rootCmd.AddCommand(endSessionCmd)
	rootCmd.AddCommand(cancelEndSessionCmd)
	rootCmd.AddCommand(saveSessionCmd)
}
