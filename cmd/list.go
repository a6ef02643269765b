package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwel/gsmd/internal/ctlproto"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List clients currently registered with the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := ctlclientFromConfig()
		if !c.IsRunning() {
			return fmt.Errorf("gsmd is not running")
		}

		clients, err := c.ListClients()
		if err != nil {
			return err
		}

		if listJSON {
			return printClientsJSON(clients)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "APP\tSTARTUP ID\tSTATUS\tOBJECT PATH")
		for _, cl := range clients {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cl.AppID, cl.StartupID, cl.Status, cl.ObjectPath)
		}
		return w.Flush()
	},
}

func printClientsJSON(clients []ctlproto.ClientSummary) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(clients)
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
