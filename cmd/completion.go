package cmd

import (
	"bytes"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for gsmdctl.

For zsh, add this to your .zshrc:
  eval "$(gsmdctl completion zsh)"

Or generate a file for zinit/fpath:
  gsmdctl completion zsh > ~/.local/share/zinit/completions/_gsmdctl
`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "zsh":
			var buf bytes.Buffer
			if err := rootCmd.GenZshCompletion(&buf); err != nil {
				return err
			}
			lines := strings.Split(buf.String(), "\n")
			for _, line := range lines {
				if line == "compdef _gsmdctl gsmdctl" {
					continue
				}
				os.Stdout.WriteString(line + "\n")
			}
			return nil
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
