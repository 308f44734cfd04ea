package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/sheen/internal/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List built-in theme presets",
	Long: `List the built-in theme presets. Select one with --theme, set it as
theme.preset in the config file, or cycle through them with 't' in
watch mode.

Individual scopes can be overridden on top of any preset through
theme.colors in the config file.

Examples:
  # Show available presets
  sheen themes

  # Try one out
  sheen --theme dracula main.go`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, name := range theme.Names() {
			fmt.Fprintf(w, "%s\t%s\n", name, theme.Presets[name].Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(themesCmd)
}
