package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/sheen/internal/grammar"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and how they are detected",
	Long: `List every language sheen can highlight, with the file extensions,
exact filenames, and shebang interpreters that map onto it.

Extensions added through languages.extra_extensions in the config file
are listed separately at the end.

Examples:
  # Show all languages
  sheen languages

  # Find which language claims an extension
  sheen languages | grep tsx`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := grammar.New(grammar.Options{
			ExtraExtensions: cfg.Languages.ExtraExtensions,
		})
		if err != nil {
			return fmt.Errorf("building language registry: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "LANGUAGE\tEXTENSIONS\tFILENAMES\tSHEBANGS")
		for _, lang := range reg.Languages() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				lang.Name,
				strings.Join(lang.Extensions, ", "),
				strings.Join(lang.Filenames, ", "),
				strings.Join(lang.Shebangs, ", "))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if len(cfg.Languages.ExtraExtensions) > 0 {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "\nExtra extensions (from config):")
			exts := make([]string, 0, len(cfg.Languages.ExtraExtensions))
			for ext := range cfg.Languages.ExtraExtensions {
				exts = append(exts, ext)
			}
			sort.Strings(exts)
			for _, ext := range exts {
				fmt.Fprintf(out, "  .%s: %s\n", ext, cfg.Languages.ExtraExtensions[ext])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
