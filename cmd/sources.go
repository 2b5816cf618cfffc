package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chico-rentals/rental-cli/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the rental listing providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatProviders(cmd.OutOrStdout(), source.Providers())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// formatProviders writes a tabular list of providers to w.
func formatProviders(out io.Writer, providers []source.Provider) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tENABLED\tURL")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t---")
	for _, p := range providers {
		enabled := "no"
		if p.Enabled {
			enabled = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, enabled, p.URL)
	}
	_ = w.Flush()
}
