package cmds

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wikimedia/contest-api/internal/screening"
	"github.com/wikimedia/contest-api/internal/types"
)

func newFlagsCmd() *cobra.Command {
	var asJSON bool

	flagsCmd := &cobra.Command{
		Use:   "flags",
		Short: "List the screening flags screeners and automated screening may raise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := screening.Flags()

			if asJSON {
				flags := make([]types.FlagResponse, len(registry))
				for i, f := range registry {
					flags[i] = types.FlagResponse{Code: f.Code, Label: f.Label}
				}
				return writeJSON(cmd.OutOrStdout(), types.FlagsResponse{Flags: flags})
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tLABEL")
			for _, f := range registry {
				fmt.Fprintf(w, "%s\t%s\n", f.Code, f.Label)
			}
			return w.Flush()
		},
	}
	flagsCmd.Flags().BoolVar(&asJSON, "json", false, "Print the registry as JSON")

	return flagsCmd
}
