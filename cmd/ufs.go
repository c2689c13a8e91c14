package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func ufsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ufs",
		Short: "List Brazilian states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ufs, err := newClient().GetUFs(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, uf := range ufs {
				fmt.Fprintf(w, "%s\t%s\n", uf.Sigla, uf.Nome)
			}
			return w.Flush()
		},
	}
}
