package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ecoleta",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s", appName, info.Version)
			if info.Commit != "none" && info.Commit != "" {
				fmt.Fprintf(out, " (%s)", info.Commit)
			}
			fmt.Fprintln(out)
		},
	}
}
