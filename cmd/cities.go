package cmd

import (
	"fmt"
	"strings"

	"ecoleta-cli/model"
	"ecoleta-cli/search"
	"github.com/spf13/cobra"
)

func citiesCmd() *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "cities <UF>",
		Short: "List the cities of a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uf := strings.ToUpper(strings.TrimSpace(args[0]))
			cities, err := newClient().GetCities(cmd.Context(), uf)
			if err != nil {
				return err
			}

			options := model.CityOptions(cities)
			if strings.TrimSpace(match) != "" {
				options = search.Match(match, options)
				if len(options) == 0 {
					return fmt.Errorf("no city in %s matches %q", uf, match)
				}
			}
			for _, option := range options {
				fmt.Fprintln(cmd.OutOrStdout(), option.Label)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "only print cities fuzzily matching this text")
	return cmd
}
