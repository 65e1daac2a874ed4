package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newArtistsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "artists",
		Short: "List catalog artists",
		RunE: func(cmd *cobra.Command, args []string) error {
			artists, err := ctx.client().ListArtists(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, artists)
			}

			out := cmd.OutOrStdout()
			if len(artists) == 0 {
				fmt.Fprintln(out, "No artists found.")
				return nil
			}

			rows := make([][]string, 0, len(artists))
			for _, artist := range artists {
				rows = append(rows, []string{strconv.FormatInt(artist.ID, 10), artist.Name})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name"},
				rows,
				[]columnAlignment{alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
