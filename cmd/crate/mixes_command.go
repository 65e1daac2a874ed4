package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newMixesCommand(ctx *commandContext) *cobra.Command {
	mixesCmd := &cobra.Command{
		Use:   "mixes",
		Short: "Browse and manage catalog records",
	}

	mixesCmd.AddCommand(newMixesListCommand(ctx))
	mixesCmd.AddCommand(newMixesShowCommand(ctx))
	mixesCmd.AddCommand(newMixesDeleteCommand(ctx))

	return mixesCmd
}

func newMixesListCommand(ctx *commandContext) *cobra.Command {
	var artistID int64
	var limit, offset int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			mixes, err := ctx.client().ListMixes(cmd.Context(), artistID, limit, offset)
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, mixes)
			}

			out := cmd.OutOrStdout()
			if len(mixes) == 0 {
				fmt.Fprintln(out, "No mixes found.")
				return nil
			}

			rows := make([][]string, 0, len(mixes))
			for _, mix := range mixes {
				rows = append(rows, []string{
					strconv.FormatInt(mix.ID, 10),
					mix.Title,
					mix.Artist,
					formatDuration(mix.DurationSeconds),
					formatSizeMB(mix.SizeMB),
					mix.StorageTier,
					strconv.FormatInt(mix.PlayCount, 10),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Artist", "Duration", "Size", "Tier", "Plays"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().Int64Var(&artistID, "artist", 0, "Only list mixes by this artist ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of records to skip")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newMixesShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one catalog record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMixID(args[0])
			if err != nil {
				return err
			}
			mix, err := ctx.client().GetMix(cmd.Context(), id)
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, mix)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Title", statusInfo, mix.Title, colorize))
			fmt.Fprintln(out, renderStatusLine("Artist", statusInfo, mix.Artist, colorize))
			if mix.Album != "" {
				fmt.Fprintln(out, renderStatusLine("Album", statusInfo, mix.Album, colorize))
			}
			if mix.Genre != "" {
				fmt.Fprintln(out, renderStatusLine("Genre", statusInfo, mix.Genre, colorize))
			}
			if mix.ReleaseYear > 0 {
				fmt.Fprintln(out, renderStatusLine("Year", statusInfo, strconv.Itoa(mix.ReleaseYear), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatDuration(mix.DurationSeconds), colorize))
			fmt.Fprintln(out, renderStatusLine("Size", statusInfo, formatSizeMB(mix.SizeMB), colorize))
			if mix.QualityKbps > 0 {
				fmt.Fprintln(out, renderStatusLine("Bitrate", statusInfo, fmt.Sprintf("%d kbps", mix.QualityKbps), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Tier", statusInfo, mix.StorageTier, colorize))
			fmt.Fprintln(out, renderStatusLine("Stream", statusInfo, mix.StreamURL, colorize))
			if mix.CoverArtURL != "" {
				fmt.Fprintln(out, renderStatusLine("Cover art", statusInfo, mix.CoverArtURL, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Plays", statusInfo, strconv.FormatInt(mix.PlayCount, 10), colorize))
			fmt.Fprintln(out, renderStatusLine("Added", statusInfo, mix.CreatedAt.Local().Format("2006-01-02 15:04"), colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newMixesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a catalog record and its stored files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMixID(args[0])
			if err != nil {
				return err
			}
			if err := ctx.client().DeleteMix(cmd.Context(), id); err != nil {
				return wrapClientError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted mix %d\n", id)
			return nil
		},
	}
}

func parseMixID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid mix id %q", arg)
	}
	return id, nil
}
