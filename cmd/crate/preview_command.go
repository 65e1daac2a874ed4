package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crate/internal/api"
)

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	var opts api.IngestOptions
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Run an upload through validation and duplicate detection without storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, err := ctx.client().Preview(cmd.Context(), args[0], opts)
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, preview)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if !preview.Valid {
				fmt.Fprintln(out, renderStatusLine("Valid", statusError, preview.Reason, colorize))
				return fmt.Errorf("file failed validation")
			}

			fmt.Fprintln(out, renderStatusLine("Valid", statusOK, "", colorize))
			fmt.Fprintln(out, renderStatusLine("Title", statusInfo, preview.Title, colorize))
			fmt.Fprintln(out, renderStatusLine("Artist", statusInfo, preview.Artist, colorize))
			if preview.Album != "" {
				fmt.Fprintln(out, renderStatusLine("Album", statusInfo, preview.Album, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, formatDuration(preview.DurationSeconds), colorize))
			fmt.Fprintln(out, renderStatusLine("Size", statusInfo, formatSizeMB(preview.SizeMB), colorize))
			if preview.QualityKbps > 0 {
				fmt.Fprintln(out, renderStatusLine("Bitrate", statusInfo, fmt.Sprintf("%d kbps", preview.QualityKbps), colorize))
			}

			if dup := preview.Duplicate; dup != nil {
				message := fmt.Sprintf("matches %q by %s (id %d, %s, %.0f%%)",
					dup.Title, dup.Artist, dup.MatchedID, dup.MatchType, dup.Confidence*100)
				fmt.Fprintln(out, renderStatusLine("Duplicate", statusWarn, message, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Duplicate", statusOK, "none found", colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Override the embedded title tag")
	cmd.Flags().StringVar(&opts.Artist, "artist", "", "Override the embedded artist tag")
	cmd.Flags().StringVar(&opts.Album, "album", "", "Override the embedded album tag")
	cmd.Flags().StringVar(&opts.Genre, "genre", "", "Override the embedded genre tag")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "Override the embedded release year")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
