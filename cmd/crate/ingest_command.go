package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crate/internal/api"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var opts api.IngestOptions
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload an audio file into the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.client().Ingest(cmd.Context(), args[0], opts)
			if err != nil {
				return renderIngestError(cmd, err)
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			mix := result.Mix
			fmt.Fprintf(out, "Cataloged %q by %s (id %d)\n", mix.Title, mix.Artist, mix.ID)
			fmt.Fprintf(out, "  Tier:      %s\n", result.StorageTier)
			fmt.Fprintf(out, "  Duration:  %s\n", formatDuration(mix.DurationSeconds))
			fmt.Fprintf(out, "  Size:      %s\n", formatSizeMB(mix.SizeMB))
			fmt.Fprintf(out, "  Stream:    %s\n", mix.StreamURL)
			if result.ArtSource != "" {
				fmt.Fprintf(out, "  Cover art: %s\n", result.ArtSource)
			}
			if result.FellBackFromRemote {
				fmt.Fprintln(out, "Warning: remote storage was unavailable; the file was stored locally")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Override the embedded title tag")
	cmd.Flags().StringVar(&opts.Artist, "artist", "", "Override the embedded artist tag")
	cmd.Flags().StringVar(&opts.Album, "album", "", "Override the embedded album tag")
	cmd.Flags().StringVar(&opts.Genre, "genre", "", "Override the embedded genre tag")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "Override the embedded release year")
	cmd.Flags().Int64Var(&opts.CategoryID, "category", 0, "Category ID to file the mix under")
	cmd.Flags().StringVar(&opts.CoverArtPath, "cover-art", "", "Image file to use as cover art")
	cmd.Flags().BoolVar(&opts.SkipDuplicateCheck, "skip-duplicate-check", false, "Catalog the file even when a duplicate exists")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

// renderIngestError expands duplicate conflicts into the matched record
// so the user can see what blocked the upload.
func renderIngestError(cmd *cobra.Command, err error) error {
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Duplicate == nil {
		return wrapClientError(err)
	}

	dup := apiErr.Duplicate
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Duplicate of %q by %s (id %d)\n", dup.Title, dup.Artist, dup.MatchedID)
	fmt.Fprintf(out, "  Match:      %s\n", dup.MatchType)
	fmt.Fprintf(out, "  Confidence: %.0f%%\n", dup.Confidence*100)
	if len(dup.Reasons) > 0 {
		fmt.Fprintf(out, "  Reasons:    %s\n", strings.Join(dup.Reasons, "; "))
	}
	fmt.Fprintln(out, "Use --skip-duplicate-check to catalog it anyway.")
	return fmt.Errorf("upload rejected as a duplicate")
}
