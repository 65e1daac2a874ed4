package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newOrphansCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List catalog records whose local files are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			orphans, err := ctx.client().Orphans(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, orphans)
			}

			out := cmd.OutOrStdout()
			if len(orphans) == 0 {
				fmt.Fprintln(out, "No orphaned records found.")
				return nil
			}

			rows := make([][]string, 0, len(orphans))
			for _, orphan := range orphans {
				rows = append(rows, []string{
					strconv.FormatInt(orphan.MixID, 10),
					orphan.Title,
					orphan.StoredLocation,
					orphan.Reason,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Mix ID", "Title", "Location", "Reason"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			fmt.Fprintln(out, "Run `crate cleanup --apply` to delete these records.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var apply bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Sweep the catalog for orphaned records",
		Long:  "Sweep the catalog for records whose local files are missing. Without --apply the sweep only reports what it would delete.",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.client().Cleanup(cmd.Context(), apply)
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scanned %d records, found %d orphaned\n", result.Scanned, result.Orphans)
			if result.DryRun {
				if result.Orphans > 0 {
					fmt.Fprintln(out, "Dry run; re-run with --apply to delete them.")
				}
				return nil
			}
			fmt.Fprintf(out, "Deleted %d orphaned records\n", result.Deleted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "Delete orphaned records instead of only reporting them")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
