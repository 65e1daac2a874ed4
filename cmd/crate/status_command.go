package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"crate/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon health and catalog totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()

			health, err := client.Health(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}
			stats, err := client.Stats(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}
			storageHealth, err := client.StorageHealth(cmd.Context())
			if err != nil {
				return wrapClientError(err)
			}

			if jsonOutput {
				return writeJSON(cmd, map[string]any{
					"health":  health,
					"stats":   stats,
					"storage": storageHealth,
				})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("API", healthKind(health.Status), fmt.Sprintf("%s at %s", health.Status, ctx.apiBaseURL()), colorize))
			if health.Version != "" {
				fmt.Fprintln(out, renderStatusLine("Version", statusInfo, health.Version, colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Remote storage", storageKind(storageHealth), storageMessage(storageHealth), colorize))

			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Catalog", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Mixes", statusInfo, fmt.Sprintf("%d", stats.Mixes), colorize))
			fmt.Fprintln(out, renderStatusLine("Artists", statusInfo, fmt.Sprintf("%d", stats.Artists), colorize))
			fmt.Fprintln(out, renderStatusLine("Categories", statusInfo, fmt.Sprintf("%d", stats.Categories), colorize))
			fmt.Fprintln(out, renderStatusLine("Total size", statusInfo, formatSizeMB(stats.TotalSizeMB), colorize))
			fmt.Fprintln(out, renderStatusLine("Total plays", statusInfo, fmt.Sprintf("%d", stats.TotalPlays), colorize))
			if len(stats.ByTier) > 0 {
				fmt.Fprintln(out, renderStatusLine("By tier", statusInfo, formatTierCounts(stats.ByTier), colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func healthKind(status string) statusKind {
	if status == "ok" {
		return statusOK
	}
	return statusError
}

func storageKind(health *api.StorageHealth) statusKind {
	switch health.RemoteStatus {
	case "ok":
		return statusOK
	case "not_configured":
		return statusInfo
	default:
		return statusWarn
	}
}

func storageMessage(health *api.StorageHealth) string {
	if health.RemoteStatus == "not_configured" {
		return "local-only mode"
	}
	if health.Detail != "" {
		return fmt.Sprintf("%s (%s)", health.RemoteStatus, health.Detail)
	}
	return health.RemoteStatus
}

func formatTierCounts(byTier map[string]int64) string {
	tiers := make([]string, 0, len(byTier))
	for tier := range byTier {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	parts := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		parts = append(parts, fmt.Sprintf("%s=%d", tier, byTier[tier]))
	}
	return strings.Join(parts, " ")
}
