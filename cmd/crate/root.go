package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var apiFlag string
	var configFlag string

	ctx := newCommandContext(&apiFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "crate",
		Short:         "Crate audio catalog CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "", "Base URL of the crated API (default from config)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newIngestCommand(ctx))
	rootCmd.AddCommand(newPreviewCommand(ctx))
	rootCmd.AddCommand(newMixesCommand(ctx))
	rootCmd.AddCommand(newArtistsCommand(ctx))
	rootCmd.AddCommand(newCategoriesCommand(ctx))
	rootCmd.AddCommand(newOrphansCommand(ctx))
	rootCmd.AddCommand(newCleanupCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}
