package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"crate/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Notifications.TopicURL) == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications are not configured; set notifications.topic_url")
				return nil
			}
			notifier := notifications.NewService(cfg)
			if err := notifier.Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
