package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsieve/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test <recipient>",
	Short: "Send a test notification",
	Long:  "Sends a sample digest using the configured notifier.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath, logger)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	n, err := setupNotifier(cfg, args[0], logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		return err
	}
	if n == nil {
		logger.Warn("notification.type is \"none\", nothing to test")
		return nil
	}

	if err := notifier.SendTestMessage(cmd.Context(), n, time.Now()); err != nil {
		logger.Error("test notification failed", "error", err)
		return err
	}
	logger.Info("test notification sent successfully")
	return nil
}
