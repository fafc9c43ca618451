/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"

	"github.com/shopfront/apiserver/internal/server"
	"github.com/shopfront/apiserver/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// eventsCmd groups account event commands.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect account events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log account events as they are published",
	Long: `Subscribes to the configured account event channel and logs every
event until interrupted. Requires MQ_BACKEND.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		events, queue, err := server.OpenEvents(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if events == nil {
			return errors.New("MQ_BACKEND is not set")
		}
		defer func() { _ = queue.Close() }()

		logger.Info("tailing account events",
			zap.String("backend", cfg.MQ.Backend),
			zap.String("channel", cfg.MQ.Channel))

		err = events.Subscribe(cmd.Context(), func(ctx context.Context, event types.AccountEvent) error {
			logger.Info("account event",
				zap.String("type", string(event.Type)),
				zap.String("user_id", event.UserID),
				zap.String("email", event.Email),
				zap.Time("occurred_at", event.OccurredAt))
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
