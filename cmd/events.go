/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/todo-api/apiserver/config"
	"github.com/todo-api/apiserver/internal/logging"
	"github.com/todo-api/apiserver/internal/mq"
	"github.com/todo-api/apiserver/internal/services"
	"github.com/todo-api/apiserver/types"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect user and todo lifecycle events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log every event published on the events topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(os.Stdout, cfg.Log.Format, cfg.Log.Level, slog.String("service", "todoapi-events"))

		if cfg.Events.Backend == "" {
			return errors.New("EVENTS_BACKEND is not set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.Events)
		if err != nil {
			return err
		}
		defer queue.Close()

		logger.Info("watching events", "backend", cfg.Events.Backend, "topic", cfg.Events.Topic)
		err = services.Watch(ctx, queue, cfg.Events.Topic, func(_ context.Context, event types.Event) error {
			logger.Info("event",
				"id", event.ID,
				"type", event.Type,
				"user_id", event.UserID,
				"todo_id", event.TodoID,
				"occurred_at", event.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watch events: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
