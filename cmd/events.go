/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shavez90/Task-api/config"
	"github.com/Shavez90/Task-api/internal/mq"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect task events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print task events from the configured broker as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		backend, err := mq.NewBackend(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("MQ_BACKEND is not configured")
		}

		broker := mq.New(backend)
		defer func() {
			_ = broker.Close()
		}()

		channel := mq.DefaultTaskEventChannel
		err = broker.Subscribe(cmd.Context(), channel, func(ctx context.Context, msg mq.Message) error {
			fmt.Printf("%s %s\n", msg.ID, msg.Data)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
