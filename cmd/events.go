/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/attendance-hq/apiserver/config"
	"github.com/attendance-hq/apiserver/internal/mq"
	"github.com/spf13/cobra"
)

var eventsChannel string

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect attendance events on the message queue",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print attendance events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		channel := eventsChannel
		if channel == "" {
			channel = cfg.MQ.Channel
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("message queue disabled, set MQ_BACKEND")
		}
		defer queue.Close()

		out := cmd.OutOrStdout()
		err = queue.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
			_, err := fmt.Fprintf(out, "%s %s\n", msg.ID, msg.Data)
			return err
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

	eventsTailCmd.Flags().StringVar(&eventsChannel, "channel", "", "channel to subscribe to, defaults to MQ_CHANNEL")
}
