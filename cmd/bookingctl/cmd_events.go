package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/booking-engine/pkg/messaging"
	"github.com/jwalitptl/booking-engine/pkg/messaging/redis"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print booking events as the worker publishes them",
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	zl := log.ZL

	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), &zl)
	if err != nil {
		return err
	}
	adapter := messaging.NewBrokerAdapter(broker, func(err error) {
		zlog.Warn().Err(err).Msg("skipping event")
	})
	defer adapter.Close()

	out := cmd.OutOrStdout()
	err = adapter.Subscribe(ctx, cfg.Redis.Channel, func(payload []byte) error {
		var msg messaging.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		_, err := fmt.Fprintf(out, "%s %-22s %s\n", msg.OccurredAt.Format("15:04:05"), msg.Type, msg.Payload)
		return err
	})
	if err != nil {
		return err
	}

	log.Info("listening for events", "channel", cfg.Redis.Channel)
	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
