package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/dukerupert/eventboard/internal/fanout"
	"github.com/dukerupert/eventboard/internal/handler"
	"github.com/dukerupert/eventboard/internal/server"
	"github.com/dukerupert/eventboard/internal/store"
)

const (
	eventFlag = "event"
	keyFlag   = "key"
)

var remindFlags = map[string]cobraflags.Flag{
	configFlag: configFlagDef(),
	eventFlag: &cobraflags.StringFlag{
		Name:  eventFlag,
		Value: "",
		Usage: "Id of the event to remind subscribers about (required)",
	},
	keyFlag: &cobraflags.StringFlag{
		Name:  keyFlag,
		Value: "",
		Usage: "Idempotency key; repeating a run with the same key sends nothing new",
	},
}

func newRemindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send a reminder notification to every subscriber of an event",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw := remindFlags[eventFlag].GetString()
			if raw == "" {
				return errors.New("--event is required")
			}
			eventID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || eventID <= 0 {
				return fmt.Errorf("--event must be a positive integer, got %q", raw)
			}

			res, err := remind(cmd.Context(), remindFlags[configFlag].GetString(), eventID, remindFlags[keyFlag].GetString())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d, skipped %d (key %s)\n", res.Delivered, res.Skipped, res.Key)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, remindFlags)
	return cmd
}

func remind(ctx context.Context, configPath string, eventID int64, key string) (fanout.Result, error) {
	cfg, db, logger, err := setup(configPath)
	if err != nil {
		return fanout.Result{}, err
	}
	defer db.Close()

	event, err := store.NewEventStore(db).GetByID(ctx, eventID)
	if err != nil {
		return fanout.Result{}, err
	}
	if event == nil {
		return fanout.Result{}, fmt.Errorf("event %d not found", eventID)
	}

	notifier := fanout.New(store.NewSubscriptionStore(db), store.NewNotificationStore(db), nil, server.NotifierConfig(cfg), logger)
	return notifier.Reminder(ctx, *event, key)
}

var hashKeyFlags = map[string]cobraflags.Flag{
	keyFlag: &cobraflags.StringFlag{
		Name:  keyFlag,
		Value: "",
		Usage: "Shared key the reminder scheduler will send in " + handler.ReminderKeyHeader,
	},
}

func newHashKeyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-key",
		Short: "Print the bcrypt hash to store in auth.reminder_key_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := hashKeyFlags[keyFlag].GetString()
			if len(key) < 16 {
				return errors.New("--key must be at least 16 characters")
			}
			hash, err := handler.HashReminderKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, hashKeyFlags)
	return cmd
}
