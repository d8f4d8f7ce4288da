// Package fanout turns one triggering change into one notification per
// recipient.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
)

// Filter decides whether a subscription receives event-level notifications.
type Filter func(model.Subscription) bool

// AllSubscribers keeps every subscription row, disabled ones included.
func AllSubscribers(model.Subscription) bool { return true }

// EnabledOnly drops disabled subscriptions.
func EnabledOnly(s model.Subscription) bool { return s.Status == model.SubscriptionEnabled }

// Publisher receives every notification that was actually stored.
type Publisher interface {
	Publish(userID int64, n model.Notification)
}

type Config struct {
	// Concurrency bounds in-flight inserts; zero or less means unbounded.
	Concurrency int
	// Retries is the number of extra attempts per insert.
	Retries uint64
	Filter  Filter
}

// Result reports a finished fan-out. Skipped counts recipients that already
// held a notification under Key.
type Result struct {
	Key       string `json:"key"`
	Delivered int    `json:"delivered"`
	Skipped   int    `json:"skipped"`
}

type Notifier struct {
	subscriptions *store.SubscriptionStore
	notifications *store.NotificationStore
	publisher     Publisher
	cfg           Config
	logger        *slog.Logger
}

func New(subscriptions *store.SubscriptionStore, notifications *store.NotificationStore, publisher Publisher, cfg Config, logger *slog.Logger) *Notifier {
	if cfg.Filter == nil {
		cfg.Filter = AllSubscribers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		subscriptions: subscriptions,
		notifications: notifications,
		publisher:     publisher,
		cfg:           cfg,
		logger:        logger.With("component", "fanout"),
	}
}

// EventChanged notifies the event's subscribers of the given changes. The
// message concatenates one sentence per change category.
func (n *Notifier) EventChanged(ctx context.Context, event model.Event, changes []Change, key string) (Result, error) {
	if len(changes) == 0 {
		return Result{Key: key}, nil
	}
	recipients, err := n.subscribers(ctx, event.ID)
	if err != nil {
		return Result{Key: key}, err
	}
	return n.deliver(ctx, key, recipients, model.Notification{
		EventID: event.ID,
		Kind:    model.NotifKindEventUpdated,
		Title:   "Event updated: " + event.Title,
		Message: ChangeMessage(event, changes),
	})
}

// Reminder notifies the event's subscribers that the event is coming up.
func (n *Notifier) Reminder(ctx context.Context, event model.Event, key string) (Result, error) {
	recipients, err := n.subscribers(ctx, event.ID)
	if err != nil {
		return Result{Key: key}, err
	}
	return n.deliver(ctx, key, recipients, model.Notification{
		EventID: event.ID,
		Kind:    model.NotifKindEventReminder,
		Title:   "Reminder: " + event.Title,
		Message: ReminderMessage(event),
	})
}

// Announce delivers an announcement. With RecipientsAll every current
// subscriber is resolved now and Config.Filter does not apply, so disabled
// subscriptions still receive it. With RecipientsSelected the given ids are
// used as-is, whether or not they are subscribed.
func (n *Notifier) Announce(ctx context.Context, a model.Announcement, selected []int64, key string) (Result, error) {
	var recipients []int64
	switch a.RecipientType {
	case model.RecipientsSelected:
		recipients = dedupe(selected)
	default:
		var err error
		recipients, err = n.subscribersMatching(ctx, a.EventID, AllSubscribers)
		if err != nil {
			return Result{Key: key}, err
		}
	}
	announcementID := a.ID
	return n.deliver(ctx, key, recipients, model.Notification{
		EventID:        a.EventID,
		AnnouncementID: &announcementID,
		Kind:           model.NotifKindAnnouncement,
		Title:          a.Title,
		Message:        a.Message,
	})
}

func (n *Notifier) subscribers(ctx context.Context, eventID int64) ([]int64, error) {
	return n.subscribersMatching(ctx, eventID, n.cfg.Filter)
}

func (n *Notifier) subscribersMatching(ctx context.Context, eventID int64, keep Filter) ([]int64, error) {
	subs, err := n.subscriptions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	ids := make([]int64, 0, len(subs))
	for _, s := range subs {
		if keep(s) {
			ids = append(ids, s.UserID)
		}
	}
	return ids, nil
}

// deliver inserts one copy of tmpl per recipient concurrently. Any failed
// insert fails the whole fan-out; rows already stored stay, and re-running
// the same recipients with the same key fills in only the missing ones.
func (n *Notifier) deliver(ctx context.Context, key string, recipients []int64, tmpl model.Notification) (Result, error) {
	if key == "" {
		key = uuid.NewString()
	}

	var delivered, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	if n.cfg.Concurrency > 0 {
		g.SetLimit(n.cfg.Concurrency)
	}

	for _, userID := range recipients {
		g.Go(func() error {
			notif := tmpl
			notif.UserID = userID

			var stored *model.Notification
			backoff := retry.WithMaxRetries(n.cfg.Retries, retry.NewExponential(50*time.Millisecond))
			err := retry.Do(gctx, backoff, func(ctx context.Context) error {
				s, err := n.notifications.Insert(ctx, notif, key)
				if err != nil {
					return retry.RetryableError(err)
				}
				stored = s
				return nil
			})
			if err != nil {
				return fmt.Errorf("notify user %d: %w", userID, err)
			}

			if stored == nil {
				skipped.Add(1)
				return nil
			}
			delivered.Add(1)
			if n.publisher != nil {
				n.publisher.Publish(userID, *stored)
			}
			return nil
		})
	}

	res := Result{Key: key}
	err := g.Wait()
	res.Delivered = int(delivered.Load())
	res.Skipped = int(skipped.Load())
	if err != nil {
		n.logger.Error("fan-out failed", "key", key, "kind", tmpl.Kind, "event_id", tmpl.EventID,
			"delivered", res.Delivered, "error", err)
		return res, err
	}

	n.logger.Info("fan-out complete", "key", key, "kind", tmpl.Kind, "event_id", tmpl.EventID,
		"recipients", len(recipients), "delivered", res.Delivered, "skipped", res.Skipped)
	return res, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
