// Package registry manages who is subscribed to which event, with what role
// and whether notifications for them are enabled.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
)

type Registry struct {
	events        *store.EventStore
	subscriptions *store.SubscriptionStore
	logger        *slog.Logger
}

func New(events *store.EventStore, subscriptions *store.SubscriptionStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		events:        events,
		subscriptions: subscriptions,
		logger:        logger.With("component", "registry"),
	}
}

func (r *Registry) requireEvent(ctx context.Context, eventID int64) error {
	e, err := r.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("event %d: %w", eventID, apperr.ErrNotFound)
	}
	return nil
}

// Subscribe creates an enabled subscription. An empty role means attendee.
// Subscribing never notifies anyone.
func (r *Registry) Subscribe(ctx context.Context, eventID, userID int64, role model.SubscriptionRole) (*model.Subscription, error) {
	if role == "" {
		role = model.SubscriptionRoleAttendee
	}
	if !role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	if err := r.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	sub, err := r.subscriptions.Create(ctx, eventID, userID, role)
	if err != nil {
		return nil, err
	}
	r.logger.Info("subscribed", "event_id", eventID, "user_id", userID, "role", role)
	return sub, nil
}

// Unsubscribe removes the subscription row entirely.
func (r *Registry) Unsubscribe(ctx context.Context, eventID, userID int64) error {
	removed, err := r.subscriptions.Delete(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("subscription of user %d to event %d: %w", userID, eventID, apperr.ErrNotFound)
	}
	r.logger.Info("unsubscribed", "event_id", eventID, "user_id", userID)
	return nil
}

// SetStatus enables or disables a subscription without deleting it.
func (r *Registry) SetStatus(ctx context.Context, eventID, userID int64, status model.SubscriptionStatus) error {
	if !status.Valid() {
		return apperr.Invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	updated, err := r.subscriptions.SetStatus(ctx, eventID, userID, status)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("subscription of user %d to event %d: %w", userID, eventID, apperr.ErrNotFound)
	}
	return nil
}

// SetRole subscribes the user with the given role, or changes the role of an
// existing subscription.
func (r *Registry) SetRole(ctx context.Context, eventID, userID int64, role model.SubscriptionRole) (*model.Subscription, error) {
	if !role.Valid() {
		return nil, apperr.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	if err := r.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return r.subscriptions.Upsert(ctx, eventID, userID, role)
}

// Get returns the user's subscription or ErrNotFound.
func (r *Registry) Get(ctx context.Context, eventID, userID int64) (*model.Subscription, error) {
	sub, err := r.subscriptions.Get(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("subscription of user %d to event %d: %w", userID, eventID, apperr.ErrNotFound)
	}
	return sub, nil
}

// ListSubscribers returns every subscription of the event in no particular
// order.
func (r *Registry) ListSubscribers(ctx context.Context, eventID int64) ([]model.Subscription, error) {
	if err := r.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	subs, err := r.subscriptions.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []model.Subscription{}
	}
	return subs, nil
}

// SortByName orders subscriptions by subscriber name using the collation
// rules of tag, falling back to email for equal names.
func SortByName(subs []model.Subscription, tag language.Tag) {
	c := collate.New(tag, collate.IgnoreCase)
	sort.SliceStable(subs, func(i, j int) bool {
		if cmp := c.CompareString(subs[i].UserName, subs[j].UserName); cmp != 0 {
			return cmp < 0
		}
		return subs[i].UserEmail < subs[j].UserEmail
	})
}
