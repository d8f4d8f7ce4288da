// Package access answers a single question for every route: how much may
// this user do to this event.
package access

import (
	"context"
	"fmt"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/store"
)

// Capability is ordered; a higher value includes every lower one.
type Capability int

const (
	None Capability = iota
	Participant
	EventAdmin
	GlobalAdmin
)

func (c Capability) String() string {
	switch c {
	case None:
		return "none"
	case Participant:
		return "participant"
	case EventAdmin:
		return "event_admin"
	case GlobalAdmin:
		return "global_admin"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

type Checker struct {
	admins        *store.AdminStore
	subscriptions *store.SubscriptionStore
}

func NewChecker(admins *store.AdminStore, subscriptions *store.SubscriptionStore) *Checker {
	return &Checker{admins: admins, subscriptions: subscriptions}
}

// Capability resolves the user's capability on the event. Creator, admin and
// chair rows make an event admin; a speaker row or any subscription makes a
// participant.
func (c *Checker) Capability(ctx context.Context, user auth.AuthContext, eventID int64) (Capability, error) {
	if user.UserID == 0 {
		return None, nil
	}
	if user.IsAdmin {
		return GlobalAdmin, nil
	}

	admin, err := c.admins.Get(ctx, eventID, user.UserID)
	if err != nil {
		return None, err
	}
	if admin != nil && admin.Role.Manages() {
		return EventAdmin, nil
	}
	if admin != nil {
		return Participant, nil
	}

	sub, err := c.subscriptions.Get(ctx, eventID, user.UserID)
	if err != nil {
		return None, err
	}
	if sub != nil {
		return Participant, nil
	}
	return None, nil
}

// Require fails with apperr.ErrUnauthorized unless the user is signed in and
// holds at least min on the event.
func (c *Checker) Require(ctx context.Context, user auth.AuthContext, eventID int64, min Capability) error {
	if user.UserID == 0 {
		return apperr.ErrUnauthorized
	}
	if min == None {
		return nil
	}
	got, err := c.Capability(ctx, user, eventID)
	if err != nil {
		return err
	}
	if got < min {
		return fmt.Errorf("%s required on event %d, have %s: %w", min, eventID, got, apperr.ErrUnauthorized)
	}
	return nil
}
