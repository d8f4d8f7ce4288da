package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/model"
)

type SubscriptionStore struct {
	db *database.DB
}

func NewSubscriptionStore(db *database.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

const subscriptionSelect = `SELECT s.id, s.event_id, s.user_id, s.role, s.status, u.name, u.email, u.picture_url, s.created_at, s.updated_at
	FROM event_subscriptions s
	JOIN users u ON u.id = s.user_id`

func scanSubscription(row scanner) (*model.Subscription, error) {
	var sub model.Subscription
	err := row.Scan(&sub.ID, &sub.EventID, &sub.UserID, &sub.Role, &sub.Status,
		&sub.UserName, &sub.UserEmail, &sub.UserPicture, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create inserts an enabled subscription. An existing row for the pair
// yields apperr.ErrConflict.
func (s *SubscriptionStore) Create(ctx context.Context, eventID, userID int64, role model.SubscriptionRole) (*model.Subscription, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_subscriptions (event_id, user_id, role, status) VALUES (?, ?, ?, ?)`,
		eventID, userID, string(role), string(model.SubscriptionEnabled),
	)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("insert subscription: %w", apperr.ErrConflict)
	}
	if database.IsForeignKeyViolation(err) {
		return nil, fmt.Errorf("insert subscription: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}
	return s.Get(ctx, eventID, userID)
}

// Upsert creates the subscription or changes the role of an existing one,
// leaving its status alone.
func (s *SubscriptionStore) Upsert(ctx context.Context, eventID, userID int64, role model.SubscriptionRole) (*model.Subscription, error) {
	if err := upsertSubscription(ctx, s.db, eventID, userID, role); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("upsert subscription: %w", apperr.ErrNotFound)
		}
		return nil, err
	}
	return s.Get(ctx, eventID, userID)
}

func (s *SubscriptionStore) Get(ctx context.Context, eventID, userID int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx, subscriptionSelect+` WHERE s.event_id = ? AND s.user_id = ?`, eventID, userID)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

// ListByEvent returns every subscription row of the event with the
// subscriber's identity.
func (s *SubscriptionStore) ListByEvent(ctx context.Context, eventID int64) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, subscriptionSelect+` WHERE s.event_id = ? ORDER BY s.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *SubscriptionStore) SetStatus(ctx context.Context, eventID, userID int64, status model.SubscriptionStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event_subscriptions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE event_id = ? AND user_id = ?`,
		string(status), eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("update subscription status: %w", err)
	}
	return affected(res)
}

func (s *SubscriptionStore) Delete(ctx context.Context, eventID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM event_subscriptions WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return affected(res)
}
