package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/model"
)

type NotificationStore struct {
	db *database.DB
}

func NewNotificationStore(db *database.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationCols = `id, user_id, event_id, announcement_id, kind, title, message, is_read, created_at`

func scanNotification(row scanner) (*model.Notification, error) {
	var n model.Notification
	var announcementID sql.NullInt64
	err := row.Scan(&n.ID, &n.UserID, &n.EventID, &announcementID, &n.Kind, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	if announcementID.Valid {
		n.AnnouncementID = &announcementID.Int64
	}
	return &n, nil
}

// Insert stores a notification unless the recipient already holds one with
// the same idempotency key, event and kind. It returns the stored row, or nil when
// the insert was skipped as a duplicate.
func (s *NotificationStore) Insert(ctx context.Context, n model.Notification, key string) (*model.Notification, error) {
	var announcementID sql.NullInt64
	if n.AnnouncementID != nil {
		announcementID = sql.NullInt64{Int64: *n.AnnouncementID, Valid: true}
	}

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, event_id, announcement_id, kind, title, message, idempotency_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (idempotency_key, event_id, kind, user_id) DO NOTHING
		 RETURNING id`,
		n.UserID, n.EventID, announcementID, n.Kind, n.Title, n.Message, key,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *NotificationStore) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationCols+` FROM notifications WHERE id = ?`, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// ListByUser returns the user's notifications, newest first.
func (s *NotificationStore) ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	q := `SELECT ` + notificationCols + ` FROM notifications WHERE user_id = ?`
	args := []any{userID}
	if unreadOnly {
		q += ` AND is_read = ?`
		args = append(args, false)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// ListByEvent returns every notification of an event.
func (s *NotificationStore) ListByEvent(ctx context.Context, eventID int64) ([]model.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationCols+` FROM notifications WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`, userID, false).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead flags one of the user's notifications as read. Rows owned by
// other users are not touched.
func (s *NotificationStore) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = ? WHERE id = ? AND user_id = ?`, true, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	return affected(res)
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`, true, userID, false)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

func (s *NotificationStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	return affected(res)
}
