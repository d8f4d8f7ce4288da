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

type AdminStore struct {
	db *database.DB
}

func NewAdminStore(db *database.DB) *AdminStore {
	return &AdminStore{db: db}
}

const adminSelect = `SELECT a.id, a.event_id, a.user_id, a.role, u.name, u.email, a.created_at
	FROM event_admins a
	JOIN users u ON u.id = a.user_id`

func scanAdmin(row scanner) (*model.EventAdmin, error) {
	var a model.EventAdmin
	if err := row.Scan(&a.ID, &a.EventID, &a.UserID, &a.Role, &a.UserName, &a.UserEmail, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByEvent returns the event's staff. The creator row is included only
// when withCreator is set; "selectable admins" listings leave it out.
func (s *AdminStore) ListByEvent(ctx context.Context, eventID int64, withCreator bool) ([]model.EventAdmin, error) {
	q := adminSelect + ` WHERE a.event_id = ?`
	args := []any{eventID}
	if !withCreator {
		q += ` AND a.role <> ?`
		args = append(args, string(model.AdminRoleCreator))
	}
	q += ` ORDER BY a.id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query event admins: %w", err)
	}
	defer rows.Close()

	var admins []model.EventAdmin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event admin: %w", err)
		}
		admins = append(admins, *a)
	}
	return admins, rows.Err()
}

// Get returns the user's admin row for the event, or nil.
func (s *AdminStore) Get(ctx context.Context, eventID, userID int64) (*model.EventAdmin, error) {
	row := s.db.QueryRowContext(ctx, adminSelect+` WHERE a.event_id = ? AND a.user_id = ?`, eventID, userID)
	a, err := scanAdmin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event admin: %w", err)
	}
	return a, nil
}

// Add places a user on the roster. A user already on it yields
// apperr.ErrConflict.
func (s *AdminStore) Add(ctx context.Context, eventID, userID int64, role model.AdminRole) (*model.EventAdmin, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_admins (event_id, user_id, role) VALUES (?, ?, ?)`,
		eventID, userID, string(role),
	)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("insert event admin: %w", apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert event admin: %w", err)
	}
	return s.Get(ctx, eventID, userID)
}

// Remove deletes a non-creator roster row and reports whether one existed.
func (s *AdminStore) Remove(ctx context.Context, eventID, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM event_admins WHERE event_id = ? AND user_id = ? AND role <> ?`,
		eventID, userID, string(model.AdminRoleCreator),
	)
	if err != nil {
		return false, fmt.Errorf("delete event admin: %w", err)
	}
	return affected(res)
}
