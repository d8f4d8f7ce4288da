package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/model"
)

type AnnouncementStore struct {
	db *database.DB
}

func NewAnnouncementStore(db *database.DB) *AnnouncementStore {
	return &AnnouncementStore{db: db}
}

const announcementSelect = `SELECT a.id, a.event_id, a.author_id, u.name, a.title, a.message, a.recipient_type, a.created_at
	FROM announcements a
	JOIN users u ON u.id = a.author_id`

func scanAnnouncement(row scanner) (*model.Announcement, error) {
	var a model.Announcement
	err := row.Scan(&a.ID, &a.EventID, &a.AuthorID, &a.AuthorName, &a.Title, &a.Message, &a.RecipientType, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AnnouncementStore) Create(ctx context.Context, a model.Announcement) (*model.Announcement, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO announcements (event_id, author_id, title, message, recipient_type)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		a.EventID, a.AuthorID, a.Title, a.Message, string(a.RecipientType),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert announcement: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AnnouncementStore) GetByID(ctx context.Context, id int64) (*model.Announcement, error) {
	row := s.db.QueryRowContext(ctx, announcementSelect+` WHERE a.id = ?`, id)
	a, err := scanAnnouncement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get announcement: %w", err)
	}
	return a, nil
}

// ListByEvent returns the event's announcements, newest first.
func (s *AnnouncementStore) ListByEvent(ctx context.Context, eventID int64) ([]model.Announcement, error) {
	rows, err := s.db.QueryContext(ctx,
		announcementSelect+` WHERE a.event_id = ? ORDER BY a.created_at DESC, a.id DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query announcements: %w", err)
	}
	defer rows.Close()

	var out []model.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Delete removes an announcement of the given event. Notifications already
// delivered for it are kept with their announcement reference cleared.
func (s *AnnouncementStore) Delete(ctx context.Context, eventID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = ? AND event_id = ?`, id, eventID)
	if err != nil {
		return false, fmt.Errorf("delete announcement: %w", err)
	}
	return affected(res)
}
