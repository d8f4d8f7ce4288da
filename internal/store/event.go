package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/model"
)

type EventStore struct {
	db *database.DB
}

func NewEventStore(db *database.DB) *EventStore {
	return &EventStore{db: db}
}

// AdminAssignment places a user on an event's staff roster.
type AdminAssignment struct {
	UserID int64           `json:"user_id"`
	Role   model.AdminRole `json:"role"`
}

// ParticipantAssignment sets a user's subscription role on an event.
type ParticipantAssignment struct {
	UserID int64                  `json:"user_id"`
	Role   model.SubscriptionRole `json:"role"`
}

// Roster carries the optional staff and participant changes applied together
// with an event's fields. A nil Admins leaves the admin roster untouched; a
// non-nil one replaces every non-creator row.
type Roster struct {
	Admins       []AdminAssignment
	Participants []ParticipantAssignment
}

const eventCols = `id, title, description, start_date, end_date, start_time, end_time, location, type, timezone, creator_id, created_at, updated_at`

func scanEvent(row scanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartDate, &e.EndDate, &e.StartTime, &e.EndTime,
		&e.Location, &e.Type, &e.Timezone, &e.CreatorID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts the event, its creator admin row and the roster in one
// transaction.
func (s *EventStore) Create(ctx context.Context, e model.Event, roster Roster) (*model.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO events (title, description, start_date, end_date, start_time, end_time, location, type, timezone, creator_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		e.Title, e.Description, e.StartDate, e.EndDate, e.StartTime, e.EndTime,
		e.Location, string(e.Type), e.Timezone, e.CreatorID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO event_admins (event_id, user_id, role) VALUES (?, ?, ?)`,
		id, e.CreatorID, string(model.AdminRoleCreator),
	); err != nil {
		return nil, fmt.Errorf("insert creator admin: %w", err)
	}

	if err := insertAdmins(ctx, tx, id, e.CreatorID, roster.Admins); err != nil {
		return nil, err
	}
	for _, p := range roster.Participants {
		if err := upsertSubscription(ctx, tx, id, p.UserID, p.Role); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (s *EventStore) List(ctx context.Context) ([]model.Event, error) {
	return s.query(ctx,
		`SELECT `+eventCols+` FROM events ORDER BY start_date, start_time, id`)
}

// ListSubscribed returns the events the user holds a subscription to.
func (s *EventStore) ListSubscribed(ctx context.Context, userID int64) ([]model.Event, error) {
	return s.query(ctx,
		`SELECT e.id, e.title, e.description, e.start_date, e.end_date, e.start_time, e.end_time,
		        e.location, e.type, e.timezone, e.creator_id, e.created_at, e.updated_at
		 FROM events e
		 JOIN event_subscriptions s ON s.event_id = e.id
		 WHERE s.user_id = ?
		 ORDER BY e.start_date, e.start_time, e.id`,
		userID)
}

func (s *EventStore) query(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update rewrites the event's fields and applies the roster changes in a
// single transaction, keyed by the event's stable id. It returns nil when
// the event does not exist.
func (s *EventStore) Update(ctx context.Context, e model.Event, roster Roster) (*model.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var creatorID int64
	err = tx.QueryRowContext(ctx,
		`UPDATE events
		 SET title = ?, description = ?, start_date = ?, end_date = ?, start_time = ?, end_time = ?,
		     location = ?, type = ?, timezone = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?
		 RETURNING creator_id`,
		e.Title, e.Description, e.StartDate, e.EndDate, e.StartTime, e.EndTime,
		e.Location, string(e.Type), e.Timezone, e.ID,
	).Scan(&creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	if roster.Admins != nil {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM event_admins WHERE event_id = ? AND role <> ?`,
			e.ID, string(model.AdminRoleCreator),
		); err != nil {
			return nil, fmt.Errorf("clear event admins: %w", err)
		}
		if err := insertAdmins(ctx, tx, e.ID, creatorID, roster.Admins); err != nil {
			return nil, err
		}
	}

	for _, p := range roster.Participants {
		if err := upsertSubscription(ctx, tx, e.ID, p.UserID, p.Role); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit event: %w", err)
	}
	return s.GetByID(ctx, e.ID)
}

// Delete removes the event; admins, subscriptions, announcements and
// notifications go with it through ON DELETE CASCADE.
func (s *EventStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	return affected(res)
}

func insertAdmins(ctx context.Context, q querier, eventID, creatorID int64, admins []AdminAssignment) error {
	for _, a := range admins {
		if a.UserID == creatorID || a.Role == model.AdminRoleCreator {
			continue
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO event_admins (event_id, user_id, role) VALUES (?, ?, ?)
			 ON CONFLICT (event_id, user_id) DO UPDATE SET role = excluded.role`,
			eventID, a.UserID, string(a.Role),
		)
		if err != nil {
			return fmt.Errorf("insert event admin %d: %w", a.UserID, err)
		}
	}
	return nil
}

func upsertSubscription(ctx context.Context, q querier, eventID, userID int64, role model.SubscriptionRole) error {
	if role == "" {
		role = model.SubscriptionRoleAttendee
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO event_subscriptions (event_id, user_id, role, status) VALUES (?, ?, ?, ?)
		 ON CONFLICT (event_id, user_id) DO UPDATE SET role = excluded.role, updated_at = CURRENT_TIMESTAMP`,
		eventID, userID, string(role), string(model.SubscriptionEnabled),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription %d: %w", userID, err)
	}
	return nil
}
