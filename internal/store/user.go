package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/model"
)

type UserStore struct {
	db *database.DB
}

func NewUserStore(db *database.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(row scanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.PictureURL, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, subject, email, name, picture_url, is_admin, created_at, updated_at`

// UpsertFromProfile creates the user on first sign-in and refreshes the
// profile fields on later ones. The admin flag is only ever raised here. An
// email already held by another subject yields apperr.ErrConflict.
func (s *UserStore) UpsertFromProfile(ctx context.Context, subject, email, name, pictureURL string, admin bool) (*model.User, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (subject, email, name, picture_url, is_admin)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (subject) DO UPDATE SET
		     email = excluded.email,
		     name = excluded.name,
		     picture_url = excluded.picture_url,
		     is_admin = (users.is_admin OR excluded.is_admin),
		     updated_at = CURRENT_TIMESTAMP
		 RETURNING id`,
		subject, email, name, pictureURL, admin,
	).Scan(&id)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("upsert user %s: email %s: %w", subject, email, apperr.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetByEmail matches email case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower(?)`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Search matches users by name or email prefix, case-insensitively.
func (s *UserStore) Search(ctx context.Context, q string, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := strings.ToLower(strings.TrimSpace(q)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users
		 WHERE lower(name) LIKE ? OR lower(email) LIKE ?
		 ORDER BY name, id
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// MissingIDs returns the ids in ids that do not belong to any user.
func (s *UserStore) MissingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("check user %d: %w", id, err)
		}
	}
	return missing, nil
}

func (s *UserStore) SetAdmin(ctx context.Context, id int64, admin bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, admin, id)
	if err != nil {
		return fmt.Errorf("set user admin: %w", err)
	}
	return nil
}
