package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *database.DB, name string) *model.User {
	t.Helper()
	u, err := NewUserStore(db).UpsertFromProfile(context.Background(),
		"sub-"+name, name+"@example.edu", name, "", false)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func sampleEvent(creatorID int64) model.Event {
	return model.Event{
		Title:       "Compilers Workshop",
		Description: "Hands-on parsing",
		StartDate:   "2024-01-10",
		EndDate:     "2024-01-10",
		StartTime:   model.TimeOfDay{Hours: 9},
		EndTime:     model.TimeOfDay{Hours: 17},
		Location:    "Room 101",
		Type:        model.EventTypeWorkshop,
		CreatorID:   creatorID,
	}
}

func createEvent(t *testing.T, db *database.DB, creatorID int64) *model.Event {
	t.Helper()
	e, err := NewEventStore(db).Create(context.Background(), sampleEvent(creatorID), Roster{})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

func createUsers(t *testing.T, db *database.DB, n int) []*model.User {
	t.Helper()
	users := make([]*model.User, n)
	for i := range users {
		users[i] = createUser(t, db, fmt.Sprintf("user%d", i))
	}
	return users
}
