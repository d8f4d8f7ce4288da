package store

import (
	"context"
	"testing"

	"github.com/dukerupert/eventboard/internal/model"
)

func TestNotificationInsertIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 2)
	e := createEvent(t, db, users[0].ID)
	ns := NewNotificationStore(db)

	n := model.Notification{
		UserID: users[1].ID, EventID: e.ID, Kind: model.NotifKindEventReminder,
		Title: "Reminder", Message: "Starts soon",
	}
	first, err := ns.Insert(ctx, n, "key-1")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first == nil {
		t.Fatal("first insert skipped")
	}
	if first.IsRead {
		t.Error("new notification should be unread")
	}

	dup, err := ns.Insert(ctx, n, "key-1")
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if dup != nil {
		t.Errorf("duplicate insert stored row %d", dup.ID)
	}

	other, err := ns.Insert(ctx, n, "key-2")
	if err != nil || other == nil {
		t.Fatalf("insert with new key = %v, %v", other, err)
	}

	all, _ := ns.ListByEvent(ctx, e.ID)
	if len(all) != 2 {
		t.Errorf("got %d notifications, want 2", len(all))
	}
}

func TestNotificationKeyScopedToEventAndKind(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 2)
	e1 := createEvent(t, db, users[0].ID)
	e2 := createEvent(t, db, users[0].ID)
	ns := NewNotificationStore(db)

	base := model.Notification{
		UserID: users[1].ID, EventID: e1.ID, Kind: model.NotifKindEventReminder,
		Title: "Reminder", Message: "Starts soon",
	}
	if n, err := ns.Insert(ctx, base, "shared"); err != nil || n == nil {
		t.Fatalf("first insert = %v, %v", n, err)
	}

	otherEvent := base
	otherEvent.EventID = e2.ID
	if n, err := ns.Insert(ctx, otherEvent, "shared"); err != nil || n == nil {
		t.Errorf("same key on another event = %v, %v; want stored", n, err)
	}

	otherKind := base
	otherKind.Kind = model.NotifKindEventUpdated
	if n, err := ns.Insert(ctx, otherKind, "shared"); err != nil || n == nil {
		t.Errorf("same key for another kind = %v, %v; want stored", n, err)
	}

	if n, err := ns.Insert(ctx, base, "shared"); err != nil || n != nil {
		t.Errorf("exact repeat = %v, %v; want skipped", n, err)
	}
}

func TestNotificationReadAndDeleteOwnOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 3)
	e := createEvent(t, db, users[0].ID)
	ns := NewNotificationStore(db)

	var mine []*model.Notification
	for _, key := range []string{"a", "b"} {
		n, err := ns.Insert(ctx, model.Notification{
			UserID: users[1].ID, EventID: e.ID, Kind: model.NotifKindEventUpdated,
			Title: "Update", Message: "Changed",
		}, key)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		mine = append(mine, n)
	}

	ok, err := ns.MarkRead(ctx, users[2].ID, mine[0].ID)
	if err != nil || ok {
		t.Errorf("mark read by other user = %v, %v; want false, nil", ok, err)
	}
	ok, err = ns.MarkRead(ctx, users[1].ID, mine[0].ID)
	if err != nil || !ok {
		t.Fatalf("mark read = %v, %v; want true, nil", ok, err)
	}

	unread, err := ns.CountUnread(ctx, users[1].ID)
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 1 {
		t.Errorf("unread = %d, want 1", unread)
	}
	list, _ := ns.ListByUser(ctx, users[1].ID, true)
	if len(list) != 1 || list[0].ID != mine[1].ID {
		t.Errorf("unread list = %+v, want only %d", list, mine[1].ID)
	}

	n, err := ns.MarkAllRead(ctx, users[1].ID)
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if n != 1 {
		t.Errorf("marked %d, want 1", n)
	}

	ok, err = ns.Delete(ctx, users[2].ID, mine[1].ID)
	if err != nil || ok {
		t.Errorf("delete by other user = %v, %v; want false, nil", ok, err)
	}
	ok, err = ns.Delete(ctx, users[1].ID, mine[1].ID)
	if err != nil || !ok {
		t.Errorf("delete = %v, %v; want true, nil", ok, err)
	}
	all, _ := ns.ListByUser(ctx, users[1].ID, false)
	if len(all) != 1 {
		t.Errorf("got %d notifications, want 1", len(all))
	}
}
