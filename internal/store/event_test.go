package store

import (
	"context"
	"testing"

	"github.com/dukerupert/eventboard/internal/model"
)

func TestEventCreateAddsCreatorAdmin(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 3)
	es := NewEventStore(db)

	e, err := es.Create(ctx, sampleEvent(users[0].ID), Roster{Admins: []AdminAssignment{
		{UserID: users[1].ID, Role: model.AdminRoleChair},
		{UserID: users[0].ID, Role: model.AdminRoleAdmin},
	}})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	if e.Title != "Compilers Workshop" {
		t.Errorf("title = %q, want %q", e.Title, "Compilers Workshop")
	}
	if e.StartTime != (model.TimeOfDay{Hours: 9}) {
		t.Errorf("start_time = %v, want 09:00", e.StartTime)
	}
	if e.Type != model.EventTypeWorkshop {
		t.Errorf("type = %q, want %q", e.Type, model.EventTypeWorkshop)
	}

	admins, err := NewAdminStore(db).ListByEvent(ctx, e.ID, true)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("got %d admins, want 2", len(admins))
	}
	if admins[0].UserID != users[0].ID || admins[0].Role != model.AdminRoleCreator {
		t.Errorf("first admin = %+v, want creator %d", admins[0], users[0].ID)
	}
	if admins[1].Role != model.AdminRoleChair {
		t.Errorf("second admin role = %q, want %q", admins[1].Role, model.AdminRoleChair)
	}
}

func TestEventGetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	got, err := NewEventStore(db).GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestEventListOrdersByStart(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	u := createUser(t, db, "alice")
	es := NewEventStore(db)

	late := sampleEvent(u.ID)
	late.Title = "Late"
	late.StartDate, late.EndDate = "2024-03-01", "2024-03-01"
	early := sampleEvent(u.ID)
	early.Title = "Early"
	for _, e := range []model.Event{late, early} {
		if _, err := es.Create(ctx, e, Roster{}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	events, err := es.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Title != "Early" {
		t.Errorf("first = %q, want %q", events[0].Title, "Early")
	}
}

func TestEventListSubscribed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 2)
	a := createEvent(t, db, users[0].ID)
	createEvent(t, db, users[0].ID)

	if _, err := NewSubscriptionStore(db).Create(ctx, a.ID, users[1].ID, model.SubscriptionRoleAttendee); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	events, err := NewEventStore(db).ListSubscribed(ctx, users[1].ID)
	if err != nil {
		t.Fatalf("list subscribed: %v", err)
	}
	if len(events) != 1 || events[0].ID != a.ID {
		t.Errorf("subscribed = %+v, want only event %d", events, a.ID)
	}
}

func TestEventUpdateInPlace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 4)
	es := NewEventStore(db)

	e, err := es.Create(ctx, sampleEvent(users[0].ID), Roster{Admins: []AdminAssignment{
		{UserID: users[1].ID, Role: model.AdminRoleAdmin},
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	changed := *e
	changed.Location = "Auditorium"
	changed.EndTime = model.TimeOfDay{Hours: 18, Minutes: 30}
	updated, err := es.Update(ctx, changed, Roster{
		Admins: []AdminAssignment{{UserID: users[2].ID, Role: model.AdminRoleSpeaker}},
		Participants: []ParticipantAssignment{
			{UserID: users[3].ID, Role: model.SubscriptionRolePresenter},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != e.ID {
		t.Errorf("id = %d, want %d", updated.ID, e.ID)
	}
	if updated.Location != "Auditorium" {
		t.Errorf("location = %q, want %q", updated.Location, "Auditorium")
	}
	if updated.EndTime.String() != "18:30" {
		t.Errorf("end_time = %s, want 18:30", updated.EndTime)
	}

	admins, err := NewAdminStore(db).ListByEvent(ctx, e.ID, true)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("got %d admins, want 2 (creator + speaker)", len(admins))
	}
	if admins[0].Role != model.AdminRoleCreator {
		t.Errorf("creator row lost: %+v", admins[0])
	}
	if admins[1].UserID != users[2].ID {
		t.Errorf("admin user = %d, want %d", admins[1].UserID, users[2].ID)
	}

	sub, err := NewSubscriptionStore(db).Get(ctx, e.ID, users[3].ID)
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub == nil || sub.Role != model.SubscriptionRolePresenter {
		t.Errorf("participant = %+v, want presenter", sub)
	}
}

func TestEventUpdateNilAdminsKeepsRoster(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 2)
	es := NewEventStore(db)

	e, err := es.Create(ctx, sampleEvent(users[0].ID), Roster{Admins: []AdminAssignment{
		{UserID: users[1].ID, Role: model.AdminRoleChair},
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := es.Update(ctx, *e, Roster{}); err != nil {
		t.Fatalf("update: %v", err)
	}

	admins, _ := NewAdminStore(db).ListByEvent(ctx, e.ID, true)
	if len(admins) != 2 {
		t.Errorf("got %d admins, want 2", len(admins))
	}
}

func TestEventUpdateNotFound(t *testing.T) {
	db := setupTestDB(t)
	u := createUser(t, db, "alice")
	e := sampleEvent(u.ID)
	e.ID = 999

	got, err := NewEventStore(db).Update(context.Background(), e, Roster{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent event")
	}
}

func TestEventDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 2)
	e := createEvent(t, db, users[0].ID)

	if _, err := NewSubscriptionStore(db).Create(ctx, e.ID, users[1].ID, model.SubscriptionRoleAttendee); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	a, err := NewAnnouncementStore(db).Create(ctx, model.Announcement{
		EventID: e.ID, AuthorID: users[0].ID, Title: "Welcome", Message: "Hi", RecipientType: model.RecipientsAll,
	})
	if err != nil {
		t.Fatalf("create announcement: %v", err)
	}
	if _, err := NewNotificationStore(db).Insert(ctx, model.Notification{
		UserID: users[1].ID, EventID: e.ID, AnnouncementID: &a.ID,
		Kind: model.NotifKindAnnouncement, Title: "Welcome", Message: "Hi",
	}, "k1"); err != nil {
		t.Fatalf("insert notification: %v", err)
	}

	found, err := NewEventStore(db).Delete(ctx, e.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !found {
		t.Error("delete reported event missing")
	}

	for table, want := range map[string]int{
		"event_admins": 0, "event_subscriptions": 0, "announcements": 0, "notifications": 0,
	} {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE event_id = ?", e.ID).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != want {
			t.Errorf("%s rows = %d, want %d", table, n, want)
		}
	}

	found, err = NewEventStore(db).Delete(ctx, e.ID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if found {
		t.Error("second delete reported event present")
	}
}

func TestEventCreateSubscribesParticipants(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := createUsers(t, db, 3)

	e, err := NewEventStore(db).Create(ctx, sampleEvent(users[0].ID), Roster{
		Participants: []ParticipantAssignment{
			{UserID: users[1].ID, Role: model.SubscriptionRoleSpeaker},
			{UserID: users[2].ID},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	subs, err := NewSubscriptionStore(db).ListByEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(subs))
	}
	roles := map[int64]model.SubscriptionRole{}
	for _, s := range subs {
		roles[s.UserID] = s.Role
	}
	if roles[users[1].ID] != model.SubscriptionRoleSpeaker {
		t.Errorf("role of user %d = %q, want speaker", users[1].ID, roles[users[1].ID])
	}
	if roles[users[2].ID] != model.SubscriptionRoleAttendee {
		t.Errorf("role of user %d = %q, want attendee", users[2].ID, roles[users[2].ID])
	}
}
