package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/fanout"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/registry"
	"github.com/dukerupert/eventboard/internal/store"
	"github.com/dukerupert/eventboard/internal/websocket"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingHub struct {
	mu       sync.Mutex
	messages []websocket.Message
}

func (h *recordingHub) Broadcast(msg websocket.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.messages))
	for i, m := range h.messages {
		out[i] = m.Type
	}
	return out
}

type testEnv struct {
	db            *database.DB
	users         []*model.User
	events        *store.EventStore
	admins        *store.AdminStore
	subscriptions *store.SubscriptionStore
	announcements *store.AnnouncementStore
	notifications *store.NotificationStore
	userStore     *store.UserStore
	registry      *registry.Registry
	notifier      *fanout.Notifier
	hub           *recordingHub
}

// newTestEnv creates five users (ids 1..5); user 1 is a global admin.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	us := store.NewUserStore(db)
	users := make([]*model.User, 5)
	for i := range users {
		users[i], err = us.UpsertFromProfile(ctx, fmt.Sprintf("sub-%d", i+1),
			fmt.Sprintf("user%d@example.edu", i+1), fmt.Sprintf("User %d", i+1), "", i == 0)
		require.NoError(t, err)
	}

	env := &testEnv{
		db:            db,
		users:         users,
		events:        store.NewEventStore(db),
		admins:        store.NewAdminStore(db),
		subscriptions: store.NewSubscriptionStore(db),
		announcements: store.NewAnnouncementStore(db),
		notifications: store.NewNotificationStore(db),
		userStore:     us,
		hub:           &recordingHub{},
	}
	env.registry = registry.New(env.events, env.subscriptions, discard)
	env.notifier = fanout.New(env.subscriptions, env.notifications, nil, fanout.Config{Concurrency: 4}, discard)
	return env
}

func (e *testEnv) eventHandler(now time.Time) *EventHandler {
	return NewEventHandler(e.events, e.userStore, e.notifier, e.hub, time.UTC, discard).
		WithClock(func() time.Time { return now })
}

func (e *testEnv) createEvent(t *testing.T) *model.Event {
	t.Helper()
	ev, err := e.events.Create(context.Background(), model.Event{
		Title:     "Compilers Workshop",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-10",
		StartTime: model.TimeOfDay{Hours: 9},
		EndTime:   model.TimeOfDay{Hours: 17},
		Location:  "Room 101",
		Type:      model.EventTypeWorkshop,
		CreatorID: e.users[0].ID,
	}, store.Roster{})
	require.NoError(t, err)
	return ev
}

func (e *testEnv) subscribe(t *testing.T, eventID int64, users ...*model.User) {
	t.Helper()
	for _, u := range users {
		_, err := e.subscriptions.Create(context.Background(), eventID, u.ID, model.SubscriptionRoleAttendee)
		require.NoError(t, err)
	}
}

// failNotifications makes every notification insert for userID fail
// until the returned func drops the trigger.
func (e *testEnv) failNotifications(t *testing.T, userID int64) func() {
	t.Helper()
	ctx := context.Background()
	_, err := e.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TRIGGER fail_notifications BEFORE INSERT ON notifications
		 WHEN NEW.user_id = %d
		 BEGIN SELECT RAISE(ABORT, 'notifications unavailable'); END`, userID))
	require.NoError(t, err)
	return func() {
		_, err := e.db.ExecContext(ctx, `DROP TRIGGER fail_notifications`)
		require.NoError(t, err)
	}
}

// serve routes a single request through a mux holding pattern, so path
// values resolve as they do in the server.
func serve(t *testing.T, pattern string, h http.HandlerFunc, method, target string, body any, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	return serveWithHeader(t, pattern, h, method, target, body, user, "", "")
}

func serveWithHeader(t *testing.T, pattern string, h http.HandlerFunc, method, target string, body any, user *model.User, key, value string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, r)
	if r != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(key, value)
	}
	if user != nil {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{
			UserID:  user.ID,
			Email:   user.Email,
			IsAdmin: user.IsAdmin,
		}))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}
