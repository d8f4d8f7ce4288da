package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/eventboard/internal/model"
)

func TestAnnounceToAllSubscribers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.createEvent(t)
	env.subscribe(t, ev.ID, env.users[1], env.users[2], env.users[3])
	h := NewAnnouncementHandler(env.events, env.announcements, env.userStore, env.notifier, discard)

	rec := serve(t, "POST /events/{id}/announcements", h.Create, "POST", "/events/1/announcements", map[string]any{
		"title":          "Room change",
		"message":        "We moved to the main hall.",
		"recipient_type": "all",
	}, env.users[0])
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeBody[announcementResponse](t, rec)
	assert.Equal(t, env.users[0].ID, got.Announcement.AuthorID)
	assert.Equal(t, 3, got.Delivery.Delivered)

	list, err := env.notifications.ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, n := range list {
		require.NotNil(t, n.AnnouncementID)
		assert.Equal(t, got.Announcement.ID, *n.AnnouncementID)
		assert.Equal(t, model.NotifKindAnnouncement, n.Kind)
	}
}

func TestAnnounceToSelectedIgnoresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.createEvent(t)
	env.subscribe(t, ev.ID, env.users[1])
	h := NewAnnouncementHandler(env.events, env.announcements, env.userStore, env.notifier, discard)

	rec := serve(t, "POST /events/{id}/announcements", h.Create, "POST", "/events/1/announcements", map[string]any{
		"title":          "Speakers dinner",
		"message":        "Table booked for 8pm.",
		"recipient_type": "selected",
		"recipient_ids":  []int64{env.users[3].ID, env.users[4].ID, env.users[3].ID},
	}, env.users[0])
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeBody[announcementResponse](t, rec).Delivery.Delivered)

	n, err := env.notifications.CountUnread(ctx, env.users[1].ID)
	require.NoError(t, err)
	assert.Zero(t, n, "subscriber outside the selection is not notified")
}

func TestAnnounceWithdrawnWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.createEvent(t)
	env.subscribe(t, ev.ID, env.users[1], env.users[2])
	h := NewAnnouncementHandler(env.events, env.announcements, env.userStore, env.notifier, discard)
	body := map[string]any{"title": "Room change", "message": "We moved to the main hall.", "recipient_type": "all"}

	restore := env.failNotifications(t, env.users[2].ID)
	rec := serveWithHeader(t, "POST /events/{id}/announcements", h.Create, "POST", "/events/1/announcements", body, env.users[0], "Idempotency-Key", "room-change")
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())

	list, err := env.announcements.ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Empty(t, list, "announcement is withdrawn")
	restore()

	rec = serveWithHeader(t, "POST /events/{id}/announcements", h.Create, "POST", "/events/1/announcements", body, env.users[0], "Idempotency-Key", "room-change")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	list, err = env.announcements.ListByEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	for _, u := range env.users[1:3] {
		inbox, err := env.notifications.ListByUser(ctx, u.ID, false)
		require.NoError(t, err)
		assert.Len(t, inbox, 1, "user %d", u.ID)
	}
}

func TestAnnounceValidation(t *testing.T) {
	env := newTestEnv(t)
	env.createEvent(t)
	h := NewAnnouncementHandler(env.events, env.announcements, env.userStore, env.notifier, discard)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing recipients", map[string]any{"title": "t", "message": "m", "recipient_type": "selected"}, "recipient_ids"},
		{"unknown recipient", map[string]any{"title": "t", "message": "m", "recipient_type": "selected", "recipient_ids": []int64{2, 99}}, "recipient_ids"},
		{"unknown type", map[string]any{"title": "t", "message": "m", "recipient_type": "some"}, "recipient_type"},
		{"blank message", map[string]any{"title": "t", "message": "  ", "recipient_type": "all"}, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "POST /events/{id}/announcements", h.Create, "POST", "/events/1/announcements", tt.body, env.users[0])
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decodeBody[errorBody](t, rec).Fields, tt.field)
		})
	}

	list, err := env.announcements.ListByEvent(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAnnouncementListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.createEvent(t)
	env.subscribe(t, ev.ID, env.users[1])
	h := NewAnnouncementHandler(env.events, env.announcements, env.userStore, env.notifier, discard)

	rec := serve(t, "POST /events/{id}/announcements", h.Create, "POST", "/events/1/announcements", map[string]any{
		"title": "Welcome", "message": "Badges at the desk.", "recipient_type": "all",
	}, env.users[0])
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[announcementResponse](t, rec).Announcement

	rec = serve(t, "GET /events/{id}/announcements", h.List, "GET", "/events/1/announcements", nil, env.users[1])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]model.Announcement](t, rec), 1)

	rec = serve(t, "DELETE /events/{id}/announcements/{announcementID}", h.Delete, "DELETE", "/events/1/announcements/1", nil, env.users[0])
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, "DELETE /events/{id}/announcements/{announcementID}", h.Delete, "DELETE", "/events/1/announcements/1", nil, env.users[0])
	assert.Equal(t, http.StatusNotFound, rec.Code)

	inbox, err := env.notifications.ListByUser(ctx, env.users[1].ID, false)
	require.NoError(t, err)
	require.Len(t, inbox, 1, "notification outlives its announcement")
	assert.Nil(t, inbox[0].AnnouncementID)
	assert.Equal(t, created.Title, inbox[0].Title)
}
