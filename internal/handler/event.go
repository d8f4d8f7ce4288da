package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/eventstatus"
	"github.com/dukerupert/eventboard/internal/fanout"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
	"github.com/dukerupert/eventboard/internal/websocket"
)

// Broadcaster pushes live updates to connected clients.
type Broadcaster interface {
	Broadcast(msg websocket.Message)
}

type EventHandler struct {
	events   *store.EventStore
	users    *store.UserStore
	notifier *fanout.Notifier
	hub      Broadcaster
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

func NewEventHandler(es *store.EventStore, us *store.UserStore, n *fanout.Notifier, hub Broadcaster, loc *time.Location, logger *slog.Logger) *EventHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &EventHandler{
		events:   es,
		users:    us,
		notifier: n,
		hub:      hub,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the clock used to resolve event status.
func (h *EventHandler) WithClock(now func() time.Time) *EventHandler {
	h.now = now
	return h
}

type eventRequest struct {
	Title        string                        `json:"title" validate:"required,max=200"`
	Description  string                        `json:"description" validate:"max=5000"`
	StartDate    string                        `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string                        `json:"end_date" validate:"required,datetime=2006-01-02"`
	StartTime    *model.TimeOfDay              `json:"start_time" validate:"required"`
	EndTime      *model.TimeOfDay              `json:"end_time" validate:"required"`
	Location     string                        `json:"location" validate:"max=300"`
	Type         model.EventType               `json:"type" validate:"required,oneof=conference meeting talk workshop"`
	Timezone     string                        `json:"timezone" validate:"omitempty,timezone"`
	Admins       []store.AdminAssignment       `json:"admins"`
	Participants []store.ParticipantAssignment `json:"participants"`
}

// toEvent validates the cross-field rules the tags cannot express.
func (h *EventHandler) toEvent(ctx context.Context, req eventRequest) (model.Event, error) {
	e := model.Event{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StartTime:   *req.StartTime,
		EndTime:     *req.EndTime,
		Location:    strings.TrimSpace(req.Location),
		Type:        req.Type,
		Timezone:    req.Timezone,
	}

	verr := &apperr.ValidationError{}
	if e.Title == "" {
		verr.Add("title", "is required")
	}
	start, end, err := eventstatus.Bounds(e, h.loc)
	if err != nil {
		verr.Add("start_date", err.Error())
	} else if end.Before(start) {
		verr.Add("end_date", "must not be before the start")
	}

	var userIDs []int64
	for i, a := range req.Admins {
		if a.Role == model.AdminRoleCreator || !a.Role.Manages() && a.Role != model.AdminRoleSpeaker {
			verr.Add(fmt.Sprintf("admins[%d].role", i), "must be one of: admin, chair, speaker")
		}
		userIDs = append(userIDs, a.UserID)
	}
	for i, p := range req.Participants {
		if p.Role != "" && !p.Role.Valid() {
			verr.Add(fmt.Sprintf("participants[%d].role", i), "must be one of: attendee, chair, presenter, speaker")
		}
		userIDs = append(userIDs, p.UserID)
	}
	if len(userIDs) > 0 {
		if err := checkUsers(ctx, h.users, userIDs, "users", verr); err != nil {
			return e, err
		}
	}

	if verr.HasErrors() {
		return e, verr
	}
	return e, nil
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	status := eventstatus.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, r, h.logger, apperr.Invalid("status", "must be one of: upcoming, ongoing, completed"))
		return
	}

	var (
		events []model.Event
		err    error
	)
	if queryBool(r, "subscribed") {
		events, err = h.events.ListSubscribed(r.Context(), auth.UserID(r.Context()))
	} else {
		events, err = h.events.List(r.Context())
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	annotated := eventstatus.Annotate(events, h.now(), h.loc)
	if status != "" {
		annotated = eventstatus.Filter(annotated, status)
	}
	writeJSON(w, http.StatusOK, annotated)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	event, err := loadEvent(r.Context(), h.events, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, eventstatus.Annotate([]model.Event{*event}, h.now(), h.loc)[0])
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e, err := h.toEvent(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e.CreatorID = auth.UserID(r.Context())

	event, err := h.events.Create(r.Context(), e, store.Roster{Admins: req.Admins, Participants: req.Participants})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("event created", "event_id", event.ID, "creator_id", event.CreatorID)
	h.hub.Broadcast(websocket.NewMessage("event", "created", event.ID, nil))
	writeJSON(w, http.StatusCreated, eventstatus.Annotate([]model.Event{*event}, h.now(), h.loc)[0])
}

type updateResponse struct {
	Event    eventstatus.EventWithStatus `json:"event"`
	Changes  []fanout.Change             `json:"changes"`
	Notified *fanout.Result              `json:"notified,omitempty"`
}

// Update edits the event in place. Subscribers are notified once the edit is
// committed, and only when a date, location or detail actually changed.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req eventRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	before, err := loadEvent(r.Context(), h.events, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e, err := h.toEvent(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	e.ID = id

	after, err := h.events.Update(r.Context(), e, store.Roster{Admins: req.Admins, Participants: req.Participants})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if after == nil {
		writeError(w, r, h.logger, fmt.Errorf("event %d: %w", id, apperr.ErrNotFound))
		return
	}

	changes := fanout.DetectChanges(*before, *after)
	resp := updateResponse{
		Event:   eventstatus.Annotate([]model.Event{*after}, h.now(), h.loc)[0],
		Changes: changes,
	}
	if resp.Changes == nil {
		resp.Changes = []fanout.Change{}
	}
	if len(changes) > 0 {
		res, err := h.notifier.EventChanged(r.Context(), *after, changes, r.Header.Get("Idempotency-Key"))
		if err != nil {
			// Put the fields back so a retry detects the same changes and
			// delivers to whoever the failed fan-out missed.
			if _, rerr := h.events.Update(context.WithoutCancel(r.Context()), *before, store.Roster{}); rerr != nil {
				h.logger.Error("restore event after failed fan-out", "event_id", id, "error", rerr)
			}
			writeError(w, r, h.logger, err)
			return
		}
		resp.Notified = &res
	}

	h.hub.Broadcast(websocket.NewMessage("event", "updated", id, nil))
	writeJSON(w, http.StatusOK, resp)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	deleted, err := h.events.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, r, h.logger, fmt.Errorf("event %d: %w", id, apperr.ErrNotFound))
		return
	}

	h.logger.Info("event deleted", "event_id", id)
	h.hub.Broadcast(websocket.NewMessage("event", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Remind sends a reminder notification to the event's subscribers.
func (h *EventHandler) Remind(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	event, err := loadEvent(r.Context(), h.events, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.notifier.Reminder(r.Context(), *event, r.Header.Get("Idempotency-Key"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
