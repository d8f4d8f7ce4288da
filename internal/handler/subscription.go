package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/text/language"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/registry"
	"github.com/dukerupert/eventboard/internal/store"
)

// SubscriptionHandler serves both the caller's own subscription and the
// participant roster managed by event admins.
type SubscriptionHandler struct {
	registry *registry.Registry
	users    *store.UserStore
	logger   *slog.Logger
}

func NewSubscriptionHandler(reg *registry.Registry, us *store.UserStore, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{registry: reg, users: us, logger: logger}
}

type subscribeRequest struct {
	Role model.SubscriptionRole `json:"role" validate:"omitempty,oneof=attendee chair presenter speaker"`
}

type statusRequest struct {
	Status model.SubscriptionStatus `json:"status" validate:"required,oneof=enabled disabled"`
}

type participantRequest struct {
	UserID int64                  `json:"user_id" validate:"required,gt=0"`
	Role   model.SubscriptionRole `json:"role" validate:"omitempty,oneof=attendee chair presenter speaker"`
}

// Subscribe subscribes the caller. The body is optional.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req subscribeRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	sub, err := h.registry.Subscribe(r.Context(), eventID, auth.UserID(r.Context()), req.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.registry.Unsubscribe(r.Context(), eventID, auth.UserID(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Mine returns the caller's subscription to the event.
func (h *SubscriptionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sub, err := h.registry.Get(r.Context(), eventID, auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// SetMyStatus enables or disables the caller's own subscription.
func (h *SubscriptionHandler) SetMyStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setStatus(w, r, eventID, auth.UserID(r.Context()))
}

func (h *SubscriptionHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	subs, err := h.registry.ListSubscribers(r.Context(), eventID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if r.URL.Query().Get("sort") == "name" {
		registry.SortByName(subs, preferredLanguage(r))
	}
	writeJSON(w, http.StatusOK, subs)
}

// AddParticipant subscribes a user on their behalf, or changes the role of
// an existing subscription.
func (h *SubscriptionHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req participantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Role == "" {
		req.Role = model.SubscriptionRoleAttendee
	}

	verr := &apperr.ValidationError{}
	if err := checkUsers(r.Context(), h.users, []int64{req.UserID}, "user_id", verr); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if verr.HasErrors() {
		writeError(w, r, h.logger, verr)
		return
	}

	sub, err := h.registry.SetRole(r.Context(), eventID, req.UserID, req.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubscriptionHandler) SetParticipantStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.setStatus(w, r, eventID, userID)
}

func (h *SubscriptionHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	userID, err := parsePathID(r, "userID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.registry.Unsubscribe(r.Context(), eventID, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) setStatus(w http.ResponseWriter, r *http.Request, eventID, userID int64) {
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.registry.SetStatus(r.Context(), eventID, userID, req.Status); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	sub, err := h.registry.Get(r.Context(), eventID, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// preferredLanguage picks the first Accept-Language tag, defaulting to
// English.
func preferredLanguage(r *http.Request) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.English
	}
	return tags[0]
}
