package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
)

type AdminHandler struct {
	events *store.EventStore
	admins *store.AdminStore
	users  *store.UserStore
	logger *slog.Logger
}

func NewAdminHandler(es *store.EventStore, as *store.AdminStore, us *store.UserStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{events: es, admins: as, users: us, logger: logger}
}

type adminRequest struct {
	UserID int64           `json:"user_id" validate:"required,gt=0"`
	Role   model.AdminRole `json:"role" validate:"required,oneof=admin chair speaker"`
}

// List returns the event's staff. The creator is left out unless
// ?include_creator=true.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireEvent(r.Context(), h.events, eventID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	admins, err := h.admins.ListByEvent(r.Context(), eventID, queryBool(r, "include_creator"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if admins == nil {
		admins = []model.EventAdmin{}
	}
	writeJSON(w, http.StatusOK, admins)
}

func (h *AdminHandler) Add(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req adminRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireEvent(r.Context(), h.events, eventID); err != nil {
		writeError(w, r, h.logger, err)
		return
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

	admin, err := h.admins.Add(r.Context(), eventID, req.UserID, req.Role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("event admin added", "event_id", eventID, "user_id", req.UserID, "role", req.Role)
	writeJSON(w, http.StatusCreated, admin)
}

// Remove takes a user off the staff roster. The creator cannot be removed.
func (h *AdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
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

	current, err := h.admins.Get(r.Context(), eventID, userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if current == nil {
		writeError(w, r, h.logger, fmt.Errorf("admin %d on event %d: %w", userID, eventID, apperr.ErrNotFound))
		return
	}
	if current.Role == model.AdminRoleCreator {
		writeError(w, r, h.logger, apperr.Invalid("user_id", "the event creator cannot be removed"))
		return
	}

	if _, err := h.admins.Remove(r.Context(), eventID, userID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("event admin removed", "event_id", eventID, "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}
