package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/fanout"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
)

type AnnouncementHandler struct {
	events        *store.EventStore
	announcements *store.AnnouncementStore
	users         *store.UserStore
	notifier      *fanout.Notifier
	logger        *slog.Logger
}

func NewAnnouncementHandler(es *store.EventStore, as *store.AnnouncementStore, us *store.UserStore, n *fanout.Notifier, logger *slog.Logger) *AnnouncementHandler {
	return &AnnouncementHandler{events: es, announcements: as, users: us, notifier: n, logger: logger}
}

type announcementRequest struct {
	Title         string              `json:"title" validate:"required,max=200"`
	Message       string              `json:"message" validate:"required,max=5000"`
	RecipientType model.RecipientType `json:"recipient_type" validate:"required,oneof=all selected"`
	RecipientIDs  []int64             `json:"recipient_ids" validate:"required_if=RecipientType selected,dive,gt=0"`
}

type announcementResponse struct {
	Announcement *model.Announcement `json:"announcement"`
	Delivery     fanout.Result       `json:"delivery"`
}

func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireEvent(r.Context(), h.events, eventID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	list, err := h.announcements.ListByEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []model.Announcement{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Create stores the announcement and delivers it. If delivery fails the
// announcement is withdrawn so the client can retry the whole request.
func (h *AnnouncementHandler) Create(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req announcementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := requireEvent(r.Context(), h.events, eventID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	verr := &apperr.ValidationError{}
	if strings.TrimSpace(req.Title) == "" {
		verr.Add("title", "is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		verr.Add("message", "is required")
	}
	if req.RecipientType == model.RecipientsSelected {
		if err := checkUsers(r.Context(), h.users, req.RecipientIDs, "recipient_ids", verr); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}
	if verr.HasErrors() {
		writeError(w, r, h.logger, verr)
		return
	}

	a, err := h.announcements.Create(r.Context(), model.Announcement{
		EventID:       eventID,
		AuthorID:      auth.UserID(r.Context()),
		Title:         strings.TrimSpace(req.Title),
		Message:       strings.TrimSpace(req.Message),
		RecipientType: req.RecipientType,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.notifier.Announce(r.Context(), *a, req.RecipientIDs, r.Header.Get("Idempotency-Key"))
	if err != nil {
		if _, derr := h.announcements.Delete(context.WithoutCancel(r.Context()), eventID, a.ID); derr != nil {
			h.logger.Error("withdraw announcement", "announcement_id", a.ID, "error", derr)
		}
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Info("announcement sent", "event_id", eventID, "announcement_id", a.ID,
		"recipient_type", a.RecipientType, "delivered", res.Delivered)
	writeJSON(w, http.StatusCreated, announcementResponse{Announcement: a, Delivery: res})
}

func (h *AnnouncementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	id, err := parsePathID(r, "announcementID")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	deleted, err := h.announcements.Delete(r.Context(), eventID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !deleted {
		writeError(w, r, h.logger, fmt.Errorf("announcement %d: %w", id, apperr.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
