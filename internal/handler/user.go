package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, logger: logger}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Search finds users by name or email prefix, for picking admins and
// announcement recipients.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := defaultSearchLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, r, h.logger, apperr.Invalid("limit", "must be a positive integer"))
			return
		}
		limit = min(n, maxSearchLimit)
	}

	users, err := h.users.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type adminFlagRequest struct {
	Admin *bool `json:"admin" validate:"required"`
}

// SetAdmin grants or revokes global administrator rights.
func (h *UserHandler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req adminFlagRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if id == auth.UserID(r.Context()) && !*req.Admin {
		writeError(w, r, h.logger, apperr.Invalid("admin", "administrators cannot revoke their own rights"))
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, r, h.logger, fmt.Errorf("user %d: %w", id, apperr.ErrNotFound))
		return
	}
	if err := h.users.SetAdmin(r.Context(), id, *req.Admin); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	user.IsAdmin = *req.Admin
	h.logger.Info("admin flag changed", "user_id", id, "admin", *req.Admin, "by", auth.UserID(r.Context()))
	writeJSON(w, http.StatusOK, user)
}
