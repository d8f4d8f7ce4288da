package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/identity"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
	"github.com/dukerupert/eventboard/internal/token"
)

const stateCookieName = "eventboard_oauth_state"

type AuthHandler struct {
	provider     identity.Provider
	users        *store.UserStore
	tokens       *token.Issuer
	isAdminEmail func(string) bool
	logger       *slog.Logger
}

func NewAuthHandler(p identity.Provider, us *store.UserStore, tokens *token.Issuer, isAdminEmail func(string) bool, logger *slog.Logger) *AuthHandler {
	if isAdminEmail == nil {
		isAdminEmail = func(string) bool { return false }
	}
	return &AuthHandler{provider: p, users: us, tokens: tokens, isAdminEmail: isAdminEmail, logger: logger}
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Login starts the authorization code flow. Clients that cannot follow a
// redirect pass ?redirect=false and receive the URL as JSON.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   10 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	url := h.provider.AuthCodeURL(state)
	if v, err := strconv.ParseBool(r.URL.Query().Get("redirect")); err == nil && !v {
		writeJSON(w, http.StatusOK, map[string]string{"url": url, "state": state})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback finishes sign-in: the profile is upserted by subject and a bearer
// token is issued. Emails listed as administrators are promoted.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeError(w, r, h.logger, apperr.Invalid("error", e))
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" {
		writeError(w, r, h.logger, apperr.Invalid("code", "is required"))
		return
	}
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		writeError(w, r, h.logger, apperr.Invalid("state", "does not match the login request"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true})

	prof, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpsertFromProfile(r.Context(), prof.Subject, prof.Email, prof.Name, prof.PictureURL, h.isAdminEmail(prof.Email))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	signed, expires, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("signed in", "user_id", user.ID, "admin", user.IsAdmin)
	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, ExpiresAt: expires, User: user})
}

// Refresh issues a fresh token for the caller.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if user == nil {
		writeError(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}
	signed, expires, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, ExpiresAt: expires, User: user})
}
