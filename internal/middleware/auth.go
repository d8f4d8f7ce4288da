package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/store"
	"github.com/dukerupert/eventboard/internal/token"
)

// RequireAuth validates the bearer token and populates AuthContext from the
// users table, so a revoked admin flag takes effect on the next request.
// Browsers opening a websocket cannot set headers, so an access_token query
// parameter is accepted as well.
func RequireAuth(tokens *token.Issuer, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			userID, err := tokens.Parse(raw)
			if err != nil {
				if token.Expired(err) {
					unauthorized(w, "token expired")
					return
				}
				unauthorized(w, "invalid token")
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil || user == nil {
				unauthorized(w, "unknown user")
				return
			}

			ac := auth.AuthContext{
				UserID:  user.ID,
				Email:   user.Email,
				IsAdmin: user.IsAdmin,
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="eventboard"`)
	writeError(w, http.StatusUnauthorized, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
