package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/store"
	"github.com/dukerupert/eventboard/internal/token"
)

func setupAuthMiddlewareDB(t *testing.T) (*token.Issuer, *store.UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return token.NewIssuer("test-secret", time.Hour), store.NewUserStore(db)
}

func rejectingHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not reach handler")
	})
}

func TestRequireAuthNoToken(t *testing.T) {
	tokens, users := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(rejectingHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequireAuthInvalidToken(t *testing.T) {
	tokens, users := setupAuthMiddlewareDB(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(rejectingHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthUnknownUser(t *testing.T) {
	tokens, users := setupAuthMiddlewareDB(t)
	raw, _, err := tokens.Issue(999)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	RequireAuth(tokens, users)(rejectingHandler(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthValidToken(t *testing.T) {
	tokens, users := setupAuthMiddlewareDB(t)
	u, err := users.UpsertFromProfile(context.Background(), "s1", "ada@example.edu", "Ada", "", true)
	require.NoError(t, err)
	raw, _, err := tokens.Issue(u.ID)
	require.NoError(t, err)

	var got auth.AuthContext
	handler := RequireAuth(tokens, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for name, req := range map[string]*http.Request{
		"header": func() *http.Request {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("Authorization", "Bearer "+raw)
			return r
		}(),
		"query": httptest.NewRequest("GET", "/ws?access_token="+raw, nil),
	} {
		t.Run(name, func(t *testing.T) {
			got = auth.AuthContext{}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, u.ID, got.UserID)
			assert.True(t, got.IsAdmin)
		})
	}
}
