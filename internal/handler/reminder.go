package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/fanout"
	"github.com/dukerupert/eventboard/internal/store"
)

// ReminderKeyHeader carries the shared secret of the scheduler that triggers
// reminders without a user token.
const ReminderKeyHeader = "X-Reminder-Key"

// ReminderHandler lets an external scheduler send event reminders. It is
// disabled unless a bcrypt hash of the shared key is configured.
type ReminderHandler struct {
	events   *store.EventStore
	notifier *fanout.Notifier
	keyHash  []byte
	logger   *slog.Logger
}

func NewReminderHandler(es *store.EventStore, n *fanout.Notifier, keyHash string, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{events: es, notifier: n, keyHash: []byte(keyHash), logger: logger}
}

func (h *ReminderHandler) Remind(w http.ResponseWriter, r *http.Request) {
	if len(h.keyHash) == 0 {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	key := r.Header.Get(ReminderKeyHeader)
	if key == "" || bcrypt.CompareHashAndPassword(h.keyHash, []byte(key)) != nil {
		writeError(w, r, h.logger, apperr.ErrUnauthorized)
		return
	}

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

// HashReminderKey produces the value stored in auth.reminder_key_hash.
func HashReminderKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
