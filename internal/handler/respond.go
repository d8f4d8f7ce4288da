package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/middleware"
	"github.com/dukerupert/eventboard/internal/model"
	"github.com/dukerupert/eventboard/internal/store"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError maps err onto a status code. Unexpected and upstream failures
// are logged with the request id and reported without internals.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var (
		vErr *apperr.ValidationError
		uErr *apperr.UpstreamError
	)
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", `Bearer realm="eventboard"`)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "already exists"})
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: vErr.Fields})
	case errors.As(err, &uErr):
		logger.Error("upstream failure",
			"service", uErr.Service,
			"request_id", middleware.RequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: uErr.Service + " unavailable"})
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", apperr.Kind(err),
			"request_id", middleware.RequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func parseIDParam(r *http.Request) (int64, error) {
	return parsePathID(r, "id")
}

func parsePathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("body", "invalid JSON: "+err.Error())
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &apperr.ValidationError{}
	for _, fe := range fieldErrs {
		out.Add(fieldPath(fe), describe(fe))
	}
	return out
}

// fieldPath drops the top-level struct name from the namespace so nested
// fields read as "admins[0].role".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "datetime":
		return "must be a date in YYYY-MM-DD form"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "timezone":
		return "must be an IANA timezone name"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "is invalid"
}

// checkUsers records a problem under field when any of ids is not a user.
func checkUsers(ctx context.Context, users *store.UserStore, ids []int64, field string, verr *apperr.ValidationError) error {
	missing, err := users.MissingIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	parts := make([]string, len(missing))
	for i, id := range missing {
		parts[i] = strconv.FormatInt(id, 10)
	}
	verr.Add(field, "unknown user ids: "+strings.Join(parts, ", "))
	return nil
}

func loadEvent(ctx context.Context, events *store.EventStore, id int64) (*model.Event, error) {
	event, err := events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", id, apperr.ErrNotFound)
	}
	return event, nil
}

func requireEvent(ctx context.Context, events *store.EventStore, id int64) error {
	_, err := loadEvent(ctx, events, id)
	return err
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
