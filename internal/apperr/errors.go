// Package apperr defines the error taxonomy shared by the registry, access,
// fan-out and handler layers.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is returned for a missing or invalid bearer token and for
	// an acting user whose capability is below the route minimum.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when an event, user, subscription or
	// notification does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for a duplicate subscription or admin role.
	ErrConflict = errors.New("conflict")
)

// ValidationError carries field level problems with request input.
type ValidationError struct {
	Fields map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem for field.
func (v *ValidationError) Add(field, message string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	v.Fields[field] = message
}

// HasErrors reports whether any field problem was recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.Fields) > 0
}

// Invalid builds a single-field ValidationError.
func Invalid(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// UpstreamError wraps a failure of the identity provider or the datastore.
type UpstreamError struct {
	Service string
	Err     error
}

func (u *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", u.Service, u.Err)
}

func (u *UpstreamError) Unwrap() error { return u.Err }

// Upstream wraps err as an UpstreamError for service.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}

// Kind maps an error to a stable label for logs.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	var uErr *UpstreamError
	if errors.As(err, &uErr) {
		return "upstream"
	}
	return "unexpected"
}
