package eventstatus

import (
	"fmt"
	"time"

	"github.com/dukerupert/eventboard/internal/model"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	return s == StatusUpcoming || s == StatusOngoing || s == StatusCompleted
}

// EventWithStatus is an event annotated with its status at evaluation time.
type EventWithStatus struct {
	model.Event
	Status Status `json:"status"`
}

// Location returns the zone the event's wall-clock values are read in: the
// event's own IANA timezone when it loads, otherwise fallback.
func Location(event model.Event, fallback *time.Location) *time.Location {
	if event.Timezone != "" {
		if loc, err := time.LoadLocation(event.Timezone); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// Instant combines a YYYY-MM-DD date and a time of day in loc.
func Instant(date string, tod model.TimeOfDay, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hours, tod.Minutes, 0, 0, loc), nil
}

// Bounds returns the start and end instants of the event.
func Bounds(event model.Event, fallback *time.Location) (start, end time.Time, err error) {
	loc := Location(event, fallback)
	start, err = Instant(event.StartDate, event.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = Instant(event.EndDate, event.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Resolve computes the lifecycle status of event at the instant at.
// Both bounds are inclusive: an event is ongoing at its exact start and end.
func Resolve(event model.Event, at time.Time, fallback *time.Location) (Status, error) {
	start, end, err := Bounds(event, fallback)
	if err != nil {
		return "", err
	}
	return Between(start, end, at), nil
}

// Between applies the status rule to precomputed bounds.
func Between(start, end, at time.Time) Status {
	switch {
	case at.After(end):
		return StatusCompleted
	case !at.Before(start):
		return StatusOngoing
	default:
		return StatusUpcoming
	}
}

// Annotate resolves the status of each event. Events whose dates cannot be
// parsed are reported as upcoming rather than dropped from listings.
func Annotate(events []model.Event, at time.Time, fallback *time.Location) []EventWithStatus {
	out := make([]EventWithStatus, 0, len(events))
	for _, e := range events {
		st, err := Resolve(e, at, fallback)
		if err != nil {
			st = StatusUpcoming
		}
		out = append(out, EventWithStatus{Event: e, Status: st})
	}
	return out
}

// Filter keeps only the annotated events with the given status.
func Filter(events []EventWithStatus, status Status) []EventWithStatus {
	out := make([]EventWithStatus, 0, len(events))
	for _, e := range events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}
