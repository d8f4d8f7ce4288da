package fanout

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/eventboard/internal/model"
)

// Change is a category of event edit that subscribers are told about.
type Change string

const (
	ChangeDate     Change = "date"
	ChangeLocation Change = "location"
	ChangeDetails  Change = "details"
)

// DetectChanges compares two versions of an event. Dates, times and the
// timezone count as a date change; title, description and type as details.
func DetectChanges(before, after model.Event) []Change {
	var changes []Change
	if before.StartDate != after.StartDate || before.EndDate != after.EndDate ||
		before.StartTime != after.StartTime || before.EndTime != after.EndTime ||
		before.Timezone != after.Timezone {
		changes = append(changes, ChangeDate)
	}
	if before.Location != after.Location {
		changes = append(changes, ChangeLocation)
	}
	if before.Title != after.Title || before.Description != after.Description || before.Type != after.Type {
		changes = append(changes, ChangeDetails)
	}
	return changes
}

// ChangeMessage renders the subscriber-facing text for a set of changes.
func ChangeMessage(event model.Event, changes []Change) string {
	parts := make([]string, 0, len(changes))
	for _, c := range changes {
		switch c {
		case ChangeDate:
			parts = append(parts, fmt.Sprintf("%q has been rescheduled to %s.", event.Title, when(event)))
		case ChangeLocation:
			parts = append(parts, fmt.Sprintf("%q has moved to %s.", event.Title, orTBA(event.Location)))
		case ChangeDetails:
			parts = append(parts, fmt.Sprintf("The details of %q have been updated.", event.Title))
		}
	}
	return strings.Join(parts, " ")
}

// ReminderMessage renders the fixed reminder text.
func ReminderMessage(event model.Event) string {
	return fmt.Sprintf("Reminder: %q starts %s at %s.", event.Title, when(event), orTBA(event.Location))
}

func when(e model.Event) string {
	start := displayDate(e.StartDate) + " " + e.StartTime.Formatted()
	if e.EndDate == e.StartDate {
		return start + " - " + e.EndTime.Formatted()
	}
	return start + " - " + displayDate(e.EndDate) + " " + e.EndTime.Formatted()
}

func displayDate(s string) string {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return s
	}
	return d.Format("Mon Jan 2, 2006")
}

func orTBA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "a location to be announced"
	}
	return s
}
