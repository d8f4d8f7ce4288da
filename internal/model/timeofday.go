package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date. Clients send it either as
// "HH:MM" or as {"hours": 14, "minutes": 0, "formatted": "2:00 PM"}; both
// decode to the same value. It always encodes as the object form and is
// stored as "HH:MM".
type TimeOfDay struct {
	Hours   int
	Minutes int
}

func NewTimeOfDay(hours, minutes int) (TimeOfDay, error) {
	if hours < 0 || hours > 23 {
		return TimeOfDay{}, fmt.Errorf("hours %d out of range", hours)
	}
	if minutes < 0 || minutes > 59 {
		return TimeOfDay{}, fmt.Errorf("minutes %d out of range", minutes)
	}
	return TimeOfDay{Hours: hours, Minutes: minutes}, nil
}

// ParseTimeOfDay accepts "HH:MM", "H:MM" and 12-hour forms like "2:00 PM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"3:04 PM", "3:04PM"} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return TimeOfDay{Hours: t.Hour(), Minutes: t.Minute()}, nil
		}
	}

	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	// Tolerate a trailing seconds component ("09:00:00").
	if mm, _, found := strings.Cut(m, ":"); found {
		m = mm
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	return NewTimeOfDay(hours, minutes)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hours, t.Minutes)
}

// Formatted renders the 12-hour display form, e.g. "2:00 PM".
func (t TimeOfDay) Formatted() string {
	return time.Date(2000, 1, 1, t.Hours, t.Minutes, 0, 0, time.UTC).Format("3:04 PM")
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Hours)*time.Hour + time.Duration(t.Minutes)*time.Minute
}

type timeOfDayJSON struct {
	Hours     *int   `json:"hours"`
	Minutes   *int   `json:"minutes"`
	Formatted string `json:"formatted"`
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	h, m := t.Hours, t.Minutes
	return json.Marshal(timeOfDayJSON{Hours: &h, Minutes: &m, Formatted: t.Formatted()})
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseTimeOfDay(s)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}

	var obj timeOfDayJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("time of day: %w", err)
	}
	if obj.Hours == nil && obj.Minutes == nil {
		if obj.Formatted == "" {
			return fmt.Errorf("time of day: hours and minutes are required")
		}
		parsed, err := ParseTimeOfDay(obj.Formatted)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}

	var h, m int
	if obj.Hours != nil {
		h = *obj.Hours
	}
	if obj.Minutes != nil {
		m = *obj.Minutes
	}
	parsed, err := NewTimeOfDay(h, m)
	if err != nil {
		return fmt.Errorf("time of day: %w", err)
	}
	*t = parsed
	return nil
}

// Value stores the time as "HH:MM".
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

func (t *TimeOfDay) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*t = TimeOfDay{}
		return nil
	default:
		return fmt.Errorf("scan time of day: unsupported type %T", src)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return fmt.Errorf("scan time of day: %w", err)
	}
	*t = parsed
	return nil
}
