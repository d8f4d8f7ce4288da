package model

import "time"

type EventType string

const (
	EventTypeConference EventType = "conference"
	EventTypeMeeting    EventType = "meeting"
	EventTypeTalk       EventType = "talk"
	EventTypeWorkshop   EventType = "workshop"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeConference, EventTypeMeeting, EventTypeTalk, EventTypeWorkshop:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of StartDate and EndDate.
const DateLayout = "2006-01-02"

type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	Location    string    `json:"location"`
	Type        EventType `json:"type"`
	Timezone    string    `json:"timezone"`
	CreatorID   int64     `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
