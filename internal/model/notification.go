package model

import "time"

// Notification kinds, one per fan-out trigger.
const (
	NotifKindEventUpdated  = "event_updated"
	NotifKindEventReminder = "event_reminder"
	NotifKindAnnouncement  = "announcement"
)

type Notification struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	EventID        int64     `json:"event_id"`
	AnnouncementID *int64    `json:"announcement_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}
