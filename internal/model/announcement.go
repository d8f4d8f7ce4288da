package model

import "time"

type RecipientType string

const (
	RecipientsAll      RecipientType = "all"
	RecipientsSelected RecipientType = "selected"
)

type Announcement struct {
	ID            int64         `json:"id"`
	EventID       int64         `json:"event_id"`
	AuthorID      int64         `json:"author_id"`
	AuthorName    string        `json:"author_name"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	RecipientType RecipientType `json:"recipient_type"`
	CreatedAt     time.Time     `json:"created_at"`
}

func (t RecipientType) Valid() bool {
	return t == RecipientsAll || t == RecipientsSelected
}
