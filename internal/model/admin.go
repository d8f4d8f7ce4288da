package model

import "time"

type AdminRole string

const (
	AdminRoleCreator AdminRole = "creator"
	AdminRoleAdmin   AdminRole = "admin"
	AdminRoleChair   AdminRole = "chair"
	AdminRoleSpeaker AdminRole = "speaker"
)

func (r AdminRole) Valid() bool {
	switch r {
	case AdminRoleCreator, AdminRoleAdmin, AdminRoleChair, AdminRoleSpeaker:
		return true
	}
	return false
}

// Manages reports whether the role grants management rights over the event.
// Speakers are listed with the event staff but cannot mutate it.
func (r AdminRole) Manages() bool {
	return r == AdminRoleCreator || r == AdminRoleAdmin || r == AdminRoleChair
}

type EventAdmin struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Role      AdminRole `json:"role"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	CreatedAt time.Time `json:"created_at"`
}
