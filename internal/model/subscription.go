package model

import "time"

type SubscriptionRole string

const (
	SubscriptionRoleAttendee  SubscriptionRole = "attendee"
	SubscriptionRoleChair     SubscriptionRole = "chair"
	SubscriptionRolePresenter SubscriptionRole = "presenter"
	SubscriptionRoleSpeaker   SubscriptionRole = "speaker"
)

func (r SubscriptionRole) Valid() bool {
	switch r {
	case SubscriptionRoleAttendee, SubscriptionRoleChair, SubscriptionRolePresenter, SubscriptionRoleSpeaker:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionEnabled  SubscriptionStatus = "enabled"
	SubscriptionDisabled SubscriptionStatus = "disabled"
)

func (s SubscriptionStatus) Valid() bool {
	return s == SubscriptionEnabled || s == SubscriptionDisabled
}

type Subscription struct {
	ID          int64              `json:"id"`
	EventID     int64              `json:"event_id"`
	UserID      int64              `json:"user_id"`
	Role        SubscriptionRole   `json:"role"`
	Status      SubscriptionStatus `json:"status"`
	UserName    string             `json:"user_name"`
	UserEmail   string             `json:"user_email"`
	UserPicture string             `json:"user_picture_url"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}
