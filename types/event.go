package types

import "time"

// AccountEventType names a change to a user account.
type AccountEventType string

const (
	EventUserRegistered AccountEventType = "user.registered"
	EventUserUpdated    AccountEventType = "user.updated"
	EventUserDeleted    AccountEventType = "user.deleted"
)

// AccountEvent is published after a successful write to a user account.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     string           `json:"userId"`
	Email      string           `json:"email"`
	OccurredAt time.Time        `json:"occurredAt"`
}
