package entity

import "time"

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Notification is an outbox row for the external delivery collaborator.
// Exactly one of RecipientUserID or RecipientRole is set.
type Notification struct {
	ID              int64      `json:"id"`
	RequestID       int64      `json:"request_id"`
	EventID         string     `json:"event_id"`
	EventType       string     `json:"event_type"`
	RecipientUserID string     `json:"recipient_user_id,omitempty"`
	RecipientRole   Role       `json:"recipient_role,omitempty"`
	Message         string     `json:"message"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
