package model

import (
	"time"

	"github.com/google/uuid"
)

// BroadcastRequest represents an admin request to fan a notification out
// to an audience. EventID is the caller-supplied idempotency token; when
// absent the service generates one, which means a blind retry of the same
// HTTP request creates a second logical event.
type BroadcastRequest struct {
	EventID        *uuid.UUID `json:"event_id"`
	Title          string     `json:"title" binding:"required"`
	Message        string     `json:"message" binding:"required"`
	Kind           string     `json:"type" binding:"required,notificationkind"`
	Priority       string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	TargetAudience string     `json:"target_audience" binding:"required,oneof=all enrolled specific"`
	CourseID       *uuid.UUID `json:"course_id"`
	Payload        Payload    `json:"data"`
	ActionURL      string     `json:"action_url"`
	ActionText     string     `json:"action_text"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// BroadcastResult reports what a broadcast actually did
type BroadcastResult struct {
	EventID          uuid.UUID `json:"event_id"`
	RecipientsCount  int       `json:"recipients_count"`
	NotificationType string    `json:"notification_type"`
	TargetAudience   string    `json:"target_audience"`
	Dropped          int       `json:"dropped,omitempty"`
	Duplicate        bool      `json:"duplicate,omitempty"`
}

// BroadcastEvent is the persisted idempotency marker for one logical broadcast
type BroadcastEvent struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Kind            string     `json:"kind" db:"kind"`
	TargetAudience  string     `json:"target_audience" db:"target_audience"`
	CourseID        *uuid.UUID `json:"course_id,omitempty" db:"course_id"`
	RecipientsCount int        `json:"recipients_count" db:"recipients_count"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
