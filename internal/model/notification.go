package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification kinds. The set is closed: broadcast requests carrying any
// other value are rejected before anything is written.
const (
	KindCourseEnrollment   = "course_enrollment"
	KindCourseCompletion   = "course_completion"
	KindNewCourseAvailable = "new_course_available"
	KindPaymentSuccess     = "payment_success"
	KindPaymentFailed      = "payment_failed"
	KindSystemAnnouncement = "system_announcement"
)

// Notification priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Target audiences for a broadcast
const (
	AudienceAll      = "all"
	AudienceEnrolled = "enrolled"
	AudienceSpecific = "specific"
)

var validKinds = map[string]bool{
	KindCourseEnrollment:   true,
	KindCourseCompletion:   true,
	KindNewCourseAvailable: true,
	KindPaymentSuccess:     true,
	KindPaymentFailed:      true,
	KindSystemAnnouncement: true,
}

var validPriorities = map[string]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// IsValidKind reports whether kind belongs to the closed enumeration.
func IsValidKind(kind string) bool { return validKinds[kind] }

// IsValidPriority reports whether priority belongs to the closed enumeration.
func IsValidPriority(priority string) bool { return validPriorities[priority] }

// DefaultPriority returns the priority a kind carries when the caller
// does not set one explicitly.
func DefaultPriority(kind string) string {
	switch kind {
	case KindPaymentFailed, KindSystemAnnouncement:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Payload is the open map of auxiliary fields attached to a notification.
// It is stored as JSONB and returned verbatim; the service never
// interprets its keys.
type Payload map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB retrieval
func (p *Payload) Scan(src interface{}) error {
	if src == nil {
		*p = Payload{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported payload source type")
	}
	return json.Unmarshal(data, p)
}

// Notification represents a per-recipient notification record
type Notification struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	RecipientID uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	EventID     *uuid.UUID `json:"event_id,omitempty" db:"event_id"`
	Kind        string     `json:"type" db:"kind"`
	Title       string     `json:"title" db:"title"`
	Message     string     `json:"message" db:"message"`
	Payload     Payload    `json:"data" db:"payload"`
	IsRead      bool       `json:"is_read" db:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty" db:"read_at"`
	Priority    string     `json:"priority" db:"priority"`
	ActionURL   string     `json:"action_url,omitempty" db:"action_url"`
	ActionText  string     `json:"action_text,omitempty" db:"action_text"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// View returns the shape delivered over the live channel. Identical to the
// list-item JSON so the widget can splice pushed events into a fetched list.
func (n *Notification) View() NotificationView {
	return NotificationView{
		ID:         n.ID,
		Kind:       n.Kind,
		Title:      n.Title,
		Message:    n.Message,
		Payload:    n.Payload,
		Priority:   n.Priority,
		ActionURL:  n.ActionURL,
		ActionText: n.ActionText,
		CreatedAt:  n.CreatedAt,
	}
}

// NotificationView is the live-push representation of a notification
type NotificationView struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Payload    Payload   `json:"data"`
	Priority   string    `json:"priority"`
	ActionURL  string    `json:"action_url,omitempty"`
	ActionText string    `json:"action_text,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// NotificationFilter narrows list queries. Nil fields match everything.
type NotificationFilter struct {
	IsRead *bool
	Kind   string
}

// NotificationListResponse represents a paginated list of notifications with metadata
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	Unread        int            `json:"unread"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
}

// NotificationCountResponse represents the count of unread notifications
type NotificationCountResponse struct {
	UnreadCount int `json:"unread_count"`
}

// NotificationMarkResponse represents the response after marking notifications as read
type NotificationMarkResponse struct {
	Success     bool `json:"success"`
	MarkedCount int  `json:"marked_count"`
}
