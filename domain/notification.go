package domain

import (
	"fmt"
	"time"
)

// Notification categories group notifications by the entity they relate to.
const (
	CategoryTask    = "task"
	CategoryProject = "project"
	CategoryComment = "comment"
)

// Notification kinds identify the event that produced the notification.
const (
	KindDueSoon      = "due_soon"
	KindActivated    = "activated"
	KindDailySummary = "daily_summary"
	KindCreated      = "created"
	KindUpdated      = "updated"
	KindComment      = "comment"
	KindProject      = "project"
)

// Notification is the durable record of an event addressed to a user. It is
// immutable once created except for the IsRead flag, which only the owning
// user (or an admin) may flip.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Kind      string    `json:"kind"`
	RelatedID string    `json:"related_id,omitempty"`
	DedupKey  string    `json:"dedup_key,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// DedupKeyFor builds the composite identifier that enforces at-most-one
// notification per logical event. Only time-triggered kinds carry one;
// user-driven events (comments, edits) may legitimately repeat.
func DedupKeyFor(kind, taskID string) string {
	return fmt.Sprintf("%s:%s", kind, taskID)
}
