package domain

import (
	"encoding/json"
	"time"
)

// Activity actions.
const (
	ActionCreated         = "created"
	ActionUpdated         = "updated"
	ActionDeleted         = "deleted"
	ActionStatusChanged   = "status_changed"
	ActionAssigned        = "assigned"
	ActionUnassigned      = "unassigned"
	ActionPriorityChanged = "priority_changed"
	ActionDueDateChanged  = "due_date_changed"
)

// ActivityLog is an append-only audit entry. Entries survive deletion of
// the task they reference.
type ActivityLog struct {
	ID          string          `json:"id"`
	TaskID      string          `json:"taskId"`
	UserID      string          `json:"userId"`
	Action      string          `json:"action"`
	Description string          `json:"description"`
	OldValue    json.RawMessage `json:"oldValue,omitempty"`
	NewValue    json.RawMessage `json:"newValue,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
