package domain

import "time"

// Task statuses. Every task starts in StatusTodo.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// ValidPriority reports whether p is a known task priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task represents a single board item. AssignedTo and CreatedBy carry bare
// user IDs; resolution to display summaries happens on the read side.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        []string   `json:"tags"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskFields carries a partial task update. A nil pointer leaves the field
// untouched. AssignedTo pointing at an empty string clears the assignment;
// DueDate pointing at the zero time clears the due date.
type TaskFields struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"`
	Position    *int       `json:"position,omitempty"`
}

// Empty reports whether the field set touches nothing.
func (f TaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil &&
		f.Priority == nil && f.AssignedTo == nil && f.DueDate == nil &&
		f.Tags == nil && f.Position == nil
}

// Merge applies the present fields of f onto a copy of t and returns it.
// Absent fields keep their current value, so two concurrent updates with
// non-overlapping fields both survive when the store applies Merge under
// its atomic update primitive.
func Merge(t Task, f TaskFields) Task {
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
	if f.Priority != nil {
		t.Priority = *f.Priority
	}
	if f.AssignedTo != nil {
		t.AssignedTo = *f.AssignedTo
	}
	if f.DueDate != nil {
		if f.DueDate.IsZero() {
			t.DueDate = nil
		} else {
			due := *f.DueDate
			t.DueDate = &due
		}
	}
	if f.Tags != nil {
		t.Tags = append([]string(nil), (*f.Tags)...)
	}
	if f.Position != nil {
		t.Position = *f.Position
	}
	return t
}

// TaskChange holds the snapshots taken around an atomic store update.
type TaskChange struct {
	Before Task
	After  Task
}
