package domain

// TaskView is the read-side projection of a Task with user references
// resolved to display summaries. The embedded Task's bare reference fields
// are shadowed by the resolved ones.
type TaskView struct {
	Task
	AssignedTo *UserSummary `json:"assignedTo,omitempty"`
	CreatedBy  UserSummary  `json:"createdBy"`
}

// ActivityView is an activity entry with the acting user resolved.
type ActivityView struct {
	ActivityLog
	User UserSummary `json:"user"`
}
