package domain

import "fmt"

// Changes compares two task snapshots and lists the tracked field
// transitions in human-readable form. Tracked fields are title, status,
// priority and assignment; untracked fields never contribute entries.
func Changes(before, after Task) []string {
	var changes []string
	if before.Title != after.Title {
		changes = append(changes, fmt.Sprintf("title changed from %q to %q", before.Title, after.Title))
	}
	if before.Status != after.Status {
		changes = append(changes, fmt.Sprintf("status changed from %q to %q", before.Status, after.Status))
	}
	if before.Priority != after.Priority {
		changes = append(changes, fmt.Sprintf("priority changed from %q to %q", before.Priority, after.Priority))
	}
	if before.AssignedTo != after.AssignedTo {
		changes = append(changes, "assignment changed")
	}
	return changes
}
