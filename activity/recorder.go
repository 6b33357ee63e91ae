// Package activity derives human-readable audit entries from task
// mutations and appends them to the activity log.
package activity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"boardsync/domain"
)

// Store appends activity entries.
type Store interface {
	InsertActivity(ctx context.Context, entry domain.ActivityLog) error
}

// UserFinder resolves actor and assignee references for descriptions.
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

// Recorder writes one activity entry per observable mutation. Writes are
// best-effort: the task mutation has already been committed when a record
// call runs, so failures are logged and swallowed, never surfaced.
type Recorder struct {
	store Store
	users UserFinder
}

func NewRecorder(store Store, users UserFinder) *Recorder {
	return &Recorder{store: store, users: users}
}

// unknownUser is the display fallback for unresolvable references.
const unknownUser = "Unknown User"

func (r *Recorder) Created(ctx context.Context, actorID string, t domain.Task) {
	r.insert(ctx, entry(t.ID, actorID, domain.ActionCreated,
		`Task "`+t.Title+`" was created`, nil, nil))
}

// Updated records a generic update. An empty diff list means no tracked
// field changed and no entry is written.
func (r *Recorder) Updated(ctx context.Context, actorID string, change domain.TaskChange, diffs []string) {
	if len(diffs) == 0 {
		return
	}
	desc := `Task "` + change.After.Title + `" was updated: ` + joinDiffs(diffs)
	r.insert(ctx, entry(change.After.ID, actorID, domain.ActionUpdated, desc,
		marshal(change.Before), marshal(change.After)))
}

func (r *Recorder) StatusChanged(ctx context.Context, actorID string, change domain.TaskChange) {
	desc := `Task "` + change.After.Title + `" status changed to "` + change.After.Status + `"`
	oldVal := marshal(map[string]any{"status": change.Before.Status})
	newVal := marshal(map[string]any{"status": change.After.Status, "position": change.After.Position})
	r.insert(ctx, entry(change.After.ID, actorID, domain.ActionStatusChanged, desc, oldVal, newVal))
}

// Assigned records an assignment change, resolving the assignee's name
// when possible. An unresolvable assignee does not block the entry.
func (r *Recorder) Assigned(ctx context.Context, actorID string, change domain.TaskChange) {
	action := domain.ActionUnassigned
	desc := `Task "` + change.After.Title + `" was unassigned`
	if change.After.AssignedTo != "" {
		action = domain.ActionAssigned
		name := unknownUser
		if u, err := r.users.FindUserByID(ctx, change.After.AssignedTo); err == nil {
			name = u.Name
		}
		desc = `Task "` + change.After.Title + `" was assigned to ` + name
	}
	newVal := marshal(map[string]any{"assignedTo": change.After.AssignedTo})
	r.insert(ctx, entry(change.After.ID, actorID, action, desc, nil, newVal))
}

// Deleted must run before the task is physically removed so the entry
// captures the pre-delete title.
func (r *Recorder) Deleted(ctx context.Context, actorID string, t domain.Task) {
	r.insert(ctx, entry(t.ID, actorID, domain.ActionDeleted,
		`Task "`+t.Title+`" was deleted`, nil, nil))
}

func (r *Recorder) insert(ctx context.Context, e domain.ActivityLog) {
	if err := r.store.InsertActivity(ctx, e); err != nil {
		log.WithFields(log.Fields{"task": e.TaskID, "action": e.Action}).
			WithError(err).Error("activity write failed")
	}
}

func entry(taskID, actorID, action, desc string, oldVal, newVal json.RawMessage) domain.ActivityLog {
	return domain.ActivityLog{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		UserID:      actorID,
		Action:      action,
		Description: desc,
		OldValue:    oldVal,
		NewValue:    newVal,
		CreatedAt:   time.Now().UTC(),
	}
}

func marshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func joinDiffs(diffs []string) string {
	out := diffs[0]
	for _, d := range diffs[1:] {
		out += ", " + d
	}
	return out
}
