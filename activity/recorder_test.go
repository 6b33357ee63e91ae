package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"boardsync/domain"
)

type fakeStore struct {
	entries []domain.ActivityLog
	err     error
}

func (f *fakeStore) InsertActivity(ctx context.Context, e domain.ActivityLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

type fakeUsers struct {
	users map[string]domain.User
}

func (f *fakeUsers) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func newRecorder(fs *fakeStore, users map[string]domain.User) *Recorder {
	return NewRecorder(fs, &fakeUsers{users: users})
}

func TestCreatedEntry(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	r.Created(context.Background(), "u1", domain.Task{ID: "t1", Title: "Draft release notes"})
	if len(fs.entries) != 1 {
		t.Fatalf("entries = %d", len(fs.entries))
	}
	e := fs.entries[0]
	if e.Action != domain.ActionCreated || e.TaskID != "t1" || e.UserID != "u1" {
		t.Fatalf("unexpected entry: %#v", e)
	}
	if e.Description != `Task "Draft release notes" was created` {
		t.Fatalf("description = %q", e.Description)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("identity or timestamp missing: %#v", e)
	}
}

func TestUpdatedSkipsEmptyDiff(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	change := domain.TaskChange{After: domain.Task{ID: "t1", Title: "x"}}
	r.Updated(context.Background(), "u1", change, nil)
	if len(fs.entries) != 0 {
		t.Fatalf("empty diff wrote an entry: %#v", fs.entries)
	}
}

func TestUpdatedJoinsDiffs(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	change := domain.TaskChange{
		Before: domain.Task{ID: "t1", Title: "x", Status: domain.StatusTodo},
		After:  domain.Task{ID: "t1", Title: "x", Status: domain.StatusInProgress},
	}
	diffs := []string{`status changed from "todo" to "in-progress"`, `priority changed from "low" to "high"`}
	r.Updated(context.Background(), "u1", change, diffs)
	if len(fs.entries) != 1 {
		t.Fatalf("entries = %d", len(fs.entries))
	}
	e := fs.entries[0]
	want := `Task "x" was updated: status changed from "todo" to "in-progress", priority changed from "low" to "high"`
	if e.Description != want {
		t.Fatalf("description = %q", e.Description)
	}
	if e.OldValue == nil || e.NewValue == nil {
		t.Fatal("snapshots missing")
	}
	var before domain.Task
	if err := json.Unmarshal(e.OldValue, &before); err != nil || before.Status != domain.StatusTodo {
		t.Fatalf("old snapshot: %v %#v", err, before)
	}
}

func TestStatusChangedEntry(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	change := domain.TaskChange{
		Before: domain.Task{ID: "t1", Title: "x", Status: domain.StatusTodo},
		After:  domain.Task{ID: "t1", Title: "x", Status: domain.StatusDone, Position: 4},
	}
	r.StatusChanged(context.Background(), "u1", change)
	e := fs.entries[0]
	if e.Action != domain.ActionStatusChanged {
		t.Fatalf("action = %q", e.Action)
	}
	if e.Description != `Task "x" status changed to "done"` {
		t.Fatalf("description = %q", e.Description)
	}
	var newVal struct {
		Status   string `json:"status"`
		Position int    `json:"position"`
	}
	if err := json.Unmarshal(e.NewValue, &newVal); err != nil || newVal.Status != domain.StatusDone || newVal.Position != 4 {
		t.Fatalf("new snapshot: %v %#v", err, newVal)
	}
}

func TestAssignedResolvesUserName(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, map[string]domain.User{"u2": {ID: "u2", Name: "Jane Smith"}})
	change := domain.TaskChange{After: domain.Task{ID: "t1", Title: "x", AssignedTo: "u2"}}
	r.Assigned(context.Background(), "u1", change)
	e := fs.entries[0]
	if e.Action != domain.ActionAssigned {
		t.Fatalf("action = %q", e.Action)
	}
	if e.Description != `Task "x" was assigned to Jane Smith` {
		t.Fatalf("description = %q", e.Description)
	}
}

func TestAssignedUnknownUserFallback(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	change := domain.TaskChange{After: domain.Task{ID: "t1", Title: "x", AssignedTo: "ghost"}}
	r.Assigned(context.Background(), "u1", change)
	if got := fs.entries[0].Description; got != `Task "x" was assigned to Unknown User` {
		t.Fatalf("description = %q", got)
	}
}

func TestUnassignedEntry(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	change := domain.TaskChange{
		Before: domain.Task{ID: "t1", Title: "x", AssignedTo: "u2"},
		After:  domain.Task{ID: "t1", Title: "x"},
	}
	r.Assigned(context.Background(), "u1", change)
	e := fs.entries[0]
	if e.Action != domain.ActionUnassigned {
		t.Fatalf("action = %q", e.Action)
	}
	if e.Description != `Task "x" was unassigned` {
		t.Fatalf("description = %q", e.Description)
	}
}

func TestDeletedEntryKeepsTitle(t *testing.T) {
	fs := &fakeStore{}
	r := newRecorder(fs, nil)
	r.Deleted(context.Background(), "u1", domain.Task{ID: "t1", Title: "doomed"})
	if got := fs.entries[0].Description; got != `Task "doomed" was deleted` {
		t.Fatalf("description = %q", got)
	}
}

func TestInsertFailureIsSwallowed(t *testing.T) {
	fs := &fakeStore{err: errors.New("storage down")}
	r := newRecorder(fs, nil)
	// must not panic or propagate
	r.Created(context.Background(), "u1", domain.Task{ID: "t1", Title: "x"})
	if len(fs.entries) != 0 {
		t.Fatalf("unexpected entries: %#v", fs.entries)
	}
}
