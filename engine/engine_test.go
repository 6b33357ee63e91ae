package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"boardsync/domain"
)

type fakeTaskStore struct {
	tasks   map[string]domain.Task
	deleted []string
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[string]domain.Task{}}
}

func (f *fakeTaskStore) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTaskStore) CountTasks(ctx context.Context) (int, error) {
	return len(f.tasks), nil
}

func (f *fakeTaskStore) InsertTask(ctx context.Context, t domain.Task) error {
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, error) {
	before, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	after := domain.Merge(before, fields)
	after.UpdatedAt = time.Now().UTC()
	f.tasks[id] = after
	return &domain.TaskChange{Before: before, After: after}, nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.tasks, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func strPtr(s string) *string { return &s }

func TestCreateDefaults(t *testing.T) {
	fs := newFakeTaskStore()
	fs.tasks["existing"] = domain.Task{ID: "existing"}
	e := New(fs)

	got, err := e.Create(context.Background(), "u1", domain.TaskFields{Title: strPtr("Draft release notes")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Status != domain.StatusTodo {
		t.Fatalf("status = %q, want todo", got.Status)
	}
	if got.Position != 1 {
		t.Fatalf("position = %d, want count of existing tasks", got.Position)
	}
	if got.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %q, want medium", got.Priority)
	}
	if got.CreatedBy != "u1" {
		t.Fatalf("createdBy = %q", got.CreatedBy)
	}
	if got.ID == "" || got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("identity or timestamps missing: %#v", got)
	}
	if got.Tags == nil {
		t.Fatal("tags should default to an empty slice")
	}
	if _, ok := fs.tasks[got.ID]; !ok {
		t.Fatal("task not persisted")
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	e := New(newFakeTaskStore())
	for _, fields := range []domain.TaskFields{{}, {Title: strPtr("")}} {
		if _, err := e.Create(context.Background(), "u1", fields); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	}
}

func TestCreateForcesStatusTodo(t *testing.T) {
	e := New(newFakeTaskStore())
	got, err := e.Create(context.Background(), "u1", domain.TaskFields{
		Title:  strPtr("x"),
		Status: strPtr(domain.StatusDone),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.Status != domain.StatusTodo {
		t.Fatalf("status = %q, create must force todo", got.Status)
	}
}

func TestUpdateProducesDiffList(t *testing.T) {
	fs := newFakeTaskStore()
	fs.tasks["t1"] = domain.Task{ID: "t1", Title: "x", Status: domain.StatusTodo, Priority: domain.PriorityMedium}
	e := New(fs)

	change, diffs, err := e.Update(context.Background(), "t1", domain.TaskFields{Status: strPtr(domain.StatusInProgress)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if change.After.Status != domain.StatusInProgress {
		t.Fatalf("status not applied: %#v", change.After)
	}
	if len(diffs) != 1 || diffs[0] != `status changed from "todo" to "in-progress"` {
		t.Fatalf("unexpected diffs: %v", diffs)
	}
}

func TestUpdateNoTrackedChangeEmptyDiffRefreshesTimestamp(t *testing.T) {
	fs := newFakeTaskStore()
	stale := time.Now().Add(-time.Hour).UTC()
	fs.tasks["t1"] = domain.Task{ID: "t1", Title: "x", UpdatedAt: stale}
	e := New(fs)

	change, diffs, err := e.Update(context.Background(), "t1", domain.TaskFields{Description: strPtr("more words")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(diffs) != 0 {
		t.Fatalf("untracked change produced diffs: %v", diffs)
	}
	if !change.After.UpdatedAt.After(stale) {
		t.Fatal("updatedAt not refreshed on empty diff")
	}
}

func TestUpdateValidatesEnums(t *testing.T) {
	fs := newFakeTaskStore()
	fs.tasks["t1"] = domain.Task{ID: "t1", Title: "x"}
	e := New(fs)
	cases := []domain.TaskFields{
		{Status: strPtr("archived")},
		{Priority: strPtr("urgent")},
		{Title: strPtr("")},
	}
	for _, fields := range cases {
		if _, _, err := e.Update(context.Background(), "t1", fields); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("fields %#v: expected ErrInvalidInput, got %v", fields, err)
		}
	}
}

func TestUpdateMissingTask(t *testing.T) {
	e := New(newFakeTaskStore())
	if _, _, err := e.Update(context.Background(), "nope", domain.TaskFields{Title: strPtr("x")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestChangeStatusRestrictedFields(t *testing.T) {
	fs := newFakeTaskStore()
	fs.tasks["t1"] = domain.Task{ID: "t1", Title: "x", Status: domain.StatusTodo, Position: 0}
	e := New(fs)

	change, err := e.ChangeStatus(context.Background(), "t1", domain.StatusDone, 42)
	if err != nil {
		t.Fatalf("change status: %v", err)
	}
	if change.After.Status != domain.StatusDone || change.After.Position != 42 {
		t.Fatalf("status/position not applied: %#v", change.After)
	}
	if change.After.Title != "x" {
		t.Fatalf("title touched: %#v", change.After)
	}
	if _, err := e.ChangeStatus(context.Background(), "t1", "bogus", 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAssignAndUnassign(t *testing.T) {
	fs := newFakeTaskStore()
	fs.tasks["t1"] = domain.Task{ID: "t1", Title: "x"}
	e := New(fs)

	uid := "u9"
	change, err := e.Assign(context.Background(), "t1", &uid)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if change.After.AssignedTo != "u9" {
		t.Fatalf("assignment not applied: %#v", change.After)
	}

	change, err = e.Assign(context.Background(), "t1", nil)
	if err != nil {
		t.Fatalf("unassign: %v", err)
	}
	if change.After.AssignedTo != "" {
		t.Fatalf("assignment not cleared: %#v", change.After)
	}
	if change.Before.AssignedTo != "u9" {
		t.Fatalf("before snapshot lost: %#v", change.Before)
	}
}

func TestDeleteRunsCallbackBeforeRemoval(t *testing.T) {
	fs := newFakeTaskStore()
	fs.tasks["t1"] = domain.Task{ID: "t1", Title: "doomed"}
	e := New(fs)

	var sawTitle string
	var presentDuringCallback bool
	got, err := e.Delete(context.Background(), "t1", func(t domain.Task) {
		sawTitle = t.Title
		_, presentDuringCallback = fs.tasks["t1"]
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if sawTitle != "doomed" {
		t.Fatalf("callback saw title %q", sawTitle)
	}
	if !presentDuringCallback {
		t.Fatal("task already removed when callback ran")
	}
	if got.Title != "doomed" {
		t.Fatalf("returned snapshot: %#v", got)
	}
	if _, ok := fs.tasks["t1"]; ok {
		t.Fatal("task not removed")
	}
}

func TestDeleteMissingTask(t *testing.T) {
	e := New(newFakeTaskStore())
	if _, err := e.Delete(context.Background(), "nope", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
