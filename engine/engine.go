// Package engine validates and applies task mutations against the task
// store, capturing before/after snapshots for activity derivation.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"boardsync/domain"
)

// TaskStore is the slice of the repository the engine mutates through.
// UpdateTask must be an atomic find-and-merge: the engine relies on it for
// serialization of concurrent mutations to the same task.
type TaskStore interface {
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)
	CountTasks(ctx context.Context) (int, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, error)
	DeleteTask(ctx context.Context, id string) error
}

// Engine applies create/update/delete/status-change/assign operations.
type Engine struct {
	tasks TaskStore
}

func New(tasks TaskStore) *Engine {
	return &Engine{tasks: tasks}
}

// Create validates the field set and inserts a new task. Status is always
// forced to todo and position defaults to the current task count; a missing
// or empty title is the only rejection.
func (e *Engine) Create(ctx context.Context, actorID string, fields domain.TaskFields) (*domain.Task, error) {
	if fields.Title == nil || *fields.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	count, err := e.tasks.CountTasks(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	t := domain.Task{
		ID:        uuid.NewString(),
		Title:     *fields.Title,
		Status:    domain.StatusTodo,
		Priority:  domain.PriorityMedium,
		CreatedBy: actorID,
		Tags:      []string{},
		Position:  count,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if fields.Description != nil {
		t.Description = *fields.Description
	}
	if fields.Priority != nil && domain.ValidPriority(*fields.Priority) {
		t.Priority = *fields.Priority
	}
	if fields.AssignedTo != nil {
		t.AssignedTo = *fields.AssignedTo
	}
	if fields.DueDate != nil && !fields.DueDate.IsZero() {
		due := *fields.DueDate
		t.DueDate = &due
	}
	if fields.Tags != nil {
		t.Tags = append([]string{}, (*fields.Tags)...)
	}
	if fields.Position != nil {
		t.Position = *fields.Position
	}
	if err := e.tasks.InsertTask(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update merges the present fields onto the task and returns the change
// snapshots plus the tracked-field diff list. An empty diff still refreshes
// updatedAt in the store.
func (e *Engine) Update(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, []string, error) {
	if fields.Status != nil && !domain.ValidStatus(*fields.Status) {
		return nil, nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *fields.Status)
	}
	if fields.Priority != nil && !domain.ValidPriority(*fields.Priority) {
		return nil, nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, *fields.Priority)
	}
	if fields.Title != nil && *fields.Title == "" {
		return nil, nil, fmt.Errorf("%w: title cannot be empty", domain.ErrInvalidInput)
	}
	change, err := e.tasks.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, nil, err
	}
	return change, domain.Changes(change.Before, change.After), nil
}

// ChangeStatus is the drag-reorder specialization of Update, restricted to
// status and position. The new position is taken as given, gaps and all.
func (e *Engine) ChangeStatus(ctx context.Context, id, status string, position int) (*domain.TaskChange, error) {
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	change, err := e.tasks.UpdateTask(ctx, id, domain.TaskFields{Status: &status, Position: &position})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// Assign sets or clears the assignment. The referenced user does not have
// to exist for the mutation to succeed.
func (e *Engine) Assign(ctx context.Context, id string, userID *string) (*domain.TaskChange, error) {
	assignee := ""
	if userID != nil {
		assignee = *userID
	}
	change, err := e.tasks.UpdateTask(ctx, id, domain.TaskFields{AssignedTo: &assignee})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// Delete removes the task permanently. beforeRemove runs between the
// lookup and the physical removal, so the deletion can still be recorded
// against the pre-delete state.
func (e *Engine) Delete(ctx context.Context, id string, beforeRemove func(domain.Task)) (*domain.Task, error) {
	t, err := e.tasks.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if beforeRemove != nil {
		beforeRemove(*t)
	}
	if err := e.tasks.DeleteTask(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}
