package api

import (
	"context"

	"boardsync/broadcast"
	"boardsync/domain"
	"boardsync/gateway"
)

// Board is the gateway surface the HTTP layer consumes.
type Board interface {
	ListTasks(ctx context.Context, status string) ([]domain.TaskView, error)
	GetTask(ctx context.Context, id string) (*domain.TaskView, error)
	CreateTask(ctx context.Context, actorID string, fields domain.TaskFields) (*domain.TaskView, error)
	UpdateTask(ctx context.Context, actorID, id string, fields domain.TaskFields) (*domain.TaskView, error)
	DeleteTask(ctx context.Context, actorID, id string) error
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	TaskActivity(ctx context.Context, taskID string) ([]domain.ActivityView, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityView, error)
	Dispatch(ctx context.Context, intent gateway.Intent)
}

// Streams hands out per-session event channels for the SSE endpoint.
type Streams interface {
	Attach(sessionID string) <-chan broadcast.Event
	Detach(sessionID string)
}
