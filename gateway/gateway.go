// Package gateway is the mutation entry point: it drives each intent
// through validate → apply → persist → log → broadcast and serves the
// read-side projections with user references resolved.
package gateway

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"boardsync/activity"
	"boardsync/broadcast"
	"boardsync/domain"
	"boardsync/engine"
	"boardsync/session"
)

// Recent-activity listings never exceed this many entries.
const maxRecentActivity = 50

// TaskRepository is the read slice of the task store; mutations go through
// the engine against the same implementation.
type TaskRepository interface {
	FindTasks(ctx context.Context) ([]domain.Task, error)
	FindTasksByStatus(ctx context.Context, status string) ([]domain.Task, error)
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)
}

type UserRepository interface {
	FindUsers(ctx context.Context) ([]domain.User, error)
	FindUserByID(ctx context.Context, id string) (*domain.User, error)
}

type ActivityRepository interface {
	ActivityByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error)
	RecentActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error)
}

// Gateway orchestrates the mutation pipeline. It is stateless across
// intents; serialization of concurrent mutations to one task is the
// repository's atomic update primitive, not a gateway lock.
type Gateway struct {
	engine   *engine.Engine
	recorder *activity.Recorder
	router   *broadcast.Router
	registry *session.Registry
	tasks    TaskRepository
	users    UserRepository
	activity ActivityRepository
	logger   *log.Logger
}

func New(
	eng *engine.Engine,
	recorder *activity.Recorder,
	router *broadcast.Router,
	registry *session.Registry,
	tasks TaskRepository,
	users UserRepository,
	activityRepo ActivityRepository,
	logger *log.Logger,
) *Gateway {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Gateway{
		engine:   eng,
		recorder: recorder,
		router:   router,
		registry: registry,
		tasks:    tasks,
		users:    users,
		activity: activityRepo,
		logger:   logger,
	}
}

// CreateTask applies a create intent and broadcasts the new task.
func (g *Gateway) CreateTask(ctx context.Context, actorID string, fields domain.TaskFields) (*domain.TaskView, error) {
	t, err := g.engine.Create(ctx, actorID, fields)
	if err != nil {
		return nil, err
	}
	g.recorder.Created(ctx, actorID, *t)
	view := g.resolveTask(ctx, *t)
	g.broadcastTask(broadcast.EventTaskCreated, t.ID, view)
	return &view, nil
}

// UpdateTask applies a partial update. An update that changes no tracked
// field writes no activity entry but still broadcasts the fresh snapshot.
func (g *Gateway) UpdateTask(ctx context.Context, actorID, id string, fields domain.TaskFields) (*domain.TaskView, error) {
	change, diffs, err := g.engine.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	g.recorder.Updated(ctx, actorID, *change, diffs)
	view := g.resolveTask(ctx, change.After)
	g.broadcastTask(broadcast.EventTaskUpdated, id, view)
	return &view, nil
}

// ChangeTaskStatus moves a task between columns.
func (g *Gateway) ChangeTaskStatus(ctx context.Context, actorID, id, status string, position int) (*domain.TaskView, error) {
	change, err := g.engine.ChangeStatus(ctx, id, status, position)
	if err != nil {
		return nil, err
	}
	g.recorder.StatusChanged(ctx, actorID, *change)
	view := g.resolveTask(ctx, change.After)
	g.broadcastTask(broadcast.EventTaskStatusChanged, id, view)
	return &view, nil
}

// AssignTask sets or clears the assignment; a nil userID unassigns.
func (g *Gateway) AssignTask(ctx context.Context, actorID, id string, userID *string) (*domain.TaskView, error) {
	change, err := g.engine.Assign(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	g.recorder.Assigned(ctx, actorID, *change)
	view := g.resolveTask(ctx, change.After)
	g.broadcastTask(broadcast.EventTaskAssigned, id, view)
	return &view, nil
}

// DeleteTask removes a task. The activity entry is written before the
// physical removal so it captures the pre-delete title; the broadcast
// payload carries only the identifier.
func (g *Gateway) DeleteTask(ctx context.Context, actorID, id string) error {
	_, err := g.engine.Delete(ctx, id, func(t domain.Task) {
		g.recorder.Deleted(ctx, actorID, t)
	})
	if err != nil {
		return err
	}
	g.broadcastTask(broadcast.EventTaskDeleted, id, map[string]string{"taskId": id})
	return nil
}

func (g *Gateway) broadcastTask(eventType, taskID string, payload any) {
	ev, err := broadcast.NewEvent(eventType, payload)
	if err != nil {
		g.logger.WithError(err).WithField("event", eventType).Error("encode broadcast event")
		return
	}
	g.router.Task(taskID, ev)
}

// ListTasks returns the board, optionally filtered by status, as resolved
// views ordered by position then recency.
func (g *Gateway) ListTasks(ctx context.Context, status string) ([]domain.TaskView, error) {
	var (
		tasks []domain.Task
		err   error
	)
	if status == "" {
		tasks, err = g.tasks.FindTasks(ctx)
	} else {
		tasks, err = g.tasks.FindTasksByStatus(ctx, status)
	}
	if err != nil {
		return nil, err
	}
	return g.resolveTasks(ctx, tasks)
}

func (g *Gateway) GetTask(ctx context.Context, id string) (*domain.TaskView, error) {
	t, err := g.tasks.FindTaskByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := g.resolveTask(ctx, *t)
	return &view, nil
}

func (g *Gateway) ListUsers(ctx context.Context) ([]domain.User, error) {
	return g.users.FindUsers(ctx)
}

func (g *Gateway) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return g.users.FindUserByID(ctx, id)
}

// TaskActivity returns the task's audit trail newest-first. Entries
// survive deletion of the task itself.
func (g *Gateway) TaskActivity(ctx context.Context, taskID string) ([]domain.ActivityView, error) {
	entries, err := g.activity.ActivityByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return g.resolveActivity(ctx, entries)
}

// RecentActivity returns the newest entries across all tasks, capped.
func (g *Gateway) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityView, error) {
	if limit <= 0 || limit > maxRecentActivity {
		limit = maxRecentActivity
	}
	entries, err := g.activity.RecentActivity(ctx, limit)
	if err != nil {
		return nil, err
	}
	return g.resolveActivity(ctx, entries)
}

// resolveTask projects a task for the wire, embedding user summaries. An
// unresolvable reference keeps the ID with a placeholder name instead of
// failing the mutation that produced it.
func (g *Gateway) resolveTask(ctx context.Context, t domain.Task) domain.TaskView {
	view := domain.TaskView{Task: t, CreatedBy: g.summary(ctx, t.CreatedBy)}
	if t.AssignedTo != "" {
		s := g.summary(ctx, t.AssignedTo)
		view.AssignedTo = &s
	}
	return view
}

func (g *Gateway) summary(ctx context.Context, userID string) domain.UserSummary {
	if userID == "" {
		return domain.UserSummary{}
	}
	u, err := g.users.FindUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			g.logger.WithError(err).WithField("user", userID).Warn("resolve user")
		}
		return domain.UserSummary{ID: userID, Name: "Unknown User"}
	}
	return u.Summary()
}

func (g *Gateway) resolveTasks(ctx context.Context, tasks []domain.Task) ([]domain.TaskView, error) {
	users, err := g.users.FindUsers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	lookup := func(id string) domain.UserSummary {
		if u, ok := byID[id]; ok {
			return u.Summary()
		}
		return domain.UserSummary{ID: id, Name: "Unknown User"}
	}
	views := make([]domain.TaskView, 0, len(tasks))
	for _, t := range tasks {
		view := domain.TaskView{Task: t, CreatedBy: lookup(t.CreatedBy)}
		if t.AssignedTo != "" {
			s := lookup(t.AssignedTo)
			view.AssignedTo = &s
		}
		views = append(views, view)
	}
	return views, nil
}

func (g *Gateway) resolveActivity(ctx context.Context, entries []domain.ActivityLog) ([]domain.ActivityView, error) {
	users, err := g.users.FindUsers(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	views := make([]domain.ActivityView, 0, len(entries))
	for _, e := range entries {
		view := domain.ActivityView{ActivityLog: e}
		if u, ok := byID[e.UserID]; ok {
			view.User = u.Summary()
		} else {
			view.User = domain.UserSummary{ID: e.UserID, Name: "Unknown User"}
		}
		views = append(views, view)
	}
	return views, nil
}
