package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"boardsync/domain"
)

// TaskBackend is the slice of the task repository the cache decorates.
type TaskBackend interface {
	FindTasks(ctx context.Context) ([]domain.Task, error)
	FindTasksByStatus(ctx context.Context, status string) ([]domain.Task, error)
	FindTaskByID(ctx context.Context, id string) (*domain.Task, error)
	CountTasks(ctx context.Context) (int, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, error)
	DeleteTask(ctx context.Context, id string) error
}

// TaskCache wraps a task backend with Redis-backed caching for the board
// list reads. Every mutation evicts, so viewers never see a stale board
// after their own broadcast arrives.
type TaskCache struct {
	base  TaskBackend
	redis *redis.Client
	ttl   time.Duration
}

// NewTaskCache creates a caching wrapper using the provided Redis client
// and TTL. A nil client disables caching without changing behavior.
func NewTaskCache(base TaskBackend, client *redis.Client, ttl time.Duration) *TaskCache {
	if base == nil {
		panic("storage.NewTaskCache: base backend is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &TaskCache{base: base, redis: client, ttl: ttl}
}

func (c *TaskCache) FindTasks(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx, boardCacheKey()); ok {
		return tasks, nil
	}
	tasks, err := c.base.FindTasks(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, boardCacheKey(), tasks)
	return tasks, nil
}

func (c *TaskCache) FindTasksByStatus(ctx context.Context, status string) ([]domain.Task, error) {
	if tasks, ok := c.load(ctx, statusCacheKey(status)); ok {
		return tasks, nil
	}
	tasks, err := c.base.FindTasksByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	c.store(ctx, statusCacheKey(status), tasks)
	return tasks, nil
}

func (c *TaskCache) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	return c.base.FindTaskByID(ctx, id)
}

func (c *TaskCache) CountTasks(ctx context.Context) (int, error) {
	return c.base.CountTasks(ctx)
}

func (c *TaskCache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *TaskCache) UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, error) {
	change, err := c.base.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	c.evict(ctx)
	return change, nil
}

func (c *TaskCache) DeleteTask(ctx context.Context, id string) error {
	if err := c.base.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.evict(ctx)
	return nil
}

func (c *TaskCache) load(ctx context.Context, key string) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) store(ctx context.Context, key string, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *TaskCache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	keys := []string{
		boardCacheKey(),
		statusCacheKey(domain.StatusTodo),
		statusCacheKey(domain.StatusInProgress),
		statusCacheKey(domain.StatusDone),
	}
	_, _ = c.redis.Del(ctx, keys...).Result()
}

func boardCacheKey() string { return "board:tasks" }

func statusCacheKey(status string) string { return "board:tasks:" + status }
