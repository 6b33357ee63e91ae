package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"boardsync/domain"
)

// MemoryStore is the fallback repository used when no table storage is
// configured. It implements the same contracts as TableStore; the atomic
// find-and-update requirement is met by holding the store mutex across the
// read-merge-write of UpdateTask.
type MemoryStore struct {
	mu       sync.RWMutex
	tasks    map[string]domain.Task
	users    map[string]domain.User
	activity []domain.ActivityLog
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]domain.Task),
		users: make(map[string]domain.User),
	}
}

func (s *MemoryStore) FindTasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *MemoryStore) FindTasksByStatus(ctx context.Context, status string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := []domain.Task{}
	for _, t := range s.tasks {
		if t.Status == status {
			tasks = append(tasks, t)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *MemoryStore) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) CountTasks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}

func (s *MemoryStore) InsertTask(ctx context.Context, t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	return nil
}

// UpdateTask merges the present fields onto the stored task and refreshes
// updatedAt, all under the store lock so concurrent partial updates with
// non-overlapping fields both survive.
func (s *MemoryStore) UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before, ok := s.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	after := domain.Merge(before, fields)
	after.UpdatedAt = time.Now().UTC()
	s.tasks[id] = after
	return &domain.TaskChange{Before: before, After: after}, nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) FindUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

// InsertUser exists for seeding and tests; the synchronization core never
// mutates users.
func (s *MemoryStore) InsertUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) InsertActivity(ctx context.Context, entry domain.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, entry)
	return nil
}

func (s *MemoryStore) ActivityByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []domain.ActivityLog{}
	for _, e := range s.activity {
		if e.TaskID == taskID {
			entries = append(entries, e)
		}
	}
	sortActivity(entries)
	return entries, nil
}

func (s *MemoryStore) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := append([]domain.ActivityLog(nil), s.activity...)
	sortActivity(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// sortTasks orders by position ascending, then createdAt descending.
func sortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// sortActivity orders newest first.
func sortActivity(entries []domain.ActivityLog) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}
