package storage

import (
	"time"

	"github.com/google/uuid"

	"boardsync/domain"
)

// Seed loads demo users and starter tasks into the memory store. Only the
// fallback backend is ever seeded; table storage is provisioned externally.
func Seed(s *MemoryStore) {
	now := time.Now().UTC()
	users := []domain.User{
		{ID: uuid.NewString(), Name: "John Doe", Email: "john@example.com", Role: domain.RoleAdmin},
		{ID: uuid.NewString(), Name: "Jane Smith", Email: "jane@example.com", Role: domain.RoleUser},
		{ID: uuid.NewString(), Name: "Mike Johnson", Email: "mike@example.com", Role: domain.RoleUser},
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users[u.ID] = u
	}
	titles := []struct {
		title    string
		status   string
		priority string
	}{
		{"Design new landing page", domain.StatusTodo, domain.PriorityHigh},
		{"Implement user authentication", domain.StatusInProgress, domain.PriorityHigh},
		{"Write API documentation", domain.StatusTodo, domain.PriorityMedium},
		{"Setup CI/CD pipeline", domain.StatusDone, domain.PriorityLow},
	}
	for i, seed := range titles {
		t := domain.Task{
			ID:        uuid.NewString(),
			Title:     seed.title,
			Status:    seed.status,
			Priority:  seed.priority,
			CreatedBy: users[0].ID,
			Tags:      []string{},
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.tasks[t.ID] = t
	}
}

// DefaultActor returns a user to act on behalf of REST callers when no
// identity is configured. The memory store guarantees at least one user
// after seeding.
func DefaultActor(s *MemoryStore) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, u := range s.users {
		if u.Role == domain.RoleAdmin {
			return id
		}
	}
	for id := range s.users {
		return id
	}
	return ""
}
