// Package session tracks connected clients and their room memberships.
package session

import "sync"

// TaskRoom returns the room name for a task's fine-grained updates.
func TaskRoom(taskID string) string { return "task-" + taskID }

// Registry maps sessions to the set of rooms they joined. Every connected
// session implicitly belongs to the global scope; rooms only gate the
// room-scoped events.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]struct{})}
}

// Connect registers a session with no room memberships.
func (r *Registry) Connect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[sessionID]; !ok {
		r.rooms[sessionID] = make(map[string]struct{})
	}
}

// Disconnect drops the session and all of its rooms in one step.
func (r *Registry) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, sessionID)
}

// Join is idempotent and a no-op for unknown sessions.
func (r *Registry) Join(sessionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[sessionID]
	if !ok {
		return
	}
	set[room] = struct{}{}
}

// Leave is idempotent; leaving a room never joined is a no-op.
func (r *Registry) Leave(sessionID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[sessionID]
	if !ok {
		return
	}
	delete(set, room)
}

// Connected reports whether the session is registered.
func (r *Registry) Connected(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[sessionID]
	return ok
}

// InRoom reports whether the session joined the room.
func (r *Registry) InRoom(sessionID, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.rooms[sessionID]
	if !ok {
		return false
	}
	_, ok = set[room]
	return ok
}

// Rooms returns a snapshot of the session's memberships.
func (r *Registry) Rooms(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.rooms[sessionID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(set))
	for room := range set {
		rooms = append(rooms, room)
	}
	return rooms
}
