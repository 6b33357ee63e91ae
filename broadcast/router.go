// Package broadcast fans mutation events out to connected sessions.
// Delivery is at-most-once: sends never block and events to a session with
// a full buffer are dropped rather than delaying anyone else.
package broadcast

import (
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"boardsync/session"
)

// Event names pushed to clients.
const (
	EventTaskCreated       = "task-created"
	EventTaskUpdated       = "task-updated"
	EventTaskDeleted       = "task-deleted"
	EventTaskStatusChanged = "task-status-changed"
	EventTaskAssigned      = "task-assigned"
	EventError             = "error"
)

// Event is a named payload ready for the wire.
type Event struct {
	Type string
	Data []byte
}

// NewEvent encodes payload once so fan-out never re-serializes per session.
func NewEvent(eventType string, payload any) (Event, error) {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data}, nil
}

// Router delivers events to attached sessions, either globally or scoped
// to a task room tracked by the registry.
type Router struct {
	registry *session.Registry
	buf      int

	mu       sync.Mutex
	sessions map[string]chan Event
}

// NewRouter creates a Router whose per-session channels buffer up to buf
// events before drops begin.
func NewRouter(registry *session.Registry, buf int) *Router {
	if buf <= 0 {
		buf = 16
	}
	return &Router{
		registry: registry,
		buf:      buf,
		sessions: make(map[string]chan Event),
	}
}

// Attach registers a new session and returns its event channel. The
// channel is never closed; consumers stop on their own context.
func (r *Router) Attach(sessionID string) <-chan Event {
	ch := make(chan Event, r.buf)
	r.mu.Lock()
	r.sessions[sessionID] = ch
	r.mu.Unlock()
	r.registry.Connect(sessionID)
	return ch
}

// Detach drops the session and its room memberships. Events already
// buffered are abandoned with it.
func (r *Router) Detach(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	r.registry.Disconnect(sessionID)
}

// Global delivers to every attached session regardless of rooms.
func (r *Router) Global(ev Event) {
	r.mu.Lock()
	for id, ch := range r.sessions {
		r.send(id, ch, ev)
	}
	r.mu.Unlock()
}

// Room delivers only to sessions that joined the task's room.
func (r *Router) Room(taskID string, ev Event) {
	room := session.TaskRoom(taskID)
	r.mu.Lock()
	for id, ch := range r.sessions {
		if r.registry.InRoom(id, room) {
			r.send(id, ch, ev)
		}
	}
	r.mu.Unlock()
}

// Task delivers a task mutation through both scopes: the room feeds
// focused viewers, the global channel keeps every board overview current.
// A session in the room receives the event on both scopes.
func (r *Router) Task(taskID string, ev Event) {
	r.Room(taskID, ev)
	r.Global(ev)
}

// SendTo delivers privately to one session, used for error events back to
// a mutation's originator.
func (r *Router) SendTo(sessionID string, ev Event) {
	r.mu.Lock()
	ch, ok := r.sessions[sessionID]
	if ok {
		r.send(sessionID, ch, ev)
	}
	r.mu.Unlock()
}

func (r *Router) send(sessionID string, ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		log.WithFields(log.Fields{"session": sessionID, "event": ev.Type}).Debug("dropping event, session buffer full")
	}
}
