package gateway

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"boardsync/broadcast"
	"boardsync/domain"
	"boardsync/session"
)

// Intent types accepted on the event surface.
const (
	IntentJoinRoom          = "join-room"
	IntentLeaveRoom         = "leave-room"
	IntentTaskCreated       = "task-created"
	IntentTaskUpdated       = "task-updated"
	IntentTaskDeleted       = "task-deleted"
	IntentTaskStatusChanged = "task-status-changed"
	IntentTaskAssigned      = "task-assigned"
)

// Intent is a fire-and-forget mutation request from a connected session.
type Intent struct {
	Type    string                 `json:"type"`
	TaskID  string                 `json:"taskId,omitempty"`
	ActorID string                 `json:"actorId,omitempty"`
	Data    sonic.NoCopyRawMessage `json:"data,omitempty"`

	// SessionID binds the intent to its originating connection; it comes
	// from transport framing, never from the payload.
	SessionID string `json:"-"`
}

var jsonNull = []byte("null")

// TaskPayload is the wire shape of a partial task field set. AssignedTo
// and DueDate stay raw so an explicit null (clear the value) remains
// distinguishable from an absent key.
type TaskPayload struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Status      *string                `json:"status"`
	Priority    *string                `json:"priority"`
	AssignedTo  sonic.NoCopyRawMessage `json:"assignedTo"`
	DueDate     sonic.NoCopyRawMessage `json:"dueDate"`
	Tags        *[]string              `json:"tags"`
	Position    *int                   `json:"position"`
}

// Fields converts the wire payload into a domain field set.
func (p TaskPayload) Fields() (domain.TaskFields, error) {
	fields := domain.TaskFields{
		Title:       p.Title,
		Description: p.Description,
		Status:      p.Status,
		Priority:    p.Priority,
		Tags:        p.Tags,
		Position:    p.Position,
	}
	if len(p.AssignedTo) > 0 {
		assignee := ""
		if !bytes.Equal(p.AssignedTo, jsonNull) {
			if err := sonic.Unmarshal(p.AssignedTo, &assignee); err != nil {
				return domain.TaskFields{}, domain.ErrInvalidInput
			}
		}
		fields.AssignedTo = &assignee
	}
	if len(p.DueDate) > 0 {
		due := time.Time{}
		if !bytes.Equal(p.DueDate, jsonNull) {
			if err := sonic.Unmarshal(p.DueDate, &due); err != nil {
				return domain.TaskFields{}, domain.ErrInvalidInput
			}
		}
		fields.DueDate = &due
	}
	return fields, nil
}

type statusChangePayload struct {
	Status   string `json:"status"`
	Position int    `json:"position"`
}

type assignPayload struct {
	UserID sonic.NoCopyRawMessage `json:"userId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Dispatch drives one intent through the pipeline. Nothing is returned to
// the caller: failures become a private error event to the originating
// session, successes are observable only through the broadcasts.
func (g *Gateway) Dispatch(ctx context.Context, intent Intent) {
	var err error
	switch intent.Type {
	case IntentJoinRoom:
		g.registry.Join(intent.SessionID, session.TaskRoom(intent.TaskID))
		return
	case IntentLeaveRoom:
		g.registry.Leave(intent.SessionID, session.TaskRoom(intent.TaskID))
		return
	case IntentTaskCreated:
		err = g.dispatchCreate(ctx, intent)
	case IntentTaskUpdated:
		err = g.dispatchUpdate(ctx, intent)
	case IntentTaskDeleted:
		err = g.DeleteTask(ctx, intent.ActorID, intent.TaskID)
	case IntentTaskStatusChanged:
		err = g.dispatchStatusChange(ctx, intent)
	case IntentTaskAssigned:
		err = g.dispatchAssign(ctx, intent)
	default:
		err = domain.ErrInvalidInput
	}
	if err != nil {
		g.logger.WithFields(log.Fields{
			"intent":  intent.Type,
			"task":    intent.TaskID,
			"session": intent.SessionID,
		}).WithError(err).Warn("intent failed")
		g.sendError(intent.SessionID, intent.Type, err)
	}
}

func (g *Gateway) dispatchCreate(ctx context.Context, intent Intent) error {
	var payload TaskPayload
	if err := sonic.Unmarshal(intent.Data, &payload); err != nil {
		return domain.ErrInvalidInput
	}
	fields, err := payload.Fields()
	if err != nil {
		return err
	}
	_, err = g.CreateTask(ctx, intent.ActorID, fields)
	return err
}

func (g *Gateway) dispatchUpdate(ctx context.Context, intent Intent) error {
	var payload TaskPayload
	if err := sonic.Unmarshal(intent.Data, &payload); err != nil {
		return domain.ErrInvalidInput
	}
	fields, err := payload.Fields()
	if err != nil {
		return err
	}
	_, err = g.UpdateTask(ctx, intent.ActorID, intent.TaskID, fields)
	return err
}

func (g *Gateway) dispatchStatusChange(ctx context.Context, intent Intent) error {
	var payload statusChangePayload
	if err := sonic.Unmarshal(intent.Data, &payload); err != nil {
		return domain.ErrInvalidInput
	}
	_, err := g.ChangeTaskStatus(ctx, intent.ActorID, intent.TaskID, payload.Status, payload.Position)
	return err
}

func (g *Gateway) dispatchAssign(ctx context.Context, intent Intent) error {
	var payload assignPayload
	if len(intent.Data) > 0 {
		if err := sonic.Unmarshal(intent.Data, &payload); err != nil {
			return domain.ErrInvalidInput
		}
	}
	var userID *string
	if len(payload.UserID) > 0 && !bytes.Equal(payload.UserID, jsonNull) {
		var id string
		if err := sonic.Unmarshal(payload.UserID, &id); err != nil {
			return domain.ErrInvalidInput
		}
		userID = &id
	}
	_, err := g.AssignTask(ctx, intent.ActorID, intent.TaskID, userID)
	return err
}

// sendError reports a failure privately to the originating session. It is
// never broadcast; sessions that did not issue the intent see nothing.
func (g *Gateway) sendError(sessionID, intentType string, cause error) {
	if sessionID == "" {
		return
	}
	msg := "failed to process " + intentType
	if errors.Is(cause, domain.ErrNotFound) {
		msg = "task not found"
	} else if errors.Is(cause, domain.ErrInvalidInput) {
		msg = cause.Error()
	}
	ev, err := broadcast.NewEvent(broadcast.EventError, errorPayload{Message: msg})
	if err != nil {
		return
	}
	g.router.SendTo(sessionID, ev)
}
