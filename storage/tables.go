package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"boardsync/domain"
)

const (
	tasksPartition    = "board"
	usersPartition    = "users"
	activityPartition = "activity"
)

// TableStore persists the board in Azure table storage. Updates use an
// ETag read-merge-write loop, so concurrent partial updates to the same
// task re-merge instead of overwriting each other.
type TableStore struct {
	taskTable     *aztables.Client
	userTable     *aztables.Client
	activityTable *aztables.Client
}

// NewTableStore creates a TableStore from the given connection string.
func NewTableStore(connStr, tasksTable, usersTable, activityTable string) (*TableStore, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableStore{
		taskTable:     svc.NewClient(tasksTable),
		userTable:     svc.NewClient(usersTable),
		activityTable: svc.NewClient(activityTable),
	}, nil
}

type taskEntity struct {
	aztables.Entity
	ETag        string `json:"odata.etag,omitempty"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	Priority    string `json:"Priority"`
	AssignedTo  string `json:"AssignedTo"`
	CreatedBy   string `json:"CreatedBy"`
	DueDate     string `json:"DueDate"`
	Tags        string `json:"Tags"`
	Position    int    `json:"Position"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

func encodeTask(t domain.Task) (taskEntity, error) {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return taskEntity{}, err
	}
	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: tasksPartition, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		Tags:        string(tags),
		Position:    t.Position,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.DueDate != nil {
		ent.DueDate = t.DueDate.UTC().Format(time.RFC3339Nano)
	}
	return ent, nil
}

func decodeTask(data []byte) (domain.Task, string, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, "", err
	}
	t := domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      ent.Status,
		Priority:    ent.Priority,
		AssignedTo:  ent.AssignedTo,
		CreatedBy:   ent.CreatedBy,
		Position:    ent.Position,
	}
	if ent.Tags != "" {
		if err := json.Unmarshal([]byte(ent.Tags), &t.Tags); err != nil {
			return domain.Task{}, "", fmt.Errorf("decode tags for %s: %w", ent.RowKey, err)
		}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if ent.DueDate != "" {
		due, err := time.Parse(time.RFC3339Nano, ent.DueDate)
		if err != nil {
			return domain.Task{}, "", fmt.Errorf("decode due date for %s: %w", ent.RowKey, err)
		}
		t.DueDate = &due
	}
	var err error
	if ent.CreatedAt != "" {
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, ent.CreatedAt); err != nil {
			return domain.Task{}, "", fmt.Errorf("decode createdAt for %s: %w", ent.RowKey, err)
		}
	}
	if ent.UpdatedAt != "" {
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, ent.UpdatedAt); err != nil {
			return domain.Task{}, "", fmt.Errorf("decode updatedAt for %s: %w", ent.RowKey, err)
		}
	}
	return t, ent.ETag, nil
}

func (s *TableStore) listTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			t, _, err := decodeTask(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (s *TableStore) FindTasks(ctx context.Context) ([]domain.Task, error) {
	return s.listTasks(ctx, "PartitionKey eq '"+tasksPartition+"'")
}

func (s *TableStore) FindTasksByStatus(ctx context.Context, status string) ([]domain.Task, error) {
	return s.listTasks(ctx, "PartitionKey eq '"+tasksPartition+"' and Status eq '"+status+"'")
}

func (s *TableStore) FindTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	t, _, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TableStore) getTask(ctx context.Context, id string) (*domain.Task, string, error) {
	ent, err := s.taskTable.GetEntity(ctx, tasksPartition, id, nil)
	if err != nil {
		if hasStatus(err, 404) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", err
	}
	t, etag, err := decodeTask(ent.Value)
	if err != nil {
		return nil, "", err
	}
	return &t, etag, nil
}

func (s *TableStore) CountTasks(ctx context.Context) (int, error) {
	tasks, err := s.FindTasks(ctx)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func (s *TableStore) InsertTask(ctx context.Context, t domain.Task) error {
	ent, err := encodeTask(t)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, payload, nil)
	return err
}

// UpdateTask merges the present fields onto the latest stored task. On an
// ETag conflict the entity is re-read and the merge repeated, so a
// concurrent writer's non-overlapping fields survive.
func (s *TableStore) UpdateTask(ctx context.Context, id string, fields domain.TaskFields) (*domain.TaskChange, error) {
	for {
		before, etag, err := s.getTask(ctx, id)
		if err != nil {
			return nil, err
		}
		after := domain.Merge(*before, fields)
		after.UpdatedAt = time.Now().UTC()
		ent, err := encodeTask(after)
		if err != nil {
			return nil, err
		}
		ent.ETag = ""
		payload, err := json.Marshal(ent)
		if err != nil {
			return nil, err
		}
		match := azcore.ETag(etag)
		_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
			IfMatch:    &match,
			UpdateMode: aztables.UpdateModeReplace,
		})
		if err != nil {
			if hasStatus(err, 412) {
				continue
			}
			if hasStatus(err, 404) {
				return nil, domain.ErrNotFound
			}
			return nil, err
		}
		return &domain.TaskChange{Before: *before, After: after}, nil
	}
}

func (s *TableStore) DeleteTask(ctx context.Context, id string) error {
	et := azcore.ETagAny
	_, err := s.taskTable.DeleteEntity(ctx, tasksPartition, id, &aztables.DeleteEntityOptions{IfMatch: &et})
	if err != nil {
		if hasStatus(err, 404) {
			return domain.ErrNotFound
		}
		return err
	}
	return nil
}

type userEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	Email    string `json:"Email"`
	Password string `json:"Password"`
	Role     string `json:"Role"`
	Avatar   string `json:"Avatar"`
}

func decodeUser(data []byte) (domain.User, error) {
	var ent userEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:       ent.RowKey,
		Name:     ent.Name,
		Email:    ent.Email,
		Password: ent.Password,
		Role:     ent.Role,
		Avatar:   ent.Avatar,
	}, nil
}

func (s *TableStore) FindUsers(ctx context.Context) ([]domain.User, error) {
	filter := "PartitionKey eq '" + usersPartition + "'"
	pager := s.userTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	users := []domain.User{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			u, err := decodeUser(e)
			if err != nil {
				return nil, err
			}
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *TableStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	ent, err := s.userTable.GetEntity(ctx, usersPartition, id, nil)
	if err != nil {
		if hasStatus(err, 404) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	u, err := decodeUser(ent.Value)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type activityEntity struct {
	aztables.Entity
	TaskID      string `json:"TaskId"`
	UserID      string `json:"UserId"`
	Action      string `json:"Action"`
	Description string `json:"Description"`
	OldValue    string `json:"OldValue"`
	NewValue    string `json:"NewValue"`
	CreatedAt   string `json:"CreatedAt"`
}

// activityRowKey orders entries newest-first under the activity partition:
// table storage lists rows ascending, so the key embeds an inverted
// timestamp.
func activityRowKey(createdAt time.Time, id string) string {
	return fmt.Sprintf("%019d-%s", int64(^uint64(0)>>1)-createdAt.UTC().UnixNano(), id)
}

func entityForActivity(entry domain.ActivityLog) aztables.Entity {
	return aztables.Entity{PartitionKey: activityPartition, RowKey: activityRowKey(entry.CreatedAt, entry.ID)}
}

func (s *TableStore) InsertActivity(ctx context.Context, entry domain.ActivityLog) error {
	ent := activityEntity{
		Entity:      entityForActivity(entry),
		TaskID:      entry.TaskID,
		UserID:      entry.UserID,
		Action:      entry.Action,
		Description: entry.Description,
		OldValue:    string(entry.OldValue),
		NewValue:    string(entry.NewValue),
		CreatedAt:   entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.activityTable.AddEntity(ctx, payload, nil)
	return err
}

func decodeActivity(data []byte) (domain.ActivityLog, error) {
	var ent activityEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.ActivityLog{}, err
	}
	entry := domain.ActivityLog{
		TaskID:      ent.TaskID,
		UserID:      ent.UserID,
		Action:      ent.Action,
		Description: ent.Description,
	}
	if i := len(ent.RowKey) - 36; i > 0 {
		entry.ID = ent.RowKey[i:]
	}
	if ent.OldValue != "" {
		entry.OldValue = json.RawMessage(ent.OldValue)
	}
	if ent.NewValue != "" {
		entry.NewValue = json.RawMessage(ent.NewValue)
	}
	if ent.CreatedAt != "" {
		created, err := time.Parse(time.RFC3339Nano, ent.CreatedAt)
		if err != nil {
			return domain.ActivityLog{}, fmt.Errorf("decode createdAt for %s: %w", ent.RowKey, err)
		}
		entry.CreatedAt = created
	}
	return entry, nil
}

func (s *TableStore) listActivity(ctx context.Context, filter string, limit int) ([]domain.ActivityLog, error) {
	opts := &aztables.ListEntitiesOptions{Filter: &filter}
	pager := s.activityTable.NewListEntitiesPager(opts)
	entries := []domain.ActivityLog{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			entry, err := decodeActivity(e)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			if limit > 0 && len(entries) == limit {
				return entries, nil
			}
		}
	}
	return entries, nil
}

func (s *TableStore) ActivityByTask(ctx context.Context, taskID string) ([]domain.ActivityLog, error) {
	filter := "PartitionKey eq '" + activityPartition + "' and TaskId eq '" + taskID + "'"
	return s.listActivity(ctx, filter, 0)
}

func (s *TableStore) RecentActivity(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	return s.listActivity(ctx, "PartitionKey eq '"+activityPartition+"'", limit)
}

func hasStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
