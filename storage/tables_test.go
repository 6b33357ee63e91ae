package storage

import (
	"encoding/json"
	"testing"
	"time"

	"boardsync/domain"
)

func TestTaskEntityCodec(t *testing.T) {
	due := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	task := domain.Task{
		ID:          "t1",
		Title:       "Ship it",
		Description: "with tests",
		Status:      domain.StatusInProgress,
		Priority:    domain.PriorityHigh,
		AssignedTo:  "u2",
		CreatedBy:   "u1",
		DueDate:     &due,
		Tags:        []string{"release", "q3"},
		Position:    3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	ent, err := encodeTask(task)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if ent.PartitionKey != tasksPartition || ent.RowKey != "t1" {
		t.Fatalf("unexpected keys: %#v", ent.Entity)
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, _, err := decodeTask(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != task.ID || got.Title != task.Title || got.Status != task.Status ||
		got.Priority != task.Priority || got.AssignedTo != task.AssignedTo ||
		got.CreatedBy != task.CreatedBy || got.Position != task.Position {
		t.Fatalf("round trip mismatch: %#v", got)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("due date mismatch: %v", got.DueDate)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "release" {
		t.Fatalf("tags mismatch: %v", got.Tags)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps mismatch: %v %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestDecodeTaskKeepsETag(t *testing.T) {
	payload := []byte(`{"odata.etag":"W/\"datetime'2025'\"","PartitionKey":"board","RowKey":"t1","Title":"x","Tags":"[]"}`)
	_, etag, err := decodeTask(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if etag != `W/"datetime'2025'"` {
		t.Fatalf("etag = %q", etag)
	}
}

func TestDecodeTaskEmptyOptionalFields(t *testing.T) {
	payload := []byte(`{"PartitionKey":"board","RowKey":"t1","Title":"x"}`)
	got, _, err := decodeTask(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DueDate != nil {
		t.Fatalf("expected nil due date, got %v", got.DueDate)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Fatalf("expected empty tags slice, got %#v", got.Tags)
	}
}

func TestActivityRowKeyOrdersNewestFirst(t *testing.T) {
	older := activityRowKey(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "a")
	newer := activityRowKey(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), "b")
	if !(newer < older) {
		t.Fatalf("newer key should sort before older: %q vs %q", newer, older)
	}
}

func TestActivityCodecRoundTrip(t *testing.T) {
	created := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	entry := domain.ActivityLog{
		ID:          "123e4567-e89b-12d3-a456-426614174000",
		TaskID:      "t1",
		UserID:      "u1",
		Action:      domain.ActionStatusChanged,
		Description: `Task "x" status changed to "done"`,
		OldValue:    json.RawMessage(`{"status":"todo"}`),
		NewValue:    json.RawMessage(`{"status":"done"}`),
		CreatedAt:   created,
	}
	ent := activityEntity{
		Entity:      entityForActivity(entry),
		TaskID:      entry.TaskID,
		UserID:      entry.UserID,
		Action:      entry.Action,
		Description: entry.Description,
		OldValue:    string(entry.OldValue),
		NewValue:    string(entry.NewValue),
		CreatedAt:   created.Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := decodeActivity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != entry.ID {
		t.Fatalf("id = %q, want %q", got.ID, entry.ID)
	}
	if got.Action != entry.Action || got.Description != entry.Description {
		t.Fatalf("mismatch: %#v", got)
	}
	if string(got.OldValue) != string(entry.OldValue) || string(got.NewValue) != string(entry.NewValue) {
		t.Fatalf("snapshots mismatch: %s %s", got.OldValue, got.NewValue)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("createdAt = %v", got.CreatedAt)
	}
}
