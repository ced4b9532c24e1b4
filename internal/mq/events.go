package mq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Shavez90/Task-api/types"
)

// DefaultTaskEventChannel is the channel task lifecycle events are
// published to unless overridden.
const DefaultTaskEventChannel = "task-events"

// Task lifecycle event kinds.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

// TaskEvent is the JSON payload published for every task mutation.
type TaskEvent struct {
	Event   string    `json:"event"`
	TaskID  string    `json:"task_id"`
	OwnerID string    `json:"owner_id"`
	Title   string    `json:"title"`
	At      time.Time `json:"at"`
}

// TaskEventPublisher publishes task lifecycle events to a single channel.
// Publishing is best-effort: the caller decides what to do with a failure,
// and no task operation ever depends on the broker being reachable.
type TaskEventPublisher struct {
	mq      *MQ
	channel string
}

// NewTaskEventPublisher wraps the given MQ. An empty channel selects
// DefaultTaskEventChannel.
func NewTaskEventPublisher(m *MQ, channel string) *TaskEventPublisher {
	if channel == "" {
		channel = DefaultTaskEventChannel
	}
	return &TaskEventPublisher{mq: m, channel: channel}
}

// Publish emits one event for the given task.
func (p *TaskEventPublisher) Publish(ctx context.Context, event string, task types.Task) error {
	payload, err := json.Marshal(TaskEvent{
		Event:   event,
		TaskID:  task.ID,
		OwnerID: task.OwnerID,
		Title:   task.Title,
		At:      time.Now(),
	})
	if err != nil {
		return err
	}

	_, err = p.mq.Publish(ctx, p.channel, payload, map[string]string{
		"event": event,
	})
	return err
}

// Channel returns the channel events are published to.
func (p *TaskEventPublisher) Channel() string {
	return p.channel
}
