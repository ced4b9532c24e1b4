package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Shavez90/Task-api/internal/mq"
	"github.com/Shavez90/Task-api/types"
)

// BlankFieldError reports a required field that was empty or whitespace.
type BlankFieldError struct {
	Field string
}

func (e *BlankFieldError) Error() string {
	return e.Field + " must not be blank"
}

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	Get(ctx context.Context, id string) (types.Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, task types.Task) (types.Task, error)
	Delete(ctx context.Context, id string) error
}

// TaskService encapsulates task use-cases. Every operation takes the acting
// user's id; reads and writes succeed only for the task's owner. Within one
// call the order is fixed: validate, fetch, authorize, mutate.
type TaskService struct {
	repo   TaskRepository
	events *mq.TaskEventPublisher
	logger *slog.Logger
}

// NewTaskService constructs a TaskService. events may be nil to disable
// event publishing.
func NewTaskService(repo TaskRepository, events *mq.TaskEventPublisher, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{repo: repo, events: events, logger: logger}
}

// Create validates the fields and persists a task owned by userID.
func (s *TaskService) Create(ctx context.Context, userID, title, body string) (types.Task, error) {
	if err := validateTaskFields(title, body); err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.Create(ctx, types.Task{
		OwnerID: userID,
		Title:   title,
		Body:    body,
	})
	if err != nil {
		return types.Task{}, err
	}

	s.publish(ctx, mq.TaskCreated, task)
	return task, nil
}

// Get fetches a task by id for its owner. A task owned by someone else
// yields ErrNotOwner, not a not-found, so existence is only hidden from
// users who never had access in the first place.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (types.Task, error) {
	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return types.Task{}, err
	}
	if err := authorizeOwner(userID, task.OwnerID); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// List returns the acting user's tasks in insertion order. The owner filter
// is applied store-side. No pagination: the result set is unbounded.
func (s *TaskService) List(ctx context.Context, userID string) ([]types.Task, error) {
	return s.repo.ListByOwner(ctx, userID)
}

// Update replaces title and body of an owned task. Both fields are required;
// there is no partial merge. Validation runs before any store access.
func (s *TaskService) Update(ctx context.Context, userID, taskID, title, body string) (types.Task, error) {
	if err := validateTaskFields(title, body); err != nil {
		return types.Task{}, err
	}

	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return types.Task{}, err
	}
	if err := authorizeOwner(userID, task.OwnerID); err != nil {
		return types.Task{}, err
	}

	task.Title = title
	task.Body = body
	updated, err := s.repo.Update(ctx, task)
	if err != nil {
		return types.Task{}, err
	}

	s.publish(ctx, mq.TaskUpdated, updated)
	return updated, nil
}

// Delete removes an owned task. Deleting an already-deleted task reports
// not-found: absence is the terminal state, but the call itself is not
// idempotent at the API level.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) error {
	task, err := s.repo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if err := authorizeOwner(userID, task.OwnerID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, taskID); err != nil {
		return err
	}

	s.publish(ctx, mq.TaskDeleted, task)
	return nil
}

// publish emits a task event best-effort. A broker failure is logged and
// never surfaces to the caller.
func (s *TaskService) publish(ctx context.Context, event string, task types.Task) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event, task); err != nil {
		s.logger.Warn("failed to publish task event",
			"event", event,
			"task_id", task.ID,
			"error", err,
		)
	}
}

func validateTaskFields(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return &BlankFieldError{Field: "title"}
	}
	if strings.TrimSpace(body) == "" {
		return &BlankFieldError{Field: "body"}
	}
	return nil
}
