package services

import (
	"context"
	"io"

	"github.com/Shavez90/Task-api/internal/storage"
	"github.com/Shavez90/Task-api/internal/store"
	"github.com/Shavez90/Task-api/types"
	"github.com/google/uuid"
)

// AttachmentRepository defines persistence operations for attachment metadata.
type AttachmentRepository interface {
	Get(ctx context.Context, id string) (types.Attachment, error)
	ListByTask(ctx context.Context, taskID string) ([]types.Attachment, error)
	Create(ctx context.Context, attachment types.Attachment) (types.Attachment, error)
	Delete(ctx context.Context, id string) error
}

// AttachmentService manages files attached to tasks. Every operation first
// resolves the parent task and applies the same ownership check as the task
// itself, so attachments are exactly as private as their task.
type AttachmentService struct {
	repo    AttachmentRepository
	tasks   TaskRepository
	objects *storage.Storage
}

func NewAttachmentService(repo AttachmentRepository, tasks TaskRepository, objects *storage.Storage) *AttachmentService {
	return &AttachmentService{repo: repo, tasks: tasks, objects: objects}
}

// Upload stores the file bytes in object storage and records the metadata.
// The object key is derived from the task and attachment ids so objects can
// always be traced back to their metadata row.
func (s *AttachmentService) Upload(ctx context.Context, userID, taskID, filename, contentType string, r io.Reader, size int64) (types.Attachment, error) {
	if err := s.authorizeTask(ctx, userID, taskID); err != nil {
		return types.Attachment{}, err
	}

	attachment := types.Attachment{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
	}
	attachment.ObjectKey = taskID + "/" + attachment.ID

	if err := s.objects.Put(ctx, attachment.ObjectKey, r, size, contentType); err != nil {
		return types.Attachment{}, err
	}

	created, err := s.repo.Create(ctx, attachment)
	if err != nil {
		// The metadata row is the source of truth; without it the object
		// is unreachable, so clean it up best-effort.
		_ = s.objects.Delete(ctx, attachment.ObjectKey)
		return types.Attachment{}, err
	}
	return created, nil
}

// List returns the attachments of an owned task in upload order.
func (s *AttachmentService) List(ctx context.Context, userID, taskID string) ([]types.Attachment, error) {
	if err := s.authorizeTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListByTask(ctx, taskID)
}

// Open returns the metadata and a reader over the stored bytes of one
// attachment of an owned task. The caller must close the reader.
func (s *AttachmentService) Open(ctx context.Context, userID, taskID, attachmentID string) (types.Attachment, io.ReadCloser, error) {
	attachment, err := s.getForTask(ctx, userID, taskID, attachmentID)
	if err != nil {
		return types.Attachment{}, nil, err
	}

	reader, err := s.objects.Get(ctx, attachment.ObjectKey)
	if err != nil {
		return types.Attachment{}, nil, err
	}
	return attachment, reader, nil
}

// Delete removes the metadata row and then the stored object.
func (s *AttachmentService) Delete(ctx context.Context, userID, taskID, attachmentID string) error {
	attachment, err := s.getForTask(ctx, userID, taskID, attachmentID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, attachmentID); err != nil {
		return err
	}
	return s.objects.Delete(ctx, attachment.ObjectKey)
}

func (s *AttachmentService) getForTask(ctx context.Context, userID, taskID, attachmentID string) (types.Attachment, error) {
	if err := s.authorizeTask(ctx, userID, taskID); err != nil {
		return types.Attachment{}, err
	}

	attachment, err := s.repo.Get(ctx, attachmentID)
	if err != nil {
		return types.Attachment{}, err
	}
	if attachment.TaskID != taskID {
		// An attachment id from another task is indistinguishable from a
		// missing one.
		return types.Attachment{}, store.ErrNotFound
	}
	return attachment, nil
}

func (s *AttachmentService) authorizeTask(ctx context.Context, userID, taskID string) error {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return authorizeOwner(userID, task.OwnerID)
}
