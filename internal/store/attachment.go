package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Shavez90/Task-api/types"
)

// AttachmentRepository handles persistence for attachment metadata.
// The attachment bytes live in object storage, not in this table.
type AttachmentRepository struct {
	db *sql.DB
}

func NewAttachmentRepository(db *sql.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Get(ctx context.Context, id string) (types.Attachment, error) {
	const query = `
		SELECT id, task_id, filename, content_type, size, object_key, created_at
		FROM attachments
		WHERE id = $1`
	var attachment types.Attachment
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.TaskID,
		&attachment.Filename,
		&attachment.ContentType,
		&attachment.Size,
		&attachment.ObjectKey,
		&attachment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Attachment{}, ErrNotFound
		}
		return types.Attachment{}, err
	}
	return attachment, nil
}

func (r *AttachmentRepository) ListByTask(ctx context.Context, taskID string) ([]types.Attachment, error) {
	const query = `
		SELECT id, task_id, filename, content_type, size, object_key, created_at
		FROM attachments
		WHERE task_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]types.Attachment, 0)
	for rows.Next() {
		var attachment types.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TaskID,
			&attachment.Filename,
			&attachment.ContentType,
			&attachment.Size,
			&attachment.ObjectKey,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return attachments, nil
}

// Create inserts attachment metadata. The caller supplies the ID because
// the object key in storage is derived from it before the row exists.
func (r *AttachmentRepository) Create(ctx context.Context, attachment types.Attachment) (types.Attachment, error) {
	attachment.CreatedAt = time.Now()

	const query = `
		INSERT INTO attachments (id, task_id, filename, content_type, size, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		attachment.ID,
		attachment.TaskID,
		attachment.Filename,
		attachment.ContentType,
		attachment.Size,
		attachment.ObjectKey,
		attachment.CreatedAt,
	); err != nil {
		return types.Attachment{}, err
	}
	return attachment, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM attachments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
