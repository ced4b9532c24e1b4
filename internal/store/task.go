package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Shavez90/Task-api/types"
	"github.com/google/uuid"
)

// TaskRepository handles persistence for tasks. Lookups are keyed by id;
// listing is keyed by owner so filtering never happens client-side.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Get(ctx context.Context, id string) (types.Task, error) {
	const query = `
		SELECT id, owner_id, title, body, created_at, updated_at
		FROM tasks
		WHERE id = $1`
	var task types.Task
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Body,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, err
	}
	return task, nil
}

// ListByOwner returns the owner's tasks in insertion order.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Task, error) {
	const query = `
		SELECT id, owner_id, title, body, created_at, updated_at
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		var task types.Task
		if err := rows.Scan(
			&task.ID,
			&task.OwnerID,
			&task.Title,
			&task.Body,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	now := time.Now()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now

	const query = `
		INSERT INTO tasks (id, owner_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Body,
		task.CreatedAt,
		task.UpdatedAt,
	); err != nil {
		return types.Task{}, err
	}
	return task, nil
}

// Update overwrites title and body. The owner_id column is deliberately
// absent from the SET list; ownership is immutable after creation.
func (r *TaskRepository) Update(ctx context.Context, task types.Task) (types.Task, error) {
	task.UpdatedAt = time.Now()

	const query = `
		UPDATE tasks
		SET title = $1,
			body = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Body,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		return types.Task{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Task{}, err
	}
	if affected == 0 {
		return types.Task{}, ErrNotFound
	}
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
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
