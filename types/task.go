package types

import "time"

// Task represents a single task record owned by exactly one user.
type Task struct {
	// ID is the unique identifier of the task, generated by the server
	// at creation time.
	ID string `json:"id" db:"id"`

	// OwnerID is the ID of the user who created the task. It is set once
	// at creation and is never mutable afterwards; every read and write
	// of the task is restricted to this user.
	OwnerID string `json:"owner_id" db:"owner_id"`

	// Title is the short human-readable name of the task. Must be non-blank.
	Title string `json:"title" db:"title"`

	// Body is the free-form content of the task.
	Body string `json:"body" db:"body"`

	// CreatedAt is the timestamp at which the task was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the task.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Attachment represents a file attached to a task. The bytes live in
// object storage under ObjectKey; this record only carries the metadata.
// Attachments inherit the ownership of their task.
type Attachment struct {
	// ID is the unique identifier of the attachment.
	ID string `json:"id" db:"id"`

	// TaskID is the identifier of the task this attachment belongs to.
	TaskID string `json:"task_id" db:"task_id"`

	// Filename is the original name of the uploaded file.
	Filename string `json:"filename" db:"filename"`

	// ContentType is the MIME type reported at upload time.
	ContentType string `json:"content_type" db:"content_type"`

	// Size is the size of the stored object in bytes.
	Size int64 `json:"size" db:"size"`

	// ObjectKey is the identifier of the stored bytes in object storage.
	ObjectKey string `json:"-" db:"object_key"`

	// CreatedAt is the timestamp at which the attachment was uploaded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
