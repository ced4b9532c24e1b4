package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Shavez90/Task-api/internal/services"
	"github.com/Shavez90/Task-api/internal/store"
	"github.com/Shavez90/Task-api/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 32 << 20
	maxAttachmentBytes = 64 << 20
	formFieldFile      = "file"
)

// TaskHandler provides HTTP handlers for tasks and their attachments.
type TaskHandler struct {
	taskService       *services.TaskService
	attachmentService *services.AttachmentService
}

// NewTaskHandler constructs a handler with the provided services.
// attachmentService may be nil when no object storage is configured.
func NewTaskHandler(taskService *services.TaskService, attachmentService *services.AttachmentService) *TaskHandler {
	return &TaskHandler{
		taskService:       taskService,
		attachmentService: attachmentService,
	}
}

// TaskRouter registers task routes on the given router. Every route is
// protected; attachment routes are registered only when object storage is
// configured.
func TaskRouter(
	r chi.Router,
	taskService *services.TaskService,
	attachmentService *services.AttachmentService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewTaskHandler(taskService, attachmentService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateTask)
	r.Get("/", handler.ListTasks)
	r.Route("/{taskID}", func(r chi.Router) {
		r.Get("/", handler.GetTask)
		r.Put("/", handler.UpdateTask)
		r.Delete("/", handler.DeleteTask)
		if attachmentService != nil {
			r.Route("/attachments", func(r chi.Router) {
				r.Post("/", handler.UploadAttachment)
				r.Get("/", handler.ListAttachments)
				r.Get("/{attachmentID}", handler.DownloadAttachment)
				r.Delete("/{attachmentID}", handler.DeleteAttachment)
			})
		}
	})
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TaskUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	task, err := h.taskService.Create(r.Context(), identity.UserID, req.Title, req.Body)
	if err != nil {
		respondTaskError(w, err, "failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.taskService.List(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, TaskListResponse{Items: tasks, Total: len(tasks)})
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	task, err := h.taskService.Get(r.Context(), identity.UserID, chi.URLParam(r, "taskID"))
	if err != nil {
		respondTaskError(w, err, "failed to fetch task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TaskUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	task, err := h.taskService.Update(r.Context(), identity.UserID, chi.URLParam(r, "taskID"), req.Title, req.Body)
	if err != nil {
		respondTaskError(w, err, "failed to update task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.taskService.Delete(r.Context(), identity.UserID, chi.URLParam(r, "taskID")); err != nil {
		respondTaskError(w, err, "failed to delete task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldFile]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}

	fileHeader := files[0]
	if fileHeader.Size > maxAttachmentBytes {
		writeError(w, http.StatusBadRequest, "uploaded file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	defer file.Close()

	attachment, err := h.attachmentService.Upload(
		r.Context(),
		identity.UserID,
		chi.URLParam(r, "taskID"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
		fileHeader.Size,
	)
	if err != nil {
		respondTaskError(w, err, "failed to store attachment")
		return
	}

	writeJSON(w, http.StatusCreated, attachment)
}

func (h *TaskHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	attachments, err := h.attachmentService.List(r.Context(), identity.UserID, chi.URLParam(r, "taskID"))
	if err != nil {
		respondTaskError(w, err, "failed to list attachments")
		return
	}

	writeJSON(w, http.StatusOK, AttachmentListResponse{Items: attachments, Total: len(attachments)})
}

func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	attachment, reader, err := h.attachmentService.Open(
		r.Context(),
		identity.UserID,
		chi.URLParam(r, "taskID"),
		chi.URLParam(r, "attachmentID"),
	)
	if err != nil {
		respondTaskError(w, err, "failed to fetch attachment")
		return
	}
	defer reader.Close()

	if attachment.ContentType != "" {
		w.Header().Set("Content-Type", attachment.ContentType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(attachment.Filename)))
	if attachment.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(attachment.Size, 10))
	}
	_, _ = io.Copy(w, reader)
}

func (h *TaskHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err = h.attachmentService.Delete(
		r.Context(),
		identity.UserID,
		chi.URLParam(r, "taskID"),
		chi.URLParam(r, "attachmentID"),
	)
	if err != nil {
		respondTaskError(w, err, "failed to delete attachment")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondTaskError maps service errors to responses. Forbidden responses
// carry no hint about the true owner; validation responses name the field.
func respondTaskError(w http.ResponseWriter, err error, fallback string) {
	var blank *services.BlankFieldError
	switch {
	case errors.As(err, &blank):
		writeError(w, http.StatusBadRequest, blank.Error())
	case errors.Is(err, services.ErrNotOwner):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// TaskUpsertRequest is the JSON payload for create and update. Update has
// full-replace semantics: both fields are always required.
type TaskUpsertRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// TaskListResponse is the list response payload.
type TaskListResponse struct {
	Items []types.Task `json:"items"`
	Total int          `json:"total"`
}

// AttachmentListResponse is the attachment list response payload.
type AttachmentListResponse struct {
	Items []types.Attachment `json:"items"`
	Total int                `json:"total"`
}
