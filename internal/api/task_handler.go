package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/api/shared"
	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/service"
	"github.com/phrazzld/apitask/internal/store"
)

// TaskHandler handles the /api/tasks routes. Every operation acts on behalf
// of the authenticated caller.
type TaskHandler struct {
	tasks         service.TaskService
	paging        PagingConfig
	retentionDays int
	logger        *slog.Logger
}

// NewTaskHandler creates a TaskHandler. retentionDays is used by the purge
// endpoint.
func NewTaskHandler(
	tasks service.TaskService,
	paging PagingConfig,
	retentionDays int,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:         tasks,
		paging:        paging,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	var expiresOn *time.Time
	if req.ExpiresOn != nil {
		d, err := domain.ParseDate(*req.ExpiresOn)
		if err != nil {
			HandleAPIError(w, r, domain.NewValidationError("expires_on", "must be YYYY-MM-DD", err), "")
			return
		}
		expiresOn = &d
	}

	task, err := h.tasks.CreateTask(r.Context(), caller.UserID, service.CreateTaskInput{
		Name:        req.Name,
		Description: req.Description,
		ExpiresOn:   expiresOn,
		CategoryIDs: req.CategoryIDs,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	caller, taskID, ok := handleIdentityAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), caller.UserID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	caller, taskID, ok := handleIdentityAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), caller.UserID, taskID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask handles PATCH /api/tasks/{id}/complete.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	caller, taskID, ok := handleIdentityAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	result, err := h.tasks.ToggleComplete(r.Context(), caller.UserID, taskID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to complete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, completionToResponse(result))
}

// PurgeCompleted handles DELETE /api/tasks/completed.
func (h *TaskHandler) PurgeCompleted(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	n, err := h.tasks.PurgeOldCompleted(r.Context(), caller.UserID, h.retentionDays)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to purge tasks")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("purge requested",
		slog.Int64("deleted", n))
	shared.RespondWithJSON(w, r, http.StatusOK, PurgeResponse{Deleted: n})
}

// ListAll handles GET /api/tasks.
func (h *TaskHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.tasks.ListAllTasks)
}

// ListDue handles GET /api/tasks/due.
func (h *TaskHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.tasks.ListDueTasks)
}

// ListPending handles GET /api/tasks/pending.
func (h *TaskHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.tasks.ListPendingTasks)
}

// ListCompleted handles GET /api/tasks/completed.
func (h *TaskHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.tasks.ListCompletedTasks)
}

func (h *TaskHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(ctx context.Context, callerID uuid.UUID, page store.PageRequest) (store.Page[domain.Task], error),
) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	page, err := pageRequest(r, h.paging)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := fetch(r.Context(), caller.UserID, page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, pageToResponse(result, taskToResponse))
}
