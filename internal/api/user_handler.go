package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/apitask/internal/api/shared"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/service"
)

// UserHandler serves the caller's streak and the admin user endpoints.
type UserHandler struct {
	users  service.UserService
	paging PagingConfig
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users service.UserService, paging PagingConfig, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{
		users:  users,
		paging: paging,
		logger: logger.With(slog.String("component", "user_handler")),
	}
}

// GetSequence handles GET /api/users/me/sequence.
func (h *UserHandler) GetSequence(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	seq, err := h.users.CurrentSequence(r.Context(), caller.UserID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load streak")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, SequenceResponse{
		Points:         seq.Points,
		LastStreakDate: formatDate(seq.LastStreakDate),
	})
}

// ListUsers handles GET /api/admin/users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	page, err := pageRequest(r, h.paging)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	users, err := h.users.ListUsers(r.Context(), page)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list users")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, pageToResponse(users, userToResponse))
}

// DeleteUser handles DELETE /api/admin/users/{id}. The user's tasks are
// deleted with them.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, userID, ok := handleIdentityAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete user")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("user deleted by admin",
		slog.String("admin_id", caller.UserID.String()),
		slog.String("deleted_user_id", userID.String()))
	w.WriteHeader(http.StatusNoContent)
}
