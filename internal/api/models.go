package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/service"
	"github.com/phrazzld/apitask/internal/store"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at,omitempty"`

	// Username and StreakDate are only set on login.
	Username   string  `json:"username,omitempty"`
	StreakDate *string `json:"streak_date,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// CreateTaskRequest is the body of POST /api/tasks. ExpiresOn is a
// YYYY-MM-DD calendar date.
type CreateTaskRequest struct {
	Name        string      `json:"name"         validate:"required,max=255"`
	Description string      `json:"description"  validate:"max=2000"`
	ExpiresOn   *string     `json:"expires_on"   validate:"omitempty,datetime=2006-01-02"`
	CategoryIDs []uuid.UUID `json:"category_ids" validate:"omitempty,unique"`
}

// CategoryResponse is a category as returned to clients.
type CategoryResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// TaskResponse is a task as returned to clients.
type TaskResponse struct {
	ID          uuid.UUID          `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Completed   bool               `json:"completed"`
	CreatedOn   string             `json:"created_on"`
	CompletedOn *string            `json:"completed_on"`
	ExpiresOn   *string            `json:"expires_on"`
	CategoryIDs []uuid.UUID        `json:"category_ids"`
	Categories  []CategoryResponse `json:"categories,omitempty"`
}

// CompletionResponse is returned by PATCH /api/tasks/{id}/complete.
type CompletionResponse struct {
	Task                 TaskResponse `json:"task"`
	FirstCompletionToday bool         `json:"first_completion_today"`
	Points               int          `json:"points"`
}

// PurgeResponse is returned by DELETE /api/tasks/completed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}

// SequenceResponse is the caller's current streak.
type SequenceResponse struct {
	Points         int     `json:"points"`
	LastStreakDate *string `json:"last_streak_date"`
}

// UserResponse is a user as shown to administrators.
type UserResponse struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	Role           domain.Role `json:"role"`
	Points         int         `json:"points"`
	LastStreakDate *string     `json:"last_streak_date"`
	CreatedAt      time.Time   `json:"created_at"`
}

// PageResponse wraps one page of a listing.
type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(domain.DateLayout)
	return &s
}

func categoryToResponse(c domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name}
}

func taskToResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedOn:   t.CreatedOn.Format(domain.DateLayout),
		CompletedOn: formatDate(t.CompletedOn),
		ExpiresOn:   formatDate(t.ExpiresOn),
		CategoryIDs: t.CategoryIDs,
	}
	if resp.CategoryIDs == nil {
		resp.CategoryIDs = []uuid.UUID{}
	}
	for _, c := range t.Categories {
		resp.Categories = append(resp.Categories, categoryToResponse(c))
	}
	return resp
}

func completionToResponse(r *service.CompletionResult) CompletionResponse {
	return CompletionResponse{
		Task:                 taskToResponse(r.Task),
		FirstCompletionToday: r.FirstCompletionToday,
		Points:               r.Points,
	}
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Role:           u.Role,
		Points:         u.Points,
		LastStreakDate: formatDate(u.LastStreakDate),
		CreatedAt:      u.CreatedAt,
	}
}

// pageToResponse converts a store page with convert.
func pageToResponse[T, R any](p store.Page[T], convert func(*T) R) PageResponse[R] {
	items := make([]R, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, convert(&p.Items[i]))
	}
	return PageResponse[R]{
		Items:      items,
		Page:       p.Page,
		Size:       p.Size,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}
