package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID      = errors.New("task user ID cannot be empty")
	ErrEmptyTaskName        = errors.New("task name cannot be empty")
	ErrTaskNameTooLong      = errors.New("task name is too long")
	ErrTaskDescriptionLong  = errors.New("task description is too long")
	ErrMissingCreationDate  = errors.New("task creation date cannot be empty")
	ErrCompletionMismatch   = errors.New("completion date must be set exactly when the task is completed")
	ErrDuplicateCategoryIDs = errors.New("category IDs must be unique")
)

const (
	// MaxTaskNameLength bounds Task.Name.
	MaxTaskNameLength = 255
	// MaxTaskDescriptionLength bounds Task.Description.
	MaxTaskDescriptionLength = 2000
)

// Task is a unit of work owned by exactly one user. Dates are calendar
// dates normalized with DateOf.
type Task struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Completed   bool        `json:"completed"`
	CreatedOn   time.Time   `json:"created_on"`
	CompletedOn *time.Time  `json:"completed_on,omitempty"`
	ExpiresOn   *time.Time  `json:"expires_on,omitempty"`
	CategoryIDs []uuid.UUID `json:"category_ids"`
	Categories  []Category  `json:"categories,omitempty"`
}

// NewTask creates a pending task owned by userID and created on today.
// Returns an error if validation fails.
func NewTask(
	userID uuid.UUID,
	name, description string,
	expiresOn *time.Time,
	categoryIDs []uuid.UUID,
	today time.Time,
) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Description: description,
		Completed:   false,
		CreatedOn:   today,
		ExpiresOn:   expiresOn,
		CategoryIDs: categoryIDs,
	}
	if task.CategoryIDs == nil {
		task.CategoryIDs = []uuid.UUID{}
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrEmptyTaskID)
	}

	if t.UserID == uuid.Nil {
		return NewValidationError("user_id", "cannot be empty", ErrEmptyTaskUserID)
	}

	if strings.TrimSpace(t.Name) == "" {
		return NewValidationError("name", "cannot be blank", ErrEmptyTaskName)
	}

	if len(t.Name) > MaxTaskNameLength {
		return NewValidationError("name", "is too long", ErrTaskNameTooLong)
	}

	if len(t.Description) > MaxTaskDescriptionLength {
		return NewValidationError("description", "is too long", ErrTaskDescriptionLong)
	}

	if t.CreatedOn.IsZero() {
		return NewValidationError("created_on", "cannot be empty", ErrMissingCreationDate)
	}

	if t.Completed != (t.CompletedOn != nil) {
		return NewValidationError("completed_on", "does not match completed", ErrCompletionMismatch)
	}

	seen := make(map[uuid.UUID]struct{}, len(t.CategoryIDs))
	for _, id := range t.CategoryIDs {
		if _, dup := seen[id]; dup {
			return NewValidationError("category_ids", "contains duplicates", ErrDuplicateCategoryIDs)
		}
		seen[id] = struct{}{}
	}

	return nil
}

// Complete marks the task completed on today. Completing an already
// completed task re-stamps the completion date.
func (t *Task) Complete(today time.Time) {
	t.Completed = true
	t.CompletedOn = &today
}

// DueForReminder reports whether the task is pending and expires exactly
// on horizon.
func (t *Task) DueForReminder(horizon time.Time) bool {
	return !t.Completed && t.ExpiresOn != nil && t.ExpiresOn.Equal(horizon)
}

// OwnedBy reports whether userID owns the task.
func (t *Task) OwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}
