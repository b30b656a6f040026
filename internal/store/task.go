package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
)

// TaskStore defines the interface for task data persistence.
// Tasks returned by reads have Categories and CategoryIDs populated.
type TaskStore interface {
	// Create saves a new task together with its category links.
	// It should run inside a transaction so the links are atomic with the task.
	// Returns ErrCategoryNotFound if a linked category does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// GetForUpdate is GetByID that also locks the task row until the
	// surrounding transaction ends. It must be called on a store bound to a
	// transaction with WithTx.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Delete removes a task and its category links.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkCompleted sets completed and stamps completedOn.
	// Returns ErrTaskNotFound if the task does not exist.
	MarkCompleted(ctx context.Context, id uuid.UUID, completedOn time.Time) error

	// FindDueAtOrBefore lists the user's incomplete tasks expiring on or before date.
	FindDueAtOrBefore(ctx context.Context, userID uuid.UUID, date time.Time, page PageRequest) (Page[domain.Task], error)

	// FindIncompleteByUser lists the user's incomplete tasks.
	FindIncompleteByUser(ctx context.Context, userID uuid.UUID, page PageRequest) (Page[domain.Task], error)

	// FindCompleteByUser lists the user's completed tasks.
	FindCompleteByUser(ctx context.Context, userID uuid.UUID, page PageRequest) (Page[domain.Task], error)

	// FindAllByUser lists every task of the user.
	FindAllByUser(ctx context.Context, userID uuid.UUID, page PageRequest) (Page[domain.Task], error)

	// DeleteCompletedBefore removes the user's completed tasks whose
	// completion date is strictly before cutoff and returns how many were removed.
	DeleteCompletedBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)

	// WithTx returns a TaskStore that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
