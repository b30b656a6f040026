package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
)

// UserWithTasks pairs a user with a subset of their tasks.
type UserWithTasks struct {
	User  domain.User
	Tasks []domain.Task
}

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The caller must set HashedPassword; the
	// plaintext Password is never persisted.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// List returns a page of users ordered by creation time.
	List(ctx context.Context, page PageRequest) (Page[domain.User], error)

	// Delete removes a user and, by cascade, their tasks.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AwardStreakPoint extends the user's streak to today in one conditional
	// update. It does nothing when the streak was already extended today.
	// When cutoff is non-nil and the last streak date is missing or on or
	// before cutoff, the count restarts at one; otherwise it increments.
	// Reports whether a point was awarded.
	// Returns ErrUserNotFound if the user does not exist.
	AwardStreakPoint(ctx context.Context, userID uuid.UUID, today time.Time, cutoff *time.Time) (bool, error)

	// ResetPointsIfDecayed zeroes the user's points when the last streak
	// date is missing or on or before cutoff. The last streak date is kept.
	ResetPointsIfDecayed(ctx context.Context, userID uuid.UUID, cutoff time.Time) error

	// FindUsersWithPendingTasksDueBy returns every user that owns at least one
	// incomplete task expiring exactly on horizon, each with those tasks.
	FindUsersWithPendingTasksDueBy(ctx context.Context, horizon time.Time) ([]UserWithTasks, error)

	// WithTx returns a UserStore that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
