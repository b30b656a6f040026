package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
)

// CategoryStore reads the seeded, read-only category catalogue.
type CategoryStore interface {
	// List returns every category ordered by name.
	List(ctx context.Context) ([]domain.Category, error)

	// GetByIDs resolves ids to categories, in the order given.
	// Returns ErrCategoryNotFound if any id does not resolve.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Category, error)

	// WithTx returns a CategoryStore that uses the provided transaction.
	WithTx(tx *sql.Tx) CategoryStore
}
