package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/apitask/internal/store"
)

// UnitOfWork implements store.UnitOfWork with one *sql.Tx per call.
type UnitOfWork struct {
	db         *sql.DB
	tasks      *PostgresTaskStore
	users      *PostgresUserStore
	categories *PostgresCategoryStore
}

// NewUnitOfWork creates a UnitOfWork over db.
func NewUnitOfWork(db *sql.DB, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{
		db:         db,
		tasks:      NewPostgresTaskStore(db, logger),
		users:      NewPostgresUserStore(db, logger),
		categories: NewPostgresCategoryStore(db, logger),
	}
}

var _ store.UnitOfWork = (*UnitOfWork)(nil)

// RunInTransaction implements store.UnitOfWork.
func (u *UnitOfWork) RunInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, repos store.Repositories) error,
) error {
	return store.RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Repositories{
			Tasks:      u.tasks.WithTx(tx),
			Users:      u.users.WithTx(tx),
			Categories: u.categories.WithTx(tx),
		})
	})
}
