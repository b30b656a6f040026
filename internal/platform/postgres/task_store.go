package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/store"
)

const taskColumns = `id, user_id, name, description, completed, created_on, completed_on, expiration_date`

// taskOrder is the listing order shared by every task page.
const taskOrder = `ORDER BY expiration_date DESC NULLS LAST, created_on DESC, id`

// Listing filters. $1 is always the owner.
const (
	filterAll        = `user_id = $1`
	filterIncomplete = `user_id = $1 AND NOT completed`
	filterComplete   = `user_id = $1 AND completed`
	filterDue        = `user_id = $1 AND NOT completed AND expiration_date <= $2`
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

// Create implements store.TaskStore.Create
// It inserts the task row and one task_categories row per category.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Name,
		task.Description,
		task.Completed,
		task.CreatedOn,
		nullableDate(task.CompletedOn),
		nullableDate(task.ExpiresOn),
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err, nil)
	}

	if len(task.CategoryIDs) > 0 {
		linkQuery := `
			INSERT INTO task_categories (task_id, category_id)
			SELECT $1, unnest($2::uuid[])
		`
		if _, err := s.db.ExecContext(ctx, linkQuery, task.ID, uuidArray(task.CategoryIDs)); err != nil {
			log.Error("failed to link task categories",
				slog.String("error", err.Error()),
				slog.String("task_id", task.ID.String()))
			return MapError(err, nil)
		}
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()),
		slog.Int("category_count", len(task.CategoryIDs)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.get(ctx, id, false)
}

// GetForUpdate implements store.TaskStore.GetForUpdate
func (s *PostgresTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.get(ctx, id, true)
}

func (s *PostgresTaskStore) get(ctx context.Context, id uuid.UUID, lock bool) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err, store.ErrTaskNotFound)
		if store.IsNotFoundError(mapped) {
			log.Debug("task not found", slog.String("task_id", id.String()))
		} else {
			log.Error("failed to get task by ID",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
		}
		return nil, mapped
	}

	tasks := []domain.Task{*task}
	if err := s.attachCategories(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err, store.ErrTaskNotFound)
	}
	if err := checkRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Info("task deleted successfully", slog.String("task_id", id.String()))
	return nil
}

// MarkCompleted implements store.TaskStore.MarkCompleted
func (s *PostgresTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, completedOn time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET completed = TRUE, completed_on = $2
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, id, completedOn)
	if err != nil {
		log.Error("failed to mark task completed",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err, store.ErrTaskNotFound)
	}
	if err := checkRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task marked completed",
		slog.String("task_id", id.String()),
		slog.String("completed_on", completedOn.Format(domain.DateLayout)))
	return nil
}

// FindDueAtOrBefore implements store.TaskStore.FindDueAtOrBefore
func (s *PostgresTaskStore) FindDueAtOrBefore(
	ctx context.Context,
	userID uuid.UUID,
	date time.Time,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return s.findPage(ctx, "due", filterDue, page, userID, date)
}

// FindIncompleteByUser implements store.TaskStore.FindIncompleteByUser
func (s *PostgresTaskStore) FindIncompleteByUser(
	ctx context.Context,
	userID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return s.findPage(ctx, "incomplete", filterIncomplete, page, userID)
}

// FindCompleteByUser implements store.TaskStore.FindCompleteByUser
func (s *PostgresTaskStore) FindCompleteByUser(
	ctx context.Context,
	userID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return s.findPage(ctx, "complete", filterComplete, page, userID)
}

// FindAllByUser implements store.TaskStore.FindAllByUser
func (s *PostgresTaskStore) FindAllByUser(
	ctx context.Context,
	userID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return s.findPage(ctx, "all", filterAll, page, userID)
}

// DeleteCompletedBefore implements store.TaskStore.DeleteCompletedBefore
func (s *PostgresTaskStore) DeleteCompletedBefore(
	ctx context.Context,
	userID uuid.UUID,
	cutoff time.Time,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM tasks
		WHERE user_id = $1 AND completed AND completed_on < $2
	`
	result, err := s.db.ExecContext(ctx, query, userID, cutoff)
	if err != nil {
		log.Error("failed to purge completed tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return 0, MapError(err, nil)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Info("purged completed tasks",
		slog.String("user_id", userID.String()),
		slog.String("cutoff", cutoff.Format(domain.DateLayout)),
		slog.Int64("deleted", n))
	return n, nil
}

// findPage runs a count and a page query for filter. filter is one of the
// package-level filter constants, never caller input; args fill its
// placeholders and LIMIT/OFFSET are appended after them.
func (s *PostgresTaskStore) findPage(
	ctx context.Context,
	listing string,
	filter string,
	page store.PageRequest,
	args ...any,
) (store.Page[domain.Task], error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(slog.String("listing", listing))

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+filter, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return store.Page[domain.Task]{}, MapError(err, nil)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s %s LIMIT $%d OFFSET $%d`,
		taskColumns, filter, taskOrder, n+1, n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return store.Page[domain.Task]{}, MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return store.Page[domain.Task]{}, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		log.Error("failed to iterate task rows", slog.String("error", err.Error()))
		return store.Page[domain.Task]{}, err
	}

	if err := s.attachCategories(ctx, tasks); err != nil {
		return store.Page[domain.Task]{}, err
	}

	log.Debug("tasks listed",
		slog.Int("page", page.Page),
		slog.Int("returned", len(tasks)),
		slog.Int64("total", total))
	return store.NewPage(tasks, page, total), nil
}

// attachCategories loads the categories of tasks in one query and fills
// CategoryIDs and Categories in place.
func (s *PostgresTaskStore) attachCategories(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(tasks))
	index := make(map[uuid.UUID]int, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		index[tasks[i].ID] = i
		tasks[i].CategoryIDs = []uuid.UUID{}
		tasks[i].Categories = []domain.Category{}
	}

	query := `
		SELECT tc.task_id, c.id, c.name
		FROM task_categories tc
		JOIN categories c ON c.id = tc.category_id
		WHERE tc.task_id = ANY($1::uuid[])
		ORDER BY c.name
	`
	rows, err := s.db.QueryContext(ctx, query, uuidArray(ids))
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load task categories",
			slog.String("error", err.Error()))
		return MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var taskID uuid.UUID
		var c domain.Category
		if err := rows.Scan(&taskID, &c.ID, &c.Name); err != nil {
			return fmt.Errorf("failed to scan task category row: %w", err)
		}
		if i, ok := index[taskID]; ok {
			tasks[i].CategoryIDs = append(tasks[i].CategoryIDs, c.ID)
			tasks[i].Categories = append(tasks[i].Categories, c)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var completedOn, expiresOn sql.NullTime

	if err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.Description,
		&t.Completed,
		&t.CreatedOn,
		&completedOn,
		&expiresOn,
	); err != nil {
		return nil, err
	}

	t.CreatedOn = domain.DateOf(t.CreatedOn, time.UTC)
	t.CompletedOn = datePtr(completedOn)
	t.ExpiresOn = datePtr(expiresOn)
	return &t, nil
}

func datePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	d := domain.DateOf(nt.Time, time.UTC)
	return &d
}

// nullableDate converts an optional date into a query argument.
func nullableDate(d *time.Time) any {
	if d == nil {
		return nil
	}
	return *d
}

// uuidArray renders ids as a PostgreSQL array literal, cast with ::uuid[]
// in the query.
func uuidArray(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}
