package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/store"
)

const userColumns = `id, email, hashed_password, role, points, last_streak_date, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if user.HashedPassword == "" {
		return domain.NewValidationError("password", "must be hashed before storing", domain.ErrEmptyPassword)
	}
	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.HashedPassword,
		string(user.Role),
		user.Points,
		nullableDate(user.LastStreakDate),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		mapped := MapError(err, nil)
		if store.IsDuplicateError(mapped) {
			log.Warn("attempted to create user with existing email",
				slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return mapped
	}

	// The plaintext password must not outlive registration.
	user.Password = ""

	log.Info("user created successfully",
		slog.String("user_id", user.ID.String()),
		slog.String("role", string(user.Role)))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err, store.ErrUserNotFound)
		if !store.IsNotFoundError(mapped) {
			log.Error("failed to get user by ID",
				slog.String("error", err.Error()),
				slog.String("user_id", id.String()))
		}
		return nil, mapped
	}
	return user, nil
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		mapped := MapError(err, store.ErrUserNotFound)
		if !store.IsNotFoundError(mapped) {
			log.Error("failed to get user by email", slog.String("error", err.Error()))
		}
		return nil, mapped
	}
	return user, nil
}

// List implements store.UserStore.List
func (s *PostgresUserStore) List(ctx context.Context, page store.PageRequest) (store.Page[domain.User], error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		log.Error("failed to count users", slog.String("error", err.Error()))
		return store.Page[domain.User]{}, MapError(err, nil)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		log.Error("failed to list users", slog.String("error", err.Error()))
		return store.Page[domain.User]{}, MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return store.Page[domain.User]{}, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return store.Page[domain.User]{}, err
	}

	return store.NewPage(users, page, total), nil
}

// Delete implements store.UserStore.Delete
// Tasks and their category links go with the user through ON DELETE CASCADE.
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err, store.ErrUserNotFound)
	}
	if err := checkRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted successfully", slog.String("user_id", id.String()))
	return nil
}

// AwardStreakPoint implements store.UserStore.AwardStreakPoint
func (s *PostgresUserStore) AwardStreakPoint(
	ctx context.Context,
	userID uuid.UUID,
	today time.Time,
	cutoff *time.Time,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET points = CASE
				WHEN last_streak_date IS NULL
					OR ($3::date IS NOT NULL AND last_streak_date <= $3::date) THEN 1
				ELSE points + 1
			END,
			last_streak_date = $2,
			updated_at = NOW()
		WHERE id = $1
			AND (last_streak_date IS NULL OR last_streak_date <> $2)
	`
	result, err := s.db.ExecContext(ctx, query, userID, today, nullableDate(cutoff))
	if err != nil {
		log.Error("failed to award streak point",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return false, MapError(err, store.ErrUserNotFound)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n > 0 {
		log.Debug("streak point awarded",
			slog.String("user_id", userID.String()),
			slog.String("date", today.Format(domain.DateLayout)))
		return true, nil
	}

	// Nothing changed: either the streak already covers today or the user is gone.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).
		Scan(&exists); err != nil {
		return false, MapError(err, nil)
	}
	if !exists {
		return false, store.ErrUserNotFound
	}
	return false, nil
}

// ResetPointsIfDecayed implements store.UserStore.ResetPointsIfDecayed
func (s *PostgresUserStore) ResetPointsIfDecayed(ctx context.Context, userID uuid.UUID, cutoff time.Time) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET points = 0, updated_at = NOW()
		WHERE id = $1
			AND points <> 0
			AND (last_streak_date IS NULL OR last_streak_date <= $2)
	`
	result, err := s.db.ExecContext(ctx, query, userID, cutoff)
	if err != nil {
		log.Error("failed to reset decayed streak",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return MapError(err, nil)
	}

	if n, _ := result.RowsAffected(); n > 0 {
		log.Info("streak decayed, points reset", slog.String("user_id", userID.String()))
	}
	return nil
}

// FindUsersWithPendingTasksDueBy implements store.UserStore.FindUsersWithPendingTasksDueBy
func (s *PostgresUserStore) FindUsersWithPendingTasksDueBy(
	ctx context.Context,
	horizon time.Time,
) ([]store.UserWithTasks, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT u.id, u.email, u.role, u.points, u.last_streak_date,
			t.id, t.name, t.description, t.created_on, t.expiration_date
		FROM users u
		JOIN tasks t ON t.user_id = u.id
		WHERE NOT t.completed AND t.expiration_date = $1
		ORDER BY u.id, t.id
	`
	rows, err := s.db.QueryContext(ctx, query, horizon)
	if err != nil {
		log.Error("failed to query users with pending tasks",
			slog.String("error", err.Error()),
			slog.String("horizon", horizon.Format(domain.DateLayout)))
		return nil, MapError(err, nil)
	}
	defer func() { _ = rows.Close() }()

	var result []store.UserWithTasks
	for rows.Next() {
		var u domain.User
		var role string
		var lastStreak, expiresOn sql.NullTime
		var t domain.Task

		if err := rows.Scan(
			&u.ID, &u.Email, &role, &u.Points, &lastStreak,
			&t.ID, &t.Name, &t.Description, &t.CreatedOn, &expiresOn,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending task row: %w", err)
		}
		u.Role = domain.Role(role)
		u.LastStreakDate = datePtr(lastStreak)
		t.UserID = u.ID
		t.CreatedOn = domain.DateOf(t.CreatedOn, time.UTC)
		t.ExpiresOn = datePtr(expiresOn)

		// Rows arrive grouped by user.
		if n := len(result); n == 0 || result[n-1].User.ID != u.ID {
			result = append(result, store.UserWithTasks{User: u})
		}
		last := &result[len(result)-1]
		last.Tasks = append(last.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("found users with pending tasks",
		slog.String("horizon", horizon.Format(domain.DateLayout)),
		slog.Int("users", len(result)))
	return result, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var role string
	var lastStreak sql.NullTime

	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&role,
		&u.Points,
		&lastStreak,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.Role = domain.Role(role)
	u.LastStreakDate = datePtr(lastStreak)
	return &u, nil
}
