package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/domain/streak"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/phrazzld/apitask/internal/store"
)

// CreateTaskInput carries the caller-supplied fields of a new task.
type CreateTaskInput struct {
	Name        string
	Description string
	ExpiresOn   *time.Time
	CategoryIDs []uuid.UUID
}

// CompletionResult is the outcome of ToggleComplete.
type CompletionResult struct {
	Task *domain.Task
	// FirstCompletionToday is true when this completion extended the owner's
	// streak. It is true at most once per user per calendar day.
	FirstCompletionToday bool
	// Points is the owner's point total after the transition.
	Points int
}

// TaskService provides task lifecycle operations. Every operation acts on
// behalf of callerID.
type TaskService interface {
	// CreateTask creates a pending task owned by the caller. Fails with
	// store.ErrCategoryNotFound, persisting nothing, if a category id does
	// not resolve.
	CreateTask(ctx context.Context, callerID uuid.UUID, in CreateTaskInput) (*domain.Task, error)

	// GetTask returns a task owned by the caller.
	GetTask(ctx context.Context, callerID, taskID uuid.UUID) (*domain.Task, error)

	// DeleteTask removes a task owned by the caller.
	DeleteTask(ctx context.Context, callerID, taskID uuid.UUID) error

	// ToggleComplete marks the task completed today and awards the daily
	// streak point on the caller's first completion of the day. Completing an
	// already completed task only re-stamps its completion date.
	ToggleComplete(ctx context.Context, callerID, taskID uuid.UUID) (*CompletionResult, error)

	// PurgeOldCompleted deletes the caller's tasks completed more than
	// retentionDays days ago and returns how many were removed.
	PurgeOldCompleted(ctx context.Context, callerID uuid.UUID, retentionDays int) (int64, error)

	// ListDueTasks lists pending tasks expiring today or earlier.
	ListDueTasks(ctx context.Context, callerID uuid.UUID, page store.PageRequest) (store.Page[domain.Task], error)

	ListPendingTasks(ctx context.Context, callerID uuid.UUID, page store.PageRequest) (store.Page[domain.Task], error)

	ListCompletedTasks(ctx context.Context, callerID uuid.UUID, page store.PageRequest) (store.Page[domain.Task], error)

	ListAllTasks(ctx context.Context, callerID uuid.UUID, page store.PageRequest) (store.Page[domain.Task], error)
}

type taskServiceImpl struct {
	tasks    store.TaskStore
	uow      store.UnitOfWork
	calendar domain.Calendar
	policy   streak.Policy
	logger   *slog.Logger
}

// NewTaskService creates a TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	uow store.UnitOfWork,
	calendar domain.Calendar,
	policy streak.Policy,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if uow == nil {
		return nil, domain.NewValidationError("uow", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:    tasks,
		uow:      uow,
		calendar: calendar,
		policy:   policy,
		logger:   logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	callerID uuid.UUID,
	in CreateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var expiresOn *time.Time
	if in.ExpiresOn != nil {
		d := domain.DateOf(*in.ExpiresOn, time.UTC)
		expiresOn = &d
	}

	task, err := domain.NewTask(callerID, in.Name, in.Description, expiresOn, in.CategoryIDs, s.calendar.Today())
	if err != nil {
		log.Debug("rejected invalid task", slog.String("error", err.Error()))
		return nil, err
	}

	err = s.uow.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		categories, err := repos.Categories.GetByIDs(ctx, task.CategoryIDs)
		if err != nil {
			return err
		}
		task.Categories = categories
		return repos.Tasks.Create(ctx, task)
	})
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			log.Debug("task references unknown category",
				slog.String("user_id", callerID.String()))
		} else {
			log.Error("failed to create task",
				slog.String("error", err.Error()),
				slog.String("user_id", callerID.String()))
		}
		return nil, s.wrap("create", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", callerID.String()),
		slog.Int("category_count", len(task.CategoryIDs)))
	return task, nil
}

// GetTask implements TaskService.GetTask.
func (s *taskServiceImpl) GetTask(ctx context.Context, callerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.ownedTask(ctx, callerID, taskID)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return task, nil
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, callerID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if _, err := s.ownedTask(ctx, callerID, taskID); err != nil {
		return s.wrap("delete", err)
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return s.wrap("delete", err)
	}

	log.Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", callerID.String()))
	return nil
}

// ToggleComplete implements TaskService.ToggleComplete.
// The task row is locked for the duration of the transaction and the streak
// point is awarded by one conditional update, so concurrent completions can
// never award more than one point per day.
func (s *taskServiceImpl) ToggleComplete(
	ctx context.Context,
	callerID, taskID uuid.UUID,
) (*CompletionResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	today := s.calendar.Today()

	var result *CompletionResult
	err := s.uow.RunInTransaction(ctx, func(ctx context.Context, repos store.Repositories) error {
		task, err := repos.Tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.OwnedBy(callerID) {
			return ErrNotOwned
		}

		first := false
		if !task.Completed {
			first, err = repos.Users.AwardStreakPoint(ctx, task.UserID, today, s.policy.ResetCutoff(today))
			if err != nil {
				return fmt.Errorf("award streak point: %w", err)
			}
		}

		task.Complete(today)
		if err := repos.Tasks.MarkCompleted(ctx, task.ID, today); err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}

		owner, err := repos.Users.GetByID(ctx, task.UserID)
		if err != nil {
			return fmt.Errorf("reload owner: %w", err)
		}

		result = &CompletionResult{Task: task, FirstCompletionToday: first, Points: owner.Points}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotOwned) {
			log.Warn("attempt to complete another user's task",
				slog.String("task_id", taskID.String()),
				slog.String("user_id", callerID.String()))
		}
		return nil, s.wrap("toggle_complete", err)
	}

	log.Info("task completed",
		slog.String("task_id", taskID.String()),
		slog.String("user_id", callerID.String()),
		slog.Bool("first_completion_today", result.FirstCompletionToday),
		slog.Int("points", result.Points))
	return result, nil
}

// PurgeOldCompleted implements TaskService.PurgeOldCompleted.
func (s *taskServiceImpl) PurgeOldCompleted(
	ctx context.Context,
	callerID uuid.UUID,
	retentionDays int,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if retentionDays < 0 {
		return 0, domain.NewValidationError("retention_days", "cannot be negative", ErrInvalidRetention)
	}

	cutoff := domain.AddDays(s.calendar.Today(), -retentionDays)
	n, err := s.tasks.DeleteCompletedBefore(ctx, callerID, cutoff)
	if err != nil {
		return 0, s.wrap("purge", err)
	}

	log.Info("purged completed tasks",
		slog.String("user_id", callerID.String()),
		slog.String("cutoff", cutoff.Format(domain.DateLayout)),
		slog.Int64("deleted", n))
	return n, nil
}

// ListDueTasks implements TaskService.ListDueTasks.
func (s *taskServiceImpl) ListDueTasks(
	ctx context.Context,
	callerID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	result, err := s.tasks.FindDueAtOrBefore(ctx, callerID, s.calendar.Today(), page)
	return result, s.wrap("list_due", err)
}

// ListPendingTasks implements TaskService.ListPendingTasks.
func (s *taskServiceImpl) ListPendingTasks(
	ctx context.Context,
	callerID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	result, err := s.tasks.FindIncompleteByUser(ctx, callerID, page)
	return result, s.wrap("list_pending", err)
}

// ListCompletedTasks implements TaskService.ListCompletedTasks.
func (s *taskServiceImpl) ListCompletedTasks(
	ctx context.Context,
	callerID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	result, err := s.tasks.FindCompleteByUser(ctx, callerID, page)
	return result, s.wrap("list_completed", err)
}

// ListAllTasks implements TaskService.ListAllTasks.
func (s *taskServiceImpl) ListAllTasks(
	ctx context.Context,
	callerID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	result, err := s.tasks.FindAllByUser(ctx, callerID, page)
	return result, s.wrap("list_all", err)
}

// ownedTask loads a task and checks the caller owns it.
func (s *taskServiceImpl) ownedTask(ctx context.Context, callerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.OwnedBy(callerID) {
		logger.FromContextOrDefault(ctx, s.logger).Warn("attempt to access another user's task",
			slog.String("task_id", taskID.String()),
			slog.String("user_id", callerID.String()))
		return nil, ErrNotOwned
	}
	return task, nil
}

func (s *taskServiceImpl) wrap(op string, err error) error {
	return wrapUnexpected("task", op, err)
}

// wrapUnexpected passes expected conditions through untouched and wraps
// everything else in a ServiceError.
func wrapUnexpected(service, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, ErrNotOwned),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrForbidden):
		return err
	default:
		return NewServiceError(service, op, err)
	}
}
