package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/domain/streak"
	"github.com/phrazzld/apitask/internal/mocks"
	"github.com/phrazzld/apitask/internal/service"
	"github.com/phrazzld/apitask/internal/store"
)

func TestNewTaskService_RequiresDependencies(t *testing.T) {
	_, err := service.NewTaskService(nil, &mocks.MockUnitOfWork{}, domain.NewCalendar(nil, nil), streak.Default(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = service.NewTaskService(mocks.NewMockTaskStore(), nil, domain.NewCalendar(nil, nil), streak.Default(), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending task with categories", func(t *testing.T) {
		f := newFixture(t)
		owner := f.addUser(t, "ana@example.com")
		due := domain.AddDays(f.today(), 1)

		task, err := f.taskService.CreateTask(ctx, owner.ID, service.CreateTaskInput{
			Name:        "  Pay rent ",
			ExpiresOn:   &due,
			CategoryIDs: []uuid.UUID{f.categories.ID("Work")},
		})
		require.NoError(t, err)

		assert.Equal(t, "Pay rent", task.Name)
		assert.Equal(t, owner.ID, task.UserID)
		assert.False(t, task.Completed)
		assert.Nil(t, task.CompletedOn)
		assert.Equal(t, f.today(), task.CreatedOn)
		require.Len(t, task.Categories, 1)
		assert.Equal(t, "Work", task.Categories[0].Name)
		assert.NotNil(t, f.tasks.Get(task.ID))
	})

	t.Run("unknown category persists nothing", func(t *testing.T) {
		f := newFixture(t)
		owner := f.addUser(t, "ana@example.com")

		_, err := f.taskService.CreateTask(ctx, owner.ID, service.CreateTaskInput{
			Name:        "Pay rent",
			CategoryIDs: []uuid.UUID{f.categories.ID("Work"), uuid.New()},
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, err, store.ErrCategoryNotFound)
		assert.Zero(t, f.tasks.Len())
	})

	t.Run("blank name", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.taskService.CreateTask(ctx, uuid.New(), service.CreateTaskInput{Name: "   "})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, f.uow.Calls)
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		f := newFixture(t)
		boom := errors.New("connection reset")
		f.uow.Err = boom

		_, err := f.taskService.CreateTask(ctx, uuid.New(), service.CreateTaskInput{Name: "x"})
		assert.ErrorIs(t, err, boom)
		var serviceErr *service.ServiceError
		assert.True(t, errors.As(err, &serviceErr))
	})
}

func TestTaskService_OwnershipAndExistence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.addUser(t, "owner@example.com")
	intruder := f.addUser(t, "intruder@example.com")
	task := f.addTask(t, owner.ID, "Private", nil)
	before := f.tasks.Get(task.ID)

	ops := map[string]func(caller, id uuid.UUID) error{
		"get": func(caller, id uuid.UUID) error {
			_, err := f.taskService.GetTask(ctx, caller, id)
			return err
		},
		"toggle": func(caller, id uuid.UUID) error {
			_, err := f.taskService.ToggleComplete(ctx, caller, id)
			return err
		},
		"delete": func(caller, id uuid.UUID) error {
			return f.taskService.DeleteTask(ctx, caller, id)
		},
	}

	for name, op := range ops {
		t.Run(name+" foreign task is forbidden", func(t *testing.T) {
			err := op(intruder.ID, task.ID)
			assert.ErrorIs(t, err, service.ErrNotOwned)
			assert.False(t, errors.Is(err, store.ErrNotFound))

			assert.Equal(t, before, f.tasks.Get(task.ID), "task must be unchanged")
			points, last := f.points(t, intruder.ID)
			assert.Zero(t, points)
			assert.Nil(t, last)
		})

		t.Run(name+" missing task is not found", func(t *testing.T) {
			err := op(owner.ID, uuid.New())
			assert.ErrorIs(t, err, store.ErrNotFound)
			assert.False(t, errors.Is(err, service.ErrNotOwned))
		})
	}
}

func TestTaskService_DeleteTask_NotIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.addUser(t, "ana@example.com")
	task := f.addTask(t, owner.ID, "Once", nil)

	require.NoError(t, f.taskService.DeleteTask(ctx, owner.ID, task.ID))
	assert.Nil(t, f.tasks.Get(task.ID))

	err := f.taskService.DeleteTask(ctx, owner.ID, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskService_ToggleComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("first completion of the day scores once", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		tomorrow := domain.AddDays(f.today(), 1)
		a := f.addTask(t, u.ID, "A", &tomorrow)
		b := f.addTask(t, u.ID, "B", nil)

		res, err := f.taskService.ToggleComplete(ctx, u.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, res.FirstCompletionToday)
		assert.Equal(t, 1, res.Points)
		points, last := f.points(t, u.ID)
		assert.Equal(t, 1, points)
		assert.Equal(t, f.today(), *last)

		res, err = f.taskService.ToggleComplete(ctx, u.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, res.FirstCompletionToday)
		assert.Equal(t, 1, res.Points)
	})

	t.Run("N completions on one day gain exactly one point", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		firsts := 0
		for i := 0; i < 5; i++ {
			task := f.addTask(t, u.ID, "task", nil)
			res, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
			require.NoError(t, err)
			if res.FirstCompletionToday {
				firsts++
			}
		}

		points, last := f.points(t, u.ID)
		assert.Equal(t, 1, points)
		assert.Equal(t, f.today(), *last)
		assert.Equal(t, 1, firsts)
	})

	t.Run("completed flag idempotent but date re-stamped", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		task := f.addTask(t, u.ID, "A", nil)

		_, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
		require.NoError(t, err)
		firstDay := f.today()
		assert.Equal(t, firstDay, *f.tasks.Get(task.ID).CompletedOn)

		f.advanceDays(1)
		res, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
		require.NoError(t, err)

		stored := f.tasks.Get(task.ID)
		assert.True(t, stored.Completed)
		assert.Equal(t, f.today(), *stored.CompletedOn)
		assert.NotEqual(t, firstDay, *stored.CompletedOn)
		assert.False(t, res.FirstCompletionToday, "re-completion never scores")

		points, last := f.points(t, u.ID)
		assert.Equal(t, 1, points)
		assert.Equal(t, firstDay, *last)
	})

	t.Run("consecutive days extend the streak", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		for day := 0; day < 3; day++ {
			task := f.addTask(t, u.ID, "daily", nil)
			res, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
			require.NoError(t, err)
			assert.True(t, res.FirstCompletionToday)
			f.advanceDays(1)
		}
		points, _ := f.points(t, u.ID)
		assert.Equal(t, 3, points)
	})

	t.Run("a lapsed streak restarts at one", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		task := f.addTask(t, u.ID, "a", nil)
		_, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
		require.NoError(t, err)

		f.advanceDays(1)
		task = f.addTask(t, u.ID, "b", nil)
		_, err = f.taskService.ToggleComplete(ctx, u.ID, task.ID)
		require.NoError(t, err)

		f.advanceDays(streak.DefaultDecayAfterDays)
		task = f.addTask(t, u.ID, "c", nil)
		res, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
		require.NoError(t, err)
		assert.True(t, res.FirstCompletionToday)
		assert.Equal(t, 1, res.Points)
	})

	t.Run("mark failure surfaces", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		task := f.addTask(t, u.ID, "a", nil)
		boom := errors.New("deadlock detected")
		f.tasks.MarkCompletedFn = func(context.Context, uuid.UUID, time.Time) error { return boom }

		_, err := f.taskService.ToggleComplete(ctx, u.ID, task.ID)
		assert.ErrorIs(t, err, boom)
	})
}

func TestTaskService_PurgeOldCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("retention of thirty days", func(t *testing.T) {
		f := newFixture(t)
		u := f.addUser(t, "u@example.com")
		other := f.addUser(t, "other@example.com")

		old := f.addTask(t, u.ID, "old", nil)
		old.Complete(domain.AddDays(f.today(), -31))
		f.tasks.Put(old)

		recent := f.addTask(t, u.ID, "recent", nil)
		recent.Complete(domain.AddDays(f.today(), -10))
		f.tasks.Put(recent)

		pending := f.addTask(t, u.ID, "pending", nil)

		othersOld := f.addTask(t, other.ID, "someone else's", nil)
		othersOld.Complete(domain.AddDays(f.today(), -60))
		f.tasks.Put(othersOld)

		n, err := f.taskService.PurgeOldCompleted(ctx, u.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		assert.Nil(t, f.tasks.Get(old.ID))
		assert.NotNil(t, f.tasks.Get(recent.ID))
		assert.NotNil(t, f.tasks.Get(pending.ID))
		assert.NotNil(t, f.tasks.Get(othersOld.ID))
	})

	t.Run("nothing to purge", func(t *testing.T) {
		f := newFixture(t)
		n, err := f.taskService.PurgeOldCompleted(ctx, uuid.New(), 30)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("negative retention", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.taskService.PurgeOldCompleted(ctx, uuid.New(), -1)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, service.ErrInvalidRetention)
	})
}

func TestTaskService_Listings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.addUser(t, "u@example.com")
	today := f.today()

	overdue := f.addTask(t, u.ID, "overdue", datePtr(domain.AddDays(today, -2)))
	dueToday := f.addTask(t, u.ID, "today", &today)
	f.addTask(t, u.ID, "later", datePtr(domain.AddDays(today, 5)))
	f.addTask(t, u.ID, "someday", nil)
	done := f.addTask(t, u.ID, "done", &today)
	done.Complete(today)
	f.tasks.Put(done)
	f.addTask(t, uuid.New(), "not mine", &today)

	page := store.PageRequest{Page: 0, Size: 10}

	due, err := f.taskService.ListDueTasks(ctx, u.ID, page)
	require.NoError(t, err)
	require.Len(t, due.Items, 2)
	assert.Equal(t, dueToday.ID, due.Items[0].ID, "latest expiration first")
	assert.Equal(t, overdue.ID, due.Items[1].ID)

	pending, err := f.taskService.ListPendingTasks(ctx, u.ID, page)
	require.NoError(t, err)
	assert.Len(t, pending.Items, 4)
	assert.Equal(t, "someday", pending.Items[3].Name, "no expiration sorts last")

	completed, err := f.taskService.ListCompletedTasks(ctx, u.ID, page)
	require.NoError(t, err)
	require.Len(t, completed.Items, 1)
	assert.Equal(t, done.ID, completed.Items[0].ID)

	all, err := f.taskService.ListAllTasks(ctx, u.ID, store.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), all.TotalItems)
	assert.Equal(t, 3, all.TotalPages)
	assert.Len(t, all.Items, 2)

	f.tasks.FindErr = errors.New("timeout")
	_, err = f.taskService.ListAllTasks(ctx, u.ID, page)
	var serviceErr *service.ServiceError
	assert.True(t, errors.As(err, &serviceErr))
}
