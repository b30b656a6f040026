package reminder_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/mocks"
	"github.com/phrazzld/apitask/internal/notify"
	"github.com/phrazzld/apitask/internal/reminder"
	"github.com/phrazzld/apitask/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type scanFixture struct {
	users     *mocks.MockUserStore
	tasks     *mocks.MockTaskStore
	publisher *mocks.MockPublisher
	scanner   *reminder.Scanner
}

// newScanFixture fixes today at 2025-01-01, so the horizon is 2025-01-02.
func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	f := &scanFixture{
		users:     mocks.NewMockUserStore(),
		tasks:     mocks.NewMockTaskStore(),
		publisher: &mocks.MockPublisher{},
	}
	f.users.Tasks = f.tasks

	calendar := domain.NewCalendar(time.UTC, func() time.Time {
		return time.Date(2025, time.January, 1, 23, 30, 0, 0, time.UTC)
	})
	var err error
	f.scanner, err = reminder.NewScanner(f.users, f.publisher, calendar, "reminders", discard)
	require.NoError(t, err)
	return f
}

func (f *scanFixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "correct-horse-battery")
	require.NoError(t, err)
	u.HashedPassword = "hash"
	f.users.Put(u)
	return u
}

func (f *scanFixture) task(t *testing.T, owner uuid.UUID, name string, day int, completed bool) *domain.Task {
	t.Helper()
	expires := domain.NewDate(2025, time.January, day)
	task, err := domain.NewTask(owner, name, "", &expires, nil, domain.NewDate(2024, time.December, 20))
	require.NoError(t, err)
	if completed {
		task.Complete(domain.NewDate(2024, time.December, 31))
	}
	f.tasks.Put(task)
	return task
}

func TestScanner_PublishesOnlyPendingTasksDueOnHorizon(t *testing.T) {
	f := newScanFixture(t)
	u := f.user(t, "ana@example.com")
	c := f.task(t, u.ID, "C", 2, false)
	f.task(t, u.ID, "D", 2, true)
	f.task(t, u.ID, "overdue", 1, false)
	f.task(t, u.ID, "later", 3, false)

	report, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)

	calls := f.publisher.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "reminders", calls[0].Topic)

	env := calls[0].Envelope
	assert.Equal(t, notify.TypeTaskReminder, env.Type)
	assert.Equal(t, "reminder:"+c.ID.String()+":2025-01-02", env.IdempotencyKey)

	var msg notify.ReminderMessage
	require.NoError(t, env.UnmarshalPayload(&msg))
	assert.Equal(t, notify.ReminderMessage{
		RecipientEmail:       "ana@example.com",
		RecipientDisplayName: "ana",
		TaskName:             "C",
		DueDate:              "2025-01-02",
	}, msg)

	assert.Equal(t, domain.NewDate(2025, time.January, 2), report.Horizon)
	assert.Equal(t, 1, report.Users)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Published)
}

func TestScanner_PublishFailureDoesNotAbort(t *testing.T) {
	f := newScanFixture(t)
	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")
	failing := f.task(t, a.ID, "fails", 2, false)
	f.task(t, b.ID, "works", 2, false)

	f.publisher.PublishFn = func(_ context.Context, _ string, env *notify.Envelope) error {
		if env.IdempotencyKey == reminder.ReminderKey(failing.ID, domain.NewDate(2025, time.January, 2)) {
			return errors.New("stream unavailable")
		}
		return nil
	}

	report, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, f.publisher.Calls(), 2)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 1, report.Published)
	assert.Equal(t, 1, report.Failed)
}

func TestScanner_DuplicatesAreSkipped(t *testing.T) {
	f := newScanFixture(t)
	u := f.user(t, "a@example.com")
	f.task(t, u.ID, "C", 2, false)

	inner := notify.NewInMemoryPublisher(discard)
	inner.Subscribe("reminders", notify.HandlerFunc(func(context.Context, *notify.Envelope) error { return nil }))
	f.publisher.PublishFn = inner.Publish

	first, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Published)

	second, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Published)
	assert.Equal(t, 1, second.Skipped)
}

func TestScanner_QueryFailure(t *testing.T) {
	f := newScanFixture(t)
	boom := errors.New("connection reset")
	f.users.FindUsersWithPendingTasksDueByFn = func(context.Context, time.Time) ([]store.UserWithTasks, error) {
		return nil, boom
	}

	_, err := f.scanner.Scan(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.publisher.Calls())
}

func TestScanner_StopsBetweenUsersWhenCancelled(t *testing.T) {
	f := newScanFixture(t)
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := f.user(t, email)
		f.task(t, u.ID, "due", 2, false)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.publisher.PublishFn = func(context.Context, string, *notify.Envelope) error {
		cancel()
		return nil
	}

	report, err := f.scanner.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Published, "the user in progress finishes, the rest are skipped")
	assert.Len(t, f.publisher.Calls(), 1)
}

func TestScanner_FiltersQueryResultsLocally(t *testing.T) {
	f := newScanFixture(t)
	u := f.user(t, "a@example.com")
	horizon := domain.NewDate(2025, time.January, 2)
	later := domain.NewDate(2025, time.January, 5)

	f.users.FindUsersWithPendingTasksDueByFn = func(_ context.Context, got time.Time) ([]store.UserWithTasks, error) {
		assert.Equal(t, horizon, got)
		return []store.UserWithTasks{{
			User: *u,
			Tasks: []domain.Task{
				{ID: uuid.New(), UserID: u.ID, Name: "due", ExpiresOn: &horizon},
				{ID: uuid.New(), UserID: u.ID, Name: "later", ExpiresOn: &later},
				{ID: uuid.New(), UserID: u.ID, Name: "undated"},
			},
		}}, nil
	}

	report, err := f.scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Published)
}

func TestNewScanner_Validation(t *testing.T) {
	cal := domain.NewCalendar(nil, nil)
	_, err := reminder.NewScanner(nil, &mocks.MockPublisher{}, cal, "t", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = reminder.NewScanner(mocks.NewMockUserStore(), nil, cal, "t", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = reminder.NewScanner(mocks.NewMockUserStore(), &mocks.MockPublisher{}, cal, "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
