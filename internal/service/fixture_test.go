package service_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/domain/streak"
	"github.com/phrazzld/apitask/internal/mocks"
	"github.com/phrazzld/apitask/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fixture wires the services to in-memory stores and a controllable clock.
type fixture struct {
	tasks      *mocks.MockTaskStore
	users      *mocks.MockUserStore
	categories *mocks.MockCategoryStore
	uow        *mocks.MockUnitOfWork
	publisher  *mocks.MockPublisher
	verifier   *mocks.MockPasswordVerifier

	taskService service.TaskService
	userService service.UserService

	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks:      mocks.NewMockTaskStore(),
		users:      mocks.NewMockUserStore(),
		categories: mocks.NewMockCategoryStore("Personal", "Work", "Faculty"),
		publisher:  &mocks.MockPublisher{},
		verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
		now:        time.Date(2025, time.January, 1, 15, 0, 0, 0, time.UTC),
	}
	f.users.Tasks = f.tasks
	f.uow = &mocks.MockUnitOfWork{Tasks: f.tasks, Users: f.users, Categories: f.categories}

	calendar := domain.NewCalendar(time.UTC, func() time.Time { return f.now })

	var err error
	f.taskService, err = service.NewTaskService(f.tasks, f.uow, calendar, streak.Default(), testLogger)
	require.NoError(t, err)

	f.userService, err = service.NewUserService(f.users, f.verifier, f.publisher, calendar, streak.Default(),
		service.UserServiceConfig{BCryptCost: 4, WelcomeTopic: "welcome"}, testLogger)
	require.NoError(t, err)

	return f
}

func (f *fixture) today() time.Time {
	return domain.DateOf(f.now, time.UTC)
}

func (f *fixture) advanceDays(n int) {
	f.now = f.now.AddDate(0, 0, n)
}

// addUser stores a user with no points and no streak.
func (f *fixture) addUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "correct-horse-battery")
	require.NoError(t, err)
	u.Password = ""
	u.HashedPassword = "$2a$04$fixturehash"
	f.users.Put(u)
	return u
}

// addTask stores a pending task for owner created today.
func (f *fixture) addTask(t *testing.T, owner uuid.UUID, name string, expiresOn *time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, name, "", expiresOn, nil, f.today())
	require.NoError(t, err)
	f.tasks.Put(task)
	return task
}

func (f *fixture) points(t *testing.T, userID uuid.UUID) (int, *time.Time) {
	t.Helper()
	u := f.userByID(t, userID)
	return u.Points, u.LastStreakDate
}

func (f *fixture) userByID(t *testing.T, userID uuid.UUID) *domain.User {
	t.Helper()
	for _, u := range f.users.Users {
		if u.ID == userID {
			return u
		}
	}
	t.Fatalf("user %s not found", userID)
	return nil
}

func datePtr(t time.Time) *time.Time { return &t }
