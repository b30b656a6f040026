package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/api/shared"
	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/domain/streak"
	"github.com/phrazzld/apitask/internal/mocks"
	"github.com/phrazzld/apitask/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var testPaging = PagingConfig{DefaultSize: 10, MaxSize: 50}

// handlerFixture serves the handlers through a chi router backed by real
// services over in-memory stores. The caller identity comes from the
// X-Test-User header instead of a JWT.
type handlerFixture struct {
	tasks      *mocks.MockTaskStore
	users      *mocks.MockUserStore
	categories *mocks.MockCategoryStore
	publisher  *mocks.MockPublisher
	verifier   *mocks.MockPasswordVerifier
	jwt        *mocks.MockJWTService

	taskService service.TaskService
	userService service.UserService

	router http.Handler
	now    time.Time
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		tasks:      mocks.NewMockTaskStore(),
		users:      mocks.NewMockUserStore(),
		categories: mocks.NewMockCategoryStore("Personal", "Work", "Faculty"),
		publisher:  &mocks.MockPublisher{},
		verifier:   &mocks.MockPasswordVerifier{ShouldSucceed: true},
		jwt: &mocks.MockJWTService{
			Token:        "access-token",
			RefreshToken: "refresh-token",
			Lifetime:     time.Hour,
		},
		now: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC),
	}
	f.users.Tasks = f.tasks
	uow := &mocks.MockUnitOfWork{Tasks: f.tasks, Users: f.users, Categories: f.categories}
	calendar := domain.NewCalendar(time.UTC, func() time.Time { return f.now })

	var err error
	f.taskService, err = service.NewTaskService(f.tasks, uow, calendar, streak.Default(), testLogger)
	require.NoError(t, err)
	f.userService, err = service.NewUserService(f.users, f.verifier, f.publisher, calendar, streak.Default(),
		service.UserServiceConfig{BCryptCost: 4, WelcomeTopic: "welcome"}, testLogger)
	require.NoError(t, err)
	categoryService, err := service.NewCategoryService(f.categories, testLogger)
	require.NoError(t, err)

	authHandler := NewAuthHandler(f.userService, f.jwt, testLogger)
	authHandler.now = func() time.Time { return f.now }
	taskHandler := NewTaskHandler(f.taskService, testPaging, 30, testLogger)
	userHandler := NewUserHandler(f.userService, testPaging, testLogger)
	categoryHandler := NewCategoryHandler(categoryService)

	r := chi.NewRouter()
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/login", authHandler.Login)
	r.Post("/auth/refresh", authHandler.RefreshToken)
	r.Group(func(r chi.Router) {
		r.Use(testIdentity)
		r.Get("/categories", categoryHandler.ListCategories)
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListAll)
		r.Get("/tasks/due", taskHandler.ListDue)
		r.Get("/tasks/pending", taskHandler.ListPending)
		r.Get("/tasks/completed", taskHandler.ListCompleted)
		r.Delete("/tasks/completed", taskHandler.PurgeCompleted)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)
		r.Patch("/tasks/{id}/complete", taskHandler.CompleteTask)
		r.Get("/users/me/sequence", userHandler.GetSequence)
		r.Get("/admin/users", userHandler.ListUsers)
		r.Delete("/admin/users/{id}", userHandler.DeleteUser)
	})
	f.router = r
	return f
}

// testIdentity installs the identity named by X-Test-User, if any.
func testIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get("X-Test-User"); raw != "" {
			id := shared.Identity{UserID: uuid.MustParse(raw), Role: domain.RoleUser}
			if r.Header.Get("X-Test-Admin") != "" {
				id.Role = domain.RoleAdmin
			}
			r = r.WithContext(shared.WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (f *handlerFixture) today() time.Time {
	return domain.DateOf(f.now, time.UTC)
}

func (f *handlerFixture) addUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "correct-horse-battery")
	require.NoError(t, err)
	u.Password = ""
	u.HashedPassword = "$2a$04$fixturehash"
	f.users.Put(u)
	return u
}

func (f *handlerFixture) addTask(t *testing.T, owner uuid.UUID, name string, expiresOn *time.Time) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, name, "", expiresOn, nil, f.today())
	require.NoError(t, err)
	f.tasks.Put(task)
	return task
}

// do sends a request as caller (uuid.Nil for anonymous).
func (f *handlerFixture) do(t *testing.T, method, path string, caller uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != uuid.Nil {
		req.Header.Set("X-Test-User", caller.String())
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[shared.ErrorResponse](t, rec).Error
}

func datePtr(t time.Time) *time.Time { return &t }
