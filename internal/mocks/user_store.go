package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/store"
)

// MockUserStore implements store.UserStore in memory.
type MockUserStore struct {
	// Function fields for customizable behavior
	CreateFn                         func(ctx context.Context, user *domain.User) error
	GetByEmailFn                     func(ctx context.Context, email string) (*domain.User, error)
	GetByIDFn                        func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	DeleteFn                         func(ctx context.Context, id uuid.UUID) error
	AwardStreakPointFn               func(ctx context.Context, userID uuid.UUID, today time.Time, cutoff *time.Time) (bool, error)
	ResetPointsIfDecayedFn           func(ctx context.Context, userID uuid.UUID, cutoff time.Time) error
	FindUsersWithPendingTasksDueByFn func(ctx context.Context, horizon time.Time) ([]store.UserWithTasks, error)

	// Tasks backs the default FindUsersWithPendingTasksDueBy.
	Tasks *MockTaskStore

	mu sync.Mutex
	// Users is keyed by email.
	Users      map[string]*domain.User
	LastUserID uuid.UUID
}

var _ store.UserStore = (*MockUserStore)(nil)

// NewMockUserStore creates a new mock store with initialized defaults.
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{Users: make(map[string]*domain.User)}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.LastStreakDate != nil {
		d := *u.LastStreakDate
		c.LastStreakDate = &d
	}
	return &c
}

// Put stores a copy of user, bypassing validation.
func (m *MockUserStore) Put(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users[user.Email] = copyUser(user)
}

func (m *MockUserStore) byID(id uuid.UUID) *domain.User {
	for _, u := range m.Users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// Create implements store.UserStore.
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	if user.HashedPassword == "" {
		return domain.NewValidationError("password", "must be hashed", domain.ErrEmptyPassword)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Users[user.Email]; exists {
		return store.ErrEmailExists
	}
	user.Password = ""
	m.Users[user.Email] = copyUser(user)
	m.LastUserID = user.ID
	return nil
}

// GetByID implements store.UserStore.
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u := m.byID(id); u != nil {
		return copyUser(u), nil
	}
	return nil, store.ErrUserNotFound
}

// GetByEmail implements store.UserStore.
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[email]; ok {
		return copyUser(u), nil
	}
	return nil, store.ErrUserNotFound
}

// List implements store.UserStore, ordered by creation time.
func (m *MockUserStore) List(ctx context.Context, page store.PageRequest) (store.Page[domain.User], error) {
	m.mu.Lock()
	all := make([]domain.User, 0, len(m.Users))
	for _, u := range m.Users {
		all = append(all, *copyUser(u))
	}
	m.mu.Unlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Size
	if page.Size <= 0 || end > len(all) {
		end = len(all)
	}
	return store.NewPage(all[start:end], page, int64(len(all))), nil
}

// Delete implements store.UserStore. Owned tasks in Tasks are removed too.
func (m *MockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID(id)
	if u == nil {
		return store.ErrUserNotFound
	}
	delete(m.Users, u.Email)

	if m.Tasks != nil {
		m.Tasks.mu.Lock()
		for tid, t := range m.Tasks.Tasks {
			if t.UserID == id {
				delete(m.Tasks.Tasks, tid)
			}
		}
		m.Tasks.mu.Unlock()
	}
	return nil
}

// AwardStreakPoint implements store.UserStore with the same rule as the SQL
// implementation: no-op if already awarded today, restart at 1 when the last
// streak date is missing or at or before cutoff, otherwise increment.
func (m *MockUserStore) AwardStreakPoint(
	ctx context.Context,
	userID uuid.UUID,
	today time.Time,
	cutoff *time.Time,
) (bool, error) {
	if m.AwardStreakPointFn != nil {
		return m.AwardStreakPointFn(ctx, userID, today, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID(userID)
	if u == nil {
		return false, store.ErrUserNotFound
	}
	last := u.LastStreakDate
	if last != nil && last.Equal(today) {
		return false, nil
	}
	if last == nil || (cutoff != nil && !last.After(*cutoff)) {
		u.Points = 1
	} else {
		u.Points++
	}
	d := today
	u.LastStreakDate = &d
	return true, nil
}

// ResetPointsIfDecayed implements store.UserStore.
func (m *MockUserStore) ResetPointsIfDecayed(ctx context.Context, userID uuid.UUID, cutoff time.Time) error {
	if m.ResetPointsIfDecayedFn != nil {
		return m.ResetPointsIfDecayedFn(ctx, userID, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID(userID)
	if u == nil {
		return nil
	}
	if u.LastStreakDate == nil || !u.LastStreakDate.After(cutoff) {
		u.Points = 0
	}
	return nil
}

// FindUsersWithPendingTasksDueBy implements store.UserStore over Tasks.
func (m *MockUserStore) FindUsersWithPendingTasksDueBy(
	ctx context.Context,
	horizon time.Time,
) ([]store.UserWithTasks, error) {
	if m.FindUsersWithPendingTasksDueByFn != nil {
		return m.FindUsersWithPendingTasksDueByFn(ctx, horizon)
	}
	if m.Tasks == nil {
		return nil, nil
	}

	m.Tasks.mu.Lock()
	byUser := make(map[uuid.UUID][]domain.Task)
	for _, t := range m.Tasks.Tasks {
		if t.DueForReminder(horizon) {
			byUser[t.UserID] = append(byUser[t.UserID], *copyTask(t))
		}
	}
	m.Tasks.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.UserWithTasks
	for id, tasks := range byUser {
		if u := m.byID(id); u != nil {
			out = append(out, store.UserWithTasks{User: *copyUser(u), Tasks: tasks})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].User.ID.String() < out[j].User.ID.String() })
	return out, nil
}

// WithTx implements store.UserStore.
func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore { return m }
