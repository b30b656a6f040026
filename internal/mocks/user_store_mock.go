package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/store"
)

// TestifyMockUserStore is a mock of store.UserStore for use with testify/mock.
type TestifyMockUserStore struct {
	mock.Mock
}

var _ store.UserStore = (*TestifyMockUserStore)(nil)

func userResult(args mock.Arguments) (*domain.User, error) {
	if user, ok := args.Get(0).(*domain.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// Create is a mock implementation of store.UserStore.Create
func (m *TestifyMockUserStore) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

// GetByID is a mock implementation of store.UserStore.GetByID
func (m *TestifyMockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return userResult(m.Called(ctx, id))
}

// GetByEmail is a mock implementation of store.UserStore.GetByEmail
func (m *TestifyMockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return userResult(m.Called(ctx, email))
}

// List is a mock implementation of store.UserStore.List
func (m *TestifyMockUserStore) List(ctx context.Context, page store.PageRequest) (store.Page[domain.User], error) {
	args := m.Called(ctx, page)
	p, _ := args.Get(0).(store.Page[domain.User])
	return p, args.Error(1)
}

// Delete is a mock implementation of store.UserStore.Delete
func (m *TestifyMockUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// AwardStreakPoint is a mock implementation of store.UserStore.AwardStreakPoint
func (m *TestifyMockUserStore) AwardStreakPoint(
	ctx context.Context,
	userID uuid.UUID,
	today time.Time,
	cutoff *time.Time,
) (bool, error) {
	args := m.Called(ctx, userID, today, cutoff)
	return args.Bool(0), args.Error(1)
}

// ResetPointsIfDecayed is a mock implementation of store.UserStore.ResetPointsIfDecayed
func (m *TestifyMockUserStore) ResetPointsIfDecayed(ctx context.Context, userID uuid.UUID, cutoff time.Time) error {
	return m.Called(ctx, userID, cutoff).Error(0)
}

// FindUsersWithPendingTasksDueBy is a mock implementation of store.UserStore.FindUsersWithPendingTasksDueBy
func (m *TestifyMockUserStore) FindUsersWithPendingTasksDueBy(
	ctx context.Context,
	horizon time.Time,
) ([]store.UserWithTasks, error) {
	args := m.Called(ctx, horizon)
	users, _ := args.Get(0).([]store.UserWithTasks)
	return users, args.Error(1)
}

// WithTx is a mock implementation of store.UserStore.WithTx
func (m *TestifyMockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	args := m.Called(tx)
	if ret, ok := args.Get(0).(store.UserStore); ok {
		return ret
	}
	return m
}
