package mocks

import (
	"context"

	"github.com/phrazzld/apitask/internal/store"
)

// MockUnitOfWork runs the callback directly against its stores. There is no
// rollback: tests relying on atomicity must fail before the first write.
type MockUnitOfWork struct {
	Tasks      store.TaskStore
	Users      store.UserStore
	Categories store.CategoryStore

	// Err, when set, is returned without running the callback.
	Err   error
	Calls int
}

var _ store.UnitOfWork = (*MockUnitOfWork)(nil)

// RunInTransaction implements store.UnitOfWork.
func (m *MockUnitOfWork) RunInTransaction(
	ctx context.Context,
	fn func(ctx context.Context, repos store.Repositories) error,
) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	return fn(ctx, store.Repositories{Tasks: m.Tasks, Users: m.Users, Categories: m.Categories})
}
