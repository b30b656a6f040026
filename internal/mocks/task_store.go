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

// MockTaskStore implements store.TaskStore in memory.
type MockTaskStore struct {
	CreateFn                func(ctx context.Context, task *domain.Task) error
	GetByIDFn               func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	DeleteFn                func(ctx context.Context, id uuid.UUID) error
	MarkCompletedFn         func(ctx context.Context, id uuid.UUID, completedOn time.Time) error
	DeleteCompletedBeforeFn func(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error)
	// FindErr, when set, fails every listing.
	FindErr error

	mu    sync.Mutex
	Tasks map[uuid.UUID]*domain.Task
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{Tasks: make(map[uuid.UUID]*domain.Task)}
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	c.CategoryIDs = append([]uuid.UUID{}, t.CategoryIDs...)
	c.Categories = append([]domain.Category(nil), t.Categories...)
	return &c
}

// Put stores a copy of task, bypassing validation.
func (m *MockTaskStore) Put(task *domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks[task.ID] = copyTask(task)
}

// Get returns a copy of the stored task, or nil.
func (m *MockTaskStore) Get(id uuid.UUID) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Tasks[id]; ok {
		return copyTask(t)
	}
	return nil
}

// Len returns the number of stored tasks.
func (m *MockTaskStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Tasks)
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.Tasks[task.ID] = copyTask(task)
	return nil
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if t := m.Get(id); t != nil {
		return t, nil
	}
	return nil, store.ErrTaskNotFound
}

// GetForUpdate implements store.TaskStore. The mock takes no lock.
func (m *MockTaskStore) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.GetByID(ctx, id)
}

// Delete implements store.TaskStore.
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	return nil
}

// MarkCompleted implements store.TaskStore.
func (m *MockTaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, completedOn time.Time) error {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, id, completedOn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.Complete(completedOn)
	return nil
}

// FindDueAtOrBefore implements store.TaskStore.
func (m *MockTaskStore) FindDueAtOrBefore(
	ctx context.Context,
	userID uuid.UUID,
	date time.Time,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return m.find(userID, page, func(t *domain.Task) bool {
		return !t.Completed && t.ExpiresOn != nil && !t.ExpiresOn.After(date)
	})
}

// FindIncompleteByUser implements store.TaskStore.
func (m *MockTaskStore) FindIncompleteByUser(
	ctx context.Context,
	userID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return m.find(userID, page, func(t *domain.Task) bool { return !t.Completed })
}

// FindCompleteByUser implements store.TaskStore.
func (m *MockTaskStore) FindCompleteByUser(
	ctx context.Context,
	userID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return m.find(userID, page, func(t *domain.Task) bool { return t.Completed })
}

// FindAllByUser implements store.TaskStore.
func (m *MockTaskStore) FindAllByUser(
	ctx context.Context,
	userID uuid.UUID,
	page store.PageRequest,
) (store.Page[domain.Task], error) {
	return m.find(userID, page, func(*domain.Task) bool { return true })
}

// DeleteCompletedBefore implements store.TaskStore.
func (m *MockTaskStore) DeleteCompletedBefore(ctx context.Context, userID uuid.UUID, cutoff time.Time) (int64, error) {
	if m.DeleteCompletedBeforeFn != nil {
		return m.DeleteCompletedBeforeFn(ctx, userID, cutoff)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, t := range m.Tasks {
		if t.UserID == userID && t.Completed && t.CompletedOn.Before(cutoff) {
			delete(m.Tasks, id)
			n++
		}
	}
	return n, nil
}

// WithTx implements store.TaskStore.
func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore { return m }

// find filters, orders (expiration desc with nulls last, then creation desc)
// and pages the caller's tasks.
func (m *MockTaskStore) find(
	userID uuid.UUID,
	page store.PageRequest,
	keep func(*domain.Task) bool,
) (store.Page[domain.Task], error) {
	if m.FindErr != nil {
		return store.Page[domain.Task]{}, m.FindErr
	}

	m.mu.Lock()
	var matched []domain.Task
	for _, t := range m.Tasks {
		if t.UserID == userID && keep(t) {
			matched = append(matched, *copyTask(t))
		}
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch {
		case a.ExpiresOn == nil && b.ExpiresOn != nil:
			return false
		case a.ExpiresOn != nil && b.ExpiresOn == nil:
			return true
		case a.ExpiresOn != nil && !a.ExpiresOn.Equal(*b.ExpiresOn):
			return a.ExpiresOn.After(*b.ExpiresOn)
		case !a.CreatedOn.Equal(b.CreatedOn):
			return a.CreatedOn.After(b.CreatedOn)
		}
		return a.ID.String() < b.ID.String()
	})

	total := int64(len(matched))
	start := page.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + page.Size
	if page.Size <= 0 || end > len(matched) {
		end = len(matched)
	}
	return store.NewPage(matched[start:end], page, total), nil
}
