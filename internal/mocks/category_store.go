package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/store"
)

// MockCategoryStore implements store.CategoryStore over a fixed list.
type MockCategoryStore struct {
	ListFn     func(ctx context.Context) ([]domain.Category, error)
	GetByIDsFn func(ctx context.Context, ids []uuid.UUID) ([]domain.Category, error)

	Categories []domain.Category
}

var _ store.CategoryStore = (*MockCategoryStore)(nil)

// NewMockCategoryStore creates a store holding the given category names.
func NewMockCategoryStore(names ...string) *MockCategoryStore {
	m := &MockCategoryStore{}
	for _, name := range names {
		m.Categories = append(m.Categories, domain.Category{ID: uuid.New(), Name: name})
	}
	return m
}

// ID returns the id of the category called name, or uuid.Nil.
func (m *MockCategoryStore) ID(name string) uuid.UUID {
	for _, c := range m.Categories {
		if c.Name == name {
			return c.ID
		}
	}
	return uuid.Nil
}

// List implements store.CategoryStore.
func (m *MockCategoryStore) List(ctx context.Context) ([]domain.Category, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return append([]domain.Category{}, m.Categories...), nil
}

// GetByIDs implements store.CategoryStore.
func (m *MockCategoryStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Category, error) {
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ctx, ids)
	}
	out := make([]domain.Category, 0, len(ids))
	for _, id := range ids {
		found := false
		for _, c := range m.Categories {
			if c.ID == id {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			return nil, store.ErrCategoryNotFound
		}
	}
	return out, nil
}

// WithTx implements store.CategoryStore.
func (m *MockCategoryStore) WithTx(*sql.Tx) store.CategoryStore { return m }
