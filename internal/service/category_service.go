package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/store"
)

// CategoryService exposes the seeded, read-only categories.
type CategoryService interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type categoryServiceImpl struct {
	categories store.CategoryStore
	logger     *slog.Logger
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categories store.CategoryStore, logger *slog.Logger) (CategoryService, error) {
	if categories == nil {
		return nil, domain.NewValidationError("categories", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &categoryServiceImpl{
		categories: categories,
		logger:     logger.With(slog.String("component", "category_service")),
	}, nil
}

// ListCategories implements CategoryService.ListCategories.
func (s *categoryServiceImpl) ListCategories(ctx context.Context) ([]domain.Category, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, wrapUnexpected("category", "list", err)
	}
	return cats, nil
}
