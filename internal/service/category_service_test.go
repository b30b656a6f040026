package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/mocks"
	"github.com/phrazzld/apitask/internal/service"
)

func TestCategoryService_ListCategories(t *testing.T) {
	categories := mocks.NewMockCategoryStore("Personal", "Work", "Faculty")
	svc, err := service.NewCategoryService(categories, testLogger)
	require.NoError(t, err)

	cats, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 3)

	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Personal", "Work", "Faculty"}, names)

	categories.ListFn = func(context.Context) ([]domain.Category, error) {
		return nil, errors.New("timeout")
	}
	_, err = svc.ListCategories(context.Background())
	var serviceErr *service.ServiceError
	assert.True(t, errors.As(err, &serviceErr))
}

func TestNewCategoryService_NilStore(t *testing.T) {
	_, err := service.NewCategoryService(nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
