package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/apitask/internal/domain"
)

func TestUserHandler_GetSequence(t *testing.T) {
	t.Run("streak still alive", func(t *testing.T) {
		f := newHandlerFixture(t)
		u := f.addUser(t, "ana@example.com")
		u.Points = 3
		u.LastStreakDate = datePtr(domain.AddDays(f.today(), -1))
		f.users.Put(u)

		rec := f.do(t, http.MethodGet, "/users/me/sequence", u.ID, nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[SequenceResponse](t, rec)
		assert.Equal(t, 3, resp.Points)
		require.NotNil(t, resp.LastStreakDate)
		assert.Equal(t, "2025-03-09", *resp.LastStreakDate)
	})

	t.Run("decayed streak reads zero", func(t *testing.T) {
		f := newHandlerFixture(t)
		u := f.addUser(t, "ana@example.com")
		u.Points = 5
		u.LastStreakDate = datePtr(domain.AddDays(f.today(), -2))
		f.users.Put(u)

		rec := f.do(t, http.MethodGet, "/users/me/sequence", u.ID, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[SequenceResponse](t, rec)
		assert.Zero(t, resp.Points)
		require.NotNil(t, resp.LastStreakDate)
		assert.Equal(t, "2025-03-08", *resp.LastStreakDate)
	})

	t.Run("unknown caller", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodGet, "/users/me/sequence", uuid.New(), nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "User not found", errorMessage(t, rec))
	})

	t.Run("anonymous", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.do(t, http.MethodGet, "/users/me/sequence", uuid.Nil, nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Authentication required", errorMessage(t, rec))
	})
}

func TestUserHandler_Admin(t *testing.T) {
	f := newHandlerFixture(t)
	admin := f.addUser(t, "admin@example.com")
	victim := f.addUser(t, "victim@example.com")
	f.addTask(t, victim.ID, "Victim task", nil)

	rec := f.do(t, http.MethodGet, "/admin/users?size=1", admin.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[PageResponse[UserResponse]](t, rec)
	assert.Equal(t, int64(2), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)
	assert.NotContains(t, rec.Body.String(), "fixturehash")

	rec = f.do(t, http.MethodDelete, "/admin/users/"+victim.ID.String(), admin.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, f.users.Users, "victim@example.com")
	assert.Zero(t, f.tasks.Len())

	rec = f.do(t, http.MethodDelete, "/admin/users/"+victim.ID.String(), admin.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/admin/users/bogus", admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryHandler_ListCategories(t *testing.T) {
	t.Run("lists seeded categories", func(t *testing.T) {
		f := newHandlerFixture(t)
		u := f.addUser(t, "ana@example.com")

		rec := f.do(t, http.MethodGet, "/categories", u.ID, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		cats := decode[[]CategoryResponse](t, rec)
		require.Len(t, cats, 3)
		names := []string{cats[0].Name, cats[1].Name, cats[2].Name}
		assert.ElementsMatch(t, []string{"Personal", "Work", "Faculty"}, names)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newHandlerFixture(t)
		f.categories.ListFn = func(context.Context) ([]domain.Category, error) {
			return nil, errors.New("db down")
		}

		rec := f.do(t, http.MethodGet, "/categories", uuid.New(), nil)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to list categories", errorMessage(t, rec))
	})
}
