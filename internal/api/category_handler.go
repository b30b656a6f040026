package api

import (
	"net/http"

	"github.com/phrazzld/apitask/internal/api/shared"
	"github.com/phrazzld/apitask/internal/service"
)

// CategoryHandler serves the read-only category list.
type CategoryHandler struct {
	categories service.CategoryService
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(categories service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// ListCategories handles GET /api/categories.
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.ListCategories(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list categories")
		return
	}
	resp := make([]CategoryResponse, 0, len(cats))
	for _, c := range cats {
		resp = append(resp, categoryToResponse(c))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}
