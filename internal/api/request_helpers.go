package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/apitask/internal/api/shared"
	"github.com/phrazzld/apitask/internal/domain"
	"github.com/phrazzld/apitask/internal/store"
)

// PagingConfig bounds client-requested page sizes.
type PagingConfig struct {
	DefaultSize int
	MaxSize     int
}

// requireIdentity returns the authenticated caller, writing a 401 when the
// auth middleware did not run.
func requireIdentity(w http.ResponseWriter, r *http.Request) (shared.Identity, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return shared.Identity{}, false
	}
	return id, true
}

// getPathUUID parses the UUID path parameter paramName.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrInvalidID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// handleIdentityAndPathUUID combines requireIdentity and getPathUUID,
// writing the error response itself when either fails.
func handleIdentityAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
) (shared.Identity, uuid.UUID, bool) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return shared.Identity{}, uuid.Nil, false
	}
	pathID, err := getPathUUID(r, paramName)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return shared.Identity{}, uuid.Nil, false
	}
	return id, pathID, true
}

// pageRequest reads the zero-based "page" and "size" query parameters.
func pageRequest(r *http.Request, cfg PagingConfig) (store.PageRequest, error) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), "page")
	if err != nil {
		return store.PageRequest{}, err
	}
	if page > store.MaxPage {
		return store.PageRequest{}, domain.NewValidationError("page", "is too large", domain.ErrValidation)
	}
	size, err := intParam(q.Get("size"), "size")
	if err != nil {
		return store.PageRequest{}, err
	}
	return store.NewPageRequest(page, size, cfg.DefaultSize, cfg.MaxSize), nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer", domain.ErrValidation)
	}
	return n, nil
}
