package store

// MaxPage is the highest page index accepted. It keeps Offset far from
// integer overflow for any sane page size.
const MaxPage = 1_000_000

// PageRequest selects a zero-based page of results.
type PageRequest struct {
	Page int
	Size int
}

// Offset is the number of rows skipped before the page starts.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// NewPageRequest normalizes a client-supplied page index and size. Negative
// pages become 0 and pages past MaxPage are clamped to it. Sizes below 1 fall
// back to defaultSize and sizes above maxSize are clamped.
func NewPageRequest(page, size, defaultSize, maxSize int) PageRequest {
	if page < 0 {
		page = 0
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return PageRequest{Page: page, Size: size}
}

// Page is one page of a listing together with totals for the whole listing.
type Page[T any] struct {
	Items      []T
	Page       int
	Size       int
	TotalItems int64
	TotalPages int
}

// NewPage assembles a Page. A nil items slice is replaced with an empty one.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Items:      items,
		Page:       req.Page,
		Size:       req.Size,
		TotalItems: total,
		TotalPages: pages,
	}
}
