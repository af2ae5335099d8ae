package httputil

import (
	"errors"
	"net/http"
	"strconv"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is the parsed page window for a request.
type Pagination struct {
	Page    int
	PerPage int
}

// ParsePagination reads page/per_page from the query string. Non-integer
// values are rejected; out-of-range values are clamped.
func ParsePagination(r *http.Request) (Pagination, error) {
	page, err := parseIntParam(r, "page", 1)
	if err != nil {
		return Pagination{}, errors.New("page must be an integer")
	}
	if page < 1 {
		page = 1
	}

	perPage, err := parseIntParam(r, "per_page", DefaultPerPage)
	if err != nil {
		return Pagination{}, errors.New("per_page must be an integer")
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	return Pagination{Page: page, PerPage: perPage}, nil
}

// PageMeta describes the window actually served, echoed back in responses.
type PageMeta struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// Paginate slices items to the requested window. A page past the end is
// clamped to the last page rather than returning an empty result.
func Paginate[T any](items []T, p Pagination) ([]T, PageMeta) {
	meta := MetaFor(p, len(items))

	start := (meta.Page - 1) * p.PerPage
	if start > meta.TotalItems {
		start = meta.TotalItems
	}
	end := start + p.PerPage
	if end > meta.TotalItems {
		end = meta.TotalItems
	}
	return items[start:end], meta
}

// MetaFor builds page metadata for a result of the given total, clamping
// the page to the last one. An empty total reports zero pages and leaves
// the requested page as-is.
func MetaFor(p Pagination, total int) PageMeta {
	totalPages := (total + p.PerPage - 1) / p.PerPage
	page := p.Page
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	return PageMeta{
		Page:        page,
		PerPage:     p.PerPage,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}

func parseIntParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
