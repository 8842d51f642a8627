package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Meta describes one page of a listing response.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func newMeta(page, limit int, total int64) Meta {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// parsePagination reads page/limit query parameters, clamping them to
// sane bounds. Invalid values fall back to defaults rather than
// erroring.
func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = defaultPageSize
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page = n
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func offsetFor(page, limit int) int {
	return (page - 1) * limit
}
