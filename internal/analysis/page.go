package analysis

import (
	"math"
	"strings"

	"github.com/kurihiro0119/github-skill-analytics/internal/storage"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// ListQuery is a page request with an optional case-insensitive search term
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// Page is one page of a listing
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func (q ListQuery) normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// offset saturates at math.MaxInt for pages past the addressable range
func (q ListQuery) offset() int {
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

func (q ListQuery) storageOptions() storage.ListOptions {
	return storage.ListOptions{Search: q.Search, Limit: q.Limit, Offset: q.offset()}
}

// matches reports whether any field contains the search term
func (q ListQuery) matches(fields ...string) bool {
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func newPage[T any](items []T, total int, q ListQuery) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: (total + q.Limit - 1) / q.Limit,
	}
}

// pageOf slices an in-memory listing
func pageOf[T any](all []T, q ListQuery) *Page[T] {
	start := min(q.offset(), len(all))
	end := start + min(q.Limit, len(all)-start)
	return newPage(all[start:end], len(all), q)
}
