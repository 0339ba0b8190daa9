// Package pagination implements the cursor scheme shared by the list endpoints.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultLimit applies when the request names no limit.
	DefaultLimit = 50
	// MaxLimit caps the page size; larger requests are clamped, not rejected.
	MaxLimit = 100
)

// Params returns the page limit and cursor from the request query.
// The limit is clamped to [1, MaxLimit].
func Params(r *http.Request) (int32, string) {
	limit := int32(DefaultLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 32); err == nil {
			limit = int32(n)
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, r.URL.Query().Get("cursor")
}

// Page is a single page of results with the cursor for the next one.
// NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Trim builds a page from a limit+1 fetch: when the extra row is present it
// becomes the next cursor and is dropped from the page.
func Trim[T any](items []T, limit int32, cursorOf func(T) string) Page[T] {
	if int32(len(items)) <= limit {
		return Page[T]{Items: items}
	}
	items = items[:limit]
	return Page[T]{Items: items, NextCursor: cursorOf(items[len(items)-1])}
}
