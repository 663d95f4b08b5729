package pagination

import (
	"net/http"
	"net/url"
	"strconv"
)

// MaxPageSize caps page_size from callers.
const MaxPageSize = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Offset   int `json:"-"`
}

// DefaultParams returns the first page of 20.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: 20}
}

// FromRequest reads page and page_size (per_page is accepted as an alias).
// Invalid values fall back to the defaults.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = v
	}

	size := q.Get("page_size")
	if size == "" {
		size = q.Get("per_page")
	}
	if v, err := strconv.Atoi(size); err == nil && v > 0 && v <= MaxPageSize {
		p.PageSize = v
	}

	p.Offset = (p.Page - 1) * p.PageSize
	return p
}

// Query writes the params into q using the storefront API's names.
func (p Params) Query(q url.Values) {
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("page_size", strconv.Itoa(p.PageSize))
}

// Result wraps a paginated response.
type Result[T any] struct {
	Items      []T  `json:"items"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result for one page of items.
func NewResult[T any](items []T, totalCount int, params Params) Result[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if params.PageSize > 0 {
		totalPages = (totalCount + params.PageSize - 1) / params.PageSize
	}

	return Result[T]{
		Items:      items,
		TotalCount: totalCount,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Slice pages through an already complete list, for endpoints that return
// every row at once.
func Slice[T any](all []T, params Params) Result[T] {
	start := min(params.Offset, len(all))
	end := min(start+params.PageSize, len(all))
	return NewResult(all[start:end], len(all), params)
}
