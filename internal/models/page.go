package models

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Sort fields accepted for playlist listings.
const (
	SortCreatedAt = "createdAt"
	SortName      = "name"
	SortID        = "id"
)

// PageRequest selects one page of a listing. Page is zero based.
type PageRequest struct {
	Page int
	Size int
	Sort string
	Desc bool
}

// NewPageRequest normalizes raw paging input. Out of range values fall back
// to defaults; unknown sort fields fall back to createdAt.
func NewPageRequest(page, size int, sort, direction string) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page > MaxPage(size) {
		page = MaxPage(size)
	}
	switch sort {
	case SortCreatedAt, SortName, SortID:
	default:
		sort = SortCreatedAt
	}
	return PageRequest{
		Page: page,
		Size: size,
		Sort: sort,
		Desc: !strings.EqualFold(direction, "asc"),
	}
}

// MaxPage is the highest page number whose offset fits in an int for the
// given page size.
func MaxPage(size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	return math.MaxInt/size - 1
}

// DefaultPage is the first page with default size and ordering.
func DefaultPage() PageRequest {
	return NewPageRequest(0, DefaultPageSize, SortCreatedAt, "desc")
}

// Offset is the number of rows skipped before this page.
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Direction returns "asc" or "desc".
func (r PageRequest) Direction() string {
	if r.Desc {
		return "desc"
	}
	return "asc"
}

// Page is one slice of a paged listing.
type Page[T any] struct {
	Content       []T   `json:"content"`
	PageNumber    int   `json:"pageNumber"`
	PageSize      int   `json:"pageSize"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
}

// NewPage assembles a page from its content and the total row count.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		PageNumber:    req.Page,
		PageSize:      req.Size,
		TotalElements: total,
		TotalPages:    totalPages,
		Last:          req.Page >= totalPages-1,
	}
}
