package models

import (
	"math"
	"testing"
)

func TestNewPageRequestNormalizes(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		sort, dir          string
		wantPage, wantSize int
		wantSort           string
		wantDesc           bool
	}{
		{name: "defaults", page: -1, size: 0, wantSize: DefaultPageSize, wantSort: SortCreatedAt, wantDesc: true},
		{name: "clamps size", page: 2, size: 500, sort: SortName, dir: "ASC", wantPage: 2, wantSize: MaxPageSize, wantSort: SortName},
		{name: "unknown sort", size: 5, sort: "ownerId", dir: "desc", wantSize: 5, wantSort: SortCreatedAt, wantDesc: true},
		{name: "clamps page", page: math.MaxInt, size: 100, wantPage: math.MaxInt/100 - 1, wantSize: 100, wantSort: SortCreatedAt, wantDesc: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewPageRequest(tt.page, tt.size, tt.sort, tt.dir)
			if got.Page != tt.wantPage || got.Size != tt.wantSize || got.Sort != tt.wantSort || got.Desc != tt.wantDesc {
				t.Fatalf("NewPageRequest() = %+v", got)
			}
		})
	}
}

func TestNewPageComputesTotals(t *testing.T) {
	req := NewPageRequest(1, 2, "", "")
	page := NewPage([]int{3, 4}, req, 5)

	if page.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", page.TotalPages)
	}
	if page.Last {
		t.Fatalf("page 1 of 3 should not be last")
	}

	last := NewPage([]int{5}, NewPageRequest(2, 2, "", ""), 5)
	if !last.Last {
		t.Fatalf("page 2 of 3 should be last")
	}

	empty := NewPage[int](nil, DefaultPage(), 0)
	if empty.Content == nil || !empty.Last || empty.TotalPages != 0 {
		t.Fatalf("unexpected empty page: %+v", empty)
	}
}

func TestHugePageKeepsOffsetPositive(t *testing.T) {
	req := NewPageRequest(math.MaxInt/50, 100, "", "")
	if req.Offset() < 0 {
		t.Fatalf("offset overflowed: %d", req.Offset())
	}

	page := NewPage([]int{}, req, 3)
	if !page.Last || page.PageNumber != req.Page {
		t.Fatalf("unexpected page past the end: %+v", page)
	}
}
