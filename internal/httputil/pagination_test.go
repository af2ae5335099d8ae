package httputil

import (
	"net/http/httptest"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantPage    int
		wantPerPage int
		wantErr     bool
	}{
		{"defaults", "", 1, DefaultPerPage, false},
		{"explicit values", "page=3&per_page=50", 3, 50, false},
		{"zero page clamps to one", "page=0", 1, DefaultPerPage, false},
		{"negative page clamps to one", "page=-5", 1, DefaultPerPage, false},
		{"per_page above max clamps", "per_page=500", 1, MaxPerPage, false},
		{"per_page below min clamps", "per_page=0", 1, 1, false},
		{"non-integer page rejected", "page=abc", 0, 0, true},
		{"non-integer per_page rejected", "per_page=xyz", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/?"+tt.query, nil)
			p, err := ParsePagination(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePagination() error: %v", err)
			}
			if p.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", p.Page, tt.wantPage)
			}
			if p.PerPage != tt.wantPerPage {
				t.Errorf("per_page = %d, want %d", p.PerPage, tt.wantPerPage)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 95)
	for i := range items {
		items[i] = i
	}

	t.Run("last partial page", func(t *testing.T) {
		page, meta := Paginate(items, Pagination{Page: 5, PerPage: 20})
		if len(page) != 15 {
			t.Errorf("len(page) = %d, want 15", len(page))
		}
		if meta.TotalPages != 5 {
			t.Errorf("total pages = %d, want 5", meta.TotalPages)
		}
		if meta.TotalItems != 95 {
			t.Errorf("total items = %d, want 95", meta.TotalItems)
		}
		if page[0] != 80 {
			t.Errorf("first item = %d, want 80", page[0])
		}
		if !meta.HasPrevious || meta.HasNext {
			t.Errorf("has_previous = %v, has_next = %v, want true and false", meta.HasPrevious, meta.HasNext)
		}
	})

	t.Run("middle page", func(t *testing.T) {
		_, meta := Paginate(items, Pagination{Page: 2, PerPage: 20})
		if !meta.HasPrevious || !meta.HasNext {
			t.Errorf("has_previous = %v, has_next = %v, want both true", meta.HasPrevious, meta.HasNext)
		}
	})

	t.Run("page past the end clamps to last", func(t *testing.T) {
		page, meta := Paginate(items, Pagination{Page: 99, PerPage: 20})
		if meta.Page != 5 {
			t.Errorf("page = %d, want 5", meta.Page)
		}
		if len(page) != 15 {
			t.Errorf("len(page) = %d, want 15", len(page))
		}
	})

	t.Run("empty input reports zero pages", func(t *testing.T) {
		page, meta := Paginate([]int{}, Pagination{Page: 1, PerPage: 20})
		if len(page) != 0 {
			t.Errorf("len(page) = %d, want 0", len(page))
		}
		if meta.TotalPages != 0 {
			t.Errorf("total pages = %d, want 0", meta.TotalPages)
		}
		if meta.Page != 1 {
			t.Errorf("page = %d, want requested page left as-is", meta.Page)
		}
		if meta.HasPrevious || meta.HasNext {
			t.Error("empty input should have neither previous nor next")
		}
	})
}
