package product_test

import (
	"errors"
	"testing"

	"github.com/geocoder89/catalog/internal/domain/product"
)

func TestListFilter_WithDefaults(t *testing.T) {
	got := product.ListFilter{}.WithDefaults()

	want := product.ListFilter{PerPage: 10, Page: 1, Search: "", OrderBy: "id", Order: "desc"}
	if got != want {
		t.Fatalf("defaults = %+v, want %+v", got, want)
	}

	custom := product.ListFilter{PerPage: 500, Page: 3, Search: "  foo ", OrderBy: "title", Order: "asc"}.WithDefaults()
	if custom.PerPage != product.MaxPerPage {
		t.Fatalf("perPage should be capped at %d, got %d", product.MaxPerPage, custom.PerPage)
	}
	if custom.Search != "foo" || custom.OrderBy != "title" || custom.Order != "asc" || custom.Page != 3 {
		t.Fatalf("custom values not kept: %+v", custom)
	}
	if custom.Offset() != 200 {
		t.Fatalf("offset = %d, want 200", custom.Offset())
	}
}

func TestListFilter_WithLimit(t *testing.T) {
	tests := []struct {
		name  string
		in    int
		limit int
		want  int
	}{
		{name: "raised cap", in: 250, limit: 500, want: 250},
		{name: "lowered cap", in: 40, limit: 25, want: 25},
		{name: "zero falls back", in: 500, limit: 0, want: product.MaxPerPage},
		{name: "default perPage", in: 0, limit: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := product.ListFilter{PerPage: tt.in}.WithLimit(tt.limit)
			if got.PerPage != tt.want {
				t.Fatalf("perPage = %d, want %d", got.PerPage, tt.want)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "asc", want: "ASC"},
		{in: "DESC", want: "DESC"},
		{in: " Asc ", want: "ASC"},
		{in: "sideways", wantErr: true},
		{in: "desc; drop table products", wantErr: true},
	}

	for _, tt := range tests {
		got, err := product.ParseOrder(tt.in)
		if tt.wantErr {
			if !errors.Is(err, product.ErrInvalidFilter) {
				t.Fatalf("ParseOrder(%q) err = %v, want ErrInvalidFilter", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseOrder(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	f := product.ListFilter{PerPage: 10, Page: 2}

	page := product.NewPage(nil, 21, f)
	if page.LastPage != 3 {
		t.Fatalf("lastPage = %d, want 3", page.LastPage)
	}
	if page.Items == nil {
		t.Fatalf("items should never be nil")
	}
	if page.CurrentPage != 2 || page.PerPage != 10 || page.Total != 21 {
		t.Fatalf("unexpected page metadata: %+v", page)
	}

	empty := product.NewPage(nil, 0, f)
	if empty.LastPage != 1 {
		t.Fatalf("empty lastPage = %d, want 1", empty.LastPage)
	}
}
