package product

import (
	"fmt"
	"strings"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	DefaultOrderBy = "id"
	DefaultOrder   = "desc"
)

// ListFilter mirrors the query string of GET /products. OrderBy is handed to
// storage without validation.
type ListFilter struct {
	PerPage int    `form:"perPage"`
	Page    int    `form:"page"`
	Search  string `form:"search"`
	OrderBy string `form:"orderBy"`
	Order   string `form:"order"`
}

func (f ListFilter) WithDefaults() ListFilter {
	return f.WithLimit(MaxPerPage)
}

// WithLimit fills the defaults and caps PerPage at maxPerPage. A
// non-positive maxPerPage means MaxPerPage.
func (f ListFilter) WithLimit(maxPerPage int) ListFilter {
	if maxPerPage <= 0 {
		maxPerPage = MaxPerPage
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.OrderBy == "" {
		f.OrderBy = DefaultOrderBy
	}
	if f.Order == "" {
		f.Order = DefaultOrder
	}
	return f
}

func (f ListFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// ParseOrder returns the SQL keyword for a sort direction.
func ParseOrder(order string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "asc":
		return "ASC", nil
	case "desc":
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: order must be asc or desc, got %q", ErrInvalidFilter, order)
	}
}

type Page struct {
	Items       []Product `json:"data"`
	Total       int       `json:"total"`
	PerPage     int       `json:"perPage"`
	CurrentPage int       `json:"currentPage"`
	LastPage    int       `json:"lastPage"`
}

func NewPage(items []Product, total int, f ListFilter) Page {
	if items == nil {
		items = []Product{}
	}

	lastPage := 1
	if f.PerPage > 0 && total > 0 {
		lastPage = (total + f.PerPage - 1) / f.PerPage
	}

	return Page{
		Items:       items,
		Total:       total,
		PerPage:     f.PerPage,
		CurrentPage: f.Page,
		LastPage:    lastPage,
	}
}
