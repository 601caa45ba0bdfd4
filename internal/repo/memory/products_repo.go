package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/catalog/internal/domain/product"
)

// ProductsRepo backs STORE=memory and the tests. It keeps the same contract
// as the postgres repo: unique slugs, ordering by column name, offset paging.
type ProductsRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]product.Product
}

func NewProductsRepo() *ProductsRepo {
	return &ProductsRepo{
		items: make(map[int64]product.Product),
	}
}

var productColumns = map[string]func(a, b product.Product) int{
	"id":         func(a, b product.Product) int { return cmp.Compare(a.ID, b.ID) },
	"title":      func(a, b product.Product) int { return strings.Compare(a.Title, b.Title) },
	"slug":       func(a, b product.Product) int { return strings.Compare(a.Slug, b.Slug) },
	"price":      func(a, b product.Product) int { return cmp.Compare(a.Price, b.Price) },
	"user_id":    func(a, b product.Product) int { return strings.Compare(a.UserID, b.UserID) },
	"created_at": func(a, b product.Product) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b product.Product) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
}

func (r *ProductsRepo) List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error) {
	compare, ok := productColumns[f.OrderBy]
	if !ok {
		return nil, 0, fmt.Errorf("column %q does not exist", f.OrderBy)
	}
	desc := strings.EqualFold(f.Order, "DESC")

	needle := strings.ToLower(f.Search)

	r.mu.RLock()
	matched := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Title), needle) &&
			!strings.Contains(strings.ToLower(p.Slug), needle) {
			continue
		}
		matched = append(matched, p)
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b product.Product) int {
		c := compare(a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})

	total := len(matched)
	start := f.Offset()
	if start >= total {
		return []product.Product{}, total, nil
	}
	end := min(start+f.PerPage, total)

	return matched[start:end], total, nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id int64) (product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return clone(p), nil
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slugTaken(p.Slug, 0) {
		return product.Product{}, product.ErrDuplicateSlug
	}

	now := time.Now().UTC()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now

	r.items[p.ID] = clone(p)

	return clone(p), nil
}

func (r *ProductsRepo) Update(ctx context.Context, p product.Product) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[p.ID]
	if !ok {
		return false, nil
	}

	if r.slugTaken(p.Slug, p.ID) {
		return false, product.ErrDuplicateSlug
	}

	existing.Title = p.Title
	existing.Slug = p.Slug
	existing.Price = p.Price
	existing.Image = p.Image
	existing.UpdatedAt = time.Now().UTC()

	r.items[p.ID] = clone(existing)

	return true, nil
}

func (r *ProductsRepo) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)

	return true, nil
}

// caller holds the lock
func (r *ProductsRepo) slugTaken(slug string, exceptID int64) bool {
	for id, p := range r.items {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func clone(p product.Product) product.Product {
	if p.Image != nil {
		img := *p.Image
		p.Image = &img
	}
	return p
}
