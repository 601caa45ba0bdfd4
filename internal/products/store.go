// Package products holds the catalog's product store: listing, CRUD, slug
// generation and the lifecycle of each product's stored image.
package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/catalog/internal/cache"
	"github.com/geocoder89/catalog/internal/domain/product"
	"github.com/geocoder89/catalog/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Repository is the relational side of the store. Update and Delete report
// false when no row was touched.
type Repository interface {
	List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error)
	GetByID(ctx context.Context, id int64) (product.Product, error)
	Create(ctx context.Context, p product.Product) (product.Product, error)
	Update(ctx context.Context, p product.Product) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// FileStorage holds image files by name. Store must fail with an error
// wrapping fs.ErrExist rather than replace a file that is already there.
type FileStorage interface {
	Store(ctx context.Context, data []byte, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) error
}

type Store struct {
	repo   Repository
	files  FileStorage
	log    *slog.Logger
	prom   *observability.Prom
	tracer trace.Tracer
	now    func() time.Time

	maxPerPage int

	// nil unless WithCache is given
	pages *cache.Cache[product.Page]
	items *cache.Cache[product.Product]

	// gen is bumped by every invalidation. A read only caches its result
	// when no write landed while it was talking to the repository.
	mu  sync.Mutex
	gen uint64
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithProm(p *observability.Prom) Option {
	return func(s *Store) { s.prom = p }
}

// WithMaxPerPage caps the page size List serves.
func WithMaxPerPage(n int) Option {
	return func(s *Store) { s.maxPerPage = n }
}

// WithCache keeps list pages and single products in memory for ttl. Every
// write through the store drops the affected entries.
func WithCache(ttl time.Duration) Option {
	return func(s *Store) {
		s.pages = cache.New[product.Page](ttl)
		s.items = cache.New[product.Product](ttl)
	}
}

func NewStore(repo Repository, files FileStorage, log *slog.Logger, opts ...Option) *Store {
	if log == nil {
		log = slog.Default()
	}

	s := &Store{
		repo:   repo,
		files:  files,
		log:    log,
		tracer: otel.Tracer("github.com/geocoder89/catalog/internal/products"),
		now:    time.Now,

		maxPerPage: product.MaxPerPage,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) List(ctx context.Context, f product.ListFilter) (product.Page, error) {
	ctx, span := s.tracer.Start(ctx, "products.List")
	defer span.End()

	f = f.WithLimit(s.maxPerPage)

	order, err := product.ParseOrder(f.Order)
	if err != nil {
		return product.Page{}, s.fail(span, err)
	}
	f.Order = order

	span.SetAttributes(
		attribute.Int("filter.per_page", f.PerPage),
		attribute.Int("filter.page", f.Page),
		attribute.String("filter.order_by", f.OrderBy),
		attribute.String("filter.order", f.Order),
		attribute.Bool("filter.search", f.Search != ""),
	)

	key := listCacheKey(f)
	if s.pages != nil {
		if page, ok := s.pages.Get(key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return page, nil
		}
	}

	gen := s.generation()

	items, total, err := s.repo.List(ctx, f)
	if err != nil {
		return product.Page{}, s.fail(span, persistence("list products", err))
	}

	page := product.NewPage(items, total, f)
	if s.pages != nil {
		s.cacheIfCurrent(gen, func() { s.pages.Set(key, page) })
	}

	return page, nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "products.GetByID", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if s.items != nil {
		if p, ok := s.items.Get(itemCacheKey(id)); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return p, nil
		}
	}

	gen := s.generation()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return product.Product{}, s.fail(span, persistence("get product", err))
	}

	if s.items != nil {
		s.cacheIfCurrent(gen, func() { s.items.Set(itemCacheKey(id), p) })
	}

	return p, nil
}

func (s *Store) Create(ctx context.Context, in product.CreateInput, ownerID string) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "products.Create")
	defer span.End()

	p := product.Product{
		Title:  in.Title,
		Slug:   in.Slug,
		Price:  in.Price,
		UserID: ownerID,
	}

	if p.Slug == "" {
		p.Slug = product.MakeSlug(p.Title, s.now())
	}

	if in.Image != nil {
		name, err := s.uploadImage(ctx, *in.Image)
		if err != nil {
			return product.Product{}, s.fail(span, err)
		}
		p.Image = &name
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		if p.Image != nil {
			s.deleteImage(ctx, 0, *p.Image)
		}
		return product.Product{}, s.fail(span, persistence("create product", err))
	}

	span.SetAttributes(attribute.Int64("product.id", created.ID))
	s.invalidate(0)

	return created, nil
}

func (s *Store) Update(ctx context.Context, id int64, in product.UpdateInput) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "products.Update", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return product.Product{}, s.fail(span, persistence("get product", err))
	}

	next := existing

	if in.Title != nil {
		next.Title = *in.Title
	}
	if in.Price != nil {
		next.Price = *in.Price
	}

	if in.Slug != nil && *in.Slug != "" {
		next.Slug = *in.Slug
	} else {
		next.Slug = product.MakeSlug(next.Title, s.now())
	}

	// The old image is only removed once the row points at the new one, so a
	// failed write leaves the product exactly as it was.
	var uploaded *string
	if in.Image != nil {
		name, err := s.uploadImage(ctx, *in.Image)
		if err != nil {
			s.invalidate(id)
			return product.Product{}, s.fail(span, err)
		}
		uploaded = &name
		next.Image = &name
	}

	applied, err := s.repo.Update(ctx, next)
	if err == nil && !applied {
		err = fmt.Errorf("%w: update of product %d did not apply", product.ErrPersistence, id)
	}
	if err != nil {
		if uploaded != nil {
			s.deleteImage(ctx, id, *uploaded)
		}
		s.invalidate(id)
		return product.Product{}, s.fail(span, persistence("update product", err))
	}

	if uploaded != nil && existing.Image != nil && *existing.Image != *uploaded {
		s.deleteImage(ctx, id, *existing.Image)
	}

	s.invalidate(id)

	refreshed, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return product.Product{}, s.fail(span, persistence("reload product", err))
	}

	return refreshed, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (product.Product, error) {
	ctx, span := s.tracer.Start(ctx, "products.Delete", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return product.Product{}, s.fail(span, persistence("get product", err))
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err == nil && !deleted {
		err = fmt.Errorf("%w: product %d could not be deleted", product.ErrPersistence, id)
	}
	if err != nil {
		s.invalidate(id)
		return product.Product{}, s.fail(span, persistence("delete product", err))
	}

	// the row is gone first so a failed delete never leaves it pointing at a
	// missing file
	if existing.Image != nil {
		s.deleteImage(ctx, id, *existing.Image)
	}

	s.invalidate(id)

	return existing, nil
}

// invalidate drops every cached page and, for id > 0, the cached product.
func (s *Store) invalidate(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.pages != nil {
		s.pages.Clear()
	}
	if s.items != nil && id > 0 {
		s.items.Delete(itemCacheKey(id))
	}
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// cacheIfCurrent runs set only if no invalidation happened since gen was read.
func (s *Store) cacheIfCurrent(gen uint64, set func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen == gen {
		set()
	}
}

func (s *Store) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// persistence keeps the domain errors callers branch on and folds everything
// else into ErrPersistence.
func persistence(op string, err error) error {
	switch {
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, product.ErrDuplicateSlug),
		errors.Is(err, product.ErrPersistence),
		errors.Is(err, product.ErrInvalidFilter):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", product.ErrPersistence, op, err)
	}
}
