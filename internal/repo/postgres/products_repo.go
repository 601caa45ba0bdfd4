package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/catalog/internal/domain/product"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, title, slug, price, image, user_id, created_at, updated_at`

type ProductsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{pool: pool, prom: prom}
}

func (repo *ProductsRepo) observe(op string, fn func() error) error {
	return repo.prom.ObserveDB(op, fn)
}

// List orders by f.OrderBy as a quoted identifier, so an unknown column
// comes back as an undefined_column error rather than being injected.
func (repo *ProductsRepo) List(ctx context.Context, f product.ListFilter) ([]product.Product, int, error) {
	var (
		where string
		args  []any
	)

	if f.Search != "" {
		where = ` WHERE title ILIKE $1 ESCAPE '\' OR slug ILIKE $1 ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}

	var total int
	err := repo.observe("products.count", func() error {
		return repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if strings.EqualFold(f.Order, "ASC") {
		direction = "ASC"
	}

	// stable ordering for pagination
	query := fmt.Sprintf(
		`SELECT %s FROM products%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		productColumns, where,
		pgx.Identifier{f.OrderBy}.Sanitize(), direction, direction,
		len(args)+1, len(args)+2,
	)
	args = append(args, f.PerPage, f.Offset())

	items := make([]product.Product, 0, f.PerPage)

	err = repo.observe("products.list", func() error {
		rows, err := repo.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			items = append(items, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (repo *ProductsRepo) GetByID(ctx context.Context, id int64) (product.Product, error) {
	var p product.Product

	err := repo.observe("products.get_by_id", func() error {
		var err error
		p, err = scanProduct(repo.pool.QueryRow(ctx,
			`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}

	return p, nil
}

func (repo *ProductsRepo) Create(ctx context.Context, in product.Product) (product.Product, error) {
	var p product.Product

	err := repo.observe("products.create", func() error {
		var err error
		p, err = scanProduct(repo.pool.QueryRow(ctx, `
			INSERT INTO products (title, slug, price, image, user_id)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+productColumns,
			in.Title, in.Slug, in.Price, in.Image, in.UserID,
		))
		return err
	})
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return product.Product{}, product.ErrDuplicateSlug
		}
		return product.Product{}, err
	}

	return p, nil
}

// Update writes title, slug, price and image. The owner never changes.
func (repo *ProductsRepo) Update(ctx context.Context, p product.Product) (bool, error) {
	var tag pgconn.CommandTag

	err := repo.observe("products.update", func() error {
		var err error
		tag, err = repo.pool.Exec(ctx, `
			UPDATE products
			SET title = $2, slug = $3, price = $4, image = $5, updated_at = NOW()
			WHERE id = $1`,
			p.ID, p.Title, p.Slug, p.Price, p.Image,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err, "products_slug_key") {
			return false, product.ErrDuplicateSlug
		}
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (repo *ProductsRepo) Delete(ctx context.Context, id int64) (bool, error) {
	var tag pgconn.CommandTag

	err := repo.observe("products.delete", func() error {
		var err error
		tag, err = repo.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		return err
	})
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Price, &p.Image, &p.UserID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}
