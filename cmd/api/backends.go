package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/config"
	"github.com/geocoder89/catalog/internal/db"
	"github.com/geocoder89/catalog/internal/http/handlers"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/geocoder89/catalog/internal/products"
	"github.com/geocoder89/catalog/internal/redisclient"
	"github.com/geocoder89/catalog/internal/repo/memory"
	"github.com/geocoder89/catalog/internal/repo/postgres"
	"github.com/geocoder89/catalog/internal/repo/redisrepo"
	"github.com/geocoder89/catalog/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userStore interface {
	auth.UserStore
	db.UserCreator
}

type backends struct {
	users    userStore
	products products.Repository
	tokens   auth.TokenStore

	// nil when the token store expires records itself
	purger  worker.TokenPurger
	ready   map[string]handlers.Pinger
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, log *slog.Logger, prom *observability.Prom) (*backends, error) {
	b := &backends{ready: map[string]handlers.Pinger{}}

	if cfg.NeedsPostgres() {
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.ready["postgres"] = pool.Ping

		if cfg.MigrateOnStart {
			if err := migrate(ctx, pool, log); err != nil {
				b.close()
				return nil, err
			}
		}

		if cfg.Store == config.StorePostgres {
			b.users = postgres.NewUsersRepo(pool, prom)
			b.products = postgres.NewProductsRepo(pool, prom)
		}
		if cfg.TokenStore == config.StorePostgres {
			tokens := postgres.NewAuthTokensRepo(pool, prom)
			b.tokens, b.purger = tokens, tokens
		}
	}

	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory product and user store, data is lost on restart")
		b.users = memory.NewUsersRepo()
		b.products = memory.NewProductsRepo()
	}

	switch cfg.TokenStore {
	case config.StoreRedis:
		rc, err := redisclient.Connect(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			b.close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.closers = append(b.closers, func() { _ = rc.Close() })
		b.ready["redis"] = rc.Ping
		b.tokens = redisrepo.NewAuthTokensRepo(rc.Raw())
	case config.StoreMemory:
		tokens := memory.NewAuthTokensRepo()
		b.tokens, b.purger = tokens, tokens
	}

	return b, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	m, err := db.NewMigrator(pool, log)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
