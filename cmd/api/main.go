package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/catalog/internal/auth"
	"github.com/geocoder89/catalog/internal/config"
	"github.com/geocoder89/catalog/internal/db"
	httpx "github.com/geocoder89/catalog/internal/http"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/geocoder89/catalog/internal/products"
	"github.com/geocoder89/catalog/internal/security"
	"github.com/geocoder89/catalog/internal/storage"
	"github.com/geocoder89/catalog/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, cfg.LogFile)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "catalog-api",
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	b, err := openBackends(ctx, cfg, log, prom)
	if err != nil {
		return err
	}
	defer b.close()

	disk, err := storage.NewDisk(cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("open image storage: %w", err)
	}

	if err := db.EnsureSeedUser(ctx, b.users, cfg, log); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	issuer := auth.NewIssuer(auth.NewManager(cfg.JWTSecret, cfg.TokenTTL), b.tokens)
	authSvc := auth.NewService(b.users, security.Bcrypt{}, issuer)
	storeOpts := []products.Option{products.WithProm(prom), products.WithMaxPerPage(cfg.MaxPerPage)}
	if cfg.ProductCacheTTL > 0 {
		storeOpts = append(storeOpts, products.WithCache(cfg.ProductCacheTTL))
	}
	store := products.NewStore(b.products, disk, log, storeOpts...)

	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Config:   cfg,
		Auth:     authSvc,
		Products: store,
		Prom:     prom,
		Gatherer: prometheus.DefaultGatherer,
		Ready:    b.ready,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"store", cfg.Store,
			"token_store", cfg.TokenStore,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("server shutting down")

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})

	// redis expires its own keys, every other token store gets swept here
	if b.purger != nil && cfg.SweepInterval > 0 {
		sweeper := worker.New(worker.Config{Interval: cfg.SweepInterval}, b.purger, log, prom)
		g.Go(func() error {
			return sweeper.Run(gctx)
		})
	}

	return g.Wait()
}
