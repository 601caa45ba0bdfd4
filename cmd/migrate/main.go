package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/geocoder89/catalog/internal/config"
	"github.com/geocoder89/catalog/internal/db"
	"github.com/geocoder89/catalog/internal/observability"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbURL string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or inspect the catalog database schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbURL, "db-url", "", "postgres URL (defaults to DB_* env vars)")

	// withMigrator opens the pool and hands a migrator to fn.
	withMigrator := func(fn func(ctx context.Context, m *db.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := observability.NewLogger(cfg.Env, cfg.LogFile)

			url := cfg.DBURL
			if dbURL != "" {
				url = dbURL
			}

			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, url)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			m, err := db.NewMigrator(pool, log)
			if err != nil {
				return err
			}
			defer m.Close()

			return fn(ctx, m)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator) error {
				return m.Up(ctx)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator) error {
				return m.Down(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator) error {
				return m.Status(ctx)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withMigrator(func(ctx context.Context, m *db.Migrator) error {
				v, err := m.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			}),
		},
	)

	return root
}
