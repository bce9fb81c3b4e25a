// Command migrate applies the SQL files under migrations/ in order, once
// each, tracked in a schema_migrations table.
package main

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/pressdesk/pressdesk/internal/app"
	"github.com/pressdesk/pressdesk/internal/platform/db"
	"github.com/pressdesk/pressdesk/migrations"
)

func main() {
	ctx := context.Background()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		logger.Error("init schema_migrations", slog.Any("error", err))
		os.Exit(1)
	}

	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		logger.Error("read migrations", slog.Any("error", err))
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		done, err := apply(ctx, pool, name)
		if err != nil {
			logger.Error("apply migration", slog.String("name", name), slog.Any("error", err))
			os.Exit(1)
		}
		if done {
			logger.Info("applied migration", slog.String("name", name))
			applied++
		}
	}
	logger.Info("migrations complete", slog.Int("applied", applied), slog.Int("total", len(names)))
}

type execer interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// apply runs one migration file inside a transaction, skipping files already
// recorded. Returns whether the file was applied this run.
func apply(ctx context.Context, pool execer, name string) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	sql, err := migrations.FS.ReadFile(name)
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, string(sql)); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}
