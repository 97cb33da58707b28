package postgres

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/pkg/database"
)

// migrationLockID serializes concurrent migrators on the same database
const migrationLockID = 7_160_310

// Migrate applies the pending migrations of fsys in one transaction and
// returns how many were applied
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *zap.Logger) (int, error) {
	migrations, err := database.LoadMigrations(fsys)
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}

	count := 0
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return fmt.Errorf("failed to take migration lock: %w", err)
		}

		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`)
		if err != nil {
			return fmt.Errorf("failed to create migrations table: %w", err)
		}

		rows, err := tx.Query(ctx, `SELECT version FROM schema_migrations`)
		if err != nil {
			return fmt.Errorf("failed to get applied migrations: %w", err)
		}
		versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
		if err != nil {
			return fmt.Errorf("failed to get applied migrations: %w", err)
		}
		applied := make(map[int]bool, len(versions))
		for _, v := range versions {
			applied[v] = true
		}

		for _, migration := range migrations {
			if applied[migration.Version] {
				continue
			}

			logger.Info("Applying migration",
				zap.Int("version", migration.Version),
				zap.String("name", migration.Name))

			if _, err := tx.Exec(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				migration.Version, migration.Name); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Database migrations completed", zap.Int("applied", count))
	return count, nil
}
