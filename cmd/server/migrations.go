package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/vademecum-api/internal/config"
	"github.com/phrazzld/vademecum-api/internal/platform/postgres"
	"github.com/phrazzld/vademecum-api/internal/platform/sqlite"
	"github.com/pressly/goose/v3"
)

// Migration commands accepted by the -migrate flag.
const (
	migrateUp     = "up"
	migrateStatus = "status"
)

// runMigrationCommand opens the configured backend and runs one migration
// command against it. Firestore is schemaless and has nothing to migrate.
func runMigrationCommand(ctx context.Context, cfg *config.Config, logger *slog.Logger, command string) error {
	if command != migrateUp && command != migrateStatus {
		return fmt.Errorf("unknown migration command %q (want %s or %s)", command, migrateUp, migrateStatus)
	}

	if cfg.Database.Driver == config.DriverFirestore {
		logger.Info("firestore needs no migrations", slog.String("command", command))
		return nil
	}

	b, err := openBackend(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}()

	if command == migrateUp {
		return migrateBackend(ctx, b, logger)
	}
	return logMigrationStatus(ctx, b, logger)
}

// migrateBackend applies pending migrations for SQL backends.
func migrateBackend(ctx context.Context, b *backend, logger *slog.Logger) error {
	switch b.driver {
	case config.DriverPostgres:
		return postgres.Migrate(ctx, b.db, logger)
	case config.DriverSQLite:
		return sqlite.Migrate(ctx, b.db, logger)
	}
	return nil
}

func migrationProvider(b *backend) (*goose.Provider, error) {
	switch b.driver {
	case config.DriverPostgres:
		return postgres.MigrationProvider(b.db)
	case config.DriverSQLite:
		return sqlite.MigrationProvider(b.db)
	}
	return nil, fmt.Errorf("driver %q has no migrations", b.driver)
}

// logMigrationStatus logs the state of every known migration.
func logMigrationStatus(ctx context.Context, b *backend, logger *slog.Logger) error {
	provider, err := migrationProvider(b)
	if err != nil {
		return err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	for _, s := range statuses {
		attrs := []any{
			slog.Int64("version", s.Source.Version),
			slog.String("state", string(s.State)),
		}
		if !s.AppliedAt.IsZero() {
			attrs = append(attrs, slog.Time("applied_at", s.AppliedAt))
		}
		logger.Info("migration status", attrs...)
	}
	return nil
}

// pendingMigrations reports whether any migration is not yet applied.
func pendingMigrations(ctx context.Context, db *sql.DB, driver string) (bool, error) {
	provider, err := migrationProvider(&backend{driver: driver, db: db})
	if err != nil {
		return false, err
	}
	return provider.HasPending(ctx)
}
