package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/vademecum-api/internal/config"
	fsstore "github.com/phrazzld/vademecum-api/internal/platform/firestore"
	"github.com/phrazzld/vademecum-api/internal/platform/postgres"
	"github.com/phrazzld/vademecum-api/internal/platform/sqlite"
	"github.com/phrazzld/vademecum-api/internal/store"
)

// backend is an opened artifact store together with the handles that must be
// closed on shutdown. Exactly one of db and client is set.
type backend struct {
	driver string
	db     *sql.DB
	client *firestore.Client
	store  store.ArtifactStore
}

// Close releases the underlying connection.
func (b *backend) Close() error {
	switch {
	case b.db != nil:
		return b.db.Close()
	case b.client != nil:
		return b.client.Close()
	}
	return nil
}

// openBackend connects to the configured storage driver.
func openBackend(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := setupPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection established", slog.String("driver", cfg.Driver))
		return &backend{
			driver: cfg.Driver,
			db:     db,
			store:  postgres.NewPostgresArtifactStore(db, logger),
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection established",
			slog.String("driver", cfg.Driver),
			slog.String("path", cfg.SQLitePath))
		return &backend{
			driver: cfg.Driver,
			db:     db,
			store:  sqlite.NewSQLiteArtifactStore(db, logger),
		}, nil

	case config.DriverFirestore:
		client, err := fsstore.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreDatabaseID)
		if err != nil {
			return nil, err
		}
		logger.Info("Firestore client created",
			slog.String("project_id", cfg.FirestoreProjectID),
			slog.String("database_id", cfg.FirestoreDatabaseID))
		return &backend{
			driver: cfg.Driver,
			client: client,
			store:  fsstore.NewFirestoreArtifactStore(client, logger),
		}, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// setupPostgres opens the connection pool and verifies it with a ping.
func setupPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
