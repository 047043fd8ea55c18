package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/platform/postgres"
	"github.com/phrazzld/vademecum-api/internal/platform/sqlite"
	"github.com/phrazzld/vademecum-api/internal/store"
	"github.com/stretchr/testify/require"
)

// Environment variables consulted for the Postgres test database, in order.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTestDBURL   = "VADEMECUM_TEST_DB_URL"
)

// TestTimeout bounds connection checks and migrations.
const TestTimeout = 30 * time.Second

// Dialect selects the placeholder style of seed statements.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// GetTestDatabaseURL returns the Postgres URL for tests, or "" when none is set.
func GetTestDatabaseURL() string {
	for _, name := range []string{EnvDatabaseURL, EnvTestDBURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether Postgres tests should be skipped.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// GetTestDBWithT returns a migrated Postgres connection whose cleanup is
// registered on t. The test is skipped when no database URL is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skipf("%s or %s not set - skipping integration test", EnvDatabaseURL, EnvTestDBURL)
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { CleanupDB(t, db) })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Database ping failed")

	log, _ := logger.NewTestLogger()
	require.NoError(t, postgres.Migrate(ctx, db, log), "Failed to apply migrations")
	return db
}

// OpenSQLiteWithT returns a migrated SQLite database in a temporary
// directory. It is closed when the test ends.
func OpenSQLiteWithT(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "vademecum.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CleanupDB(t, db) })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	log, _ := logger.NewTestLogger()
	require.NoError(t, sqlite.Migrate(ctx, db, log), "Failed to apply migrations")
	return db
}

// CleanupDB closes a database connection, logging any error.
func CleanupDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		t.Logf("Warning: failed to close database connection: %v", err)
	}
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// can write freely without affecting each other.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "Failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// SeedArticle inserts one article row into table.
func SeedArticle(t *testing.T, db store.DBTX, dialect Dialect, table, articleNumber, text string) {
	t.Helper()

	query := `INSERT INTO %s (article_number, article_text) VALUES ($1, $2)`
	if dialect == SQLite {
		query = `INSERT INTO %s (article_number, article_text) VALUES (?, ?)`
	}
	_, err := db.ExecContext(context.Background(), fmt.Sprintf(query, table), articleNumber, text)
	require.NoError(t, err, "Failed to seed article %s/%s", table, articleNumber)
}
