// Package postgres provides the PostgreSQL implementation of store.ArtifactStore.
// Each legal collection lives in its own table; the package quotes table
// names with pgx identifiers, maps pgconn error codes onto store errors and
// embeds the goose migrations that create the default collection tables.
package postgres
