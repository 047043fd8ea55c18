package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/store"
)

// SQLiteArtifactStore implements store.ArtifactStore on a SQLite database.
// Payloads are stored as JSON text and timestamps as RFC 3339 text.
type SQLiteArtifactStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.ArtifactStore = (*SQLiteArtifactStore)(nil)

// NewSQLiteArtifactStore creates a store over db. If logger is nil, a default logger will be used.
func NewSQLiteArtifactStore(db store.DBTX, logger *slog.Logger) *SQLiteArtifactStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteArtifactStore{
		db:     db,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

// quote renders an identifier already checked by domain.Collection.Validate
// or taken from a fixed content kind column.
func quote(ident string) string {
	return `"` + ident + `"`
}

// GetArtifact implements store.ArtifactStore.GetArtifact.
func (s *SQLiteArtifactStore) GetArtifact(
	ctx context.Context,
	coll domain.Collection,
	key domain.SourceKey,
	kind domain.ContentKind,
) (*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !kind.Cacheable() {
		return nil, store.ErrArtifactNotFound
	}
	if err := coll.Validate(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE article_number = ?",
		quote(kind.Column()), quote(kind.GeneratedAtColumn()), quote(coll.Table))

	var raw, generatedAt sql.NullString
	if err := s.db.QueryRowContext(ctx, query, key.ArticleNumber).Scan(&raw, &generatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrArtifactNotFound
		}
		log.Error("failed to read artifact",
			slog.String("error", err.Error()),
			slog.String("table", coll.Table),
			slog.String("kind", string(kind)))
		return nil, store.NewStoreError("artifact", "get", "query failed", mapError(err))
	}
	if !raw.Valid {
		return nil, store.ErrArtifactNotFound
	}

	artifact, err := store.DecodeArtifact(key, kind, []byte(raw.String), parseTime(generatedAt))
	if err != nil {
		if !errors.Is(err, store.ErrArtifactNotFound) {
			log.Warn("stored artifact could not be decoded",
				slog.String("error", err.Error()),
				slog.String("table", coll.Table),
				slog.String("article_number", key.ArticleNumber))
		}
		return nil, err
	}
	return artifact, nil
}

// SaveArtifact implements store.ArtifactStore.SaveArtifact.
func (s *SQLiteArtifactStore) SaveArtifact(
	ctx context.Context,
	coll domain.Collection,
	artifact *domain.Artifact,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := store.ValidateArtifact(artifact); err != nil {
		return err
	}
	if err := coll.Validate(); err != nil {
		return err
	}

	data, err := artifact.Payload.MarshalValue()
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	kind := artifact.Payload.Kind
	query := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE article_number = ?",
		quote(coll.Table), quote(kind.Column()), quote(kind.GeneratedAtColumn()))

	result, err := s.db.ExecContext(ctx, query,
		string(data),
		artifact.GeneratedAt.UTC().Format(time.RFC3339Nano),
		artifact.Key.ArticleNumber)
	if err != nil {
		log.Error("failed to save artifact",
			slog.String("error", err.Error()),
			slog.String("table", coll.Table),
			slog.String("kind", string(kind)))
		return store.NewStoreError("artifact", "save", "update failed",
			fmt.Errorf("%w: %w", store.ErrUpdateFailed, mapError(err)))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrArticleNotFound
	}

	log.Info("artifact saved",
		slog.String("table", coll.Table),
		slog.String("article_number", artifact.Key.ArticleNumber),
		slog.String("kind", string(kind)))
	return nil
}

// GetArticleText implements store.ArtifactStore.GetArticleText.
func (s *SQLiteArtifactStore) GetArticleText(
	ctx context.Context,
	coll domain.Collection,
	articleNumber string,
) (string, error) {
	if err := coll.Validate(); err != nil {
		return "", err
	}

	query := fmt.Sprintf("SELECT article_text FROM %s WHERE article_number = ?", quote(coll.Table))

	var text sql.NullString
	if err := s.db.QueryRowContext(ctx, query, articleNumber).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrArticleNotFound
		}
		return "", store.NewStoreError("article", "get", "query failed", mapError(err))
	}
	return text.String, nil
}

// parseTime reads a stored timestamp. Unparseable or missing values yield
// the zero time rather than failing the lookup.
func parseTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// mapError maps driver errors onto store errors. The driver reports schema
// problems as generic SQLITE_ERROR, so the message is inspected.
func mapError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") {
		return fmt.Errorf("%w: %v", store.ErrSchemaMismatch, err)
	}
	return err
}
