package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/store"
)

// PostgresArtifactStore implements the store.ArtifactStore interface
// using a PostgreSQL database as the storage backend.
type PostgresArtifactStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresArtifactStore creates a new PostgreSQL implementation of the ArtifactStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresArtifactStore(db store.DBTX, logger *slog.Logger) *PostgresArtifactStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresArtifactStore{
		db:     db,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

// Ensure PostgresArtifactStore implements store.ArtifactStore interface
var _ store.ArtifactStore = (*PostgresArtifactStore)(nil)

// GetArtifact implements store.ArtifactStore.GetArtifact.
func (s *PostgresArtifactStore) GetArtifact(
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

	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s WHERE article_number = $1",
		pgx.Identifier{kind.Column()}.Sanitize(),
		pgx.Identifier{kind.GeneratedAtColumn()}.Sanitize(),
		pgx.Identifier{coll.Table}.Sanitize(),
	)

	var (
		raw         []byte
		generatedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, key.ArticleNumber).Scan(&raw, &generatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("article row not found",
				slog.String("table", coll.Table),
				slog.String("article_number", key.ArticleNumber))
			return nil, store.ErrArtifactNotFound
		}
		log.Error("failed to read artifact",
			slog.String("error", err.Error()),
			slog.String("table", coll.Table),
			slog.String("kind", string(kind)))
		return nil, store.NewStoreError("artifact", "get", "query failed", MapError(err))
	}

	artifact, err := store.DecodeArtifact(key, kind, raw, generatedAt.Time)
	if err != nil {
		if !errors.Is(err, store.ErrArtifactNotFound) {
			log.Warn("stored artifact could not be decoded",
				slog.String("error", err.Error()),
				slog.String("table", coll.Table),
				slog.String("article_number", key.ArticleNumber),
				slog.String("kind", string(kind)))
		}
		return nil, err
	}

	log.Debug("artifact retrieved",
		slog.String("table", coll.Table),
		slog.String("article_number", key.ArticleNumber),
		slog.String("kind", string(kind)))
	return artifact, nil
}

// SaveArtifact implements store.ArtifactStore.SaveArtifact.
// It only updates existing rows; a missing article yields store.ErrArticleNotFound.
func (s *PostgresArtifactStore) SaveArtifact(
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
	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1, %s = $2 WHERE article_number = $3",
		pgx.Identifier{coll.Table}.Sanitize(),
		pgx.Identifier{kind.Column()}.Sanitize(),
		pgx.Identifier{kind.GeneratedAtColumn()}.Sanitize(),
	)

	result, err := s.db.ExecContext(ctx, query, string(data), artifact.GeneratedAt, artifact.Key.ArticleNumber)
	if err != nil {
		log.Error("failed to save artifact",
			slog.String("error", err.Error()),
			slog.String("table", coll.Table),
			slog.String("kind", string(kind)))
		return store.NewStoreError("artifact", "save", "update failed",
			fmt.Errorf("%w: %w", store.ErrUpdateFailed, MapError(err)))
	}

	if err := CheckRowsAffected(result, store.ErrArticleNotFound); err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			log.Debug("no row to update",
				slog.String("table", coll.Table),
				slog.String("article_number", artifact.Key.ArticleNumber))
		}
		return err
	}

	log.Info("artifact saved",
		slog.String("table", coll.Table),
		slog.String("article_number", artifact.Key.ArticleNumber),
		slog.String("kind", string(kind)),
		slog.Int("items", artifact.Payload.Len()))
	return nil
}

// GetArticleText implements store.ArtifactStore.GetArticleText.
func (s *PostgresArtifactStore) GetArticleText(
	ctx context.Context,
	coll domain.Collection,
	articleNumber string,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := coll.Validate(); err != nil {
		return "", err
	}

	query := fmt.Sprintf(
		"SELECT article_text FROM %s WHERE article_number = $1",
		pgx.Identifier{coll.Table}.Sanitize(),
	)

	var text sql.NullString
	if err := s.db.QueryRowContext(ctx, query, articleNumber).Scan(&text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrArticleNotFound
		}
		log.Error("failed to read article text",
			slog.String("error", err.Error()),
			slog.String("table", coll.Table),
			slog.String("article_number", articleNumber))
		return "", store.NewStoreError("article", "get", "query failed", MapError(err))
	}

	return text.String, nil
}
