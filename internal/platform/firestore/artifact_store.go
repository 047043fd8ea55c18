package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const articleTextField = "article_text"

// FirestoreArtifactStore implements store.ArtifactStore on a Firestore database.
type FirestoreArtifactStore struct {
	client *firestore.Client
	logger *slog.Logger
}

var _ store.ArtifactStore = (*FirestoreArtifactStore)(nil)

// NewClient connects to the given project and database. An empty databaseID
// selects the default database.
func NewClient(ctx context.Context, projectID, databaseID string) (*firestore.Client, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreArtifactStore creates a store over client. If logger is nil, a default logger will be used.
func NewFirestoreArtifactStore(client *firestore.Client, logger *slog.Logger) *FirestoreArtifactStore {
	if client == nil {
		panic("firestore client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FirestoreArtifactStore{
		client: client,
		logger: logger.With(slog.String("component", "artifact_store")),
	}
}

func (s *FirestoreArtifactStore) doc(coll domain.Collection, articleNumber string) (*firestore.DocumentRef, error) {
	if err := coll.Validate(); err != nil {
		return nil, err
	}
	if !validDocumentID(articleNumber) {
		return nil, store.ErrArticleNotFound
	}
	return s.client.Collection(coll.Table).Doc(articleNumber), nil
}

// GetArtifact implements store.ArtifactStore.GetArtifact.
func (s *FirestoreArtifactStore) GetArtifact(
	ctx context.Context,
	coll domain.Collection,
	key domain.SourceKey,
	kind domain.ContentKind,
) (*domain.Artifact, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !kind.Cacheable() {
		return nil, store.ErrArtifactNotFound
	}
	ref, err := s.doc(coll, key.ArticleNumber)
	if err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			return nil, store.ErrArtifactNotFound
		}
		return nil, err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrArtifactNotFound
		}
		log.Error("failed to read artifact document",
			slog.String("error", err.Error()),
			slog.String("collection", coll.Table),
			slog.String("article_number", key.ArticleNumber))
		return nil, store.NewStoreError("artifact", "get", "document read failed", err)
	}

	data := snap.Data()
	raw, err := encodeField(data[kind.Column()])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrCorruptArtifact, err)
	}

	var generatedAt time.Time
	if ts, ok := data[kind.GeneratedAtColumn()].(time.Time); ok {
		generatedAt = ts
	}

	artifact, err := store.DecodeArtifact(key, kind, raw, generatedAt)
	if err != nil && !errors.Is(err, store.ErrArtifactNotFound) {
		log.Warn("stored artifact could not be decoded",
			slog.String("error", err.Error()),
			slog.String("collection", coll.Table),
			slog.String("article_number", key.ArticleNumber))
	}
	return artifact, err
}

// SaveArtifact implements store.ArtifactStore.SaveArtifact. Firestore's
// Update fails with NotFound for missing documents, which makes the write
// conditional on the article existing.
func (s *FirestoreArtifactStore) SaveArtifact(
	ctx context.Context,
	coll domain.Collection,
	artifact *domain.Artifact,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := store.ValidateArtifact(artifact); err != nil {
		return err
	}
	ref, err := s.doc(coll, artifact.Key.ArticleNumber)
	if err != nil {
		return err
	}

	value, err := decodeField(artifact.Payload)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	kind := artifact.Payload.Kind
	_, err = ref.Update(ctx, []firestore.Update{
		{Path: kind.Column(), Value: value},
		{Path: kind.GeneratedAtColumn(), Value: artifact.GeneratedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return store.ErrArticleNotFound
		}
		log.Error("failed to save artifact",
			slog.String("error", err.Error()),
			slog.String("collection", coll.Table),
			slog.String("kind", string(kind)))
		return store.NewStoreError("artifact", "save", "document update failed",
			fmt.Errorf("%w: %w", store.ErrUpdateFailed, err))
	}

	log.Info("artifact saved",
		slog.String("collection", coll.Table),
		slog.String("article_number", artifact.Key.ArticleNumber),
		slog.String("kind", string(kind)))
	return nil
}

// GetArticleText implements store.ArtifactStore.GetArticleText.
func (s *FirestoreArtifactStore) GetArticleText(
	ctx context.Context,
	coll domain.Collection,
	articleNumber string,
) (string, error) {
	ref, err := s.doc(coll, articleNumber)
	if err != nil {
		return "", err
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", store.ErrArticleNotFound
		}
		return "", store.NewStoreError("article", "get", "document read failed", err)
	}

	text, _ := snap.Data()[articleTextField].(string)
	return text, nil
}

// validDocumentID rejects IDs Firestore cannot address as a single document.
func validDocumentID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.Contains(id, "/") &&
		!(strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"))
}

// encodeField converts a document field back to the JSON stored by SQL
// backends. A missing or null field yields nil.
func encodeField(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// decodeField converts a payload into plain maps, slices and strings keyed
// by the JSON field names, which Firestore stores natively.
func decodeField(p domain.Payload) (any, error) {
	data, err := p.MarshalValue()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
