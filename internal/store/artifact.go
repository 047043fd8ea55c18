package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/vademecum-api/internal/domain"
)

// ArtifactStore is the persistent cache of generated study content.
//
// Every collection is a separate table (or Firestore collection) keyed by
// article number, holding the article text plus one field per cacheable
// content kind. Implementations never create or delete rows: they read
// fields and conditionally update them.
type ArtifactStore interface {
	// GetArtifact reads the kind's field for key.ArticleNumber in coll.
	// It returns ErrArtifactNotFound when the row is missing or the field
	// is null or empty, and ErrCorruptArtifact when the stored value does
	// not decode for kind.
	GetArtifact(
		ctx context.Context,
		coll domain.Collection,
		key domain.SourceKey,
		kind domain.ContentKind,
	) (*domain.Artifact, error)

	// SaveArtifact overwrites the payload field and its timestamp on the
	// existing row for artifact.Key.ArticleNumber. It returns
	// ErrArticleNotFound when no such row exists.
	SaveArtifact(ctx context.Context, coll domain.Collection, artifact *domain.Artifact) error

	// GetArticleText returns the article's source text. It returns
	// ErrArticleNotFound when no row exists.
	GetArticleText(ctx context.Context, coll domain.Collection, articleNumber string) (string, error)
}

// ValidateArtifact checks an artifact before it is written.
func ValidateArtifact(artifact *domain.Artifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: artifact cannot be nil", ErrInvalidEntity)
	}
	if artifact.Key.ArticleNumber == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, domain.ErrEmptyArticleNumber)
	}
	if !artifact.Payload.Kind.Cacheable() {
		return fmt.Errorf("%w: kind %q is not cacheable", ErrInvalidEntity, artifact.Payload.Kind)
	}
	if err := artifact.Payload.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	if artifact.Payload.IsEmpty() {
		return fmt.Errorf("%w: %w", ErrInvalidEntity, domain.ErrEmptyPayload)
	}
	return nil
}

// DecodeArtifact turns a stored field value into an artifact. Backends call
// it after reading the raw JSON and the generated-at timestamp, which may be
// zero when the column was populated outside this service.
func DecodeArtifact(
	key domain.SourceKey,
	kind domain.ContentKind,
	data []byte,
	generatedAt time.Time,
) (*domain.Artifact, error) {
	payload, err := domain.DecodePayload(kind, data)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyPayload) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}
	return &domain.Artifact{
		Key:         key,
		Payload:     payload,
		GeneratedAt: generatedAt,
	}, nil
}
