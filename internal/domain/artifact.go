package domain

import "time"

// Artifact is a previously generated piece of study content for one source
// passage. It is written only after a fully parsed generation and is never
// deleted; a later regeneration overwrites it.
type Artifact struct {
	Key         SourceKey
	Payload     Payload
	GeneratedAt time.Time
}

// NewArtifact creates an artifact stamped with the current UTC time.
// It rejects invalid and empty payloads so nothing unusable reaches storage.
func NewArtifact(key SourceKey, payload Payload) (*Artifact, error) {
	if key.ArticleNumber == "" {
		return nil, ErrEmptyArticleNumber
	}
	if !payload.Kind.Cacheable() {
		return nil, NewValidationError("kind", "is not cacheable", ErrUnknownContentKind)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if payload.IsEmpty() {
		return nil, ErrEmptyPayload
	}
	return &Artifact{
		Key:         key,
		Payload:     payload,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
