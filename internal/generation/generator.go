package generation

import (
	"context"

	"github.com/phrazzld/vademecum-api/internal/domain"
)

// Request carries everything needed to generate one artifact.
type Request struct {
	Kind domain.ContentKind
	// SourceText is the article text the content is derived from.
	SourceText string
	// CollectionName and ArticleNumber are optional context for the prompt.
	CollectionName string
	ArticleNumber  string
}

// Generator defines the interface for generating study content from article
// text. It is the boundary between the pipeline and external AI services.
type Generator interface {
	// Generate builds a prompt for req.Kind, performs exactly one provider
	// call, and returns the parsed payload. It never returns a partial
	// payload: on failure the payload is the zero value and the error wraps
	// one of the sentinels in errors.go.
	Generate(ctx context.Context, req Request) (domain.Payload, error)
}

// Validate checks the request before any provider call is made.
func (r Request) Validate() error {
	if !r.Kind.Valid() {
		return ErrUnsupportedKind
	}
	if isBlank(r.SourceText) {
		return ErrEmptySourceText
	}
	return nil
}
