package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/redact"
	"github.com/phrazzld/vademecum-api/internal/store"
	"golang.org/x/sync/singleflight"
)

// DefaultWritebackTimeout bounds a cache writeback once generation has
// succeeded. The writeback outlives the request context so that a client
// disconnect does not discard a paid-for generation.
const DefaultWritebackTimeout = 10 * time.Second

// DefaultGenerationTimeout bounds a shared generation. Joined callers may
// outlive the caller that started it, so it does not inherit that caller's
// cancellation.
const DefaultGenerationTimeout = 60 * time.Second

// GenerateRequest asks for one artifact of one article.
type GenerateRequest struct {
	Kind domain.ContentKind
	// Collection is the short code of the legal code, e.g. "cp". Unknown or
	// empty codes disable caching for the request.
	Collection string
	// ArticleNumber identifies the article within the collection. Without it
	// the request is generated but never cached.
	ArticleNumber string
	// SourceText is the article text. When blank it is loaded from the store.
	SourceText string
}

// GenerateResult is the outcome of GetOrGenerate.
type GenerateResult struct {
	Payload     domain.Payload
	Cached      bool
	GeneratedAt time.Time
}

// ExplainRequest asks for an uncached explanation or summary of a text.
type ExplainRequest struct {
	Kind          domain.ContentKind
	Collection    string
	ArticleNumber string
	SourceText    string
}

// ArtifactService provides the content pipeline operations.
type ArtifactService interface {
	// GetOrGenerate returns the cached artifact for the request, or generates
	// and caches it. Cache failures are absorbed; generation failures are
	// returned.
	GetOrGenerate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// Explain generates an explanation or summary without touching the store.
	Explain(ctx context.Context, req ExplainRequest) (domain.Payload, error)
}

// Option configures an artifact service.
type Option func(*artifactServiceImpl)

// WithWritebackTimeout overrides DefaultWritebackTimeout.
func WithWritebackTimeout(d time.Duration) Option {
	return func(s *artifactServiceImpl) {
		if d > 0 {
			s.writebackTimeout = d
		}
	}
}

// WithGenerationTimeout overrides DefaultGenerationTimeout.
func WithGenerationTimeout(d time.Duration) Option {
	return func(s *artifactServiceImpl) {
		if d > 0 {
			s.generationTimeout = d
		}
	}
}

// artifactServiceImpl implements the ArtifactService interface
type artifactServiceImpl struct {
	store             store.ArtifactStore
	generator         generation.Generator
	collections       *domain.CollectionRegistry
	logger            *slog.Logger
	writebackTimeout  time.Duration
	generationTimeout time.Duration

	// inflight collapses concurrent misses for the same kind and article.
	inflight singleflight.Group
}

// NewArtifactService creates a new ArtifactService.
// It returns an error if any of the required dependencies are nil.
func NewArtifactService(
	artifactStore store.ArtifactStore,
	generator generation.Generator,
	collections *domain.CollectionRegistry,
	logger *slog.Logger,
	opts ...Option,
) (ArtifactService, error) {
	if artifactStore == nil {
		return nil, &ArtifactServiceError{Operation: "create_service", Message: "artifactStore cannot be nil"}
	}
	if generator == nil {
		return nil, &ArtifactServiceError{Operation: "create_service", Message: "generator cannot be nil"}
	}
	if collections == nil {
		return nil, &ArtifactServiceError{Operation: "create_service", Message: "collections cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &artifactServiceImpl{
		store:             artifactStore,
		generator:         generator,
		collections:       collections,
		logger:            logger.With("component", "artifact_service"),
		writebackTimeout:  DefaultWritebackTimeout,
		generationTimeout: DefaultGenerationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// target is the resolved cache location of a request. A zero target means
// the request is not cacheable.
type target struct {
	coll domain.Collection
	key  domain.SourceKey
	ok   bool
}

func (t target) flightKey(kind domain.ContentKind) string {
	return string(kind) + "|" + t.key.String()
}

// resolve maps a collection code and article number onto a cache location.
func (s *artifactServiceImpl) resolve(kind domain.ContentKind, code, articleNumber string) target {
	if !kind.Cacheable() {
		return target{}
	}
	coll, ok := s.collections.Resolve(code)
	if !ok {
		return target{}
	}
	key, err := domain.NewSourceKey(coll.Code, articleNumber)
	if err != nil {
		return target{}
	}
	return target{coll: coll, key: key, ok: true}
}

// GetOrGenerate implements ArtifactService.
func (s *artifactServiceImpl) GetOrGenerate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", generation.ErrUnsupportedKind, req.Kind)
	}

	t := s.resolve(req.Kind, req.Collection, req.ArticleNumber)
	log = log.With(
		slog.String("kind", string(req.Kind)),
		slog.String("collection", req.Collection),
		slog.String("article_number", req.ArticleNumber))

	if t.ok {
		if result, hit := s.lookup(ctx, log, t, req.Kind); hit {
			return result, nil
		}
	} else if req.Kind.Cacheable() {
		log.DebugContext(ctx, "request is not cacheable, skipping lookup and writeback")
	}

	sourceText, err := s.sourceText(ctx, log, t, req.SourceText)
	if err != nil {
		return nil, err
	}

	genReq := generation.Request{
		Kind:          req.Kind,
		SourceText:    sourceText,
		ArticleNumber: strings.TrimSpace(req.ArticleNumber),
	}
	if coll, ok := s.collections.Resolve(req.Collection); ok {
		genReq.CollectionName = coll.Name
	}

	if !t.ok {
		payload, err := s.generate(ctx, log, genReq)
		if err != nil {
			return nil, err
		}
		return &GenerateResult{Payload: payload}, nil
	}

	ch := s.inflight.DoChan(t.flightKey(req.Kind), func() (any, error) {
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.generationTimeout)
		defer cancel()

		payload, err := s.generate(gctx, log, genReq)
		if err != nil {
			return nil, err
		}
		generatedAt := s.writeback(ctx, log, t, payload)
		return &GenerateResult{Payload: payload, GeneratedAt: generatedAt}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			log.DebugContext(ctx, "joined in-flight generation")
		}
		result := *res.Val.(*GenerateResult)
		return &result, nil
	}
}

// lookup reads the cache. Every failure is logged and reported as a miss.
func (s *artifactServiceImpl) lookup(
	ctx context.Context,
	log *slog.Logger,
	t target,
	kind domain.ContentKind,
) (*GenerateResult, bool) {
	artifact, err := s.store.GetArtifact(ctx, t.coll, t.key, kind)
	switch {
	case err == nil && artifact != nil && !artifact.Payload.IsEmpty():
		log.InfoContext(ctx, "cache hit")
		return &GenerateResult{Payload: artifact.Payload, Cached: true, GeneratedAt: artifact.GeneratedAt}, true
	case err == nil, errors.Is(err, store.ErrArtifactNotFound):
		log.DebugContext(ctx, "cache miss")
	default:
		log.WarnContext(ctx, "cache lookup failed, treating as miss",
			slog.String("failure", storeFailure(err)),
			slog.String("error", redact.Error(err)))
	}
	return nil, false
}

// sourceText returns the request text, or loads the article text when the
// request carries none.
func (s *artifactServiceImpl) sourceText(ctx context.Context, log *slog.Logger, t target, text string) (string, error) {
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if !t.ok {
		return "", generation.ErrEmptySourceText
	}

	loaded, err := s.store.GetArticleText(ctx, t.coll, t.key.ArticleNumber)
	if err != nil {
		log.WarnContext(ctx, "failed to load article text",
			slog.String("failure", storeFailure(err)),
			slog.String("error", redact.Error(err)))
		return "", fmt.Errorf("%w: article text unavailable", generation.ErrEmptySourceText)
	}
	if strings.TrimSpace(loaded) == "" {
		return "", fmt.Errorf("%w: article has no text", generation.ErrEmptySourceText)
	}
	return loaded, nil
}

func (s *artifactServiceImpl) generate(
	ctx context.Context,
	log *slog.Logger,
	req generation.Request,
) (domain.Payload, error) {
	start := time.Now()
	payload, err := s.generator.Generate(ctx, req)
	if err != nil {
		log.ErrorContext(ctx, "generation failed",
			slog.String("error", redact.Error(err)),
			slog.Duration("elapsed", time.Since(start)))
		return domain.Payload{}, err
	}
	log.InfoContext(ctx, "generation succeeded",
		slog.Int("items", payload.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return payload, nil
}

// writeback stores a generated payload. Empty payloads are skipped and
// failures are logged; neither affects the response. It returns the
// timestamp written, or the zero time when nothing was written.
func (s *artifactServiceImpl) writeback(
	ctx context.Context,
	log *slog.Logger,
	t target,
	payload domain.Payload,
) time.Time {
	if payload.IsEmpty() {
		log.WarnContext(ctx, "generated payload is empty, skipping writeback")
		return time.Time{}
	}

	artifact, err := domain.NewArtifact(t.key, payload)
	if err != nil {
		log.WarnContext(ctx, "generated payload cannot be cached",
			slog.String("error", redact.Error(err)))
		return time.Time{}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writebackTimeout)
	defer cancel()

	if err := s.store.SaveArtifact(wctx, t.coll, artifact); err != nil {
		if errors.Is(err, store.ErrArticleNotFound) {
			log.WarnContext(ctx, "article row missing, artifact not cached")
		} else {
			log.WarnContext(ctx, "cache writeback failed",
				slog.String("failure", storeFailure(err)),
				slog.String("error", redact.Error(err)))
		}
		return time.Time{}
	}

	log.DebugContext(ctx, "artifact cached")
	return artifact.GeneratedAt
}

// Explain implements ArtifactService.
func (s *artifactServiceImpl) Explain(ctx context.Context, req ExplainRequest) (domain.Payload, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("kind", string(req.Kind)),
		slog.String("collection", req.Collection),
		slog.String("article_number", req.ArticleNumber))

	if req.Kind != domain.KindExplanation && req.Kind != domain.KindSummary {
		return domain.Payload{}, fmt.Errorf("%w: %q cannot be explained", generation.ErrUnsupportedKind, req.Kind)
	}
	if strings.TrimSpace(req.SourceText) == "" {
		return domain.Payload{}, generation.ErrEmptySourceText
	}

	genReq := generation.Request{
		Kind:          req.Kind,
		SourceText:    req.SourceText,
		ArticleNumber: strings.TrimSpace(req.ArticleNumber),
	}
	if coll, ok := s.collections.Resolve(req.Collection); ok {
		genReq.CollectionName = coll.Name
	}

	return s.generate(ctx, log, genReq)
}
