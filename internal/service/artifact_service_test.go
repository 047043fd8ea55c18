package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
	"github.com/phrazzld/vademecum-api/internal/mocks"
	"github.com/phrazzld/vademecum-api/internal/platform/gemini"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/genai"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const articleText = "Art. 121. Matar alguém: Pena - reclusão, de seis a vinte anos."

func newRegistry(t *testing.T) *domain.CollectionRegistry {
	t.Helper()
	registry, err := domain.NewCollectionRegistry(domain.DefaultCollections()...)
	require.NoError(t, err)
	return registry
}

func newService(t *testing.T, s store.ArtifactStore, g generation.Generator) ArtifactService {
	t.Helper()
	log, _ := logger.NewTestLogger()
	svc, err := NewArtifactService(s, g, newRegistry(t), log)
	require.NoError(t, err)
	return svc
}

func penalStore() *mocks.MockArtifactStore {
	s := mocks.NewMockArtifactStore()
	s.AddArticle("codigo_penal", "121", articleText)
	return s
}

func flashcardRequest() GenerateRequest {
	return GenerateRequest{
		Kind:          domain.KindFlashcards,
		Collection:    "cp",
		ArticleNumber: "121",
		SourceText:    articleText,
	}
}

func TestGetOrGenerate_CacheHitSkipsGeneration(t *testing.T) {
	t.Parallel()

	s := penalStore()
	cached, err := domain.NewArtifact(domain.SourceKey{Collection: "cp", ArticleNumber: "121"}, mocks.SampleFlashcards())
	require.NoError(t, err)
	s.Put("codigo_penal", cached)

	gen := mocks.NewMockGeneratorWithError(errors.New("must not be called"))
	svc := newService(t, s, gen)

	result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, cached.Payload, result.Payload)
	assert.Equal(t, cached.GeneratedAt, result.GeneratedAt)
	assert.Zero(t, gen.Calls())
}

func TestGetOrGenerate_MissGeneratesThenCaches(t *testing.T) {
	t.Parallel()

	s := penalStore()
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
	svc := newService(t, s, gen)
	ctx := context.Background()

	first, err := svc.GetOrGenerate(ctx, flashcardRequest())
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.False(t, first.GeneratedAt.IsZero())
	assert.Equal(t, mocks.SampleFlashcards().Flashcards, first.Payload.Flashcards)

	stored, ok := s.Stored("codigo_penal", "121", domain.KindFlashcards)
	require.True(t, ok)
	assert.Equal(t, first.Payload, stored.Payload)

	second, err := svc.GetOrGenerate(ctx, flashcardRequest())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Payload, second.Payload)

	assert.Equal(t, 1, gen.Calls(), "second request is served from cache")

	req := gen.Requests()[0]
	assert.Equal(t, "Código Penal", req.CollectionName)
	assert.Equal(t, "121", req.ArticleNumber)
	assert.Equal(t, articleText, req.SourceText)
}

func TestGetOrGenerate_GenerationFailuresAreReturnedAndNeverCached(t *testing.T) {
	t.Parallel()

	failures := map[string]error{
		"rate limited":    generation.ErrRateLimited,
		"quota":           generation.ErrQuotaExceeded,
		"unavailable":     generation.ErrProviderUnavailable,
		"parse failure":   &generation.ParseError{Raw: "```json\n[{\"front\":", Err: errors.New("unexpected end of JSON input")},
		"content blocked": generation.ErrContentBlocked,
	}

	for name, failure := range failures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := penalStore()
			gen := mocks.NewMockGeneratorWithError(failure)
			svc := newService(t, s, gen)

			result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, failure)

			_, saves, _ := s.Counts()
			assert.Zero(t, saves, "failed generations are never written")
			_, ok := s.Stored("codigo_penal", "121", domain.KindFlashcards)
			assert.False(t, ok)
		})
	}
}

// truncatingModel answers every call with text cut off at the token limit.
type truncatingModel struct{ text string }

func (m truncatingModel) GenerateContent(
	context.Context, string, []*genai.Content, *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: m.text}}},
			FinishReason: genai.FinishReasonMaxTokens,
		}},
	}, nil
}

func TestGetOrGenerate_TruncatedExampleIsNeverCached(t *testing.T) {
	t.Parallel()

	prompts, err := generation.LoadPrompts("")
	require.NoError(t, err)
	log, _ := logger.NewTestLogger()
	gen, err := gemini.NewGeneratorWithClient(log,
		truncatingModel{text: "Exemplo: João, com intenção de matar, dispara contra Pedro e"},
		"gemini-test", prompts, 0)
	require.NoError(t, err)

	s := penalStore()
	svc := newService(t, s, gen)

	req := flashcardRequest()
	req.Kind = domain.KindExample
	result, err := svc.GetOrGenerate(context.Background(), req)

	require.ErrorIs(t, err, generation.ErrInvalidResponse)
	assert.Nil(t, result)
	_, saves, _ := s.Counts()
	assert.Zero(t, saves)
	_, ok := s.Stored("codigo_penal", "121", domain.KindExample)
	assert.False(t, ok)
}

func TestGetOrGenerate_RateLimitIsDistinguishable(t *testing.T) {
	t.Parallel()

	svc := newService(t, penalStore(), mocks.NewMockGeneratorWithError(
		errors.Join(generation.ErrRateLimited, errors.New("429 Too Many Requests"))))

	_, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	assert.ErrorIs(t, err, generation.ErrRateLimited)
	assert.ErrorIs(t, err, generation.ErrProviderUnavailable)
	assert.NotErrorIs(t, err, generation.ErrQuotaExceeded)
}

func TestGetOrGenerate_LookupFailureIsAMiss(t *testing.T) {
	t.Parallel()

	s := penalStore()
	s.GetArtifactFn = func(context.Context, domain.Collection, domain.SourceKey, domain.ContentKind) (*domain.Artifact, error) {
		return nil, store.NewStoreError("artifact", "get", "query failed", errors.New("connection refused"))
	}
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleQuiz())
	svc := newService(t, s, gen)

	req := flashcardRequest()
	req.Kind = domain.KindQuiz
	result, err := svc.GetOrGenerate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, gen.Calls())
}

func TestGetOrGenerate_CorruptCacheIsAMiss(t *testing.T) {
	t.Parallel()

	s := penalStore()
	s.GetArtifactFn = func(context.Context, domain.Collection, domain.SourceKey, domain.ContentKind) (*domain.Artifact, error) {
		return nil, store.ErrCorruptArtifact
	}
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
	svc := newService(t, s, gen)

	result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	require.NoError(t, err)
	assert.False(t, result.Cached)
	_, saves, _ := s.Counts()
	assert.Equal(t, 1, saves, "a fresh generation overwrites the corrupt value")
}

func TestGetOrGenerate_WritebackFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	s := &mocks.TestifyMockArtifactStore{}
	s.On("GetArtifact", mock.Anything, mock.Anything, mock.Anything, domain.KindFlashcards).
		Return(nil, store.ErrArtifactNotFound).Once()
	s.On("SaveArtifact", mock.Anything, mock.MatchedBy(func(c domain.Collection) bool {
		return c.Table == "codigo_penal"
	}), mock.AnythingOfType("*domain.Artifact")).
		Return(errors.New("disk full")).Once()

	log, buf := logger.NewTestLogger()
	svc, err := NewArtifactService(s, mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards()), newRegistry(t), log)
	require.NoError(t, err)

	result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.True(t, result.GeneratedAt.IsZero(), "nothing was written")
	assert.Len(t, result.Payload.Flashcards, 2)
	s.AssertExpectations(t)

	entries, err := buf.Entries()
	require.NoError(t, err)
	var warned bool
	for _, e := range entries {
		if e["msg"] == "cache writeback failed" && e["level"] == "WARN" {
			warned = true
			assert.Equal(t, "disk full", e["error"])
			assert.Equal(t, "unavailable", e["failure"])
			assert.Equal(t, "artifact_service", e["component"])
		}
	}
	assert.True(t, warned, "writeback failure is logged")
}

func TestGetOrGenerate_MissingRowIsNotCreated(t *testing.T) {
	t.Parallel()

	s := mocks.NewMockArtifactStore()
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
	svc := newService(t, s, gen)

	result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	require.NoError(t, err)
	assert.Len(t, result.Payload.Flashcards, 2)

	_, ok := s.Stored("codigo_penal", "121", domain.KindFlashcards)
	assert.False(t, ok)
}

func TestGetOrGenerate_EmptyPayloadIsNotCached(t *testing.T) {
	t.Parallel()

	s := penalStore()
	gen := mocks.NewMockGeneratorWithPayload(domain.Payload{Kind: domain.KindFlashcards, Flashcards: []domain.Flashcard{}})
	svc := newService(t, s, gen)

	result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	require.NoError(t, err)
	assert.True(t, result.Payload.IsEmpty())
	assert.False(t, result.Cached)

	_, saves, _ := s.Counts()
	assert.Zero(t, saves)

	again, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
	require.NoError(t, err)
	assert.False(t, again.Cached)
	assert.Equal(t, 2, gen.Calls(), "an empty result is regenerated on the next request")
}

func TestGetOrGenerate_UnknownCollectionGeneratesWithoutCaching(t *testing.T) {
	t.Parallel()

	s := penalStore()
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
	svc := newService(t, s, gen)

	req := flashcardRequest()
	req.Collection = "estatuto_desconhecido"
	result, err := svc.GetOrGenerate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Cached)
	assert.Equal(t, 1, gen.Calls())
	assert.Empty(t, gen.Requests()[0].CollectionName)

	gets, saves, texts := s.Counts()
	assert.Zero(t, gets, "no lookup for unknown collections")
	assert.Zero(t, saves, "no writeback for unknown collections")
	assert.Zero(t, texts)
}

func TestGetOrGenerate_MissingArticleNumberGeneratesWithoutCaching(t *testing.T) {
	t.Parallel()

	s := penalStore()
	gen := mocks.NewMockGeneratorWithPayload(domain.Payload{Text: "Um exemplo."})
	svc := newService(t, s, gen)

	result, err := svc.GetOrGenerate(context.Background(), GenerateRequest{
		Kind:       domain.KindExample,
		Collection: "cp",
		SourceText: articleText,
	})
	require.NoError(t, err)
	assert.Equal(t, "Um exemplo.", result.Payload.Text)
	assert.Equal(t, "Código Penal", gen.Requests()[0].CollectionName)

	gets, saves, _ := s.Counts()
	assert.Zero(t, gets)
	assert.Zero(t, saves)
}

func TestGetOrGenerate_LoadsArticleTextWhenAbsent(t *testing.T) {
	t.Parallel()

	s := penalStore()
	gen := mocks.NewMockGeneratorWithPayload(mocks.SampleFlashcards())
	svc := newService(t, s, gen)

	req := flashcardRequest()
	req.SourceText = "   "
	_, err := svc.GetOrGenerate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, articleText, gen.Requests()[0].SourceText)
}

func TestGetOrGenerate_EmptySourceText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*mocks.MockArtifactStore)
		req   GenerateRequest
	}{
		{
			name: "unknown article",
			req:  GenerateRequest{Kind: domain.KindQuiz, Collection: "cp", ArticleNumber: "999"},
		},
		{
			name:  "blank article text",
			setup: func(s *mocks.MockArtifactStore) { s.AddArticle("codigo_penal", "1", "  ") },
			req:   GenerateRequest{Kind: domain.KindQuiz, Collection: "cp", ArticleNumber: "1"},
		},
		{
			name: "not cacheable and no text",
			req:  GenerateRequest{Kind: domain.KindQuiz, Collection: "xx", ArticleNumber: "1"},
		},
		{
			name: "store failure",
			setup: func(s *mocks.MockArtifactStore) {
				s.GetArticleTextFn = func(context.Context, domain.Collection, string) (string, error) {
					return "", errors.New("timeout")
				}
			},
			req: GenerateRequest{Kind: domain.KindQuiz, Collection: "cp", ArticleNumber: "121"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := penalStore()
			if tc.setup != nil {
				tc.setup(s)
			}
			gen := mocks.NewMockGeneratorWithPayload(mocks.SampleQuiz())
			svc := newService(t, s, gen)

			_, err := svc.GetOrGenerate(context.Background(), tc.req)
			assert.ErrorIs(t, err, generation.ErrEmptySourceText)
			assert.Zero(t, gen.Calls())
		})
	}
}

func TestGetOrGenerate_UncachedKindNeverTouchesStore(t *testing.T) {
	t.Parallel()

	s := penalStore()
	gen := mocks.NewMockGeneratorWithPayload(domain.Payload{Text: "Resumo."})
	svc := newService(t, s, gen)

	result, err := svc.GetOrGenerate(context.Background(), GenerateRequest{
		Kind:          domain.KindSummary,
		Collection:    "cp",
		ArticleNumber: "121",
		SourceText:    articleText,
	})
	require.NoError(t, err)
	assert.Equal(t, "Resumo.", result.Payload.Text)

	gets, saves, texts := s.Counts()
	assert.Zero(t, gets + saves + texts)
}

func TestGetOrGenerate_InvalidKind(t *testing.T) {
	t.Parallel()

	gen := &mocks.MockGenerator{}
	svc := newService(t, penalStore(), gen)

	_, err := svc.GetOrGenerate(context.Background(), GenerateRequest{Kind: "peticao", SourceText: "x"})
	assert.ErrorIs(t, err, generation.ErrUnsupportedKind)
	assert.Zero(t, gen.Calls())
}

func TestGetOrGenerate_ConcurrentMissesShareOneGeneration(t *testing.T) {
	t.Parallel()

	const callers = 8
	s := penalStore()
	release := make(chan struct{})
	gen := &mocks.MockGenerator{
		GenerateFn: func(ctx context.Context, req generation.Request) (domain.Payload, error) {
			<-release
			return mocks.SampleFlashcards(), nil
		},
	}
	svc := newService(t, s, gen)

	var wg sync.WaitGroup
	results := make([]*GenerateResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.GetOrGenerate(context.Background(), flashcardRequest())
		}(i)
	}

	require.Eventually(t, func() bool {
		gets, _, _ := s.Counts()
		return gets == callers && gen.Calls() == 1
	}, 2*time.Second, 5*time.Millisecond)
	// Let the remaining callers reach the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Payload.Flashcards, 2)
	}
	assert.Equal(t, 1, gen.Calls())
	_, saves, _ := s.Counts()
	assert.Equal(t, 1, saves)
}

func TestGetOrGenerate_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	gen := &mocks.MockGenerator{
		GenerateFn: func(ctx context.Context, req generation.Request) (domain.Payload, error) {
			<-release
			return mocks.SampleFlashcards(), nil
		},
	}
	svc := newService(t, penalStore(), gen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetOrGenerate(ctx, flashcardRequest())
		done <- err
	}()

	require.Eventually(t, func() bool { return gen.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	// The in-flight generation still completes and caches.
	require.Eventually(t, func() bool {
		_, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestGetOrGenerate_JoinedCallerSurvivesFirstCallerCancel(t *testing.T) {
	t.Parallel()

	s := penalStore()
	release := make(chan struct{})
	gen := &mocks.MockGenerator{
		GenerateFn: func(ctx context.Context, req generation.Request) (domain.Payload, error) {
			select {
			case <-release:
				return mocks.SampleFlashcards(), nil
			case <-ctx.Done():
				return domain.Payload{}, ctx.Err()
			}
		},
	}
	svc := newService(t, s, gen)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.GetOrGenerate(firstCtx, flashcardRequest())
		first <- err
	}()
	require.Eventually(t, func() bool { return gen.Calls() == 1 }, time.Second, 5*time.Millisecond)

	type outcome struct {
		result *GenerateResult
		err    error
	}
	second := make(chan outcome, 1)
	go func() {
		result, err := svc.GetOrGenerate(context.Background(), flashcardRequest())
		second <- outcome{result, err}
	}()
	require.Eventually(t, func() bool {
		gets, _, _ := s.Counts()
		return gets == 2
	}, time.Second, 5*time.Millisecond)
	// Let the second caller reach the in-flight call.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.result.Payload.Flashcards, 2)
	assert.Equal(t, 1, gen.Calls())
	_, saves, _ := s.Counts()
	assert.Equal(t, 1, saves)
}

func TestGetOrGenerate_SharedGenerationIsBounded(t *testing.T) {
	t.Parallel()

	gen := &mocks.MockGenerator{
		GenerateFn: func(ctx context.Context, req generation.Request) (domain.Payload, error) {
			<-ctx.Done()
			return domain.Payload{}, ctx.Err()
		},
	}
	s := penalStore()
	log, _ := logger.NewTestLogger()
	svc, err := NewArtifactService(s, gen, newRegistry(t), log, WithGenerationTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = svc.GetOrGenerate(context.Background(), flashcardRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, saves, _ := s.Counts()
	assert.Zero(t, saves)
}

func TestExplain(t *testing.T) {
	t.Parallel()

	t.Run("generates without touching the store", func(t *testing.T) {
		t.Parallel()
		s := penalStore()
		gen := mocks.NewMockGeneratorWithPayload(domain.Payload{Text: "Este artigo tipifica o homicídio."})
		svc := newService(t, s, gen)

		payload, err := svc.Explain(context.Background(), ExplainRequest{
			Kind:          domain.KindExplanation,
			Collection:    "cp",
			ArticleNumber: "121",
			SourceText:    articleText,
		})
		require.NoError(t, err)
		assert.Equal(t, "Este artigo tipifica o homicídio.", payload.Text)
		assert.Equal(t, "Código Penal", gen.Requests()[0].CollectionName)

		gets, saves, texts := s.Counts()
		assert.Zero(t, gets + saves + texts)
	})

	t.Run("rejects cacheable kinds", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, penalStore(), &mocks.MockGenerator{})
		_, err := svc.Explain(context.Background(), ExplainRequest{Kind: domain.KindQuiz, SourceText: "x"})
		assert.ErrorIs(t, err, generation.ErrUnsupportedKind)
	})

	t.Run("requires text", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, penalStore(), &mocks.MockGenerator{})
		_, err := svc.Explain(context.Background(), ExplainRequest{Kind: domain.KindSummary, Collection: "cp", ArticleNumber: "121"})
		assert.ErrorIs(t, err, generation.ErrEmptySourceText)
	})

	t.Run("returns provider errors", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, penalStore(), mocks.NewMockGeneratorWithError(generation.ErrQuotaExceeded))
		_, err := svc.Explain(context.Background(), ExplainRequest{Kind: domain.KindSummary, SourceText: "x"})
		assert.ErrorIs(t, err, generation.ErrQuotaExceeded)
	})
}

func TestNewArtifactService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	registry := newRegistry(t)
	s := mocks.NewMockArtifactStore()
	g := &mocks.MockGenerator{}

	_, err := NewArtifactService(nil, g, registry, nil)
	var svcErr *ArtifactServiceError
	assert.True(t, errors.As(err, &svcErr))

	_, err = NewArtifactService(s, nil, registry, nil)
	assert.Error(t, err)

	_, err = NewArtifactService(s, g, nil, nil)
	assert.Error(t, err)

	svc, err := NewArtifactService(s, g, registry, nil, WithWritebackTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, time.Second, svc.(*artifactServiceImpl).writebackTimeout)
}
