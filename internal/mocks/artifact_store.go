package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockArtifactStore is an in-memory store.ArtifactStore. Articles must be
// added with AddArticle before artifacts can be saved for them, matching the
// update-only semantics of the real stores. The Fn fields override behavior.
type MockArtifactStore struct {
	GetArtifactFn    func(ctx context.Context, coll domain.Collection, key domain.SourceKey, kind domain.ContentKind) (*domain.Artifact, error)
	SaveArtifactFn   func(ctx context.Context, coll domain.Collection, artifact *domain.Artifact) error
	GetArticleTextFn func(ctx context.Context, coll domain.Collection, articleNumber string) (string, error)

	mu        sync.Mutex
	articles  map[string]string
	artifacts map[string]*domain.Artifact

	GetCalls  int
	SaveCalls int
	TextCalls int
}

var _ store.ArtifactStore = (*MockArtifactStore)(nil)

// NewMockArtifactStore creates an empty in-memory store.
func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{
		articles:  make(map[string]string),
		artifacts: make(map[string]*domain.Artifact),
	}
}

func rowKey(table, articleNumber string) string {
	return table + "/" + articleNumber
}

func fieldKey(table, articleNumber string, kind domain.ContentKind) string {
	return rowKey(table, articleNumber) + "#" + string(kind)
}

// AddArticle creates the row for an article.
func (m *MockArtifactStore) AddArticle(table, articleNumber, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[rowKey(table, articleNumber)] = text
}

// Put stores an artifact directly, bypassing call counting.
func (m *MockArtifactStore) Put(table string, artifact *domain.Artifact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articles[rowKey(table, artifact.Key.ArticleNumber)]; !ok {
		m.articles[rowKey(table, artifact.Key.ArticleNumber)] = ""
	}
	m.artifacts[fieldKey(table, artifact.Key.ArticleNumber, artifact.Payload.Kind)] = artifact
}

// Stored returns the artifact currently held for the field, if any.
func (m *MockArtifactStore) Stored(table, articleNumber string, kind domain.ContentKind) (*domain.Artifact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[fieldKey(table, articleNumber, kind)]
	return a, ok
}

// Counts returns the number of get, save and article text calls.
func (m *MockArtifactStore) Counts() (gets, saves, texts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetCalls, m.SaveCalls, m.TextCalls
}

// GetArtifact implements store.ArtifactStore.
func (m *MockArtifactStore) GetArtifact(
	ctx context.Context,
	coll domain.Collection,
	key domain.SourceKey,
	kind domain.ContentKind,
) (*domain.Artifact, error) {
	m.mu.Lock()
	m.GetCalls++
	m.mu.Unlock()

	if m.GetArtifactFn != nil {
		return m.GetArtifactFn(ctx, coll, key, kind)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[fieldKey(coll.Table, key.ArticleNumber, kind)]
	if !ok || a.Payload.IsEmpty() {
		return nil, store.ErrArtifactNotFound
	}
	return a, nil
}

// SaveArtifact implements store.ArtifactStore.
func (m *MockArtifactStore) SaveArtifact(ctx context.Context, coll domain.Collection, artifact *domain.Artifact) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()

	if m.SaveArtifactFn != nil {
		return m.SaveArtifactFn(ctx, coll, artifact)
	}
	if err := store.ValidateArtifact(artifact); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articles[rowKey(coll.Table, artifact.Key.ArticleNumber)]; !ok {
		return store.ErrArticleNotFound
	}
	m.artifacts[fieldKey(coll.Table, artifact.Key.ArticleNumber, artifact.Payload.Kind)] = artifact
	return nil
}

// GetArticleText implements store.ArtifactStore.
func (m *MockArtifactStore) GetArticleText(ctx context.Context, coll domain.Collection, articleNumber string) (string, error) {
	m.mu.Lock()
	m.TextCalls++
	m.mu.Unlock()

	if m.GetArticleTextFn != nil {
		return m.GetArticleTextFn(ctx, coll, articleNumber)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.articles[rowKey(coll.Table, articleNumber)]
	if !ok {
		return "", store.ErrArticleNotFound
	}
	return text, nil
}

// TestifyMockArtifactStore is a mock of store.ArtifactStore for use with testify/mock
type TestifyMockArtifactStore struct {
	mock.Mock
}

var _ store.ArtifactStore = (*TestifyMockArtifactStore)(nil)

// GetArtifact is a mock implementation of store.ArtifactStore.GetArtifact
func (m *TestifyMockArtifactStore) GetArtifact(
	ctx context.Context,
	coll domain.Collection,
	key domain.SourceKey,
	kind domain.ContentKind,
) (*domain.Artifact, error) {
	args := m.Called(ctx, coll, key, kind)
	if a, ok := args.Get(0).(*domain.Artifact); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

// SaveArtifact is a mock implementation of store.ArtifactStore.SaveArtifact
func (m *TestifyMockArtifactStore) SaveArtifact(ctx context.Context, coll domain.Collection, artifact *domain.Artifact) error {
	args := m.Called(ctx, coll, artifact)
	return args.Error(0)
}

// GetArticleText is a mock implementation of store.ArtifactStore.GetArticleText
func (m *TestifyMockArtifactStore) GetArticleText(ctx context.Context, coll domain.Collection, articleNumber string) (string, error) {
	args := m.Called(ctx, coll, articleNumber)
	return args.String(0), args.Error(1)
}
