package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, req generation.Request) (domain.Payload, error)

	// Default response values
	Payload domain.Payload
	Err     error

	mu       sync.Mutex
	requests []generation.Request
}

// Ensure MockGenerator implements generation.Generator interface
var _ generation.Generator = (*MockGenerator)(nil)

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(ctx context.Context, req generation.Request) (domain.Payload, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	if m.Err != nil {
		return domain.Payload{}, m.Err
	}
	payload := m.Payload
	if payload.Kind == "" {
		payload.Kind = req.Kind
	}
	return payload, nil
}

// Calls returns how many times Generate was called.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request passed to Generate.
func (m *MockGenerator) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.requests...)
}

// NewMockGeneratorWithPayload creates a MockGenerator that returns payload
func NewMockGeneratorWithPayload(payload domain.Payload) *MockGenerator {
	return &MockGenerator{Payload: payload}
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// SampleFlashcards returns a small valid flashcard payload.
func SampleFlashcards() domain.Payload {
	return domain.Payload{
		Kind: domain.KindFlashcards,
		Flashcards: []domain.Flashcard{
			{Front: "Qual a pena do homicídio simples?", Back: "Reclusão, de seis a vinte anos."},
			{Front: "O homicídio simples admite forma culposa?", Back: "Sim, com pena de detenção de um a três anos."},
		},
	}
}

// SampleQuiz returns a small valid quiz payload.
func SampleQuiz() domain.Payload {
	return domain.Payload{
		Kind: domain.KindQuiz,
		Questions: []domain.QuizQuestion{{
			Question:     "Qual a pena do homicídio simples?",
			Options:      []string{"Reclusão de 6 a 20 anos", "Detenção de 1 a 3 anos", "Reclusão de 12 a 30 anos", "Multa"},
			CorrectIndex: 0,
			Explanation:  "Art. 121, caput, do Código Penal.",
		}},
	}
}
