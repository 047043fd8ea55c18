package domain

import (
	"fmt"
	"strings"
)

// ContentKind selects which study artifact is produced for an article.
type ContentKind string

// Supported content kinds. Flashcards, quiz and example are cached per
// article; explanation and summary are generated on every request.
const (
	KindFlashcards  ContentKind = "flashcards"
	KindQuiz        ContentKind = "quiz"
	KindExample     ContentKind = "example"
	KindExplanation ContentKind = "explanation"
	KindSummary     ContentKind = "summary"
)

// kindAliases maps the selectors accepted from callers to content kinds.
var kindAliases = map[string]ContentKind{
	"flashcards":  KindFlashcards,
	"flashcard":   KindFlashcards,
	"quiz":        KindQuiz,
	"questoes":    KindQuiz,
	"questões":    KindQuiz,
	"example":     KindExample,
	"exemplo":     KindExample,
	"explanation": KindExplanation,
	"explicacao":  KindExplanation,
	"explicação":  KindExplanation,
	"summary":     KindSummary,
	"resumo":      KindSummary,
}

// ParseContentKind resolves a caller-supplied selector, case-insensitively.
func ParseContentKind(s string) (ContentKind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownContentKind, s)
	}
	return kind, nil
}

// Valid reports whether k is one of the supported kinds.
func (k ContentKind) Valid() bool {
	switch k {
	case KindFlashcards, KindQuiz, KindExample, KindExplanation, KindSummary:
		return true
	}
	return false
}

// Cacheable reports whether artifacts of this kind are persisted per article.
func (k ContentKind) Cacheable() bool {
	switch k {
	case KindFlashcards, KindQuiz, KindExample:
		return true
	}
	return false
}

// Structured reports whether the provider is asked for a JSON document
// rather than free text.
func (k ContentKind) Structured() bool {
	return k == KindFlashcards || k == KindQuiz
}

// Column is the storage field holding the cached payload for this kind.
// It is empty for kinds that are never cached.
func (k ContentKind) Column() string {
	if !k.Cacheable() {
		return ""
	}
	return string(k)
}

// GeneratedAtColumn is the storage field holding the generation timestamp.
func (k ContentKind) GeneratedAtColumn() string {
	if !k.Cacheable() {
		return ""
	}
	return string(k) + "_generated_at"
}

// ResponseField is the JSON field under which callers receive the payload.
func (k ContentKind) ResponseField() string {
	switch k {
	case KindFlashcards:
		return "flashcards"
	case KindQuiz:
		return "questoes"
	case KindExample:
		return "exemplo"
	case KindExplanation:
		return "explicacao"
	case KindSummary:
		return "resumo"
	}
	return "conteudo"
}
