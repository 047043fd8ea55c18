package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Flashcard is one front/back study pair.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// UnmarshalJSON accepts both the English keys and the Portuguese keys
// ("frente"/"verso", "pergunta"/"resposta") produced by older prompts.
func (f *Flashcard) UnmarshalJSON(data []byte) error {
	var raw struct {
		Front    string `json:"front"`
		Back     string `json:"back"`
		Frente   string `json:"frente"`
		Verso    string `json:"verso"`
		Pergunta string `json:"pergunta"`
		Resposta string `json:"resposta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Front = firstNonBlank(raw.Front, raw.Frente, raw.Pergunta)
	f.Back = firstNonBlank(raw.Back, raw.Verso, raw.Resposta)
	return nil
}

// Validate checks that both sides carry text.
func (f Flashcard) Validate() error {
	if strings.TrimSpace(f.Front) == "" {
		return fmt.Errorf("%w: flashcard front is empty", ErrInvalidPayload)
	}
	if strings.TrimSpace(f.Back) == "" {
		return fmt.Errorf("%w: flashcard back is empty", ErrInvalidPayload)
	}
	return nil
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// UnmarshalJSON accepts both the English keys and the Portuguese keys
// ("pergunta", "alternativas", "respostaCorreta", "explicacao").
func (q *QuizQuestion) UnmarshalJSON(data []byte) error {
	var raw struct {
		Question        string   `json:"question"`
		Options         []string `json:"options"`
		CorrectIndex    *int     `json:"correctIndex"`
		Explanation     string   `json:"explanation"`
		Pergunta        string   `json:"pergunta"`
		Alternativas    []string `json:"alternativas"`
		RespostaCorreta *int     `json:"respostaCorreta"`
		Explicacao      string   `json:"explicacao"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	q.Question = firstNonBlank(raw.Question, raw.Pergunta)
	q.Options = raw.Options
	if len(q.Options) == 0 {
		q.Options = raw.Alternativas
	}
	q.CorrectIndex = -1
	if raw.CorrectIndex != nil {
		q.CorrectIndex = *raw.CorrectIndex
	} else if raw.RespostaCorreta != nil {
		q.CorrectIndex = *raw.RespostaCorreta
	}
	q.Explanation = firstNonBlank(raw.Explanation, raw.Explicacao)
	return nil
}

// Validate checks the question text, options, and answer index.
func (q QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question text is empty", ErrInvalidPayload)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question needs at least two options, got %d", ErrInvalidPayload, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidPayload, i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of range", ErrInvalidPayload, q.CorrectIndex)
	}
	return nil
}

// Payload is the generated content for one kind. Exactly one of the fields
// is meaningful, selected by Kind.
type Payload struct {
	Kind       ContentKind
	Flashcards []Flashcard
	Questions  []QuizQuestion
	Text       string
}

// IsEmpty reports whether there is nothing worth caching.
func (p Payload) IsEmpty() bool {
	switch p.Kind {
	case KindFlashcards:
		return len(p.Flashcards) == 0
	case KindQuiz:
		return len(p.Questions) == 0
	default:
		return strings.TrimSpace(p.Text) == ""
	}
}

// Len returns the number of items in list payloads, or 1 for non-empty text.
func (p Payload) Len() int {
	switch p.Kind {
	case KindFlashcards:
		return len(p.Flashcards)
	case KindQuiz:
		return len(p.Questions)
	default:
		if p.IsEmpty() {
			return 0
		}
		return 1
	}
}

// Validate checks every element of the payload.
func (p Payload) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownContentKind, p.Kind)
	}
	for i, f := range p.Flashcards {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("flashcard %d: %w", i, err)
		}
	}
	for i, q := range p.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
	}
	return nil
}

// Value returns the shape exposed to callers and stored in the cache field:
// a list for flashcards and quiz, a string otherwise.
func (p Payload) Value() any {
	switch p.Kind {
	case KindFlashcards:
		if p.Flashcards == nil {
			return []Flashcard{}
		}
		return p.Flashcards
	case KindQuiz:
		if p.Questions == nil {
			return []QuizQuestion{}
		}
		return p.Questions
	default:
		return p.Text
	}
}

// MarshalValue encodes the stored representation of the payload.
func (p Payload) MarshalValue() (json.RawMessage, error) {
	data, err := json.Marshal(p.Value())
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.Kind, err)
	}
	return data, nil
}

// DecodePayload decodes a stored value for the given kind and validates it.
func DecodePayload(kind ContentKind, data []byte) (Payload, error) {
	p := Payload{Kind: kind}
	if !kind.Valid() {
		return p, fmt.Errorf("%w: %q", ErrUnknownContentKind, kind)
	}
	if len(data) == 0 || string(data) == "null" {
		return p, ErrEmptyPayload
	}

	var err error
	switch kind {
	case KindFlashcards:
		err = json.Unmarshal(data, &p.Flashcards)
	case KindQuiz:
		err = json.Unmarshal(data, &p.Questions)
	default:
		err = json.Unmarshal(data, &p.Text)
	}
	if err != nil {
		return Payload{Kind: kind}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := p.Validate(); err != nil {
		return Payload{Kind: kind}, err
	}
	if p.IsEmpty() {
		return p, ErrEmptyPayload
	}
	return p, nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
