package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/vademecum-api/internal/domain"
)

// fencedBlock matches the first fenced code block, with or without a
// language tag such as ```json.
var fencedBlock = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*[ \t]*\r?\n?(.*?)```")

// listKeys are the wrapper fields under which providers return lists.
var listKeys = map[domain.ContentKind][]string{
	domain.KindFlashcards: {"flashcards", "cards"},
	domain.KindQuiz:       {"questoes", "questions", "quiz"},
}

// StripCodeFence removes a fenced code block wrapping the text and returns
// the trimmed remainder. Text without a fence is returned trimmed.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Opening fence without a closing one: drop the fence line only.
	if i := strings.IndexByte(trimmed, '\n'); i >= 0 {
		return strings.TrimSpace(trimmed[i+1:])
	}
	return ""
}

// extractJSON returns the structured part of a provider response. Text that
// already opens with a JSON array or object is taken whole, so fences inside
// string values are left alone. Otherwise the first fenced block wins.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return trimmed
	}
	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return StripCodeFence(text)
}

// Parse converts raw provider text into a validated payload of the given kind.
// Any shape or validation failure yields a *ParseError and a zero payload.
// An empty list is a valid, empty payload.
func Parse(kind domain.ContentKind, raw string) (domain.Payload, error) {
	if !kind.Valid() {
		return domain.Payload{}, ErrUnsupportedKind
	}
	if !kind.Structured() {
		return domain.Payload{Kind: kind, Text: StripCodeFence(raw)}, nil
	}

	body := extractJSON(raw)
	if body == "" {
		return domain.Payload{}, &ParseError{Raw: raw, Err: errors.New("response is empty")}
	}

	list, err := unwrapList(kind, body)
	if err != nil {
		return domain.Payload{}, &ParseError{Raw: raw, Err: err}
	}

	payload := domain.Payload{Kind: kind}
	switch kind {
	case domain.KindFlashcards:
		err = json.Unmarshal(list, &payload.Flashcards)
	case domain.KindQuiz:
		err = json.Unmarshal(list, &payload.Questions)
	}
	if err != nil {
		return domain.Payload{}, &ParseError{Raw: raw, Err: err}
	}
	if err := payload.Validate(); err != nil {
		return domain.Payload{}, &ParseError{Raw: raw, Err: err}
	}
	return payload, nil
}

// unwrapList accepts either a bare JSON array or an object holding the array
// under one of the known wrapper keys.
func unwrapList(kind domain.ContentKind, body string) (json.RawMessage, error) {
	switch body[0] {
	case '[':
		return json.RawMessage(body), nil
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &wrapper); err != nil {
			return nil, err
		}
		for _, key := range listKeys[kind] {
			if list, ok := wrapper[key]; ok {
				return list, nil
			}
		}
		return nil, fmt.Errorf("no %s list in response object", kind)
	default:
		return nil, fmt.Errorf("response is not JSON")
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
