package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/vademecum-api/internal/domain"
)

// ArticleNumber accepts either a JSON string or a JSON number, since clients
// send both ("121" and 121).
type ArticleNumber string

// UnmarshalJSON implements json.Unmarshaler.
func (n *ArticleNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ArticleNumber(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("numeroArtigo must be a string or number: %w", err)
	}
	*n = ArticleNumber(num.String())
	return nil
}

// ContentRequest is the body of every content endpoint. The article text may
// arrive as "content" or "artigo".
type ContentRequest struct {
	Content      string        `json:"content"`
	Artigo       string        `json:"artigo"`
	Codigo       string        `json:"codigo"       validate:"omitempty,max=32"`
	NumeroArtigo ArticleNumber `json:"numeroArtigo" validate:"omitempty,max=32"`
	Tipo         string        `json:"tipo"         validate:"omitempty,max=32"`
}

// SourceText returns the article text, preferring "content".
func (r ContentRequest) SourceText() string {
	if strings.TrimSpace(r.Content) != "" {
		return r.Content
	}
	return r.Artigo
}

// Kind resolves "tipo", falling back to def when the field is absent.
func (r ContentRequest) Kind(def domain.ContentKind) (domain.ContentKind, error) {
	if strings.TrimSpace(r.Tipo) == "" {
		if def == "" {
			return "", domain.NewValidationError("tipo", "is required", nil)
		}
		return def, nil
	}
	return domain.ParseContentKind(r.Tipo)
}

// contentResponse renders a payload under its kind's response field, e.g.
// {"flashcards": [...], "cached": true}.
func contentResponse(kind domain.ContentKind, payload domain.Payload, cached *bool) map[string]any {
	payload.Kind = kind
	resp := map[string]any{kind.ResponseField(): payload.Value()}
	if cached != nil {
		resp["cached"] = *cached
	}
	return resp
}
