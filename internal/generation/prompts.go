package generation

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/phrazzld/vademecum-api/internal/domain"
)

//go:embed prompts/*.tmpl
var defaultPrompts embed.FS

// promptData represents the data passed to the prompt templates
type promptData struct {
	SourceText     string
	CollectionName string
	ArticleNumber  string
}

// Prompts holds one parsed template per content kind.
type Prompts struct {
	templates map[domain.ContentKind]*template.Template
}

var promptKinds = []domain.ContentKind{
	domain.KindFlashcards,
	domain.KindQuiz,
	domain.KindExample,
	domain.KindExplanation,
	domain.KindSummary,
}

// LoadPrompts parses the embedded templates. When overrideDir is set, a file
// named <kind>.tmpl in that directory replaces the embedded template for that
// kind.
func LoadPrompts(overrideDir string) (*Prompts, error) {
	p := &Prompts{templates: make(map[domain.ContentKind]*template.Template, len(promptKinds))}

	for _, kind := range promptKinds {
		name := string(kind) + ".tmpl"

		content, err := defaultPrompts.ReadFile("prompts/" + name)
		if err != nil {
			return nil, fmt.Errorf("%w: missing embedded prompt %s: %v", ErrInvalidConfig, name, err)
		}

		if overrideDir != "" {
			override, err := os.ReadFile(filepath.Join(overrideDir, name))
			switch {
			case err == nil:
				content = override
			case !os.IsNotExist(err):
				return nil, fmt.Errorf("%w: failed to read prompt template %s: %v", ErrInvalidConfig, name, err)
			}
		}

		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse prompt template %s: %v", ErrInvalidConfig, name, err)
		}
		p.templates[kind] = tmpl
	}

	return p, nil
}

// Build renders the prompt for req.
func (p *Prompts) Build(req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	tmpl, ok := p.templates[req.Kind]
	if !ok {
		return "", ErrUnsupportedKind
	}

	data := promptData{
		SourceText:     req.SourceText,
		CollectionName: req.CollectionName,
		ArticleNumber:  req.ArticleNumber,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
