package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// tableNamePattern restricts collection tables to plain lower-case SQL
// identifiers, since table names are interpolated into queries.
var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Collection is one legal code or statute. Each collection is backed by its
// own table holding the article texts and the cached study artifacts.
type Collection struct {
	Code  string
	Name  string
	Table string
}

// Validate checks that the collection has a code and a safe table name.
func (c Collection) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return NewValidationError("code", "cannot be empty", nil)
	}
	if !tableNamePattern.MatchString(c.Table) {
		return fmt.Errorf("%w: %q for collection %q", ErrInvalidTableName, c.Table, c.Code)
	}
	return nil
}

// DefaultCollections returns the built-in code-to-table mapping.
func DefaultCollections() []Collection {
	return []Collection{
		{Code: "cp", Name: "Código Penal", Table: "codigo_penal"},
		{Code: "cpp", Name: "Código de Processo Penal", Table: "codigo_processo_penal"},
		{Code: "cc", Name: "Código Civil", Table: "codigo_civil"},
		{Code: "cpc", Name: "Código de Processo Civil", Table: "codigo_processo_civil"},
		{Code: "cf", Name: "Constituição Federal", Table: "constituicao_federal"},
		{Code: "clt", Name: "Consolidação das Leis do Trabalho", Table: "clt"},
		{Code: "cdc", Name: "Código de Defesa do Consumidor", Table: "codigo_defesa_consumidor"},
		{Code: "ctn", Name: "Código Tributário Nacional", Table: "codigo_tributario_nacional"},
	}
}

// CollectionRegistry is an immutable lookup from short code to collection.
// It is built once from configuration and shared read-only.
type CollectionRegistry struct {
	byCode map[string]Collection
}

// NewCollectionRegistry builds a registry from the given collections. Later
// entries override earlier ones with the same code, so configured collections
// can be appended to DefaultCollections.
func NewCollectionRegistry(collections ...Collection) (*CollectionRegistry, error) {
	r := &CollectionRegistry{byCode: make(map[string]Collection, len(collections))}
	for _, c := range collections {
		c.Code = normalizeCode(c.Code)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if c.Name == "" {
			c.Name = strings.ToUpper(c.Code)
		}
		r.byCode[c.Code] = c
	}
	return r, nil
}

// Resolve returns the collection registered under code.
func (r *CollectionRegistry) Resolve(code string) (Collection, bool) {
	if r == nil {
		return Collection{}, false
	}
	c, ok := r.byCode[normalizeCode(code)]
	return c, ok
}

// All returns every registered collection ordered by code.
func (r *CollectionRegistry) All() []Collection {
	out := make([]Collection, 0, len(r.byCode))
	for _, c := range r.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// SourceKey identifies one cacheable passage: an article within a collection.
// It is only unique within its collection.
type SourceKey struct {
	Collection    string
	ArticleNumber string
}

// NewSourceKey normalizes and validates a source key.
func NewSourceKey(collection, articleNumber string) (SourceKey, error) {
	key := SourceKey{
		Collection:    normalizeCode(collection),
		ArticleNumber: strings.TrimSpace(articleNumber),
	}
	if key.ArticleNumber == "" {
		return SourceKey{}, ErrEmptyArticleNumber
	}
	return key, nil
}

// String renders the key as "collection:article".
func (k SourceKey) String() string {
	return k.Collection + ":" + k.ArticleNumber
}
