package store

import (
	"testing"
	"time"

	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArtifact(t *testing.T) {
	t.Parallel()

	key := domain.SourceKey{Collection: "cp", ArticleNumber: "121"}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("flashcards", func(t *testing.T) {
		t.Parallel()
		artifact, err := DecodeArtifact(key, domain.KindFlashcards, []byte(`[{"front":"F","back":"B"}]`), at)
		require.NoError(t, err)
		assert.Equal(t, key, artifact.Key)
		assert.Equal(t, at, artifact.GeneratedAt)
		assert.Len(t, artifact.Payload.Flashcards, 1)
	})

	t.Run("example text", func(t *testing.T) {
		t.Parallel()
		artifact, err := DecodeArtifact(key, domain.KindExample, []byte(`"Exemplo prático."`), time.Time{})
		require.NoError(t, err)
		assert.Equal(t, "Exemplo prático.", artifact.Payload.Text)
	})

	for name, raw := range map[string]string{"null": "null", "nil": "", "empty list": "[]", "blank text": `"  "`} {
		kind := domain.KindFlashcards
		if name == "blank text" {
			kind = domain.KindExample
		}
		t.Run("miss on "+name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeArtifact(key, kind, []byte(raw), at)
			assert.ErrorIs(t, err, ErrArtifactNotFound)
		})
	}

	t.Run("corrupt", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeArtifact(key, domain.KindQuiz, []byte(`{"not":"a list"}`), at)
		assert.ErrorIs(t, err, ErrCorruptArtifact)
		assert.False(t, IsNotFoundError(err))
	})
}

func TestValidateArtifact(t *testing.T) {
	t.Parallel()

	key := domain.SourceKey{Collection: "cc", ArticleNumber: "186"}
	valid := &domain.Artifact{
		Key:     key,
		Payload: domain.Payload{Kind: domain.KindExample, Text: "Texto"},
	}
	assert.NoError(t, ValidateArtifact(valid))

	tests := map[string]*domain.Artifact{
		"nil":            nil,
		"no article":     {Payload: valid.Payload},
		"not cacheable":  {Key: key, Payload: domain.Payload{Kind: domain.KindSummary, Text: "Resumo"}},
		"empty payload":  {Key: key, Payload: domain.Payload{Kind: domain.KindFlashcards}},
		"invalid member": {Key: key, Payload: domain.Payload{Kind: domain.KindFlashcards, Flashcards: []domain.Flashcard{{Front: "F"}}}},
	}
	for name, artifact := range tests {
		assert.ErrorIs(t, ValidateArtifact(artifact), ErrInvalidEntity, name)
	}
}
