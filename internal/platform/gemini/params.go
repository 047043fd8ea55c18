package gemini

import "github.com/phrazzld/vademecum-api/internal/domain"

// Params are the sampling parameters used for one content kind.
type Params struct {
	Temperature     float32
	MaxOutputTokens int32
}

// defaultParams keeps deterministic kinds (examples, summaries) at low
// temperature and gives flashcards and quizzes more variety.
var defaultParams = map[domain.ContentKind]Params{
	domain.KindFlashcards:  {Temperature: 0.7, MaxOutputTokens: 2048},
	domain.KindQuiz:        {Temperature: 0.7, MaxOutputTokens: 3072},
	domain.KindExample:     {Temperature: 0.3, MaxOutputTokens: 1024},
	domain.KindExplanation: {Temperature: 0.4, MaxOutputTokens: 2048},
	domain.KindSummary:     {Temperature: 0.3, MaxOutputTokens: 1024},
}

// ParamsFor returns the sampling parameters for kind.
func ParamsFor(kind domain.ContentKind) (Params, bool) {
	p, ok := defaultParams[kind]
	return p, ok
}
