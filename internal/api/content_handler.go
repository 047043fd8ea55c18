package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/vademecum-api/internal/api/shared"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"github.com/phrazzld/vademecum-api/internal/service"
)

// ContentHandler serves the study content endpoints.
type ContentHandler struct {
	artifactService service.ArtifactService
	logger          *slog.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(artifactService service.ArtifactService, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{
		artifactService: artifactService,
		logger:          logger.With("component", "content_handler"),
	}
}

// Generate handles POST /api/generate requests. The body must name the
// content kind in "tipo".
func (h *ContentHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, "")
}

// GenerateKind returns a handler for the per-kind routes such as
// POST /api/gerar-flashcards, where "tipo" defaults to kind.
func (h *ContentHandler) GenerateKind(kind domain.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.generate(w, r, kind)
	}
}

func (h *ContentHandler) generate(w http.ResponseWriter, r *http.Request, def domain.ContentKind) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	req, kind, ok := h.decode(w, r, def)
	if !ok {
		return
	}

	log.Debug("content requested",
		slog.String("kind", string(kind)),
		slog.String("collection", req.Codigo),
		slog.String("article_number", string(req.NumeroArtigo)))

	result, err := h.artifactService.GetOrGenerate(r.Context(), service.GenerateRequest{
		Kind:          kind,
		Collection:    req.Codigo,
		ArticleNumber: string(req.NumeroArtigo),
		SourceText:    req.SourceText(),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to generate content")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentResponse(kind, result.Payload, &result.Cached))
}

// Explain handles POST /api/explain requests. "tipo" selects an explanation
// (the default) or a summary; the result is never cached.
func (h *ContentHandler) Explain(w http.ResponseWriter, r *http.Request) {
	req, kind, ok := h.decode(w, r, domain.KindExplanation)
	if !ok {
		return
	}

	payload, err := h.artifactService.Explain(r.Context(), service.ExplainRequest{
		Kind:          kind,
		Collection:    req.Codigo,
		ArticleNumber: string(req.NumeroArtigo),
		SourceText:    req.SourceText(),
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to explain article")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, contentResponse(kind, payload, nil))
}

// decode parses and validates the request body and resolves its kind. It
// writes the error response itself and reports false on failure.
func (h *ContentHandler) decode(
	w http.ResponseWriter,
	r *http.Request,
	def domain.ContentKind,
) (ContentRequest, domain.ContentKind, bool) {
	var req ContentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, &requestDecodeError{err: err}, "")
		return req, "", false
	}

	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return req, "", false
	}

	kind, err := req.Kind(def)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return req, "", false
	}
	return req, kind, true
}
