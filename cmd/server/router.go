package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/vademecum-api/internal/api"
	apiMiddleware "github.com/phrazzld/vademecum-api/internal/api/middleware"
	"github.com/phrazzld/vademecum-api/internal/api/shared"
	"github.com/phrazzld/vademecum-api/internal/domain"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	if secs := app.config.Server.RequestTimeoutSeconds; secs > 0 {
		r.Use(middleware.Timeout(time.Duration(secs) * time.Second))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusNotFound, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	contentHandler := api.NewContentHandler(app.artifactService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", contentHandler.Generate)
		r.Post("/explain", contentHandler.Explain)

		// Per-kind routes kept for existing clients
		r.Post("/gerar-flashcards", contentHandler.GenerateKind(domain.KindFlashcards))
		r.Post("/gerar-questoes", contentHandler.GenerateKind(domain.KindQuiz))
		r.Post("/gerar-exemplo", contentHandler.GenerateKind(domain.KindExample))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("OK"))
		if err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
