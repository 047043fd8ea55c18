package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/vademecum-api/internal/config"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
	"github.com/phrazzld/vademecum-api/internal/platform/gemini"
	"github.com/phrazzld/vademecum-api/internal/service"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	backend     *backend
	collections *domain.CollectionRegistry
	generator   generation.Generator

	artifactService service.ArtifactService
}

// newApplication connects to the configured backend, creates the Gemini
// generator and wires the artifact service.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	b, err := openBackend(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized successfully", slog.String("model", cfg.LLM.ModelName))

	app, err := assembleApplication(ctx, cfg, logger, b, generator)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return app, nil
}

// assembleApplication wires the service layer over an opened backend and a
// generator.
func assembleApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	b *backend,
	generator generation.Generator,
) (*application, error) {
	collections, err := cfg.CollectionRegistry()
	if err != nil {
		return nil, err
	}

	if b.db != nil {
		pending, err := pendingMigrations(ctx, b.db, b.driver)
		switch {
		case err != nil:
			logger.Warn("could not check migration status", slog.String("error", err.Error()))
		case pending:
			logger.Warn("database has pending migrations; run with -migrate=up")
		}
	}

	var opts []service.Option
	if cfg.LLM.RequestTimeoutSeconds > 0 {
		// Writeback gets the same budget as one generation call.
		budget := time.Duration(cfg.LLM.RequestTimeoutSeconds) * time.Second
		opts = append(opts,
			service.WithGenerationTimeout(budget),
			service.WithWritebackTimeout(budget))
	}

	artifactService, err := service.NewArtifactService(b.store, generator, collections, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact service: %w", err)
	}

	names := make([]string, 0)
	for _, c := range collections.All() {
		names = append(names, c.Code)
	}
	logger.Info("Application initialized successfully",
		slog.String("driver", b.driver),
		slog.Any("collections", names))

	return &application{
		config:          cfg,
		logger:          logger,
		backend:         b,
		collections:     collections,
		generator:       generator,
		artifactService: artifactService,
	}, nil
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.backend != nil {
		if err := app.backend.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
