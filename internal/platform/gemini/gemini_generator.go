package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/vademecum-api/internal/config"
	"github.com/phrazzld/vademecum-api/internal/domain"
	"github.com/phrazzld/vademecum-api/internal/generation"
	"github.com/phrazzld/vademecum-api/internal/platform/logger"
	"google.golang.org/genai"
)

// ContentGenerator is the subset of the genai Models service used here.
// *genai.Models satisfies it; tests substitute a fake.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator on top of the Gemini API.
type Generator struct {
	logger  *slog.Logger
	models  ContentGenerator
	model   string
	prompts *generation.Prompts
	timeout time.Duration
}

// Ensure Generator implements generation.Generator interface
var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed generator from configuration.
//
// It validates the configuration, loads the prompt templates and creates the
// genai client. The API key is taken from cfg, never from the environment.
func NewGenerator(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := generation.LoadPrompts(cfg.PromptTemplateDir)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	return NewGeneratorWithClient(log, client.Models, cfg.ModelName, prompts, timeout)
}

// NewGeneratorWithClient assembles a generator around an existing client.
// A zero timeout leaves cancellation to the caller's context.
func NewGeneratorWithClient(
	log *slog.Logger,
	models ContentGenerator,
	model string,
	prompts *generation.Prompts,
	timeout time.Duration,
) (*Generator, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: content client cannot be nil", generation.ErrInvalidConfig)
	}
	if prompts == nil {
		return nil, fmt.Errorf("%w: prompts cannot be nil", generation.ErrInvalidConfig)
	}
	return &Generator{
		logger:  log.With(slog.String("component", "gemini_generator")),
		models:  models,
		model:   model,
		prompts: prompts,
		timeout: timeout,
	}, nil
}

// Generate implements generation.Generator.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (domain.Payload, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	params, ok := ParamsFor(req.Kind)
	if !ok {
		return domain.Payload{}, generation.ErrUnsupportedKind
	}

	prompt, err := g.prompts.Build(req)
	if err != nil {
		return domain.Payload{}, err
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(params.Temperature),
		MaxOutputTokens: params.MaxOutputTokens,
	}
	if req.Kind.Structured() {
		genConfig.ResponseMIMEType = "application/json"
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	log.DebugContext(ctx, "calling Gemini API",
		slog.String("kind", string(req.Kind)),
		slog.String("model", g.model),
		slog.Int("prompt_length", len(prompt)))

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
	if err != nil {
		mapped := classifyError(err)
		log.WarnContext(ctx, "Gemini API call failed",
			slog.String("kind", string(req.Kind)),
			slog.String("error", mapped.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return domain.Payload{}, mapped
	}

	text, err := firstCandidateText(resp)
	if err != nil {
		log.WarnContext(ctx, "unusable Gemini response",
			slog.String("kind", string(req.Kind)),
			slog.String("error", err.Error()))
		return domain.Payload{}, err
	}

	payload, err := generation.Parse(req.Kind, text)
	if err != nil {
		log.WarnContext(ctx, "failed to parse Gemini response",
			slog.String("kind", string(req.Kind)),
			slog.Int("response_length", len(text)),
			slog.String("error", err.Error()))
		return domain.Payload{}, err
	}

	log.InfoContext(ctx, "Gemini API call successful",
		slog.String("kind", string(req.Kind)),
		slog.Int("items", payload.Len()),
		slog.Duration("elapsed", time.Since(start)))
	return payload, nil
}

// classifyError maps a genai client error onto the generation error taxonomy.
func classifyError(err error) error {
	code, message, ok := apiErrorDetails(err)
	if ok {
		switch code {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", generation.ErrRateLimited, message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", generation.ErrQuotaExceeded, message)
		}
		return fmt.Errorf("%w: status %d: %s", generation.ErrProviderUnavailable, code, message)
	}
	return fmt.Errorf("%w: %w", generation.ErrProviderUnavailable, err)
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}

// errTruncated marks a candidate cut off at the output token limit.
var errTruncated = errors.New("response truncated at the output token limit")

// firstCandidateText concatenates the text parts of the first candidate,
// skipping thought summaries. A truncated candidate is a parse failure.
func firstCandidateText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: candidate blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		return "", &generation.ParseError{Raw: sb.String(), Err: errTruncated}
	}
	return sb.String(), nil
}
