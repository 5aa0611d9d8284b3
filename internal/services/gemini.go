package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"joblinker/api/internal/logger"
)

const (
	DefaultGeminiModel = "gemini-2.5-flash"

	defaultMaxRetries   = 3
	defaultRetryDelay   = time.Second
	maxGeminiLogPreview = 200
)

var sleep = time.Sleep

type GeminiService interface {
	GenerateText(ctx context.Context, prompt string, temperature float32) (string, error)
	GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error)
	Model() string
}

// contentModels is the subset of *genai.Models the service calls.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiService struct {
	models     contentModels
	modelName  string
	maxRetries int
	logger     *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger) (GeminiService, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiService(client.Models, model, maxRetries, log), nil
}

func newGeminiService(models contentModels, model string, maxRetries int, log *zap.Logger) *geminiService {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultGeminiModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &geminiService{
		models:     models,
		modelName:  model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, logger.ProviderGemini, model),
	}
}

func (g *geminiService) Model() string {
	return g.modelName
}

// GenerateText implements GeminiService.
func (g *geminiService) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 4096,
	}
	return g.generateWithRetry(ctx, prompt, config)
}

// GenerateJSON constrains the model output to the given response schema.
func (g *geminiService) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  4096,
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	return g.generateWithRetry(ctx, prompt, config)
}

func (g *geminiService) generateWithRetry(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	g.logger.Debug("sending prompt",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, maxGeminiLogPreview)),
	)

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		text, err := g.generate(ctx, prompt, config)
		if err == nil {
			g.logger.Debug("response received",
				zap.Int("attempt", attempt),
				zap.String("response_preview", logger.TruncateForLog(text, maxGeminiLogPreview)),
			)
			return text, nil
		}

		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("context cancelled: %w", ctxErr)
		}

		if !isRetryable(err) {
			g.logger.Warn("gemini call failed", zap.Int("attempt", attempt), zap.Error(err))
			return "", err
		}

		if attempt < g.maxRetries {
			delay := defaultRetryDelay * time.Duration(1<<(attempt-1))
			g.logger.Warn("gemini call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			sleep(delay)
		}
	}

	return "", fmt.Errorf("failed after %d attempts: %w", g.maxRetries, lastErr)
}

func (g *geminiService) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil {
		return "", errors.New("no response generated (nil response)")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// isRetryable treats transport failures and transient API statuses as retryable.
func isRetryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return true
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
