package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"joblinker/api/internal/logger"
)

const (
	SummaryUnavailable  = "AI summary unavailable - no API key configured"
	SummaryFailedPrefix = "AI summary generation failed: "

	// MaxSummaryInputRunes bounds the resume text sent to the model.
	MaxSummaryInputRunes = 5000

	summaryTemperature = 0.4
)

// Summarizer turns extracted resume text into a markdown summary. It never fails:
// a missing credential or a model error yields a sentinel string instead.
type Summarizer interface {
	Summarize(ctx context.Context, resumeText string) string
}

type resumeSummarizer struct {
	gemini  GeminiService
	prompts *PromptBuilder
	logger  *zap.Logger
}

// NewSummarizer builds a summarizer. A nil gemini means no credential is configured.
func NewSummarizer(gemini GeminiService, log *zap.Logger) Summarizer {
	return &resumeSummarizer{
		gemini:  gemini,
		prompts: NewPromptBuilder(),
		logger:  logger.OrNop(log),
	}
}

func (s *resumeSummarizer) Summarize(ctx context.Context, resumeText string) string {
	if s.gemini == nil {
		s.logger.Warn("resume summary skipped: gemini api key not configured")
		return SummaryUnavailable
	}

	prompt := s.prompts.BuildResumeSummaryPrompt(truncateRunes(resumeText, MaxSummaryInputRunes))

	summary, err := s.gemini.GenerateText(ctx, prompt, summaryTemperature)
	if err != nil {
		s.logger.Error("resume summary generation failed", zap.Error(err))
		return SummaryFailedPrefix + err.Error()
	}

	return strings.TrimSpace(summary)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
