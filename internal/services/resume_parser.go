package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
)

// MinExtractedTextLength is the shortest extraction treated as a readable resume.
const MinExtractedTextLength = 50

const (
	StepExtractText       = "extract-text"
	StepGenerateAISummary = "generate-ai-summary"
)

// ParseRequest carries one uploaded file. FileURL identifies the upload; an empty
// FileURL parses whatever upload the row currently holds.
type ParseRequest struct {
	CandidateID uuid.UUID
	FileContent []byte
	FileType    models.FileType
	FileURL     string
}

// ParseOutcome reports how a parse run ended. Error is set for terminal failures
// that retrying cannot fix.
type ParseOutcome struct {
	Success     bool               `json:"success"`
	CandidateID string             `json:"candidate_id"`
	ParseStatus models.ParseStatus `json:"parse_status,omitempty"`
	Skipped     bool               `json:"skipped,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type ResumeParser interface {
	Parse(ctx context.Context, steps *dispatch.Steps, req ParseRequest) (ParseOutcome, error)
}

type resumeParser struct {
	resumes    repositories.ResumeRepository
	extractor  TextExtractor
	summarizer Summarizer
	logger     *zap.Logger
	now        func() time.Time
}

func NewResumeParser(
	resumes repositories.ResumeRepository,
	extractor TextExtractor,
	summarizer Summarizer,
	log *zap.Logger,
) ResumeParser {
	return &resumeParser{
		resumes:    resumes,
		extractor:  extractor,
		summarizer: summarizer,
		logger:     logger.OrNop(log),
		now:        time.Now,
	}
}

// Parse drives one upload cycle: pending -> processing -> completed | failed.
// A returned error means the run should be retried; terminal failures come back in the outcome.
func (p *resumeParser) Parse(ctx context.Context, steps *dispatch.Steps, req ParseRequest) (ParseOutcome, error) {
	outcome := ParseOutcome{CandidateID: req.CandidateID.String()}
	log := p.logger.With(zap.String("candidate_id", outcome.CandidateID), zap.String("run_id", steps.RunID()))

	resume, err := p.resumes.FindByCandidateID(ctx, req.CandidateID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Error("resume not found for parse request")
			outcome.Error = "Resume not found"
			return outcome, nil
		}
		return outcome, fmt.Errorf("failed to load resume: %w", err)
	}

	if req.FileURL != "" && req.FileURL != resume.FileURL {
		log.Info("resume replaced by a newer upload, dropping event",
			zap.String("event_file_url", req.FileURL),
			zap.String("current_file_url", resume.FileURL),
		)
		outcome.Skipped = true
		outcome.ParseStatus = resume.ParseStatus
		outcome.Error = "Superseded by a newer upload"
		return outcome, nil
	}

	switch resume.ParseStatus {
	case models.ParseStatusCompleted:
		log.Info("resume already parsed, skipping duplicate delivery")
		outcome.Success = true
		outcome.Skipped = true
		outcome.ParseStatus = resume.ParseStatus
		return outcome, nil
	case models.ParseStatusPending, models.ParseStatusProcessing, models.ParseStatusFailed:
	default:
		return outcome, fmt.Errorf("resume %s has unknown parse status %q", resume.ID, resume.ParseStatus)
	}

	if err := p.resumes.UpdateParse(ctx, resume.ID, resume.ParseStatus, repositories.ParseUpdate{
		Status:  models.ParseStatusProcessing,
		FileURL: req.FileURL,
	}); err != nil {
		return outcome, fmt.Errorf("failed to mark resume processing: %w", err)
	}
	log.Info("resume parse started", zap.String("file_type", string(req.FileType)))

	text, err := dispatch.Run(ctx, steps, StepExtractText, func(ctx context.Context) (string, error) {
		return p.extractor.Extract(req.FileContent, req.FileType), nil
	})
	if err != nil {
		return outcome, p.fail(ctx, log, resume.ID, req.FileURL, err)
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinExtractedTextLength {
		parsedAt := p.now()
		if err := p.resumes.UpdateParse(ctx, resume.ID, models.ParseStatusProcessing, repositories.ParseUpdate{
			Status:        models.ParseStatusFailed,
			ExtractedText: &text,
			ParsedAt:      &parsedAt,
			FileURL:       req.FileURL,
		}); err != nil {
			return outcome, p.fail(ctx, log, resume.ID, req.FileURL, err)
		}

		log.Warn("resume text too short", zap.Int("length", utf8.RuneCountInString(text)))
		outcome.ParseStatus = models.ParseStatusFailed
		outcome.Error = "Could not extract text from resume"
		return outcome, nil
	}

	summary, err := dispatch.Run(ctx, steps, StepGenerateAISummary, func(ctx context.Context) (string, error) {
		return p.summarizer.Summarize(ctx, text), nil
	})
	if err != nil {
		return outcome, p.fail(ctx, log, resume.ID, req.FileURL, err)
	}

	parsedAt := p.now()
	if err := p.resumes.UpdateParse(ctx, resume.ID, models.ParseStatusProcessing, repositories.ParseUpdate{
		Status:        models.ParseStatusCompleted,
		ExtractedText: &text,
		AISummary:     &summary,
		ParsedAt:      &parsedAt,
		FileURL:       req.FileURL,
	}); err != nil {
		return outcome, p.fail(ctx, log, resume.ID, req.FileURL, err)
	}

	log.Info("resume parse completed", zap.Int("text_length", utf8.RuneCountInString(text)))
	outcome.Success = true
	outcome.ParseStatus = models.ParseStatusCompleted
	return outcome, nil
}

// fail records a best-effort FAILED status and returns cause for the dispatcher to retry.
// A row that moved on to a newer upload is left alone.
func (p *resumeParser) fail(ctx context.Context, log *zap.Logger, id uuid.UUID, fileURL string, cause error) error {
	parsedAt := p.now()
	if err := p.resumes.UpdateParse(ctx, id, models.ParseStatusProcessing, repositories.ParseUpdate{
		Status:   models.ParseStatusFailed,
		ParsedAt: &parsedAt,
		FileURL:  fileURL,
	}); err != nil {
		log.Error("failed to mark resume failed", zap.Error(err))
	}

	log.Error("resume parse failed", zap.Error(cause))
	return fmt.Errorf("resume parse failed: %w", cause)
}
