package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/logger"
	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
)

const StepCalculateMatchScore = "calculate-match-score"

type RankRequest struct {
	JobListingID uuid.UUID
	CandidateID  uuid.UUID
}

type RankOutcome struct {
	Success        bool                  `json:"success"`
	Rating         *int                  `json:"rating,omitempty"`
	Reasoning      string                `json:"reasoning,omitempty"`
	Breakdown      *models.Breakdown     `json:"breakdown,omitempty"`
	Recommendation models.Recommendation `json:"recommendation,omitempty"`
	Error          string                `json:"error,omitempty"`
	Details        string                `json:"details,omitempty"`
}

type ApplicantRanker interface {
	Rank(ctx context.Context, steps *dispatch.Steps, req RankRequest) (RankOutcome, error)
}

type applicantRanker struct {
	applications repositories.ApplicationRepository
	jobs         repositories.JobListingRepository
	resumes      repositories.ResumeRepository
	scorer       MatchScorer
	logger       *zap.Logger
}

func NewApplicantRanker(
	applications repositories.ApplicationRepository,
	jobs repositories.JobListingRepository,
	resumes repositories.ResumeRepository,
	scorer MatchScorer,
	log *zap.Logger,
) ApplicantRanker {
	return &applicantRanker{
		applications: applications,
		jobs:         jobs,
		resumes:      resumes,
		scorer:       scorer,
		logger:       logger.OrNop(log),
	}
}

// Rank scores one application and overwrites its rating and analysis.
// The application stage is never changed; an unscored result leaves the row untouched.
func (r *applicantRanker) Rank(ctx context.Context, steps *dispatch.Steps, req RankRequest) (RankOutcome, error) {
	log := r.logger.With(
		zap.String("job_listing_id", req.JobListingID.String()),
		zap.String("candidate_id", req.CandidateID.String()),
		zap.String("run_id", steps.RunID()),
	)

	app, err := r.applications.Find(ctx, req.JobListingID, req.CandidateID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Error("application not found for ranking")
			return RankOutcome{Error: "Application not found"}, nil
		}
		return RankOutcome{}, fmt.Errorf("failed to load application: %w", err)
	}

	job, err := r.jobs.FindByID(ctx, req.JobListingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Error("job listing not found for ranking")
			return RankOutcome{Error: "Job listing not found"}, nil
		}
		return RankOutcome{}, fmt.Errorf("failed to load job listing: %w", err)
	}

	resume, err := r.resumes.FindByCandidateID(ctx, req.CandidateID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return RankOutcome{}, fmt.Errorf("failed to load resume: %w", err)
	}

	input := MatchInput{
		JobTitle:           job.Title,
		JobDescription:     job.Description,
		ExperienceLevel:    string(job.ExperienceLevel),
		JobType:            string(job.Type),
		RequiredSkills:     job.RequiredSkills,
		PreferredSkills:    job.PreferredSkills,
		MinYearsExperience: job.MinYearsExperience,
		RequiredEducation:  job.RequiredEducation,
		ResumeSummary:      resume.UsableSummary(),
	}
	if app.CoverLetter != nil {
		input.CoverLetter = *app.CoverLetter
	}

	result, err := dispatch.Run(ctx, steps, StepCalculateMatchScore, func(ctx context.Context) (models.MatchResult, error) {
		return r.scorer.Score(ctx, input), nil
	})
	if err != nil {
		return RankOutcome{}, err
	}

	if result.Rating == nil {
		log.Warn("match score unavailable, application left unrated",
			zap.String("recommendation", string(result.Recommendation)),
			zap.String("reasoning", result.Reasoning),
		)
		return RankOutcome{Error: "Failed to calculate match score", Details: result.Reasoning}, nil
	}

	if err := r.applications.UpdateRating(ctx, req.JobListingID, req.CandidateID, *result.Rating, result.Reasoning); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			log.Error("application disappeared before rating was saved")
			return RankOutcome{Error: "Application not found"}, nil
		}
		return RankOutcome{}, fmt.Errorf("failed to save rating: %w", err)
	}

	log.Info("application ranked",
		zap.Int("rating", *result.Rating),
		zap.String("recommendation", string(result.Recommendation)),
	)

	return RankOutcome{
		Success:        true,
		Rating:         result.Rating,
		Reasoning:      result.Reasoning,
		Breakdown:      result.Breakdown,
		Recommendation: result.Recommendation,
	}, nil
}
