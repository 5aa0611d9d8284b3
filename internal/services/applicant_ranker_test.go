package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/models"
)

type rankFixture struct {
	jobID       uuid.UUID
	candidateID uuid.UUID
	apps        *fakeApplicationRepo
	jobs        *fakeJobRepo
	resumes     *fakeResumeRepo
	scorer      *stubScorer
}

func newRankFixture(rating *int) *rankFixture {
	jobID, candidateID := uuid.New(), uuid.New()
	cover := "I have shipped Go services for six years."
	skills := "Go, PostgreSQL"

	return &rankFixture{
		jobID:       jobID,
		candidateID: candidateID,
		apps: newFakeApplicationRepo(&models.Application{
			JobListingID: jobID,
			CandidateID:  candidateID,
			CoverLetter:  &cover,
			Stage:        models.StageReviewing,
		}),
		jobs: &fakeJobRepo{jobs: map[uuid.UUID]*models.JobListing{jobID: {
			ID:              jobID,
			Title:           "Backend Engineer",
			Description:     "Build APIs",
			ExperienceLevel: models.ExperienceSenior,
			Type:            models.JobTypeFullTime,
			Status:          models.JobStatusPublished,
			RequiredSkills:  &skills,
		}}},
		resumes: newFakeResumeRepo(),
		scorer: &stubScorer{result: models.MatchResult{
			Rating:         rating,
			Breakdown:      &models.Breakdown{TechnicalSkills: 30, Experience: 25, Education: 10, ApplicationQuality: 10},
			Reasoning:      "Good fit",
			Recommendation: models.RecommendationYes,
		}},
	}
}

func (f *rankFixture) ranker() ApplicantRanker {
	return NewApplicantRanker(f.apps, f.jobs, f.resumes, f.scorer, zap.NewNop())
}

func (f *rankFixture) request() RankRequest {
	return RankRequest{JobListingID: f.jobID, CandidateID: f.candidateID}
}

func intPtr(v int) *int { return &v }

func TestApplicantRankerPersistsRating(t *testing.T) {
	f := newRankFixture(intPtr(75))

	outcome, err := f.ranker().Rank(context.Background(), nil, f.request())
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	require.NotNil(t, outcome.Rating)
	assert.Equal(t, 75, *outcome.Rating)
	assert.Equal(t, models.RecommendationYes, outcome.Recommendation)
	require.NotNil(t, outcome.Breakdown)

	stored := f.apps.get(f.jobID, f.candidateID)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 75, *stored.Rating)
	assert.Equal(t, "Good fit", *stored.AIAnalysis)
	assert.Equal(t, models.StageReviewing, stored.Stage)

	require.Len(t, f.scorer.inputs, 1)
	in := f.scorer.inputs[0]
	assert.Equal(t, "Backend Engineer", in.JobTitle)
	assert.Equal(t, "senior", in.ExperienceLevel)
	assert.Equal(t, "full-time", in.JobType)
	assert.Equal(t, "Go, PostgreSQL", *in.RequiredSkills)
	assert.Equal(t, "I have shipped Go services for six years.", in.CoverLetter)
}

func TestApplicantRankerUsesSummaryOnlyWhenCompleted(t *testing.T) {
	for _, tc := range []struct {
		name   string
		status models.ParseStatus
		want   string
	}{
		{"completed", models.ParseStatusCompleted, "Seasoned Go engineer"},
		{"pending", models.ParseStatusPending, models.NoResumeSummary},
		{"processing", models.ParseStatusProcessing, models.NoResumeSummary},
		{"failed", models.ParseStatusFailed, models.NoResumeSummary},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newRankFixture(intPtr(60))
			summary := "Seasoned Go engineer"
			f.resumes = newFakeResumeRepo(&models.Resume{
				ID:          uuid.New(),
				CandidateID: f.candidateID,
				AISummary:   &summary,
				ParseStatus: tc.status,
			})

			_, err := f.ranker().Rank(context.Background(), nil, f.request())
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.scorer.inputs[0].ResumeSummary)
		})
	}
}

func TestApplicantRankerWithoutResume(t *testing.T) {
	f := newRankFixture(intPtr(40))

	outcome, err := f.ranker().Rank(context.Background(), nil, f.request())
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, "No resume provided", f.scorer.inputs[0].ResumeSummary)
}

func TestApplicantRankerNullRatingLeavesApplicationUntouched(t *testing.T) {
	f := newRankFixture(nil)
	f.scorer.result = models.Unrated("Error: quota exceeded")

	outcome, err := f.ranker().Rank(context.Background(), nil, f.request())
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, "Failed to calculate match score", outcome.Error)
	assert.Equal(t, "Error: quota exceeded", outcome.Details)
	assert.Zero(t, f.apps.updates)
	assert.Nil(t, f.apps.get(f.jobID, f.candidateID).Rating)
}

func TestApplicantRankerMissingEntities(t *testing.T) {
	t.Run("application", func(t *testing.T) {
		f := newRankFixture(intPtr(50))
		req := RankRequest{JobListingID: f.jobID, CandidateID: uuid.New()}

		outcome, err := f.ranker().Rank(context.Background(), nil, req)
		require.NoError(t, err)
		assert.Equal(t, "Application not found", outcome.Error)
		assert.Empty(t, f.scorer.inputs)
	})

	t.Run("job listing", func(t *testing.T) {
		f := newRankFixture(intPtr(50))
		f.jobs.jobs = map[uuid.UUID]*models.JobListing{}

		outcome, err := f.ranker().Rank(context.Background(), nil, f.request())
		require.NoError(t, err)
		assert.Equal(t, "Job listing not found", outcome.Error)
		assert.Empty(t, f.scorer.inputs)
	})
}

func TestApplicantRankerIsIdempotentAndMemoizesScore(t *testing.T) {
	f := newRankFixture(intPtr(82))
	f.apps.updateErr = errors.New("connection reset")
	steps := dispatch.NewSteps("run-rank", newMemoryStepStore(), zap.NewNop())
	ranker := f.ranker()

	_, err := ranker.Rank(context.Background(), steps, f.request())
	require.Error(t, err)

	f.apps.updateErr = nil
	for i := 0; i < 2; i++ {
		outcome, err := ranker.Rank(context.Background(), steps, f.request())
		require.NoError(t, err)
		assert.Equal(t, 82, *outcome.Rating)
	}

	assert.Len(t, f.scorer.inputs, 1)
	assert.Equal(t, 2, f.apps.updates)
	stored := f.apps.get(f.jobID, f.candidateID)
	assert.Equal(t, 82, *stored.Rating)
	assert.Equal(t, "Good fit", *stored.AIAnalysis)
}
