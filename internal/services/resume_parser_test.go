package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/models"
)

func pendingResume(candidateID uuid.UUID) *models.Resume {
	return &models.Resume{
		ID:          uuid.New(),
		CandidateID: candidateID,
		FileURL:     "local://resume.pdf",
		FileName:    "resume.pdf",
		FileType:    models.FileTypePDF,
		ParseStatus: models.ParseStatusPending,
	}
}

func TestResumeParserCompletes(t *testing.T) {
	candidateID := uuid.New()
	repo := newFakeResumeRepo(pendingResume(candidateID))
	extractor := &stubExtractor{text: strings.Repeat("a", 1200)}
	summarizer := &stubSummarizer{summary: "## Professional Summary\nSolid engineer"}
	parser := NewResumeParser(repo, extractor, summarizer, zap.NewNop())

	outcome, err := parser.Parse(context.Background(), nil, ParseRequest{
		CandidateID: candidateID,
		FileContent: []byte("%PDF"),
		FileType:    models.FileTypePDF,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, models.ParseStatusCompleted, outcome.ParseStatus)

	stored := repo.get(candidateID)
	assert.Equal(t, models.ParseStatusCompleted, stored.ParseStatus)
	require.NotNil(t, stored.ExtractedText)
	assert.Len(t, *stored.ExtractedText, 1200)
	require.NotNil(t, stored.AISummary)
	assert.NotEmpty(t, *stored.AISummary)
	assert.NotNil(t, stored.ParsedAt)
	assert.Equal(t, []models.ParseStatus{models.ParseStatusProcessing, models.ParseStatusCompleted}, repo.transitions)
}

func TestResumeParserFailsOnShortText(t *testing.T) {
	for _, text := range []string{"", "   ", strings.Repeat("x", MinExtractedTextLength-1)} {
		candidateID := uuid.New()
		repo := newFakeResumeRepo(pendingResume(candidateID))
		summarizer := &stubSummarizer{summary: "unused"}
		parser := NewResumeParser(repo, &stubExtractor{text: text}, summarizer, zap.NewNop())

		outcome, err := parser.Parse(context.Background(), nil, ParseRequest{CandidateID: candidateID, FileType: models.FileTypePDF})
		require.NoError(t, err)

		assert.False(t, outcome.Success)
		assert.Equal(t, "Could not extract text from resume", outcome.Error)
		assert.Zero(t, summarizer.calls)

		stored := repo.get(candidateID)
		assert.Equal(t, models.ParseStatusFailed, stored.ParseStatus)
		require.NotNil(t, stored.ExtractedText)
		assert.Equal(t, text, *stored.ExtractedText)
		assert.Nil(t, stored.AISummary)
	}
}

func TestResumeParserMissingResume(t *testing.T) {
	extractor := &stubExtractor{text: "irrelevant"}
	parser := NewResumeParser(newFakeResumeRepo(), extractor, &stubSummarizer{}, zap.NewNop())

	outcome, err := parser.Parse(context.Background(), nil, ParseRequest{CandidateID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, "Resume not found", outcome.Error)
	assert.Zero(t, extractor.calls)
}

func TestResumeParserSkipsCompletedResume(t *testing.T) {
	candidateID := uuid.New()
	resume := pendingResume(candidateID)
	resume.ParseStatus = models.ParseStatusCompleted
	repo := newFakeResumeRepo(resume)
	extractor := &stubExtractor{text: strings.Repeat("a", 100)}

	outcome, err := NewResumeParser(repo, extractor, &stubSummarizer{}, zap.NewNop()).
		Parse(context.Background(), nil, ParseRequest{CandidateID: candidateID})
	require.NoError(t, err)

	assert.True(t, outcome.Skipped)
	assert.Zero(t, extractor.calls)
	assert.Empty(t, repo.transitions)
}

func TestResumeParserLoadErrorIsRetryable(t *testing.T) {
	repo := newFakeResumeRepo()
	repo.findErr = errors.New("connection refused")

	_, err := NewResumeParser(repo, &stubExtractor{}, &stubSummarizer{}, zap.NewNop()).
		Parse(context.Background(), nil, ParseRequest{CandidateID: uuid.New()})
	require.Error(t, err)
}

func TestResumeParserMarksFailedAndRetriesFromMemoizedSteps(t *testing.T) {
	candidateID := uuid.New()
	repo := newFakeResumeRepo(pendingResume(candidateID))
	repo.updateErrAt[models.ParseStatusCompleted] = errors.New("deadlock detected")

	extractor := &stubExtractor{text: strings.Repeat("b", 400)}
	summarizer := &stubSummarizer{summary: "summary"}
	parser := NewResumeParser(repo, extractor, summarizer, zap.NewNop())
	steps := dispatch.NewSteps("run-1", newMemoryStepStore(), zap.NewNop())
	req := ParseRequest{CandidateID: candidateID, FileType: models.FileTypePDF}

	_, err := parser.Parse(context.Background(), steps, req)
	require.Error(t, err)
	assert.Equal(t, models.ParseStatusFailed, repo.get(candidateID).ParseStatus)

	delete(repo.updateErrAt, models.ParseStatusCompleted)

	outcome, err := parser.Parse(context.Background(), steps, req)
	require.NoError(t, err)
	assert.True(t, outcome.Success)

	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, 1, summarizer.calls)
	assert.Equal(t, []models.ParseStatus{
		models.ParseStatusProcessing,
		models.ParseStatusFailed,
		models.ParseStatusProcessing,
		models.ParseStatusCompleted,
	}, repo.transitions)
}

func TestResumeParserProcessingUpdateError(t *testing.T) {
	candidateID := uuid.New()
	repo := newFakeResumeRepo(pendingResume(candidateID))
	repo.updateErrAt[models.ParseStatusProcessing] = errors.New("db down")
	extractor := &stubExtractor{text: strings.Repeat("a", 100)}

	_, err := NewResumeParser(repo, extractor, &stubSummarizer{}, zap.NewNop()).
		Parse(context.Background(), nil, ParseRequest{CandidateID: candidateID})
	require.Error(t, err)

	assert.Equal(t, models.ParseStatusPending, repo.get(candidateID).ParseStatus)
	assert.Zero(t, extractor.calls)
}

func TestResumeParserShortTextPersistErrorStillMarksFailed(t *testing.T) {
	candidateID := uuid.New()
	repo := newFakeResumeRepo(pendingResume(candidateID))
	repo.failOnceAt[models.ParseStatusFailed] = errors.New("connection reset")
	summarizer := &stubSummarizer{summary: "unused"}

	_, err := NewResumeParser(repo, &stubExtractor{text: "tiny"}, summarizer, zap.NewNop()).
		Parse(context.Background(), nil, ParseRequest{CandidateID: candidateID, FileType: models.FileTypePDF})
	require.Error(t, err)

	assert.Zero(t, summarizer.calls)
	assert.Equal(t, models.ParseStatusFailed, repo.get(candidateID).ParseStatus)
	assert.Equal(t, []models.ParseStatus{models.ParseStatusProcessing, models.ParseStatusFailed}, repo.transitions)
}

// contentExtractor returns the uploaded bytes as text and runs onExtract first, if set.
type contentExtractor struct {
	onExtract func()
}

func (c *contentExtractor) Extract(data []byte, fileType models.FileType) string {
	if c.onExtract != nil {
		c.onExtract()
		c.onExtract = nil
	}
	return string(data)
}

func reupload(t *testing.T, repo *fakeResumeRepo, candidateID uuid.UUID, fileURL string) {
	t.Helper()
	require.NoError(t, repo.UpsertForUpload(context.Background(), &models.Resume{
		CandidateID: candidateID,
		FileURL:     fileURL,
		FileName:    strings.TrimPrefix(fileURL, "local://"),
		FileType:    models.FileTypePDF,
	}))
}

func TestResumeParserStaleEventDoesNotOverrideNewerUpload(t *testing.T) {
	candidateID := uuid.New()
	repo := newFakeResumeRepo()
	reupload(t, repo, candidateID, "local://v1.pdf")
	reupload(t, repo, candidateID, "local://v2.pdf")

	parser := NewResumeParser(repo, &contentExtractor{}, &stubSummarizer{summary: "summary"}, zap.NewNop())
	oldContent := []byte(strings.Repeat("OLD ", 30))
	newContent := []byte(strings.Repeat("NEW ", 30))

	stale, err := parser.Parse(context.Background(), nil, ParseRequest{
		CandidateID: candidateID,
		FileContent: oldContent,
		FileType:    models.FileTypePDF,
		FileURL:     "local://v1.pdf",
	})
	require.NoError(t, err)
	assert.False(t, stale.Success)
	assert.True(t, stale.Skipped)
	assert.Equal(t, "Superseded by a newer upload", stale.Error)
	assert.Empty(t, repo.transitions)

	fresh, err := parser.Parse(context.Background(), nil, ParseRequest{
		CandidateID: candidateID,
		FileContent: newContent,
		FileType:    models.FileTypePDF,
		FileURL:     "local://v2.pdf",
	})
	require.NoError(t, err)
	assert.True(t, fresh.Success)
	assert.False(t, fresh.Skipped)

	stored := repo.get(candidateID)
	assert.Equal(t, models.ParseStatusCompleted, stored.ParseStatus)
	assert.Equal(t, "v2.pdf", stored.FileName)
	require.NotNil(t, stored.ExtractedText)
	assert.True(t, strings.HasPrefix(*stored.ExtractedText, "NEW "))
}

func TestResumeParserUploadDuringRunDiscardsOldResult(t *testing.T) {
	candidateID := uuid.New()
	repo := newFakeResumeRepo()
	reupload(t, repo, candidateID, "local://v1.pdf")

	extractor := &contentExtractor{onExtract: func() { reupload(t, repo, candidateID, "local://v2.pdf") }}
	parser := NewResumeParser(repo, extractor, &stubSummarizer{summary: "summary"}, zap.NewNop())
	oldReq := ParseRequest{
		CandidateID: candidateID,
		FileContent: []byte(strings.Repeat("OLD ", 30)),
		FileType:    models.FileTypePDF,
		FileURL:     "local://v1.pdf",
	}

	_, err := parser.Parse(context.Background(), nil, oldReq)
	require.Error(t, err)
	assert.Equal(t, models.ParseStatusPending, repo.get(candidateID).ParseStatus)

	retried, err := parser.Parse(context.Background(), nil, oldReq)
	require.NoError(t, err)
	assert.True(t, retried.Skipped)

	fresh, err := parser.Parse(context.Background(), nil, ParseRequest{
		CandidateID: candidateID,
		FileContent: []byte(strings.Repeat("NEW ", 30)),
		FileType:    models.FileTypePDF,
		FileURL:     "local://v2.pdf",
	})
	require.NoError(t, err)
	assert.True(t, fresh.Success)

	stored := repo.get(candidateID)
	require.NotNil(t, stored.ExtractedText)
	assert.True(t, strings.HasPrefix(*stored.ExtractedText, "NEW "))
}
