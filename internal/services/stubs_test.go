package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
)

type stubGemini struct {
	mu        sync.Mutex
	text      string
	json      string
	err       error
	prompts   []string
	schemas   []*genai.Schema
	textCalls int
	jsonCalls int
}

func (s *stubGemini) GenerateText(ctx context.Context, prompt string, temperature float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textCalls++
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubGemini) GenerateJSON(ctx context.Context, prompt string, schema *genai.Schema, temperature float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jsonCalls++
	s.prompts = append(s.prompts, prompt)
	s.schemas = append(s.schemas, schema)
	if s.err != nil {
		return "", s.err
	}
	return s.json, nil
}

func (s *stubGemini) Model() string {
	return "stub"
}

type stubExtractor struct {
	text  string
	calls int
}

func (s *stubExtractor) Extract(data []byte, fileType models.FileType) string {
	s.calls++
	return s.text
}

type stubSummarizer struct {
	summary string
	calls   int
}

func (s *stubSummarizer) Summarize(ctx context.Context, resumeText string) string {
	s.calls++
	return s.summary
}

type stubScorer struct {
	result models.MatchResult
	inputs []MatchInput
}

func (s *stubScorer) Score(ctx context.Context, in MatchInput) models.MatchResult {
	s.inputs = append(s.inputs, in)
	return s.result
}

type fakeResumeRepo struct {
	mu          sync.Mutex
	resumes     map[uuid.UUID]*models.Resume
	transitions []models.ParseStatus
	findErr     error
	updateErrAt map[models.ParseStatus]error
	// failOnceAt errors the next update to a status, then clears itself.
	failOnceAt map[models.ParseStatus]error
}

func newFakeResumeRepo(resumes ...*models.Resume) *fakeResumeRepo {
	repo := &fakeResumeRepo{
		resumes:     make(map[uuid.UUID]*models.Resume),
		updateErrAt: make(map[models.ParseStatus]error),
		failOnceAt:  make(map[models.ParseStatus]error),
	}
	for _, r := range resumes {
		repo.resumes[r.CandidateID] = r
	}
	return repo
}

func (f *fakeResumeRepo) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) (*models.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	r, ok := f.resumes[candidateID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (f *fakeResumeRepo) UpsertForUpload(ctx context.Context, resume *models.Resume) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.resumes[resume.CandidateID]; ok {
		resume.ID = existing.ID
	} else if resume.ID == uuid.Nil {
		resume.ID = uuid.New()
	}
	resume.ParseStatus = models.ParseStatusPending
	resume.ExtractedText = nil
	resume.AISummary = nil
	resume.ParsedAt = nil
	clone := *resume
	f.resumes[resume.CandidateID] = &clone
	return nil
}

func (f *fakeResumeRepo) UpdateParse(ctx context.Context, id uuid.UUID, from models.ParseStatus, update repositories.ParseUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErrAt[update.Status]; err != nil {
		return err
	}
	if err := f.failOnceAt[update.Status]; err != nil {
		delete(f.failOnceAt, update.Status)
		return err
	}
	if !from.CanTransitionTo(update.Status) {
		return errors.New("invalid transition")
	}
	for _, r := range f.resumes {
		if r.ID != id {
			continue
		}
		if r.ParseStatus != from {
			return repositories.ErrStaleState
		}
		if update.FileURL != "" && r.FileURL != update.FileURL {
			return repositories.ErrStaleState
		}
		r.ParseStatus = update.Status
		if update.ExtractedText != nil {
			r.ExtractedText = update.ExtractedText
		}
		if update.AISummary != nil {
			r.AISummary = update.AISummary
		}
		if update.ParsedAt != nil {
			r.ParsedAt = update.ParsedAt
		}
		f.transitions = append(f.transitions, update.Status)
		return nil
	}
	return repositories.ErrStaleState
}

func (f *fakeResumeRepo) FindByStatus(ctx context.Context, status models.ParseStatus, olderThan time.Time, limit int) ([]models.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Resume
	for _, r := range f.resumes {
		if r.ParseStatus == status && r.UploadedAt.Before(olderThan) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeResumeRepo) get(candidateID uuid.UUID) models.Resume {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.resumes[candidateID]
}

type appKey struct {
	job       uuid.UUID
	candidate uuid.UUID
}

type fakeApplicationRepo struct {
	mu        sync.Mutex
	apps      map[appKey]*models.Application
	updates   int
	updateErr error
}

func newFakeApplicationRepo(apps ...*models.Application) *fakeApplicationRepo {
	repo := &fakeApplicationRepo{apps: make(map[appKey]*models.Application)}
	for _, a := range apps {
		repo.apps[appKey{a.JobListingID, a.CandidateID}] = a
	}
	return repo
}

func (f *fakeApplicationRepo) Create(ctx context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := appKey{app.JobListingID, app.CandidateID}
	if _, ok := f.apps[key]; ok {
		return repositories.ErrDuplicate
	}
	clone := *app
	f.apps[key] = &clone
	return nil
}

func (f *fakeApplicationRepo) Find(ctx context.Context, jobID, candidateID uuid.UUID) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.apps[appKey{jobID, candidateID}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (f *fakeApplicationRepo) UpdateRating(ctx context.Context, jobID, candidateID uuid.UUID, rating int, analysis string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.apps[appKey{jobID, candidateID}]
	if !ok {
		return repositories.ErrNotFound
	}
	f.updates++
	a.Rating = &rating
	a.AIAnalysis = &analysis
	return nil
}

func (f *fakeApplicationRepo) ListByJob(ctx context.Context, jobID uuid.UUID, filter repositories.ApplicationFilter) ([]models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Application
	for k, a := range f.apps {
		if k.job == jobID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApplicationRepo) Stats(ctx context.Context, jobID uuid.UUID) (repositories.ApplicationStats, error) {
	return repositories.ApplicationStats{}, nil
}

func (f *fakeApplicationRepo) FindUnrated(ctx context.Context, limit int) ([]models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Application
	for _, a := range f.apps {
		if a.Rating == nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApplicationRepo) get(jobID, candidateID uuid.UUID) models.Application {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.apps[appKey{jobID, candidateID}]
}

type fakeJobRepo struct {
	jobs map[uuid.UUID]*models.JobListing
}

func (f *fakeJobRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *j
	return &clone, nil
}

type memoryStepStore struct {
	mu      sync.Mutex
	outputs map[string][]byte
}

func newMemoryStepStore() *memoryStepStore {
	return &memoryStepStore{outputs: make(map[string][]byte)}
}

func (m *memoryStepStore) Load(ctx context.Context, runID, step string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.outputs[runID+"/"+step]
	return out, ok, nil
}

func (m *memoryStepStore) Save(ctx context.Context, runID, step string, output []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[runID+"/"+step] = output
	return nil
}
