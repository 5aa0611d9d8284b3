package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/models"
	"joblinker/api/internal/repositories"
)

type memResumes struct {
	mu        sync.Mutex
	resumes   map[uuid.UUID]models.Resume
	upsertErr error
}

func newMemResumes() *memResumes {
	return &memResumes{resumes: make(map[uuid.UUID]models.Resume)}
}

func (m *memResumes) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) (*models.Resume, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resumes[candidateID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &r, nil
}

func (m *memResumes) UpsertForUpload(ctx context.Context, resume *models.Resume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if existing, ok := m.resumes[resume.CandidateID]; ok {
		resume.ID = existing.ID
	} else {
		resume.ID = uuid.New()
	}
	resume.ParseStatus = models.ParseStatusPending
	resume.ExtractedText = nil
	resume.AISummary = nil
	resume.ParsedAt = nil
	m.resumes[resume.CandidateID] = *resume
	return nil
}

func (m *memResumes) UpdateParse(ctx context.Context, id uuid.UUID, from models.ParseStatus, update repositories.ParseUpdate) error {
	return errors.New("not used by handlers")
}

func (m *memResumes) FindByStatus(ctx context.Context, status models.ParseStatus, olderThan time.Time, limit int) ([]models.Resume, error) {
	return nil, nil
}

type memApplications struct {
	mu      sync.Mutex
	apps    []models.Application
	filters []repositories.ApplicationFilter
	stats   repositories.ApplicationStats
}

func (m *memApplications) Create(ctx context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.JobListingID == app.JobListingID && a.CandidateID == app.CandidateID {
			return repositories.ErrDuplicate
		}
	}
	m.apps = append(m.apps, *app)
	return nil
}

func (m *memApplications) Find(ctx context.Context, jobID, candidateID uuid.UUID) (*models.Application, error) {
	return nil, repositories.ErrNotFound
}

func (m *memApplications) UpdateRating(ctx context.Context, jobID, candidateID uuid.UUID, rating int, analysis string) error {
	return errors.New("not used by handlers")
}

func (m *memApplications) ListByJob(ctx context.Context, jobID uuid.UUID, filter repositories.ApplicationFilter) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filters = append(m.filters, filter)
	var out []models.Application
	for _, a := range m.apps {
		if a.JobListingID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memApplications) Stats(ctx context.Context, jobID uuid.UUID) (repositories.ApplicationStats, error) {
	return m.stats, nil
}

func (m *memApplications) FindUnrated(ctx context.Context, limit int) ([]models.Application, error) {
	return nil, nil
}

type memJobs map[uuid.UUID]models.JobListing

func (m memJobs) FindByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	j, ok := m[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &j, nil
}

type memStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	deleted   []string
	deleteErr error
	n         int
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) EnsureUploadDir() error { return nil }

func (m *memStorage) Save(candidateID uuid.UUID, fileType models.FileType, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	pointer := fmt.Sprintf("local://%s-%d.%s", candidateID, m.n, fileType)
	m.files[pointer] = data
	return pointer, nil
}

func (m *memStorage) Read(pointer string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[pointer]
	if !ok {
		return nil, errors.New("missing")
	}
	return data, nil
}

func (m *memStorage) Delete(pointer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, pointer)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.files, pointer)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dispatch.Event
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, ev dispatch.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}
