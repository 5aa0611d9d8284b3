package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"joblinker/api/internal/models"
)

type ResumeRepository interface {
	FindByCandidateID(ctx context.Context, candidateID uuid.UUID) (*models.Resume, error)
	UpsertForUpload(ctx context.Context, resume *models.Resume) error
	UpdateParse(ctx context.Context, id uuid.UUID, from models.ParseStatus, update ParseUpdate) error
	FindByStatus(ctx context.Context, status models.ParseStatus, olderThan time.Time, limit int) ([]models.Resume, error)
}

// ParseUpdate is the set of columns the parse pipeline writes. Nil pointers leave a column untouched.
type ParseUpdate struct {
	Status        models.ParseStatus
	ExtractedText *string
	AISummary     *string
	ParsedAt      *time.Time
	// FileURL, when set, restricts the update to the row still holding that upload.
	FileURL string
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

func (r *resumeRepository) FindByCandidateID(ctx context.Context, candidateID uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}

	return &resume, nil
}

// UpsertForUpload stores a new upload for the candidate. An existing resume row keeps its id
// and starts a new parse cycle: status goes back to pending and prior output is cleared.
func (r *resumeRepository) UpsertForUpload(ctx context.Context, resume *models.Resume) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Resume
		err := tx.Where("candidate_id = ?", resume.CandidateID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if resume.ID == uuid.Nil {
				resume.ID = uuid.New()
			}
			resume.ParseStatus = models.ParseStatusPending
			resume.ExtractedText = nil
			resume.AISummary = nil
			resume.ParsedAt = nil
			if resume.UploadedAt.IsZero() {
				resume.UploadedAt = time.Now()
			}
			if err := tx.Create(resume).Error; err != nil {
				return fmt.Errorf("failed to create resume: %w", err)
			}
			return nil
		case err != nil:
			return fmt.Errorf("failed to find resume: %w", err)
		}

		uploadedAt := time.Now()
		result := tx.Model(&models.Resume{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"file_url":       resume.FileURL,
				"file_name":      resume.FileName,
				"file_type":      resume.FileType,
				"extracted_text": nil,
				"ai_summary":     nil,
				"parsed_at":      nil,
				"parse_status":   models.ParseStatusPending,
				"uploaded_at":    uploadedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to reset resume: %w", result.Error)
		}

		resume.ID = existing.ID
		resume.ParseStatus = models.ParseStatusPending
		resume.ExtractedText = nil
		resume.AISummary = nil
		resume.ParsedAt = nil
		resume.UploadedAt = uploadedAt
		return nil
	})
}

// UpdateParse moves the resume from the expected status to update.Status.
// It returns ErrStaleState when the row is no longer in the expected status or no longer
// holds the upload named by update.FileURL.
func (r *resumeRepository) UpdateParse(ctx context.Context, id uuid.UUID, from models.ParseStatus, update ParseUpdate) error {
	if !from.CanTransitionTo(update.Status) {
		return fmt.Errorf("invalid parse transition %s -> %s", from, update.Status)
	}

	updates := map[string]interface{}{
		"parse_status": update.Status,
	}
	if update.ExtractedText != nil {
		updates["extracted_text"] = *update.ExtractedText
	}
	if update.AISummary != nil {
		updates["ai_summary"] = *update.AISummary
	}
	if update.ParsedAt != nil {
		updates["parsed_at"] = *update.ParsedAt
	}

	query := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("id = ? AND parse_status = ?", id, from)
	if update.FileURL != "" {
		query = query.Where("file_url = ?", update.FileURL)
	}

	result := query.Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update parse status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleState
	}

	return nil
}

func (r *resumeRepository) FindByStatus(ctx context.Context, status models.ParseStatus, olderThan time.Time, limit int) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.WithContext(ctx).
		Where("parse_status = ? AND uploaded_at < ?", status, olderThan).
		Order("uploaded_at ASC").
		Limit(limit).
		Find(&resumes).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find resumes by status: %w", err)
	}

	return resumes, nil
}
