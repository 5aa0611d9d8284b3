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

type ApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	Find(ctx context.Context, jobID, candidateID uuid.UUID) (*models.Application, error)
	UpdateRating(ctx context.Context, jobID, candidateID uuid.UUID, rating int, analysis string) error
	ListByJob(ctx context.Context, jobID uuid.UUID, filter ApplicationFilter) ([]models.Application, error)
	Stats(ctx context.Context, jobID uuid.UUID) (ApplicationStats, error)
	FindUnrated(ctx context.Context, limit int) ([]models.Application, error)
}

const (
	SortByRating    = "rating"
	SortByAppliedAt = "applied_at"
)

type ApplicationFilter struct {
	SortBy    string
	Stage     *models.ApplicationStage
	MinRating *int
}

// ApplicationStats buckets the rated applications of a job. Unrated ones only count toward Total.
type ApplicationStats struct {
	Total            int64 `json:"total"`
	ExcellentMatches int64 `json:"excellent_matches"`
	GoodMatches      int64 `json:"good_matches"`
	NeedsReview      int64 `json:"needs_review"`
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *models.Application) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (r *applicationRepository) Find(ctx context.Context, jobID, candidateID uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("job_listing_id = ? AND candidate_id = ?", jobID, candidateID).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return &app, nil
}

// UpdateRating overwrites the AI columns only. Stage is never touched here.
func (r *applicationRepository) UpdateRating(ctx context.Context, jobID, candidateID uuid.UUID, rating int, analysis string) error {
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("job_listing_id = ? AND candidate_id = ?", jobID, candidateID).
		Updates(map[string]interface{}{
			"rating":      rating,
			"ai_analysis": analysis,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update rating: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *applicationRepository) ListByJob(ctx context.Context, jobID uuid.UUID, filter ApplicationFilter) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Where("job_listing_id = ?", jobID)

	if filter.Stage != nil {
		query = query.Where("stage = ?", *filter.Stage)
	}
	if filter.MinRating != nil {
		query = query.Where("rating >= ?", *filter.MinRating)
	}

	switch filter.SortBy {
	case SortByAppliedAt:
		query = query.Order("applied_at DESC")
	default:
		query = query.Order("rating DESC NULLS LAST").Order("applied_at ASC")
	}

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}

func (r *applicationRepository) Stats(ctx context.Context, jobID uuid.UUID) (ApplicationStats, error) {
	var stats ApplicationStats
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE rating >= 90) AS excellent_matches,
			COUNT(*) FILTER (WHERE rating >= 75 AND rating < 90) AS good_matches,
			COUNT(*) FILTER (WHERE rating < 75) AS needs_review`).
		Where("job_listing_id = ?", jobID).
		Scan(&stats).Error
	if err != nil {
		return ApplicationStats{}, fmt.Errorf("failed to compute application stats: %w", err)
	}

	return stats, nil
}

func (r *applicationRepository) FindUnrated(ctx context.Context, limit int) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.WithContext(ctx).
		Where("rating IS NULL").
		Order("applied_at ASC").
		Limit(limit).
		Find(&apps).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find unrated applications: %w", err)
	}

	return apps, nil
}
