package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"joblinker/api/internal/models"
)

type JobListingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error)
}

type jobListingRepository struct {
	db *gorm.DB
}

func NewJobListingRepository(db *gorm.DB) JobListingRepository {
	return &jobListingRepository{db: db}
}

func (r *jobListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	var job models.JobListing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find job listing: %w", err)
	}
	return &job, nil
}
