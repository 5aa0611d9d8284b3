package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"joblinker/api/internal/models"
)

// StepRepository persists memoized step outputs of dispatched events.
type StepRepository struct {
	db *gorm.DB
}

func NewStepRepository(db *gorm.DB) *StepRepository {
	return &StepRepository{db: db}
}

func (r *StepRepository) Load(ctx context.Context, runID, step string) ([]byte, bool, error) {
	var row models.JobStep
	err := r.db.WithContext(ctx).
		Where("run_id = ? AND step = ?", runID, step).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load step %s: %w", step, err)
	}
	return []byte(row.Output), true, nil
}

func (r *StepRepository) Save(ctx context.Context, runID, step string, output []byte) error {
	row := models.JobStep{
		RunID:     runID,
		Step:      step,
		Output:    string(output),
		CreatedAt: time.Now(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "step"}},
		DoUpdates: clause.AssignmentColumns([]string{"output", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save step %s: %w", step, err)
	}
	return nil
}

// DeleteBefore removes step rows older than cutoff and returns how many were removed.
func (r *StepRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.JobStep{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune steps: %w", result.Error)
	}
	return result.RowsAffected, nil
}
