package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ApplicationStage is the human review pipeline stage. The AI rating never changes it.
type ApplicationStage string

const (
	StagePending     ApplicationStage = "pending"
	StageReviewing   ApplicationStage = "reviewing"
	StageShortlisted ApplicationStage = "shortlisted"
	StageDenied      ApplicationStage = "denied"
	StageApplied     ApplicationStage = "applied"
	StageInterested  ApplicationStage = "interested"
	StageInterviewed ApplicationStage = "interviewed"
	StageHired       ApplicationStage = "hired"
)

// Application is one candidate's application to one job listing.
type Application struct {
	JobListingID uuid.UUID        `gorm:"type:uuid;primaryKey" json:"job_listing_id"`
	CandidateID  uuid.UUID        `gorm:"type:uuid;primaryKey" json:"candidate_id"`
	CoverLetter  *string          `gorm:"type:text" json:"cover_letter,omitempty"`
	Rating       *int             `gorm:"index" json:"rating"`
	AIAnalysis   *string          `gorm:"type:text" json:"ai_analysis,omitempty"`
	Stage        ApplicationStage `gorm:"type:text;not null;default:'applied'" json:"stage"`
	AppliedAt    time.Time        `gorm:"type:timestamptz;default:now()" json:"applied_at"`
	UpdatedAt    time.Time        `gorm:"type:timestamptz;default:now()" json:"updated_at"`
}

func (Application) TableName() string {
	return "job_listing_applications"
}

func ParseApplicationStage(s string) (ApplicationStage, error) {
	switch stage := ApplicationStage(strings.ToLower(strings.TrimSpace(s))); stage {
	case StagePending, StageReviewing, StageShortlisted, StageDenied,
		StageApplied, StageInterested, StageInterviewed, StageHired:
		return stage, nil
	default:
		return "", fmt.Errorf("unknown application stage %q", s)
	}
}
