package models

import (
	"time"

	"github.com/google/uuid"
)

type ExperienceLevel string

const (
	ExperienceJunior   ExperienceLevel = "junior"
	ExperienceMidLevel ExperienceLevel = "mid-level"
	ExperienceSenior   ExperienceLevel = "senior"
)

type JobListingType string

const (
	JobTypeInternship JobListingType = "internship"
	JobTypePartTime   JobListingType = "part-time"
	JobTypeFullTime   JobListingType = "full-time"
)

type JobListingStatus string

const (
	JobStatusDraft     JobListingStatus = "draft"
	JobStatusPublished JobListingStatus = "published"
	JobStatusDelisted  JobListingStatus = "delisted"
)

// JobListing is owned by the job CRUD layer. The ranking pipeline only reads it.
type JobListing struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrganizationID     uuid.UUID        `gorm:"type:uuid;not null" json:"organization_id"`
	Title              string           `gorm:"type:text;not null" json:"title"`
	Description        string           `gorm:"type:text;not null" json:"description"`
	ExperienceLevel    ExperienceLevel  `gorm:"type:text;not null" json:"experience_level"`
	Type               JobListingType   `gorm:"type:text;not null" json:"type"`
	Status             JobListingStatus `gorm:"type:text;not null;default:'draft'" json:"status"`
	RequiredSkills     *string          `gorm:"type:text" json:"required_skills,omitempty"`
	PreferredSkills    *string          `gorm:"type:text" json:"preferred_skills,omitempty"`
	MinYearsExperience *int             `json:"min_years_experience,omitempty"`
	RequiredEducation  *string          `gorm:"type:text" json:"required_education,omitempty"`
	CreatedAt          time.Time        `gorm:"type:timestamptz;default:now()" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"type:timestamptz;default:now()" json:"updated_at"`
}

func (JobListing) TableName() string {
	return "job_listings"
}
