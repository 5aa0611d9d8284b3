package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NoResumeSummary is what the scorer sees when a candidate has no usable summary.
const NoResumeSummary = "No resume provided"

// Resume is the single uploaded resume of a candidate. A new upload overwrites it.
type Resume struct {
	ID            uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex" json:"candidate_id"`
	FileURL       string      `gorm:"type:text;not null" json:"file_url"`
	FileName      string      `gorm:"type:text;not null" json:"file_name"`
	FileType      FileType    `gorm:"type:text" json:"file_type"`
	ExtractedText *string     `gorm:"type:text" json:"extracted_text,omitempty"`
	AISummary     *string     `gorm:"type:text" json:"ai_summary,omitempty"`
	ParseStatus   ParseStatus `gorm:"type:text;not null;default:'pending';index" json:"parse_status"`
	UploadedAt    time.Time   `gorm:"type:timestamptz;default:now()" json:"uploaded_at"`
	ParsedAt      *time.Time  `gorm:"type:timestamptz" json:"parsed_at,omitempty"`
}

func (Resume) TableName() string {
	return "resumes"
}

// UsableSummary returns the AI summary only when the last parse cycle completed.
// Pending, processing, failed and missing resumes all read as "no resume".
func (r *Resume) UsableSummary() string {
	if r == nil {
		return NoResumeSummary
	}

	switch r.ParseStatus {
	case ParseStatusCompleted:
		if r.AISummary != nil && strings.TrimSpace(*r.AISummary) != "" {
			return *r.AISummary
		}
		return NoResumeSummary
	case ParseStatusPending, ParseStatusProcessing, ParseStatusFailed:
		return NoResumeSummary
	default:
		return NoResumeSummary
	}
}
