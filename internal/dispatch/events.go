package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EventResumeUploaded     = "resume.uploaded"
	EventApplicationCreated = "application.created"
)

// Event is the envelope carried on the queue. ID stays the same across redeliveries
// and retries, so it keys the memoized steps of one run.
type Event struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Attempt   int             `json:"attempt"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// ResumeUploaded asks for a resume to be parsed. FileContent is base64 encoded.
// FileURL is the storage pointer of the upload the content belongs to.
type ResumeUploaded struct {
	CandidateID string `json:"candidate_id"`
	FileContent string `json:"file_content"`
	FileType    string `json:"file_type"`
	FileURL     string `json:"file_url,omitempty"`
}

// ApplicationCreated asks for an application to be ranked.
type ApplicationCreated struct {
	JobListingID string `json:"job_listing_id"`
	CandidateID  string `json:"candidate_id"`
}

func NewEvent(name string, payload any) (Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Event{}, errors.New("event name is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}

	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Data:      data,
		EmittedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("event %s has no payload", e.Name)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Name, err)
	}
	return nil
}
