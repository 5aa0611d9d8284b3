package models

type UploadResponse struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	ParseStatus string `json:"parse_status"`
}

type CreateApplicationRequest struct {
	JobListingID string  `json:"job_listing_id"`
	CandidateID  string  `json:"candidate_id"`
	CoverLetter  *string `json:"cover_letter"`
}

type ResumeStatusResponse struct {
	CandidateID         string  `json:"candidate_id"`
	FileName            string  `json:"file_name"`
	ParseStatus         string  `json:"parse_status"`
	AISummary           *string `json:"ai_summary,omitempty"`
	ExtractedTextLength int     `json:"extracted_text_length"`
	ExtractedText       *string `json:"extracted_text,omitempty"`
}

type ApplicationResponse struct {
	JobListingID string  `json:"job_listing_id"`
	CandidateID  string  `json:"candidate_id"`
	CoverLetter  *string `json:"cover_letter,omitempty"`
	Rating       *int    `json:"rating"`
	AIAnalysis   *string `json:"ai_analysis,omitempty"`
	Stage        string  `json:"stage"`
	AppliedAt    string  `json:"applied_at"`
}
