package dto

import (
	"encoding/json"
	"time"

	"cvanalyzer_backend/internal/models"
)

// ResumeDTO - list/detail view of an uploaded resume
type ResumeDTO struct {
	ID           string              `json:"id"`
	OriginalName string              `json:"original_name"`
	FileURL      string              `json:"file_url,omitempty"`
	MimeType     string              `json:"mime_type"`
	Size         int64               `json:"size"`
	Status       models.ResumeStatus `json:"status"`
	ErrorMessage string              `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	ProcessedAt  *time.Time          `json:"processed_at,omitempty"`

	ParsedData *ParsedResumeDTO `json:"parsed_data,omitempty"`
}

// ParsedResumeDTO - structured extraction result
type ParsedResumeDTO struct {
	PersonalInfo    json.RawMessage `json:"personal_info,omitempty"`
	Experience      json.RawMessage `json:"experience,omitempty"`
	Education       json.RawMessage `json:"education,omitempty"`
	Skills          json.RawMessage `json:"skills,omitempty"`
	Certifications  json.RawMessage `json:"certifications,omitempty"`
	Projects        json.RawMessage `json:"projects,omitempty"`
	Summary         string          `json:"summary"`
	ConfidenceScore int             `json:"confidence_score"`
}

// CoverLetterRequest - cover letter generation payload
type CoverLetterRequest struct {
	JobDescription string `json:"job_description" binding:"required,min=20"`
}

// CoverLetterResponse - generated cover letter
type CoverLetterResponse struct {
	ResumeID    string `json:"resume_id"`
	CoverLetter string `json:"cover_letter"`
}

// ResumeListResponse - paginated resume list
type ResumeListResponse struct {
	Resumes    []ResumeDTO `json:"resumes"`
	Pagination Pagination  `json:"pagination"`
}

func NewResumeDTO(resume *models.Resume) ResumeDTO {
	d := ResumeDTO{
		ID:           resume.ID,
		OriginalName: resume.OriginalName,
		FileURL:      resume.FileURL,
		MimeType:     resume.MimeType,
		Size:         resume.Size,
		Status:       resume.Status,
		ErrorMessage: resume.ErrorMessage,
		CreatedAt:    resume.CreatedAt,
		ProcessedAt:  resume.ProcessedAt,
	}
	if resume.ParsedData != nil {
		d.ParsedData = NewParsedResumeDTO(resume.ParsedData)
	}
	return d
}

func NewParsedResumeDTO(parsed *models.ParsedResume) *ParsedResumeDTO {
	return &ParsedResumeDTO{
		PersonalInfo:    json.RawMessage(parsed.PersonalInfo),
		Experience:      json.RawMessage(parsed.Experience),
		Education:       json.RawMessage(parsed.Education),
		Skills:          json.RawMessage(parsed.Skills),
		Certifications:  json.RawMessage(parsed.Certifications),
		Projects:        json.RawMessage(parsed.Projects),
		Summary:         parsed.Summary,
		ConfidenceScore: parsed.ConfidenceScore,
	}
}
