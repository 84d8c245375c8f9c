package models

import (
	"time"

	"gorm.io/datatypes"
)

type Resume struct {
	BaseModel
	UserID       string       `gorm:"not null;index" json:"user_id"`
	OriginalName string       `gorm:"not null" json:"original_name"`
	StoragePath  string       `gorm:"not null" json:"-"`
	FileURL      string       `json:"file_url"`
	MimeType     string       `json:"mime_type"`
	Size         int64        `json:"size"`
	Status       ResumeStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	ProcessedAt  *time.Time   `json:"processed_at,omitempty"`

	// Relations
	ParsedData *ParsedResume `gorm:"foreignKey:ResumeID" json:"parsed_data,omitempty"`
}

// ParsedResume stores the structured extraction result. At most one row per
// resume.
type ParsedResume struct {
	BaseModel
	ResumeID        string         `gorm:"not null;uniqueIndex" json:"resume_id"`
	PersonalInfo    datatypes.JSON `gorm:"type:jsonb" json:"personal_info"`
	Experience      datatypes.JSON `gorm:"type:jsonb" json:"experience"`
	Education       datatypes.JSON `gorm:"type:jsonb" json:"education"`
	Skills          datatypes.JSON `gorm:"type:jsonb" json:"skills"`
	Certifications  datatypes.JSON `gorm:"type:jsonb" json:"certifications"`
	Projects        datatypes.JSON `gorm:"type:jsonb" json:"projects"`
	Summary         string         `json:"summary"`
	ConfidenceScore int            `json:"confidence_score"`
}
