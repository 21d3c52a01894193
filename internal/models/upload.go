package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StagedUpload records a file pushed to object storage. It stays uncommitted
// until a submission referencing it creates a remote record; uncommitted
// uploads past their TTL are swept.
type StagedUpload struct {
	UploadID uint64 `gorm:"primaryKey;autoIncrement"`
	PublicID string `gorm:"size:255;not null;uniqueIndex"`
	URL      string `gorm:"size:700;not null;index"`
	Bytes    int64
	Format   string `gorm:"size:32"`
	// Provider resource type (image, video, raw), required to destroy the file
	ResourceType string    `gorm:"size:16"`
	Committed    bool      `gorm:"not null;default:false;index:idx_staged_sweep,priority:1"`
	CreatedAt    time.Time `gorm:"index:idx_staged_sweep,priority:2"`
	UpdatedAt    time.Time
}

// TableName overrides the table name for StagedUpload
func (StagedUpload) TableName() string {
	return "staged_uploads"
}

// Submission states
const (
	SubmissionIdle       = "idle"
	SubmissionValidating = "validating"
	SubmissionUploading  = "uploading"
	SubmissionPosting    = "posting"
	SubmissionSubmitted  = "submitted"
	SubmissionFailed     = "failed"
)

// Submission is the audit row of one submission attempt
type Submission struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	FormID    string `gorm:"type:char(36);not null;index"`
	State     string `gorm:"size:16;not null"`
	RecordID  string `gorm:"size:64"`
	Fields    int
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name for Submission
func (Submission) TableName() string {
	return "submissions"
}

// BeforeCreate assigns a generated identifier
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
