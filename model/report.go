package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report is a generated PDF summarizing one Submission
type Report struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Filename     string    `json:"filename" gorm:"uniqueIndex;not null"`
	Content      []byte    `json:"-" gorm:"not null"`
	Size         int       `json:"size"`
	SubmissionID string    `json:"submissionId" gorm:"type:varchar(36);not null;index"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Size = len(r.Content)
	return nil
}

// AIAnalysis stores one text analysis produced for a description
type AIAnalysis struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	SubmissionID *string   `json:"submissionId,omitempty" gorm:"type:varchar(36);index"`
	UserID       string    `json:"userId" gorm:"type:varchar(36);index"`
	Text         string    `json:"text" gorm:"type:text;not null"`
	Result       string    `json:"result" gorm:"type:text"` // JSON document from the model
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (AIAnalysis) TableName() string {
	return "ai_analyses"
}

func (a *AIAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
