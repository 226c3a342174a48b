package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionOutcome is the terminal result of one submission attempt
type SubmissionOutcome string

const (
	SubmissionSucceeded SubmissionOutcome = "SUCCEEDED"
	SubmissionFailed    SubmissionOutcome = "FAILED"
)

// DraftSubmission is the history row written for every submission attempt
// that reached the catalog backend.
type DraftSubmission struct {
	ID           uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID     string            `json:"tenantId" gorm:"type:varchar(255);not null;index:idx_draft_submissions_tenant"`
	DraftID      uuid.UUID         `json:"draftId" gorm:"type:uuid;not null;index"`
	ProductType  string            `json:"productType" gorm:"type:varchar(50);not null"`
	DraftMode    bool              `json:"draftMode" gorm:"not null;default:false"`
	Outcome      SubmissionOutcome `json:"outcome" gorm:"type:varchar(20);not null"`
	ProductID    *string           `json:"productId,omitempty" gorm:"type:varchar(255)"`
	ErrorMessage *string           `json:"errorMessage,omitempty" gorm:"type:text"`
	SubmittedBy  string            `json:"submittedBy" gorm:"type:varchar(255)"`
	Attachments  int               `json:"attachments" gorm:"not null;default:0"`
	DurationMs   int64             `json:"durationMs"`
	CreatedAt    time.Time         `json:"createdAt" gorm:"index:idx_draft_submissions_tenant"`
}

// TableName returns the table name for DraftSubmission
func (DraftSubmission) TableName() string {
	return "draft_submissions"
}
