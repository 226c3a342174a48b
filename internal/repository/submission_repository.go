package repository

import (
	"context"

	"github.com/google/uuid"
	"product-drafts-service/internal/models"
	"gorm.io/gorm"
)

// SubmissionRepository stores the submission history
type SubmissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create records one submission attempt
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.DraftSubmission) error {
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(submission).Error
}

// ListByTenant returns the newest submissions of a tenant, optionally
// filtered by product type and outcome
func (r *SubmissionRepository) ListByTenant(ctx context.Context, tenantID, productType string, outcome models.SubmissionOutcome, limit, offset int) ([]models.DraftSubmission, int64, error) {
	var submissions []models.DraftSubmission
	var total int64

	query := r.db.WithContext(ctx).Model(&models.DraftSubmission{}).
		Where("tenant_id = ?", tenantID)

	if productType != "" {
		query = query.Where("product_type = ?", productType)
	}
	if outcome != "" {
		query = query.Where("outcome = ?", outcome)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&submissions).Error

	return submissions, total, err
}

// ListByDraft returns every attempt made for one draft, oldest first
func (r *SubmissionRepository) ListByDraft(ctx context.Context, tenantID string, draftID uuid.UUID) ([]models.DraftSubmission, error) {
	var submissions []models.DraftSubmission
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND draft_id = ?", tenantID, draftID).
		Order("created_at ASC").
		Find(&submissions).Error
	return submissions, err
}
