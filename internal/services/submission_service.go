package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/clients"
	"product-drafts-service/internal/draft"
	"product-drafts-service/internal/encoder"
	"product-drafts-service/internal/models"
	"product-drafts-service/internal/repository"
)

// ProductCreator is the HTTP collaborator that receives encoded drafts
type ProductCreator interface {
	CreateProduct(ctx context.Context, endpoint, tenantID string, payload *encoder.Payload) (*clients.CreatedProduct, error)
}

// Notifier receives submission outcomes
type Notifier interface {
	PublishOutcome(ctx context.Context, event *models.DraftOutcomeEvent) error
}

// SubmissionRecorder keeps the submission history
type SubmissionRecorder interface {
	Create(ctx context.Context, submission *models.DraftSubmission) error
}

// SessionStore discards drafts once the backend has accepted them
type SessionStore interface {
	Delete(ctx context.Context, tenantID, ownerID string, id uuid.UUID) error
}

// SubmissionResult is returned for a draft the backend accepted
type SubmissionResult struct {
	DraftID     uuid.UUID `json:"draftId"`
	ProductID   string    `json:"productId"`
	ProductType string    `json:"productType"`
	DraftMode   bool      `json:"draftMode"`
	Message     string    `json:"message,omitempty"`
}

// SubmissionService runs encode, transport and outcome for one draft
type SubmissionService struct {
	creator  ProductCreator
	sessions SessionStore
	notifier Notifier
	recorder SubmissionRecorder
	logger   *logrus.Entry
}

// NewSubmissionService creates a new SubmissionService. notifier and
// recorder may be nil.
func NewSubmissionService(creator ProductCreator, sessions SessionStore, notifier Notifier, recorder SubmissionRecorder, logger *logrus.Logger) *SubmissionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &SubmissionService{
		creator:  creator,
		sessions: sessions,
		notifier: notifier,
		recorder: recorder,
		logger:   logger.WithField("component", "submission_service"),
	}
}

// Submit sends the draft to the catalog backend. The draft is locked for the
// duration of the call. A failed submission returns it to editing; on success
// it becomes terminal and the session is discarded.
//
// Errors are draft.ErrConcurrentSubmission when another submit holds the
// draft, draft.ErrDraftSubmitted once it has been accepted, a
// *draft.ShapeError when encoding fails, or a *clients.TransportError.
func (s *SubmissionService) Submit(ctx context.Context, session *repository.DraftSession, draftMode bool, actorID string) (*SubmissionResult, error) {
	store := session.Store
	schema := store.Schema()

	snap, err := store.BeginSubmit()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	created, err := s.send(ctx, session.TenantID, schema, snap, draftMode)
	duration := time.Since(start)

	log := s.logger.WithFields(logrus.Fields{
		"tenant_id":    session.TenantID,
		"draft_id":     snap.ID,
		"product_type": schema.Type,
		"draft_mode":   draftMode,
		"duration_ms":  duration.Milliseconds(),
	})

	if err != nil {
		store.EndSubmit()
		var te *clients.TransportError
		if errors.As(err, &te) {
			log.WithError(err).Warn("Draft submission failed")
			s.record(session, snap, draftMode, actorID, duration, "", err)
			s.notify(ctx, session, snap, draftMode, actorID, "", te.Message)
		} else {
			log.WithError(err).Error("Draft could not be encoded")
		}
		return nil, err
	}

	// The draft is terminal before anything else can observe it.
	store.CompleteSubmit()
	if err := s.sessions.Delete(ctx, session.TenantID, session.OwnerID, snap.ID); err != nil && !errors.Is(err, repository.ErrDraftNotFound) {
		log.WithError(err).Warn("Failed to discard submitted draft")
	}

	log.WithField("product_id", created.ID).Info("Draft submitted")
	s.record(session, snap, draftMode, actorID, duration, created.ID, nil)
	s.notify(ctx, session, snap, draftMode, actorID, created.ID, created.Message)

	return &SubmissionResult{
		DraftID:     snap.ID,
		ProductID:   created.ID,
		ProductType: schema.Type,
		DraftMode:   draftMode,
		Message:     created.Message,
	}, nil
}

func (s *SubmissionService) send(ctx context.Context, tenantID string, schema *models.ProductSchema, snap draft.Snapshot, draftMode bool) (*clients.CreatedProduct, error) {
	payload, err := encoder.Encode(schema, snap, draftMode)
	if err != nil {
		return nil, err
	}
	created, err := s.creator.CreateProduct(ctx, schema.Endpoint, tenantID, payload)
	if err != nil {
		var te *clients.TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &clients.TransportError{Message: "failed to send the product to the catalog service", Err: err}
	}
	return created, nil
}

func (s *SubmissionService) record(session *repository.DraftSession, snap draft.Snapshot, draftMode bool, actorID string, duration time.Duration, productID string, sendErr error) {
	if s.recorder == nil {
		return
	}
	row := &models.DraftSubmission{
		ID:          uuid.New(),
		TenantID:    session.TenantID,
		DraftID:     snap.ID,
		ProductType: snap.ProductType,
		DraftMode:   draftMode,
		Outcome:     models.SubmissionSucceeded,
		SubmittedBy: actorID,
		Attachments: len(snap.Attachments),
		DurationMs:  duration.Milliseconds(),
	}
	if productID != "" {
		row.ProductID = &productID
	}
	if sendErr != nil {
		msg := sendErr.Error()
		row.Outcome = models.SubmissionFailed
		row.ErrorMessage = &msg
	}

	// History must not depend on the request that produced it.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recorder.Create(ctx, row); err != nil {
		s.logger.WithError(err).WithField("draft_id", snap.ID).Warn("Failed to record submission")
	}
}

func (s *SubmissionService) notify(ctx context.Context, session *repository.DraftSession, snap draft.Snapshot, draftMode bool, actorID, productID, message string) {
	if s.notifier == nil {
		return
	}
	eventType := models.EventDraftSubmitted
	if productID == "" {
		eventType = models.EventDraftFailed
	}
	name, _ := snap.Scalars["name"].(string)

	event := &models.DraftOutcomeEvent{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		TenantID:    session.TenantID,
		ActorID:     actorID,
		DraftID:     snap.ID.String(),
		ProductType: snap.ProductType,
		DraftMode:   draftMode,
		ProductID:   productID,
		ProductName: name,
		Message:     message,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.notifier.PublishOutcome(ctx, event); err != nil {
		s.logger.WithError(err).WithField("draft_id", snap.ID).Warnf("Failed to publish %s", eventType)
	}
}
