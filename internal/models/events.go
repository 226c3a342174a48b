package models

import "time"

// Draft outcome event types
const (
	EventDraftSubmitted = "product_draft.submitted"
	EventDraftFailed    = "product_draft.failed"
)

// DraftOutcomeEvent reports how a draft submission ended
type DraftOutcomeEvent struct {
	EventID     string    `json:"eventId"`
	EventType   string    `json:"eventType"`
	TenantID    string    `json:"tenantId"`
	ActorID     string    `json:"actorId,omitempty"`
	DraftID     string    `json:"draftId"`
	ProductType string    `json:"productType"`
	DraftMode   bool      `json:"draftMode"`
	ProductID   string    `json:"productId,omitempty"`
	ProductName string    `json:"productName,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
