package events

import (
	"context"

	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/models"
)

// LogNotifier writes outcome events to the log. It stands in for the
// publisher when NATS is not configured.
type LogNotifier struct {
	logger *logrus.Entry
}

// NewLogNotifier creates a notifier on logger
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithField("component", "draft-events")}
}

// PublishOutcome logs the event
func (n *LogNotifier) PublishOutcome(_ context.Context, event *models.DraftOutcomeEvent) error {
	entry := n.logger.WithFields(logrus.Fields{
		"eventType":   event.EventType,
		"draftID":     event.DraftID,
		"tenantID":    event.TenantID,
		"productType": event.ProductType,
		"draftMode":   event.DraftMode,
	})
	if event.EventType == models.EventDraftFailed {
		entry.WithField("message", event.Message).Warn("Draft submission failed")
		return nil
	}
	entry.WithField("productID", event.ProductID).Info("Draft submitted")
	return nil
}
