// Package events publishes draft submission outcomes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"product-drafts-service/internal/models"
)

// StreamProductDrafts holds every product_draft.* event
const StreamProductDrafts = "PRODUCT_DRAFT_EVENTS"

// Publisher sends draft outcome events to NATS JetStream
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger *logrus.Entry
}

// NewPublisher connects to natsURL and makes sure the draft stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	entry := logger.WithField("component", "draft-events")

	nc, err := nats.Connect(natsURL,
		nats.Name("product-drafts-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			entry.WithError(err).Warn("NATS disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamProductDrafts,
		Subjects:  []string{"product_draft.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		entry.WithError(err).Warn("Failed to ensure draft events stream (may already exist)")
	}

	return &Publisher{nc: nc, js: js, logger: entry}, nil
}

// Close drains the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// PublishOutcome publishes the event without blocking the caller. Publish
// errors are logged only.
func (p *Publisher) PublishOutcome(ctx context.Context, event *models.DraftOutcomeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fields := logrus.Fields{
			"eventType": event.EventType,
			"draftID":   event.DraftID,
			"tenantID":  event.TenantID,
		}
		if _, err := p.js.Publish(pubCtx, event.EventType, data, jetstream.WithMsgID(event.EventID)); err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to publish draft event")
			return
		}
		p.logger.WithFields(fields).Info("Draft event published successfully")
	}()

	return nil
}
