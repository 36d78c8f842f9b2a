package mq

import (
	"context"
	"fmt"

	"github.com/oksasatya/go-user-service/pkg/helpers"
)

// EventPublisher is the fire-and-forget send used by the outbox dispatcher.
// Failures are logged and returned to the caller.
type EventPublisher struct {
	backend Backend
	source  string
}

func NewEventPublisher(backend Backend, source string) *EventPublisher {
	return &EventPublisher{backend: backend, source: source}
}

// Publish sends an already encoded JSON message to channel.
func (p *EventPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	log := helpers.LoggerFrom(ctx).WithField("channel", channel)
	log.Debug("publishing message")

	id, err := p.backend.Publish(ctx, channel, payload, map[string]string{
		"content_type": "application/json",
		"source":       p.source,
	})
	if err != nil {
		log.WithError(err).Error("failed to publish message")
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	log.WithField("broker_message_id", id).Info("message published")
	return nil
}

