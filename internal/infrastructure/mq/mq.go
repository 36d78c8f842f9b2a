// Package mq carries domain events to a broker. RabbitMQ is the default backend,
// Google Pub/Sub the alternative; both expose the same Backend contract.
package mq

import "context"

// Message is a broker-agnostic delivery handed to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to have it redelivered.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by every broker client.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}
