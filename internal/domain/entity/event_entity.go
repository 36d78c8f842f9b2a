package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// UserSignupEvent is published once a signup has been persisted.
type UserSignupEvent struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// PasswordResetEvent carries a freshly issued reset token to the email pipeline.
type PasswordResetEvent struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	ResetToken string `json:"resetToken"`
}

// OutboxMessage is an event stored alongside the mutation that produced it,
// waiting to be delivered to Channel.
type OutboxMessage struct {
	ID           string
	Channel      string
	Payload      []byte
	CreatedAt    time.Time
	Attempts     int
	LastError    string
	DispatchedAt *time.Time
}

// NewOutboxMessage encodes event as JSON and wraps it for channel.
func NewOutboxMessage(channel string, event any) (OutboxMessage, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		ID:        uuid.NewString(),
		Channel:   channel,
		Payload:   b,
		CreatedAt: time.Now().UTC(),
	}, nil
}
