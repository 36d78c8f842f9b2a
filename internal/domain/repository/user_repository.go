package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
)

// ErrStore wraps every persistence failure (unreachable store, constraint violation).
var ErrStore = errors.New("store failure")

// UserRepository is a unit of work over the user table.
// Add, Update and Enqueue only stage changes; SaveChanges commits them atomically
// and leaves the store untouched on failure.
type UserRepository interface {
	Count(ctx context.Context) (int64, error)
	GetPaged(ctx context.Context, pageNumber, pageSize int) ([]entity.User, error)
	GetAll(ctx context.Context) ([]entity.User, error)
	// GetByID returns (nil, nil) when no row matches. Soft-deleted rows are returned.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Add(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, u *entity.User) error
	Enqueue(ctx context.Context, msg entity.OutboxMessage) error
	SaveChanges(ctx context.Context) error
}

// UserStore hands out a fresh unit of work per operation.
type UserStore interface {
	Session() UserRepository
	Ping(ctx context.Context) error
}

// OutboxStore is read by the dispatcher to deliver staged events.
type OutboxStore interface {
	// Pending returns undelivered messages with fewer than maxAttempts attempts, oldest first.
	Pending(ctx context.Context, limit, maxAttempts int) ([]entity.OutboxMessage, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause error) error
	CountPending(ctx context.Context) (int64, error)
	// Requeue resets the attempt counter of every undelivered message.
	Requeue(ctx context.Context) (int64, error)
}
