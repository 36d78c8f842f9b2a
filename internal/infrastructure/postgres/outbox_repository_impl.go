package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/internal/domain/repository"
)

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Pending(ctx context.Context, limit, maxAttempts int) ([]entity.OutboxMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel, payload, created_at, attempts, COALESCE(last_error, '')
		FROM outbox_messages
		WHERE dispatched_at IS NULL AND attempts < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, maxAttempts, limit)
	if err != nil {
		return nil, storeErr("outbox pending", err)
	}
	defer rows.Close()

	out := make([]entity.OutboxMessage, 0, limit)
	for rows.Next() {
		var m entity.OutboxMessage
		if err := rows.Scan(&m.ID, &m.Channel, &m.Payload, &m.CreatedAt, &m.Attempts, &m.LastError); err != nil {
			return nil, storeErr("outbox pending", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("outbox pending", err)
	}
	return out, nil
}

func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_messages SET dispatched_at = $2, attempts = attempts + 1, last_error = NULL
		WHERE id = $1
	`, id, at.UTC())
	return storeErr("outbox mark dispatched", err)
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_messages SET attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`, id, msg)
	return storeErr("outbox mark failed", err)
}

func (r *OutboxRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM outbox_messages WHERE dispatched_at IS NULL`).Scan(&n); err != nil {
		return 0, storeErr("outbox count", err)
	}
	return n, nil
}

func (r *OutboxRepository) Requeue(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE outbox_messages SET attempts = 0 WHERE dispatched_at IS NULL AND attempts > 0`)
	if err != nil {
		return 0, storeErr("outbox requeue", err)
	}
	return tag.RowsAffected(), nil
}

var _ repository.OutboxStore = (*OutboxRepository)(nil)
