package application

import (
	"context"
	"expvar"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-user-service/internal/domain/repository"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

var (
	outboxDispatched = expvar.NewInt("outbox_dispatched")
	outboxFailed     = expvar.NewInt("outbox_failed")
)

// EventPublisher sends an encoded message to a named channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Locker guards a dispatch tick so only one process drains the outbox at a time.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context) (bool, error) { return true, nil }
func (noopLocker) Release(context.Context) error         { return nil }

// Dispatcher delivers staged outbox messages at least once.
type Dispatcher struct {
	Outbox      repo.OutboxStore
	Publisher   EventPublisher
	Locker      Locker
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
	Logger      *logrus.Logger
	Now         func() time.Time
}

func NewDispatcher(outbox repo.OutboxStore, pub EventPublisher, locker Locker, interval time.Duration, batchSize, maxAttempts int, logger *logrus.Logger) *Dispatcher {
	if locker == nil {
		locker = noopLocker{}
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Dispatcher{
		Outbox:      outbox,
		Publisher:   pub,
		Locker:      locker,
		Interval:    interval,
		BatchSize:   batchSize,
		MaxAttempts: maxAttempts,
		Logger:      logger,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run dispatches on every tick until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ctx = d.logContext(ctx)
	log := helpers.LoggerFrom(ctx)
	log.WithField("interval", d.Interval.String()).Info("outbox dispatcher started")

	t := time.NewTicker(d.Interval)
	defer t.Stop()
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("outbox dispatch tick failed")
		}
		select {
		case <-ctx.Done():
			log.Info("outbox dispatcher stopped")
			return
		case <-t.C:
		}
	}
}

// DispatchOnce publishes one batch and returns how many messages were delivered.
// A publish failure is recorded on the message and does not stop the batch.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	ok, err := d.Locker.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	defer func() { _ = d.Locker.Release(context.WithoutCancel(ctx)) }()

	msgs, err := d.Outbox.Pending(ctx, d.BatchSize, d.MaxAttempts)
	if err != nil {
		return 0, err
	}

	log := helpers.LoggerFrom(ctx)
	sent := 0
	for _, m := range msgs {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		mlog := log.WithFields(logrus.Fields{"message_id": m.ID, "channel": m.Channel, "attempt": m.Attempts + 1})
		if pubErr := d.Publisher.Publish(ctx, m.Channel, m.Payload); pubErr != nil {
			outboxFailed.Add(1)
			mlog.WithError(pubErr).Warn("outbox publish failed")
			if err := d.Outbox.MarkFailed(ctx, m.ID, pubErr); err != nil {
				return sent, err
			}
			if m.Attempts+1 >= d.MaxAttempts {
				mlog.Error("outbox message exhausted its attempts")
			}
			continue
		}
		if err := d.Outbox.MarkDispatched(ctx, m.ID, d.Now()); err != nil {
			// already published; it will be sent again on the next tick
			return sent, err
		}
		outboxDispatched.Add(1)
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) logContext(ctx context.Context) context.Context {
	if d.Logger == nil {
		return ctx
	}
	return helpers.WithLogger(ctx, d.Logger.WithField("component", "outbox"))
}
