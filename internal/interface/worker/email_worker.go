// Package worker consumes domain events and turns them into email.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/internal/infrastructure/mq"
	"github.com/oksasatya/go-user-service/pkg/helpers"
	"github.com/oksasatya/go-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-user-service/pkg/mailer/templates"
)

// EmailWorker renders and sends the signup and password-reset emails.
type EmailWorker struct {
	Sender   mailer.Sender
	Branding mailtpl.Branding
	Channels application.Channels
	Logger   *logrus.Logger
}

func NewEmailWorker(sender mailer.Sender, b mailtpl.Branding, channels application.Channels, logger *logrus.Logger) *EmailWorker {
	return &EmailWorker{Sender: sender, Branding: b, Channels: channels, Logger: logger}
}

// Run subscribes to both channels and blocks until ctx is done or a
// subscription fails.
func (w *EmailWorker) Run(ctx context.Context, backend mq.Backend) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subs := map[string]mq.Handler{
		w.Channels.Signup:        w.HandleSignup,
		w.Channels.PasswordReset: w.HandlePasswordReset,
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for channel, h := range subs {
		wg.Add(1)
		go func(channel string, h mq.Handler) {
			defer wg.Done()
			w.log().WithField("channel", channel).Info("email worker subscribed")
			err := backend.Subscribe(ctx, channel, h)
			if err != nil && !errors.Is(err, context.Canceled) {
				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
				cancel()
			}
		}(channel, h)
	}
	wg.Wait()
	return first
}

// HandleSignup sends the welcome email. Undecodable payloads are dropped.
func (w *EmailWorker) HandleSignup(ctx context.Context, msg mq.Message) error {
	var evt entity.UserSignupEvent
	if !w.decode(ctx, msg, &evt) {
		return nil
	}
	return w.deliver(ctx, msg, mailer.SignupJob(w.Branding, evt), evt.UserID)
}

// HandlePasswordReset sends the reset link. Undecodable payloads are dropped.
func (w *EmailWorker) HandlePasswordReset(ctx context.Context, msg mq.Message) error {
	var evt entity.PasswordResetEvent
	if !w.decode(ctx, msg, &evt) {
		return nil
	}
	return w.deliver(ctx, msg, mailer.PasswordResetJob(w.Branding, evt), evt.UserID)
}

func (w *EmailWorker) decode(ctx context.Context, msg mq.Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		w.entry(ctx, msg).WithError(err).Error("dropping undecodable event")
		return false
	}
	return true
}

// deliver returns send failures so the backend redelivers. A job with no
// recipient or a template that fails to render can never succeed and is dropped.
func (w *EmailWorker) deliver(ctx context.Context, msg mq.Message, job mailer.EmailJob, userID string) error {
	log := w.entry(ctx, msg).WithFields(logrus.Fields{"template": job.Template, "user_id": userID})
	err := mailer.Deliver(ctx, w.Sender, job)
	switch {
	case errors.Is(err, mailer.ErrNoRecipient):
		log.Error("dropping event without recipient")
		return nil
	case errors.Is(err, mailer.ErrRender):
		log.WithError(err).Error("dropping event whose email cannot be rendered")
		return nil
	case err != nil:
		log.WithError(err).Warn("email send failed; will retry")
		return err
	}
	log.Info("email sent")
	return nil
}

func (w *EmailWorker) log() *logrus.Entry {
	if w.Logger == nil {
		return helpers.LoggerFrom(context.Background())
	}
	return logrus.NewEntry(w.Logger)
}

func (w *EmailWorker) entry(ctx context.Context, msg mq.Message) *logrus.Entry {
	return w.log().WithContext(ctx).WithField("message_id", msg.ID)
}
