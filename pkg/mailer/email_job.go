package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	mailtpl "github.com/oksasatya/go-user-service/pkg/mailer/templates"
)

var (
	// ErrNoRecipient rejects jobs that cannot be addressed.
	ErrNoRecipient = errors.New("email job has no recipient")
	// ErrRender marks a job whose template failed to render. Retrying cannot fix it.
	ErrRender = errors.New("render email")
)

// EmailJob is a templated message ready to render and send.
type EmailJob struct {
	To       string         `json:"to"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignupJob builds the welcome message for a signup event.
func SignupJob(b mailtpl.Branding, evt entity.UserSignupEvent) EmailJob {
	return EmailJob{
		To:       evt.Email,
		Template: mailtpl.SignupWelcome,
		Data:     mailtpl.NewSignupWelcomeData(b, evt.Username, evt.Email),
	}
}

// PasswordResetJob builds the reset message carrying the token link.
func PasswordResetJob(b mailtpl.Branding, evt entity.PasswordResetEvent) EmailJob {
	return EmailJob{
		To:       evt.Email,
		Template: mailtpl.PasswordReset,
		Data:     mailtpl.NewPasswordResetData(b, evt.Email, evt.UserID, evt.ResetToken),
	}
}

// Deliver renders job and hands it to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return ErrNoRecipient
	}
	subject, text, html, err := mailtpl.Render(job.Template, job.Data)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrRender, job.Template, err)
	}
	return s.Send(ctx, job.To, subject, text, html)
}
