package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	mailtpl "github.com/oksasatya/go-user-service/pkg/mailer/templates"
)

type recordingSender struct {
	to, subject, text, html string
	err                     error
}

func (r *recordingSender) Send(_ context.Context, to, subject, text, html string) error {
	r.to, r.subject, r.text, r.html = to, subject, text, html
	return r.err
}

func TestDeliverSignup(t *testing.T) {
	s := &recordingSender{}
	job := SignupJob(mailtpl.Branding{AppName: "Accounts"}, entity.UserSignupEvent{UserID: "u1", Email: "ada@example.com", Username: "ada@example.com"})

	require.NoError(t, Deliver(context.Background(), s, job))
	assert.Equal(t, "ada@example.com", s.to)
	assert.Equal(t, "Welcome to Accounts", s.subject)
	assert.NotEmpty(t, s.text)
	assert.NotEmpty(t, s.html)
}

func TestDeliverPasswordReset(t *testing.T) {
	s := &recordingSender{}
	b := mailtpl.Branding{ResetPasswordURL: "https://acme.test/reset"}
	job := PasswordResetJob(b, entity.PasswordResetEvent{UserID: "u1", Email: "ada@example.com", ResetToken: "tok"})

	require.NoError(t, Deliver(context.Background(), s, job))
	assert.Contains(t, s.text, "https://acme.test/reset?token=tok&userId=u1")
}

func TestDeliverErrors(t *testing.T) {
	s := &recordingSender{err: assert.AnError}
	job := SignupJob(mailtpl.Branding{}, entity.UserSignupEvent{Email: "ada@example.com"})
	require.ErrorIs(t, Deliver(context.Background(), s, job), assert.AnError)

	job.To = ""
	require.ErrorIs(t, Deliver(context.Background(), s, job), ErrNoRecipient)

	job.To = "ada@example.com"
	job.Template = "no_such_template"
	require.ErrorIs(t, Deliver(context.Background(), s, job), ErrRender)
}
