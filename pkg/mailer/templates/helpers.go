package templates

import (
	"net/url"
	"strings"
	"time"

	"github.com/oksasatya/go-user-service/config"
)

// Branding carries the static links and names every template shows.
type Branding struct {
	AppName          string
	CompanyName      string
	SupportURL       string
	LoginURL         string
	ResetPasswordURL string
}

// BrandingFrom reads Branding from the process config.
func BrandingFrom(cfg *config.Config) Branding {
	return Branding{
		AppName:          cfg.AppName,
		CompanyName:      cfg.CompanyName,
		SupportURL:       cfg.SupportURL,
		LoginURL:         cfg.LoginURL,
		ResetPasswordURL: cfg.ResetPasswordURL,
	}
}

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithResetURL(u string) Option { return func(d *EmailData) { d.ResetURL = u } }

// NewBaseEmailData fills the common fields from b, then applies opts.
func NewBaseEmailData(b Branding, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		Type:        typ,
		AppName:     b.AppName,
		CompanyName: b.CompanyName,
		SupportURL:  b.SupportURL,
		LoginURL:    b.LoginURL,
	}
	WithTime(time.Now())(&d)
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewSignupWelcomeData(b Branding, username, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(b, SignupWelcome, username, email, opts...))
}

// NewPasswordResetData links to the reset page with the token and user id as query parameters.
func NewPasswordResetData(b Branding, email, userID, token string, opts ...Option) map[string]any {
	opts = append([]Option{WithResetURL(ResetLink(b.ResetPasswordURL, userID, token))}, opts...)
	d := NewBaseEmailData(b, PasswordReset, email, email, opts...)
	d.UserID = userID
	return ToMap(d)
}

// ResetLink appends token and userId to base, keeping any query it already has.
func ResetLink(base, userID, token string) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String()
}
