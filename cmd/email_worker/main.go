package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-user-service/config"
	"github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/infrastructure/mq"
	"github.com/oksasatya/go-user-service/internal/interface/worker"
	"github.com/oksasatya/go-user-service/pkg/helpers"
	"github.com/oksasatya/go-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-user-service/pkg/mailer/templates"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Warn("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		backend mq.Backend
		err     error
	)
	switch cfg.EventBackend {
	case "pubsub":
		backend, err = mq.NewPubSub(ctx, cfg.PubSubProjectID, cfg.PubSubCredentialsJSON, cfg.PubSubSubSuffix)
	default:
		backend, err = mq.NewRabbitMQ(cfg.RabbitMQURL, 16)
	}
	if err != nil {
		log.Fatalf("failed to init %s backend: %v", cfg.EventBackend, err)
	}
	defer func() { _ = backend.Close() }()

	w := worker.NewEmailWorker(
		mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender),
		mailtpl.BrandingFrom(cfg),
		application.Channels{Signup: cfg.SignupChannel, PasswordReset: cfg.PasswordResetChannel},
		logger,
	)

	logger.WithField("backend", cfg.EventBackend).Info("email worker starting")
	if err := w.Run(ctx, backend); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("email worker stopped")
	}
	logger.Info("email worker exited")
}
