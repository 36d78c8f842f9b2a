package helpers

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

var base = logrus.StandardLogger()

// NewLogger creates a configured Logrus logger and makes it the fallback
// for contexts that carry no request-scoped entry.
func NewLogger(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env}).Info("logger initialized")
	base = logger
	return logger
}

// WithLogger returns a copy of ctx carrying entry.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// LoggerFrom returns the request-scoped entry stored in ctx, or an entry on the
// process logger when there is none.
func LoggerFrom(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		if e, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok && e != nil {
			return e.WithContext(ctx)
		}
	}
	return logrus.NewEntry(base).WithContext(ctx)
}

// LogError Convenience methods to keep a unified logging interface
func LogError(ctx context.Context, msg string, err error, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LoggerFrom(ctx).WithFields(fields).Error(msg)
}

func LogInfo(ctx context.Context, msg string, fields logrus.Fields) {
	LoggerFrom(ctx).WithFields(fields).Info(msg)
}
