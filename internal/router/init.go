package router

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/container"
	"github.com/oksasatya/go-user-service/internal/infrastructure/search"
	handlers "github.com/oksasatya/go-user-service/internal/interface/http"
	"github.com/oksasatya/go-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-user-service/internal/router/modules"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

// buildUserHandler assembles the account service and its handler.
func buildUserHandler() *handlers.UserHandler {
	cfg := container.GetConfig()

	// a nil *UserIndexer must not reach the service as a non-nil interface
	var indexer application.UserIndexer
	var searcher handlers.Searcher
	if es := container.GetES(); es != nil {
		x := search.NewUserIndexer(es, cfg.ESUsersIndex)
		indexer, searcher = x, x
	} else {
		moduleLog().Info("search projection disabled")
	}

	service := application.NewService(
		container.GetStore(),
		helpers.BcryptHasher{},
		indexer,
		application.Channels{Signup: cfg.SignupChannel, PasswordReset: cfg.PasswordResetChannel},
	)
	return handlers.NewUserHandler(service, searcher)
}

func buildGetLimit() gin.HandlerFunc {
	rdb := container.GetRedis()
	if rdb == nil {
		moduleLog().Warn("redis unavailable; GET /users/:id is not rate limited")
		return nil
	}
	cfg := container.GetConfig()
	return middleware.RateLimit(middleware.NewRedisCounter(rdb), cfg.RateLimitGetByID, cfg.RateLimitWindow, middleware.KeyByIPAndRoute())
}

func moduleLog() *logrus.Entry {
	l := container.GetLogger()
	if l == nil {
		l = logrus.StandardLogger()
	}
	return l.WithField("component", "router")
}

func buildHealth() *handlers.HealthHandler {
	checks := map[string]handlers.Pinger{"store": container.GetStore()}
	if rdb := container.GetRedis(); rdb != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return helpers.PingRedis(ctx, rdb)
		})
	}
	return handlers.NewHealthHandler(checks)
}

// InitModules wires every feature module into the registry. Call once at startup,
// after the container is populated.
func InitModules(r *Registry) {
	r.Add(modules.NewUserModule(buildUserHandler(), buildGetLimit()))
	r.Add(modules.NewDebugModule(buildHealth(), container.GetConfig().DebugMetricsEnabled))
}
