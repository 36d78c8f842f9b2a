package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/config"
	"github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/container"
	"github.com/oksasatya/go-user-service/internal/infrastructure/lease"
	"github.com/oksasatya/go-user-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-user-service/internal/infrastructure/mq"
	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-service/internal/infrastructure/search"
	"github.com/oksasatya/go-user-service/internal/interface/middleware"
	"github.com/oksasatya/go-user-service/internal/router"
	"github.com/oksasatya/go-user-service/pkg/helpers"
	"github.com/oksasatya/go-user-service/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container.SetConfig(cfg)
	container.SetLogger(logger)

	// Store
	if cfg.UsesMemoryStore() {
		logger.Warn("using in-memory store; data is lost on exit")
		s := memory.NewStore()
		container.SetStore(s, s.Outbox())
	} else {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
			AppName:     cfg.AppName,
		})
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		if err := pginfra.MigrateUp(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		container.SetStore(pginfra.NewUserStore(pool), pginfra.NewOutboxRepository(pool))
	}

	// Redis holds the dispatcher lease
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func(c io.Closer) { _ = c.Close() }(rdb)
	if err := helpers.PingRedis(ctx, rdb); err != nil {
		logger.WithError(err).Warn("redis unreachable; outbox lease falls back to single-process mode")
		rdb = nil
	} else {
		container.SetRedis(rdb)
	}

	// Search projection
	if cfg.SearchEnabled {
		es, err := search.NewClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch: %v", err)
		}
		if err := search.EnsureIndex(ctx, es, cfg.ESUsersIndex); err != nil {
			logger.WithError(err).Warn("could not ensure search index; projection writes may fail")
		}
		container.SetES(es)
	}

	// Outbox dispatcher
	var wg sync.WaitGroup
	if cfg.OutboxEnabled {
		backend, err := newBackend(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init %s backend: %v", cfg.EventBackend, err)
		}
		defer func() { _ = backend.Close() }()

		var locker application.Locker
		if rdb != nil {
			locker = lease.NewRedisLease(rdb, cfg.AppName+":outbox:lease", cfg.OutboxLeaseTTL)
		}
		d := application.NewDispatcher(
			container.GetOutbox(),
			mq.NewEventPublisher(backend, cfg.AppName),
			locker,
			cfg.OutboxPollInterval,
			cfg.OutboxBatchSize,
			cfg.OutboxMaxAttempts,
			logger,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newEngine(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	wg.Wait()
	logger.Info("server exited properly")
}

func newEngine(cfg *config.Config, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	if err := middleware.TrustProxies(r, cfg.TrustedProxyList()); err != nil {
		log.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}
	r.Use(middleware.RealIP())
	r.Use(middleware.RequestContext(logger))
	r.Use(middleware.Recovery())
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		// cors.New panics on an empty origin list
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(middleware.AccessLog())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()
	return r
}

func newBackend(ctx context.Context, cfg *config.Config) (mq.Backend, error) {
	switch cfg.EventBackend {
	case "pubsub":
		return mq.NewPubSub(ctx, cfg.PubSubProjectID, cfg.PubSubCredentialsJSON, cfg.PubSubSubSuffix)
	case "rabbitmq", "":
		return mq.NewRabbitMQ(cfg.RabbitMQURL, 10)
	default:
		return nil, errors.New("unknown event backend " + cfg.EventBackend)
	}
}
