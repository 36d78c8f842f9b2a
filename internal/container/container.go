package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-service/config"
	"github.com/oksasatya/go-user-service/internal/domain/repository"
)

// Process-wide components built once in main and read by the router when it
// wires modules. Optional components stay nil when disabled.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client

	store  repository.UserStore
	outbox repository.OutboxStore

	esClient *elasticsearch.Client
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger  { return logger }
func SetRedis(r *redis.Client)   { redisClient = r }
func GetRedis() *redis.Client    { return redisClient }

func SetStore(s repository.UserStore, o repository.OutboxStore) {
	store = s
	outbox = o
}
func GetStore() repository.UserStore    { return store }
func GetOutbox() repository.OutboxStore { return outbox }

func SetES(c *elasticsearch.Client) { esClient = c }
func GetES() *elasticsearch.Client  { return esClient }
