package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-user-service/config"
	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

type env struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "usersctl",
		Short:         "Operate the user service database and outbox",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			e.cfg = config.Load()
			e.logger = helpers.NewLogger(e.cfg.AppName+"-ctl", e.cfg.Env)
		},
	}
	root.AddCommand(newMigrateCmd(e), newSeedCmd(e), newOutboxCmd(e))
	return root
}

func (e *env) pool(ctx context.Context) (*pgxpool.Pool, error) {
	if e.cfg.UsesMemoryStore() {
		return nil, fmt.Errorf("usersctl needs STORE_DRIVER=postgres")
	}
	return pginfra.NewPool(ctx, e.cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns: 2,
		AppName:  e.cfg.AppName + "-ctl",
	})
}
