package main

import (
	"github.com/spf13/cobra"

	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
)

func newMigrateCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return pginfra.MigrateUp(e.cfg.PostgresDSN(), e.cfg.MigrationsDir, e.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return pginfra.MigrateDown(e.cfg.PostgresDSN(), e.cfg.MigrationsDir, steps, e.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(up, down)
	return cmd
}
