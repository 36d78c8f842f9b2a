package main

import (
	"github.com/spf13/cobra"

	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
)

func newOutboxCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and recover undelivered events",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the number of undelivered outbox messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := e.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			n, err := pginfra.NewOutboxRepository(pool).CountPending(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("pending: %d\n", n)
			return nil
		},
	}

	requeue := &cobra.Command{
		Use:   "requeue",
		Short: "Reset attempts on failed messages so the dispatcher retries them",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := e.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			n, err := pginfra.NewOutboxRepository(pool).Requeue(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("requeued: %d\n", n)
			return nil
		},
	}

	cmd.AddCommand(status, requeue)
	return cmd
}
