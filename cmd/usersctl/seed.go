package main

import (
	"github.com/spf13/cobra"

	"github.com/oksasatya/go-user-service/internal/application"
	pginfra "github.com/oksasatya/go-user-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

func newSeedCmd(e *env) *cobra.Command {
	var in application.UserInput
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create one active user through the regular create path",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := e.pool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := application.NewService(pginfra.NewUserStore(pool), helpers.BcryptHasher{}, nil, application.Channels{})
			res, err := svc.Create(helpers.WithLogger(ctx, e.logger.WithField("cmd", "seed")), in)
			if err != nil {
				return err
			}
			cmd.Printf("seeded user: id=%s userName=%s\n", res.Envelope.Data.ID, res.Envelope.Data.UserName)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.UserName, "username", "demo@example.com", "user name (also stored as email)")
	cmd.Flags().StringVar(&in.Password, "password", "password123", "plain password, hashed before storing")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "Demo", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "User", "last name")
	cmd.Flags().StringVar(&in.Role, "role", "user", "role")
	cmd.Flags().BoolVar(&in.IsActive, "active", true, "mark the user active")
	return cmd
}
