package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/clinicflow/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
	"github.com/zatekoja/clinicflow/pkg/config"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			printOnly, _ := cmd.Flags().GetBool("print")
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), postgres.Schema())
				return nil
			}
			return runMigrate(cmd.Context())
		},
	}
	cmd.Flags().Bool("print", false, "print the schema instead of applying it")
	return cmd
}

func runMigrate(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	client, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	log.Info().Str("database", cfg.Database.Database).Msg("schema applied")
	return nil
}
