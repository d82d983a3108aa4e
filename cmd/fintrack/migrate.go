package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/fintrack-server/internal/config"
	pgkv "github.com/dtroode/fintrack-server/internal/kv/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres key-value schema",
		Long: `Apply the goose migrations of the postgres key-value backend.

Services run them on startup as well; the redis backend needs no schema.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.KV.Driver != config.DriverPostgres {
				log.Info("Nothing to migrate", "driver", cfg.KV.Driver)
				return nil
			}

			ctx := cmd.Context()

			db, err := pgkv.Open(ctx, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			defer db.Close()

			log.Info("Migrations applied")
			return nil
		},
	}
}
