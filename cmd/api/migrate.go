package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	postgres "github.com/shoplist-app/shoplist-api/internal/adapters/postgres"
	"github.com/shoplist-app/shoplist-api/internal/platform/config"
	"github.com/shoplist-app/shoplist-api/internal/platform/logging"
)

func migrateCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			if cfg.StorageBackend != config.StoragePostgres {
				return errors.New("migrate requires STORAGE_BACKEND=postgres")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := postgres.Migrate(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			log.Info("migrations applied", "from", res.From, "to", res.To, "changed", res.Applied())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall migration timeout")
	return cmd
}
