package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MohsinAliJafery/backend/internal/config"
)

func migrateCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.DbDriver == "memory" {
				return fmt.Errorf("nothing to migrate for DB_DRIVER=memory")
			}

			_, release, err := openStore(cmd.Context(), cfg, true, logger)
			if err != nil {
				return err
			}
			release()

			logger.Info("migrations applied", slog.String("driver", cfg.DbDriver))
			return nil
		},
	}
}
