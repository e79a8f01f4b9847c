package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/MohsinAliJafery/backend/internal/config"
)

func sweepCmd(logger *slog.Logger) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel pending transactions older than the pending TTL",
		Long: `Cancel pending transactions whose gateway never called back.

The cutoff defaults to PENDING_TTL. Run it periodically, e.g. from cron:
  api sweep --older-than 24h`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if olderThan <= 0 {
				olderThan = cfg.PendingTTL
			}
			if olderThan <= 0 {
				return fmt.Errorf("pending TTL must be positive")
			}

			a, err := buildApp(cmd.Context(), cfg, false, logger)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.service.ExpirePending(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			logger.Info("pending sweep finished", slog.Int("expired", n), slog.Duration("older_than", olderThan))
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "cancel pending transactions created before now minus this duration")
	return cmd
}
