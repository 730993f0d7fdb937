package main

import (
	"context"

	"reseller/internal/config"
	"reseller/internal/reconciler"
	"reseller/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// reconcileCommand constructs the 'reconcile' subcommand that runs one state
// and price reconciliation sweep and exits. Useful for operators repairing
// drift out of schedule.
func reconcileCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Runs one reconciliation sweep against all active registrars",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			registry := getRegistry(cfg)
			rec := reconciler.New(strg, registry, reconciler.Options{
				StaleAfter:   cfg.Reconciler.StaleAfter,
				BatchSize:    cfg.Worker.BatchSize,
				PriceWarnPct: cfg.Reconciler.PriceWarnPct,
			})

			syncResult, err := rec.Sync(ctx)
			if err != nil {
				logger.Fatal(ctx, "reconciliation sweep failed", zap.Error(err))
			}
			logger.Info(ctx, "reconciliation sweep finished",
				zap.Int("synced", syncResult.Synced),
				zap.Int("repaired", syncResult.Repaired),
				zap.Int("skipped", syncResult.Skipped),
				zap.Int("failed", syncResult.Failed))

			priceResult, err := rec.SyncPrices(ctx)
			if err != nil {
				logger.Fatal(ctx, "price sync failed", zap.Error(err))
			}
			logger.Info(ctx, "price sync finished",
				zap.Int("changed", priceResult.Changed),
				zap.Int("unchanged", priceResult.Unchanged))
		},
	}

	return cmd
}
