package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"reseller/internal/config"
	"reseller/internal/orchestrator"
	"reseller/internal/reconciler"
	"reseller/internal/worker"
	"reseller/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setupMetricsServer starts the Prometheus metrics listener and returns its
// shutdown function.
func setupMetricsServer(ctx context.Context, cfg *config.Config) func(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(cfg.HTTP.MetricsPath, promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	go func() {
		logger.Info(ctx, "starting metrics server...", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "could not start metrics server", zap.Error(err))
			}
		}
	}()

	return func(ctx context.Context) {
		logger.Info(ctx, "stopping metrics server...")
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(ctx, "could not stop metrics server", zap.Error(err))
		}
	}
}

func serveCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts background workers and the metrics server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

			stopMetrics := setupMetricsServer(ctx, cfg)

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			registry := getRegistry(cfg)

			orch := orchestrator.New(strg, registry, nil, orchestrator.Options{
				CancelWindow: cfg.TransferCancelWindow,
			})
			rec := reconciler.New(strg, registry, reconciler.Options{
				StaleAfter:   cfg.Reconciler.StaleAfter,
				BatchSize:    cfg.Worker.BatchSize,
				PriceWarnPct: cfg.Reconciler.PriceWarnPct,
			})

			riverClient, err := worker.Start(ctx, strg.Pool, orch, rec, worker.Options{
				MaxWorkers:           cfg.Worker.MaxWorkers,
				RenewHorizon:         cfg.Worker.RenewHorizon,
				RenewInterval:        cfg.Worker.RenewInterval,
				TransferPollInterval: cfg.Worker.TransferPollInterval,
				ReconcileInterval:    cfg.Worker.ReconcileInterval,
				PriceSyncInterval:    cfg.Worker.PriceSyncInterval,
				BatchSize:            cfg.Worker.BatchSize,
			})
			if err != nil {
				logger.Fatal(ctx, "could not start workers", zap.Error(err))
			}

			// wait for interrupt
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulShutdownTimeout)
			defer cancel()

			if err := riverClient.Stop(shutdownCtx); err != nil {
				logger.Error(ctx, "could not stop workers", zap.Error(err))
			}
			stopMetrics(shutdownCtx)
		},
	}

	return cmd
}
