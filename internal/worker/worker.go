// Package worker wires the background machinery onto the River job queue:
// the auto-renewal sweep, the transfer status poller, and the two
// reconciliation sweeps (state and prices). Each runs as a periodic unique
// job so overlapping schedules collapse into one execution.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reseller/internal/orchestrator"
	"reseller/internal/reconciler"
	"reseller/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"
)

// Options configure the background schedules. Zero values select defaults.
type Options struct {
	// MaxWorkers bounds concurrent jobs on the default queue.
	MaxWorkers int
	// RenewHorizon is how far ahead of expiry the auto-renew sweep reaches.
	RenewHorizon time.Duration
	// RenewInterval is how often the auto-renew sweep runs.
	RenewInterval time.Duration
	// TransferPollInterval is how often in-flight transfers are polled.
	TransferPollInterval time.Duration
	// ReconcileInterval is how often the state reconciliation sweep runs.
	ReconcileInterval time.Duration
	// PriceSyncInterval is how often registrar price lists are pulled.
	PriceSyncInterval time.Duration
	// BatchSize bounds each sweep.
	BatchSize uint
}

func (o *Options) applyDefaults() {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 10
	}
	if o.RenewHorizon <= 0 {
		o.RenewHorizon = 30 * 24 * time.Hour
	}
	if o.RenewInterval <= 0 {
		o.RenewInterval = time.Hour
	}
	if o.TransferPollInterval <= 0 {
		o.TransferPollInterval = 15 * time.Minute
	}
	if o.ReconcileInterval <= 0 {
		o.ReconcileInterval = time.Hour
	}
	if o.PriceSyncInterval <= 0 {
		o.PriceSyncInterval = 24 * time.Hour
	}
	if o.BatchSize == 0 {
		o.BatchSize = 100
	}
}

// Start registers all workers, schedules the periodic jobs and starts the
// River client. The returned client must be stopped on shutdown.
func Start(ctx context.Context,
	dbPool *pgxpool.Pool,
	orch *orchestrator.Orchestrator,
	rec *reconciler.Reconciler,
	opts Options) (*river.Client[pgx.Tx], error) {
	opts.applyDefaults()

	workers := river.NewWorkers()
	river.AddWorker(workers, NewAutoRenewWorker(orch, opts.RenewHorizon, opts.BatchSize))
	river.AddWorker(workers, NewTransferPollWorker(orch, opts.BatchSize))
	river.AddWorker(workers, NewReconcileWorker(rec))
	river.AddWorker(workers, NewPriceSyncWorker(rec))

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: opts.MaxWorkers},
		},
		Workers: workers,
		Logger:  slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(opts.RenewInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return AutoRenewArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(opts.TransferPollInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return TransferPollArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(opts.ReconcileInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return ReconcileArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(opts.PriceSyncInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return PriceSyncArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
