package worker

import (
	"context"
	"fmt"
	"time"

	"reseller/internal/reconciler"
	"reseller/pkg/logger"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// ReconcileArgs schedules one state reconciliation sweep.
type ReconcileArgs struct{}

func (ReconcileArgs) Kind() string { return "reconcile_sweep" }

func (ReconcileArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByPeriod: time.Hour},
	}
}

// ReconcileWorker compares local domain rows against registrar truth and
// repairs drift.
type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileArgs]

	reconciler *reconciler.Reconciler
}

// NewReconcileWorker creates a ReconcileWorker.
func NewReconcileWorker(rec *reconciler.Reconciler) *ReconcileWorker {
	return &ReconcileWorker{reconciler: rec}
}

func (w *ReconcileWorker) Work(ctx context.Context, job *river.Job[ReconcileArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	result, err := w.reconciler.Sync(ctx)
	if err != nil {
		return fmt.Errorf("could not run reconciliation sweep: %w", err)
	}

	logger.Info(ctx, "reconciliation sweep finished",
		zap.Int("synced", result.Synced),
		zap.Int("repaired", result.Repaired),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return nil
}

// PriceSyncArgs schedules one registrar price list pull.
type PriceSyncArgs struct{}

func (PriceSyncArgs) Kind() string { return "price_sync" }

func (PriceSyncArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByPeriod: time.Hour},
	}
}

// PriceSyncWorker refreshes the stored TLD price history.
type PriceSyncWorker struct {
	river.WorkerDefaults[PriceSyncArgs]

	reconciler *reconciler.Reconciler
}

// NewPriceSyncWorker creates a PriceSyncWorker.
func NewPriceSyncWorker(rec *reconciler.Reconciler) *PriceSyncWorker {
	return &PriceSyncWorker{reconciler: rec}
}

func (w *PriceSyncWorker) Work(ctx context.Context, job *river.Job[PriceSyncArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	result, err := w.reconciler.SyncPrices(ctx)
	if err != nil {
		return fmt.Errorf("could not run price sync: %w", err)
	}

	logger.Info(ctx, "price sync finished",
		zap.Int("changed", result.Changed),
		zap.Int("unchanged", result.Unchanged))

	return nil
}
