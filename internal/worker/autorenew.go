package worker

import (
	"context"
	"fmt"
	"time"

	"reseller/internal/orchestrator"
	"reseller/pkg/logger"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// AutoRenewArgs schedules one auto-renewal sweep. Unique per hour so
// overlapping schedules collapse.
type AutoRenewArgs struct{}

func (AutoRenewArgs) Kind() string { return "auto_renew_sweep" }

func (AutoRenewArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByPeriod: time.Hour},
	}
}

// AutoRenewWorker renews every auto-renew domain approaching expiry.
// Per-domain failures are absorbed by the sweep itself; the job only fails
// when the sweep cannot even list the due domains.
type AutoRenewWorker struct {
	river.WorkerDefaults[AutoRenewArgs]

	orchestrator *orchestrator.Orchestrator
	horizon      time.Duration
	batchSize    uint
}

// NewAutoRenewWorker creates an AutoRenewWorker.
func NewAutoRenewWorker(orch *orchestrator.Orchestrator,
	horizon time.Duration,
	batchSize uint) *AutoRenewWorker {
	return &AutoRenewWorker{
		orchestrator: orch,
		horizon:      horizon,
		batchSize:    batchSize,
	}
}

func (w *AutoRenewWorker) Work(ctx context.Context, job *river.Job[AutoRenewArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	result, err := w.orchestrator.AutoRenewSweep(ctx, time.Now().Add(w.horizon), w.batchSize)
	if err != nil {
		return fmt.Errorf("could not run auto-renew sweep: %w", err)
	}

	logger.Info(ctx, "auto-renew sweep finished",
		zap.Int("renewed", result.Renewed),
		zap.Int("failed", result.Failed))

	return nil
}
