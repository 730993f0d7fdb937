package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reseller/internal/orchestrator"
	"reseller/pkg/logger"
	"reseller/pkg/serrors"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// TransferPollArgs schedules one pass over all in-flight transfers.
type TransferPollArgs struct{}

func (TransferPollArgs) Kind() string { return "transfer_poll" }

func (TransferPollArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		UniqueOpts: river.UniqueOpts{ByPeriod: 5 * time.Minute},
	}
}

// TransferPollWorker advances in-flight transfers by asking each registrar
// for the current state. When a registrar rate-limits the poll, the job is
// snoozed for the advertised retry-after instead of burning an attempt.
type TransferPollWorker struct {
	river.WorkerDefaults[TransferPollArgs]

	orchestrator *orchestrator.Orchestrator
	batchSize    uint
}

// NewTransferPollWorker creates a TransferPollWorker.
func NewTransferPollWorker(orch *orchestrator.Orchestrator, batchSize uint) *TransferPollWorker {
	return &TransferPollWorker{
		orchestrator: orch,
		batchSize:    batchSize,
	}
}

func (w *TransferPollWorker) Work(ctx context.Context, job *river.Job[TransferPollArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	if err := w.orchestrator.PollTransfers(ctx, w.batchSize); err != nil {
		if errors.Is(err, serrors.ErrRateLimited) {
			dur := serrors.RetryAfter(err)
			if dur <= 0 {
				dur = 30 * time.Second
			}

			return river.JobSnooze(dur) //nolint: wrapcheck
		}

		return fmt.Errorf("could not poll transfers: %w", err)
	}

	return nil
}
