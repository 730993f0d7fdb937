// Package orchestrator coordinates domain lifecycle operations across the
// wallet, the registrar backends and storage. Paid operations follow the same
// saga shape: debit the wallet and create a draft invoice in one transaction,
// call the registrar outside any transaction, then either persist the outcome
// and mark the invoice paid, or refund the debit and mark it failed. Money
// movements and registrar calls are never mixed in one transaction.
package orchestrator

import (
	"context"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/registrar"
	"reseller/pkg/storage"
)

const (
	// DefaultCancelWindow is how long after initiation a transfer may be
	// cancelled by the tenant.
	DefaultCancelWindow = 5 * 24 * time.Hour

	// SystemActor marks writes performed by background machinery.
	SystemActor = "system"
)

// Notifier receives lifecycle notifications. The orchestrator calls it at
// most once per state change; delivery is the implementation's problem.
type Notifier interface {
	// TransferFailed is invoked once when a transfer reaches the failed state.
	TransferFailed(ctx context.Context, d domain.Domain, reason string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) TransferFailed(context.Context, domain.Domain, string) {}

// Options tune orchestrator behavior. Zero values select the defaults.
type Options struct {
	// CancelWindow bounds tenant-initiated transfer cancellation.
	CancelWindow time.Duration
}

// Orchestrator executes lifecycle operations. Construct once with New and
// share; it is safe for concurrent use.
type Orchestrator struct {
	storage  storage.Storage
	registry *registrar.Registry
	notifier Notifier
	locks    *keyedMutex

	cancelWindow time.Duration

	// now is swappable for deterministic tests.
	now func() time.Time
}

// New creates an Orchestrator. notifier may be nil.
func New(store storage.Storage, registry *registrar.Registry, notifier Notifier, opts Options) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	cancelWindow := opts.CancelWindow
	if cancelWindow <= 0 {
		cancelWindow = DefaultCancelWindow
	}

	return &Orchestrator{
		storage:      store,
		registry:     registry,
		notifier:     notifier,
		locks:        newKeyedMutex(),
		cancelWindow: cancelWindow,
		now:          time.Now,
	}
}
