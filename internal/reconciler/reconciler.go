// Package reconciler periodically compares local domain state against
// registrar-reported truth and repairs drift. The registrar is authoritative
// for expiry dates, delegation and registration status; local rows are
// patched to match, with one audit entry per repaired field.
package reconciler

import (
	"time"

	"reseller/pkg/registrar"
	"reseller/pkg/storage"
)

const (
	// DefaultStaleAfter is how old a sync may get before a domain is due again.
	DefaultStaleAfter = 24 * time.Hour
	// DefaultBatchSize bounds one sweep per registrar.
	DefaultBatchSize = 100
	// DefaultPriceWarnPct is the relative price change that triggers a warning.
	DefaultPriceWarnPct = 10
)

// Options tune the reconciliation sweeps. Zero values select the defaults.
type Options struct {
	StaleAfter   time.Duration
	BatchSize    uint
	PriceWarnPct int
}

// Reconciler drives the sync and price sweeps. Safe for concurrent use.
type Reconciler struct {
	storage  storage.Storage
	registry *registrar.Registry

	staleAfter   time.Duration
	batchSize    uint
	priceWarnPct int

	// now is swappable for deterministic tests.
	now func() time.Time
}

// New creates a Reconciler.
func New(store storage.Storage, registry *registrar.Registry, opts Options) *Reconciler {
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	priceWarnPct := opts.PriceWarnPct
	if priceWarnPct <= 0 {
		priceWarnPct = DefaultPriceWarnPct
	}

	return &Reconciler{
		storage:      store,
		registry:     registry,
		staleAfter:   staleAfter,
		batchSize:    batchSize,
		priceWarnPct: priceWarnPct,
		now:          time.Now,
	}
}
