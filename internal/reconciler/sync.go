package reconciler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"reseller/pkg/domain"
	"reseller/pkg/logger"
	"reseller/pkg/metrics"
	"reseller/pkg/registrar"
	"reseller/pkg/serrors"
	"reseller/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncResult summarizes one reconciliation sweep.
type SyncResult struct {
	// Synced counts domains successfully compared against the registrar.
	Synced int
	// Repaired counts domains where at least one field drifted and was fixed.
	Repaired int
	// Skipped counts domains left untouched because the vendor state could
	// not be interpreted.
	Skipped int
	// Failed counts domains whose registrar lookup errored.
	Failed int
}

// expiryTolerance absorbs vendor clock skew; smaller differences are not drift.
const expiryTolerance = time.Minute

// Sync sweeps every active registrar's due domains. A domain is due when it
// has never been synced or its last sync is older than the staleness bound.
// Failures are isolated per domain and recorded on the row itself, so one
// broken name never blocks the rest of the batch.
func (r *Reconciler) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	staleBefore := r.now().Add(-r.staleAfter)

	for _, client := range r.registry.Active(ctx) {
		due, err := r.storage.DomainsDueForSync(ctx, client.Name(), staleBefore, r.batchSize)
		if err != nil {
			return result, fmt.Errorf("could not list domains due for sync on %q: %w", client.Name(), err)
		}

		for _, d := range due {
			outcome, err := r.syncDomain(ctx, client, d)
			if err != nil {
				result.Failed++
				r.recordSyncError(ctx, d, err)

				continue
			}
			result.Synced++
			switch outcome {
			case outcomeRepaired:
				result.Repaired++
			case outcomeSkipped:
				result.Skipped++
			case outcomeClean:
			}
		}
	}

	return result, nil
}

type syncOutcome int

const (
	outcomeClean syncOutcome = iota
	outcomeRepaired
	outcomeSkipped
)

// syncDomain compares one domain against the registrar and repairs drift in
// a single transaction, auditing each changed field separately. Running it
// twice in a row repairs nothing the second time.
func (r *Reconciler) syncDomain(ctx context.Context,
	client registrar.Client,
	d domain.Domain) (syncOutcome, error) {
	res, err := client.Info(ctx, d.Name)
	if err != nil {
		return outcomeClean, err
	}
	if res.Info == nil {
		return outcomeClean, serrors.With(serrors.ErrInvalidData,
			"registrar returned no info payload for %q", d.Name)
	}
	info := res.Info

	updates := storage.DomainUpdates{}
	var audits []domain.AuditEntry
	record := func(field, oldValue, newValue string) {
		audits = append(audits, domain.AuditEntry{
			TenantID: d.TenantID,
			Action:   domain.AuditSyncDriftRepaired,
			Entity:   "domain",
			EntityID: uuid.UUID(d.ID).String(),
			Field:    field,
			OldValue: oldValue,
			NewValue: newValue,
			Actor:    "reconciler",
		})
		metrics.ReconcileDrift.WithLabelValues(field).Inc()
	}

	skipped := false

	// status: only the registrar statuses this side understands can repair
	// the local one; anything else is left alone and counted as skipped
	if next, ok := mapVendorStatus(info.Status, d.Status); !ok && info.Status != "" {
		skipped = true
		logger.Warn(ctx, "unknown registrar status, leaving local status unchanged",
			zap.String("domain", d.Name),
			zap.String("vendorStatus", info.Status))
	} else if ok && next != d.Status {
		updates.Status = next
		updates.ExpectStatus = d.Status
		record("status", string(d.Status), string(next))
	}

	if !info.ExpiresAt.IsZero() {
		diff := info.ExpiresAt.Sub(d.ExpiresAt)
		if diff < 0 {
			diff = -diff
		}
		if diff > expiryTolerance {
			expiresAt := info.ExpiresAt
			updates.ExpiresAt = &expiresAt
			record("expires_at",
				d.ExpiresAt.Format(time.RFC3339),
				info.ExpiresAt.Format(time.RFC3339))
		}
	}

	if len(info.Nameservers) > 0 && !slices.Equal(normalizeNS(info.Nameservers), normalizeNS(d.Nameservers)) {
		updates.Nameservers = info.Nameservers
		record("nameservers",
			strings.Join(d.Nameservers, ","),
			strings.Join(info.Nameservers, ","))
	}

	now := r.now()
	updates.LastSyncedAt = &now
	empty := ""
	updates.LastSyncError = &empty
	if len(res.Raw) > 0 {
		updates.SyncMetadata = res.Raw
	}

	err = r.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		upd, err := tx.UpdateDomainByID(ctx, d.ID, updates)
		if err != nil {
			return err
		}
		if upd == nil {
			// the domain moved under us; next sweep will retry
			return nil
		}

		return tx.AppendAudit(ctx, audits...)
	})
	if err != nil {
		return outcomeClean, fmt.Errorf("could not persist sync of %q: %w", d.Name, err)
	}

	if len(audits) > 0 {
		logger.Info(ctx, "drift repaired",
			zap.String("domain", d.Name),
			zap.Int("fields", len(audits)))

		return outcomeRepaired, nil
	}
	if skipped {
		return outcomeSkipped, nil
	}

	return outcomeClean, nil
}

// recordSyncError stores the failure on the domain row without touching
// LastSyncedAt, so the domain stays due and is retried next sweep.
func (r *Reconciler) recordSyncError(ctx context.Context, d domain.Domain, cause error) {
	msg := cause.Error()
	if _, err := r.storage.UpdateDomainByID(ctx, d.ID, storage.DomainUpdates{
		LastSyncError: &msg,
	}); err != nil {
		logger.Error(ctx, "could not record sync error",
			zap.String("domain", d.Name), zap.Error(err))
	}

	logger.Warn(ctx, "domain sync failed",
		zap.String("domain", d.Name), zap.Error(cause))
}

// mapVendorStatus translates the registrar-reported status into the local
// lifecycle where a safe mapping exists. Transfer states are owned by the
// transfer poller and are never repaired here.
func mapVendorStatus(vendor string, local domain.DomainStatus) (domain.DomainStatus, bool) {
	if local.IsTransferState() {
		return "", false
	}

	switch strings.ToLower(vendor) {
	case "active", "ok", "registered":
		return domain.DomainStatusActive, true
	case "expired":
		return domain.DomainStatusExpired, true
	case "deleted", "released":
		return domain.DomainStatusDeleted, true
	default:
		return "", false
	}
}

func normalizeNS(ns []string) []string {
	out := make([]string, 0, len(ns))
	for _, h := range ns {
		out = append(out, strings.ToLower(strings.TrimSpace(h)))
	}
	slices.Sort(out)

	return out
}
